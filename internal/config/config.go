package config

import (
	"admin_gate/internal/dataType"
	"admin_gate/internal/utils"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

const (
	AllowListFile = "IP_AllowList.conf"
	GateRuleFile  = "Gate.yml"
)

type MainConfig struct {
	Port                  string   `yaml:"port" validate:"required,numeric"`
	WebPath               string   `yaml:"web_path" validate:"required,startswith=/"`
	RulePath              string   `yaml:"rule_path" validate:"required"`
	LogPath               string   `yaml:"log_path"`
	NodeName              string   `yaml:"node_name" validate:"required"`
	ConnectingHostHeaders []string `yaml:"connecting_host_headers"`
	ConnectingIPHeaders   []string `yaml:"connecting_ip_headers"`
	ConnectingURIHeaders  []string `yaml:"connecting_uri_headers"`
	InternalTokenHeader   string   `yaml:"internal_token_header" validate:"required_with=InternalToken"`
	InternalToken         string   `yaml:"internal_token" validate:"omitempty,min=32"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func defaultMainConfig() MainConfig {
	return MainConfig{
		Port:                  "25556",
		WebPath:               "/gate",
		RulePath:              "/www/admin_gate/config/rules",
		LogPath:               "/www/admin_gate/log/",
		NodeName:              "Admin Gate",
		ConnectingHostHeaders: []string{"Gate-Real-Host"},
		ConnectingIPHeaders:   []string{"Gate-Real-IP"},
		ConnectingURIHeaders:  []string{"Gate-Original-URI"},
	}
}

// LoadMainConfig Read the configuration file and return the configuration object
func LoadMainConfig(basePath string) (*MainConfig, error) {
	defaultCfg := defaultMainConfig()

	if basePath == "" {
		exePath, err := os.Executable()
		if err != nil {
			return nil, err
		}
		basePath = filepath.Dir(exePath)
	}
	configPath := filepath.Join(basePath, "config", "gate.yml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return &defaultCfg, err
	}

	cfg := defaultMainConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return &defaultCfg, fmt.Errorf("[ERROR] failed to parse config file %s: %w", configPath, err)
	}
	if err := validate.Struct(&cfg); err != nil {
		return &defaultCfg, fmt.Errorf("[ERROR] invalid config file %s: %w", configPath, err)
	}

	return &cfg, nil
}

// RuleSet is an immutable snapshot of the stored gate configuration.
// Reloads build a new RuleSet instead of editing one in place.
type RuleSet struct {
	Enabled     bool
	AllowList   []dataType.IPRule
	AllowTrie   *dataType.IPTrie
	RequiredIPs []string
	Dropped     []string
}

// NewRuleSet builds a snapshot from raw operator lines.
func NewRuleSet(enabled bool, allowLines, requiredLines []string) *RuleSet {
	rules, dropped := utils.ParseRuleList(allowLines)
	return &RuleSet{
		Enabled:     enabled,
		AllowList:   rules,
		AllowTrie:   dataType.NewIPTrie(rules),
		RequiredIPs: append([]string(nil), requiredLines...),
		Dropped:     dropped,
	}
}

// LoadRules Load the allow list and gate state from the specified path
func LoadRules(rulePath string) (*RuleSet, error) {
	allowFile := filepath.Join(rulePath, AllowListFile)
	lines, err := readRuleLines(allowFile)
	if err != nil {
		return nil, err
	}

	gate, err := LoadGateRule(rulePath)
	if err != nil {
		return nil, err
	}

	rs := NewRuleSet(gate.Enabled, lines, gate.RequiredIPs)
	for _, line := range rs.Dropped {
		utils.LogSystem(zapcore.InfoLevel, "dropped invalid allow entry", fmt.Sprintf("%q in %s", strings.TrimSpace(line), allowFile))
	}
	return rs, nil
}

// LoadGateRule reads Gate.yml. A missing file means a disabled gate with no required entries.
func LoadGateRule(rulePath string) (dataType.GateRule, error) {
	var gate dataType.GateRule
	file := filepath.Join(rulePath, GateRuleFile)
	data, err := os.ReadFile(file)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return gate, nil
		}
		return gate, fmt.Errorf("[ERROR] failed to read rules file %s: %w", file, err)
	}
	if err := yaml.Unmarshal(data, &gate); err != nil {
		return gate, fmt.Errorf("[ERROR] failed to parse rules file %s: %w", file, err)
	}
	return gate, nil
}

// SaveGateRule writes Gate.yml.
func SaveGateRule(rulePath string, gate dataType.GateRule) error {
	data, err := yaml.Marshal(gate)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(rulePath, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(rulePath, GateRuleFile), data, 0644)
}

// readRuleLines reads a newline or comma separated rule file. A missing file is an empty list.
func readRuleLines(filePath string) ([]string, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("[ERROR] failed to read rules file %s: %w", filePath, err)
	}
	return utils.SplitRuleText(string(data)), nil
}
