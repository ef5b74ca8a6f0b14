package config

import (
	"admin_gate/internal/utils"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap/zapcore"
)

// SeedAllowList prepares a fresh install: ip is appended to the allow list unless
// already present, and the gate is stored disabled so the operator can review the
// list before turning it on. Existing lines, invalid ones included, are left as
// written. Required entries in Gate.yml are kept.
func SeedAllowList(rulePath, ip string) error {
	seed, ok := utils.ValidateIP(ip)
	if !ok {
		return fmt.Errorf("cannot seed %q: not a public address or range", ip)
	}

	allowFile := filepath.Join(rulePath, AllowListFile)
	lines, err := readRuleLines(allowFile)
	if err != nil {
		return err
	}
	rules, dropped := utils.ParseRuleList(lines)
	for _, line := range dropped {
		utils.LogSystem(zapcore.InfoLevel, "invalid allow entry kept", fmt.Sprintf("%q in %s", strings.TrimSpace(line), allowFile))
	}

	if !slices.Contains(rules, seed) {
		if err := appendRuleLine(rulePath, allowFile, seed.String()); err != nil {
			return err
		}
	}

	gate, err := LoadGateRule(rulePath)
	if err != nil {
		return err
	}
	gate.Enabled = false
	return SaveGateRule(rulePath, gate)
}

// appendRuleLine adds line to the end of file without touching existing content.
func appendRuleLine(rulePath, file, line string) error {
	if err := os.MkdirAll(rulePath, 0755); err != nil {
		return err
	}
	existing, err := os.ReadFile(file)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("[ERROR] failed to read rules file %s: %w", file, err)
	}
	if len(existing) > 0 && existing[len(existing)-1] != '\n' {
		line = "\n" + line
	}

	f, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("[ERROR] failed to write rules file %s: %w", file, err)
	}
	if _, err := f.WriteString(line + "\n"); err != nil {
		f.Close()
		return fmt.Errorf("[ERROR] failed to write rules file %s: %w", file, err)
	}
	return f.Close()
}

// ClearRules removes every file the gate stores under rulePath.
func ClearRules(rulePath string) error {
	for _, name := range []string{AllowListFile, GateRuleFile} {
		err := os.Remove(filepath.Join(rulePath, name))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}
	return nil
}
