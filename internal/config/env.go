package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

const ForceEnvName = "ADMIN_GATE_FORCE"

// LoadEnvFile loads basePath/.env into the process environment without
// overriding variables that are already set.
func LoadEnvFile(basePath string) error {
	err := godotenv.Load(filepath.Join(basePath, ".env"))
	if err != nil && errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// EnabledOverrideFromEnv returns an override of the stored enabled flag driven by
// the named variable. "on" forces the gate on, "off" forces it off, anything else
// keeps the stored value. The variable is read on every call.
func EnabledOverrideFromEnv(name string) func(stored bool) bool {
	return func(stored bool) bool {
		forced, ok := ParseForce(os.Getenv(name))
		if !ok {
			return stored
		}
		return forced
	}
}

// ParseForce interprets a force switch value.
func ParseForce(v string) (forced bool, ok bool) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "on", "true", "1", "yes":
		return true, true
	case "off", "false", "0", "no":
		return false, true
	}
	return false, false
}
