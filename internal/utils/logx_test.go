package utils

import (
	"admin_gate/internal/dataType"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestLogxManagerCapsHosts(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	m.maxHosts = 4

	for i := 0; i < 200; i++ {
		m.LogInfo(dataType.UserRequest{Host: fmt.Sprintf("h%d.example.com", i), RemoteIP: "8.8.8.8"}, "deny", "not allow listed")
	}
	m.Sync()

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != m.maxHosts+1 {
		t.Errorf("log dirs = %d, want %d", len(entries), m.maxHosts+1)
	}
	if len(m.loggers) != m.maxHosts+1 {
		t.Errorf("loggers = %d, want %d", len(m.loggers), m.maxHosts+1)
	}

	data, err := os.ReadFile(filepath.Join(dir, systemLogHost, "info.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "h199.example.com") {
		t.Errorf("overflow host not written to the system log:\n%s", data)
	}

	// Hosts opened before the limit keep their own logger.
	m.LogInfo(dataType.UserRequest{Host: "h0.example.com"}, "deny", "again")
	if len(m.loggers) != m.maxHosts+1 {
		t.Errorf("loggers after known host = %d, want %d", len(m.loggers), m.maxHosts+1)
	}
}

func TestLogxManagerEmptyHost(t *testing.T) {
	dir := t.TempDir()
	m := NewManager(dir)
	m.LogInfo(dataType.UserRequest{}, "deny", "x")
	m.LogSystem(zapcore.InfoLevel, "rules reloaded", "")

	if _, err := os.Stat(filepath.Join(dir, systemLogHost, "info.log")); err != nil {
		t.Errorf("system log missing: %v", err)
	}
	if m.hosts != 0 {
		t.Errorf("hosts = %d, want 0", m.hosts)
	}
}
