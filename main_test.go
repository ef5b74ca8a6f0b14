package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

func writeTestInstall(t *testing.T) string {
	t.Helper()
	base := t.TempDir()
	rules := filepath.Join(base, "rules")
	files := map[string]string{
		filepath.Join(base, "config", "gate.yml"):  "rule_path: " + rules + "\nlog_path: \"\"\n",
		filepath.Join(rules, "IP_AllowList.conf"): "203.0.113.0/24\njunk\n198.51.100.7\n",
		filepath.Join(rules, "Gate.yml"):          "enabled: true\nrequired_ips:\n  - 192.0.2.10\n  - nope\n",
	}
	for path, content := range files {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return base
}

func runCmd(t *testing.T, args ...string) string {
	t.Helper()
	var buf bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return buf.String()
}

func TestLintCmd(t *testing.T) {
	t.Setenv("ADMIN_GATE_FORCE", "")
	base := writeTestInstall(t)

	got := runCmd(t, "lint", "--prefix", base)
	want := "# enabled: true\n" +
		"# allow list (2)\n" +
		"203.0.113.0/24\n" +
		"198.51.100.7\n" +
		"# required (1)\n" +
		"192.0.2.10\n" +
		"# dropped: \"junk\"\n" +
		"# dropped required: \"nope\"\n"
	if got != want {
		t.Errorf("lint output = %q, want %q", got, want)
	}
}

func TestCheckCmd(t *testing.T) {
	t.Setenv("ADMIN_GATE_FORCE", "")
	base := writeTestInstall(t)

	tests := []struct {
		ip   string
		want string
	}{
		{"8.8.8.8", "8.8.8.8 deny (not allow listed)\n"},
		{"203.0.113.9", "203.0.113.9 allow (allow listed)\n"},
		{"192.0.2.10", "192.0.2.10 allow (allow listed)\n"},
	}
	for _, tt := range tests {
		if got := runCmd(t, "check", tt.ip, "--prefix", base); got != tt.want {
			t.Errorf("check %s = %q, want %q", tt.ip, got, tt.want)
		}
	}
}
