package cmd

import (
	"bytes"
	"io"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestMigrateCommand(t *testing.T) {
	out, err := execute(t, "migrate", "--database-url", "sqlite://:memory:", "--log-level", "error")
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	if !strings.Contains(out, "applied 0001_init") {
		t.Errorf("Invalid result, got: %q, instead of: %q.", out, "applied 0001_init")
	}
	if cfg == nil || cfg.DatabaseURL != "sqlite://:memory:" {
		t.Errorf("database flag not applied to config: %+v", cfg)
	}
}

func TestInvalidFlagAbortsRun(t *testing.T) {
	_, err := execute(t, "migrate", "--database-url", "sqlite://:memory:", "--delay-profile", "reckless")
	if err == nil || !strings.Contains(err.Error(), "DelayProfile") {
		t.Errorf("got %v, want a DelayProfile validation error", err)
	}
}
