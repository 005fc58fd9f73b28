package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/store"
)

func runCLI(t *testing.T, ctx context.Context, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(ctx)
	return out.String(), err
}

// writeTestConfig writes a config that runs without a camera, detector or player.
func writeTestConfig(t *testing.T, poses []int) (path, dataDir string) {
	t.Helper()
	dataDir = t.TempDir()

	cfg := config.DefaultConfig()
	cfg.DataDir = dataDir
	cfg.Camera.Source = "blank"
	cfg.Detector.Kind = "mock"
	cfg.Detector.MockPoses = poses
	cfg.Detector.MockHoldFrames = 1
	cfg.Backend.Kind = "memory"
	cfg.Preview.Enabled = false
	cfg.Tray.Enabled = false
	cfg.Loop.FrameBudgetMS = 0
	cfg.Logging.Level = "error"

	b, err := cfg.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	path = filepath.Join(dataDir, "config.yaml")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path, dataDir
}

func TestVersion(t *testing.T) {
	out, err := runCLI(t, context.Background(), "version")
	if err != nil {
		t.Fatalf("version error = %v", err)
	}
	if strings.TrimSpace(out) != "mudra "+version {
		t.Errorf("output = %q", out)
	}
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	out, err := runCLI(t, context.Background(), "config", "init", "--config", path)
	if err != nil {
		t.Fatalf("config init error = %v", err)
	}
	if !strings.Contains(out, path) {
		t.Errorf("output %q does not name the file", out)
	}

	cfg, err := config.LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("written config invalid: %v", err)
	}

	if _, err := runCLI(t, context.Background(), "config", "init", "--config", path); err == nil {
		t.Error("expected error when the file exists")
	}
	if _, err := runCLI(t, context.Background(), "config", "init", "--config", path, "--overwrite"); err != nil {
		t.Errorf("config init --overwrite error = %v", err)
	}
}

func TestConfigShow(t *testing.T) {
	path, dataDir := writeTestConfig(t, nil)

	out, err := runCLI(t, context.Background(), "config", "show", "--config", path, "--log-level", "debug")
	if err != nil {
		t.Fatalf("config show error = %v", err)
	}
	cfg, err := config.Parse([]byte(out))
	if err != nil {
		t.Fatalf("output is not a config: %v", err)
	}
	if cfg.DataDir != dataDir || cfg.Backend.Kind != "memory" {
		t.Errorf("shown config = %+v", cfg)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("log level = %q, want the --log-level value", cfg.Logging.Level)
	}
}

func TestConfigValidate_MissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")
	if _, err := runCLI(t, context.Background(), "config", "validate", "--config", missing); err == nil {
		t.Fatal("expected error for a missing --config file")
	}
}

func TestRunAndHistory(t *testing.T) {
	path, _ := writeTestConfig(t, []int{0, 1, 2})

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if _, err := runCLI(t, ctx, "run", "--config", path); err != nil {
		t.Fatalf("run error = %v", err)
	}

	out, err := runCLI(t, context.Background(), "history", "--config", path)
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	if !strings.Contains(out, "memory") || !strings.Contains(out, "blank") {
		t.Errorf("session table missing backend or camera:\n%s", out)
	}

	out, err = runCLI(t, context.Background(), "history", "--config", path, "--events")
	if err != nil {
		t.Fatalf("history --events error = %v", err)
	}
	for _, want := range []string{"pause", "volume_up(10)", "0->1", "1->2"} {
		if !strings.Contains(out, want) {
			t.Errorf("events table missing %q:\n%s", want, out)
		}
	}
}

func TestHistory_UnknownSession(t *testing.T) {
	path, dataDir := writeTestConfig(t, nil)

	cfg := config.DefaultConfig()
	cfg.DataDir = dataDir
	st, err := store.New(cfg.HistoryPath())
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	st.Close()

	if _, err := runCLI(t, context.Background(), "history", "--config", path, "--session", "missing"); err == nil {
		t.Fatal("expected error for an unknown session")
	}
}

func TestHistory_Empty(t *testing.T) {
	path, _ := writeTestConfig(t, nil)

	out, err := runCLI(t, context.Background(), "history", "--config", path)
	if err != nil {
		t.Fatalf("history error = %v", err)
	}
	if !strings.Contains(out, "No history recorded yet") {
		t.Errorf("output = %q", out)
	}
}
