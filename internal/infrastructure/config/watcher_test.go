package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestWatcherReloadsOnConfigFileWrite(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configFile, []byte("server:\n  port: 9001\n"), 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(configFile, zap.NewNop(), func(cfg *Config) { reloaded <- cfg })
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	if err := os.WriteFile(configFile, []byte("server:\n  port: 9002\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-reloaded:
		if cfg.Server.Port != 9002 {
			t.Fatalf("got port %d, want 9002", cfg.Server.Port)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload callback")
	}
}

func TestWatcherIgnoresWritesToOtherFiles(t *testing.T) {
	dir := t.TempDir()
	configFile := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(configFile, []byte("server:\n  port: 9001\n"), 0o644); err != nil {
		t.Fatalf("seed config: %v", err)
	}
	other := filepath.Join(dir, "unrelated.txt")

	reloaded := make(chan *Config, 1)
	w, err := NewWatcher(configFile, zap.NewNop(), func(cfg *Config) { reloaded <- cfg })
	if err != nil {
		t.Fatalf("NewWatcher: %v", err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)

	if err := os.WriteFile(other, []byte("noise"), 0o644); err != nil {
		t.Fatalf("write other: %v", err)
	}

	select {
	case <-reloaded:
		t.Fatal("unrelated file write should not trigger a reload")
	case <-time.After(300 * time.Millisecond):
	}
}
