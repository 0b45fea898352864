package configwatcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"microcourse_backend/internal/config"
)

func TestWatchConfigReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "config.yaml")
	write := func(model string) {
		body := "database:\n  driver: memory\nstorage:\n  local_path: " + filepath.ToSlash(dir) + "\nai:\n  model: " + model + "\n"
		if err := os.WriteFile(file, []byte(body), 0o644); err != nil {
			t.Fatalf("write config: %v", err)
		}
	}
	write("gpt-old")

	ctx, cancel := context.WithCancel(context.Background())
	reloaded := make(chan *config.Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- WatchConfig(ctx, file, func(cfg *config.Config) { reloaded <- cfg })
	}()

	// 监听注册是异步的，反复写入直到收到一次重新加载
	deadline := time.After(10 * time.Second)
	tick := time.NewTicker(300 * time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case cfg := <-reloaded:
			if cfg.AI.Model != "gpt-new" {
				t.Fatalf("reloaded model: %q", cfg.AI.Model)
			}
			cancel()
			if err := <-done; err != nil {
				t.Fatalf("WatchConfig: %v", err)
			}
			return
		case <-tick.C:
			write("gpt-new")
		case <-deadline:
			cancel()
			t.Fatalf("config was not reloaded")
		}
	}
}

func TestWatchConfigMissingDirectory(t *testing.T) {
	err := WatchConfig(context.Background(), filepath.Join(t.TempDir(), "nope", "config.yaml"), func(*config.Config) {})
	if err == nil {
		t.Fatalf("expected error for missing directory")
	}
}
