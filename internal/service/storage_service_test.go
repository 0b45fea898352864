package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"microcourse_backend/internal/config"
)

func TestLocalArchive(t *testing.T) {
	root := t.TempDir()
	svc := NewStorageService(&config.StorageConfig{Type: "local", LocalPath: root})

	url, err := svc.Archive(context.Background(), "sops/org-1/a.txt", []byte("wash hands"), "text/plain")
	if err != nil {
		t.Fatalf("Archive: %v", err)
	}
	if url != "/uploads/sops/org-1/a.txt" {
		t.Fatalf("url: %s", url)
	}
	data, err := os.ReadFile(filepath.Join(root, "sops", "org-1", "a.txt"))
	if err != nil || string(data) != "wash hands" {
		t.Fatalf("archived file: %q %v", data, err)
	}

	for _, key := range []string{"../escape.txt", "sops/../../escape.txt", ""} {
		if _, err := svc.Archive(context.Background(), key, []byte("x"), "text/plain"); err == nil {
			t.Fatalf("%q: expected key rejection", key)
		}
	}
}
