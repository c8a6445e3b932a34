package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalStorePutAndURL(t *testing.T) {
	dir := t.TempDir()
	s := &LocalStore{Dir: dir, BaseURL: "http://localhost:8080/"}
	ctx := context.Background()

	if err := s.Put(ctx, "2026/10/avatar.png", strings.NewReader("png-bytes"), 9, "image/png"); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := os.ReadFile(filepath.Join(dir, "2026", "10", "avatar.png"))
	if err != nil || string(got) != "png-bytes" {
		t.Fatalf("unexpected file contents %q (%v)", got, err)
	}
	url, _ := s.URL(ctx, "2026/10/avatar.png")
	if url != "http://localhost:8080/uploads/2026/10/avatar.png" {
		t.Fatalf("unexpected url %s", url)
	}
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	s := &LocalStore{Dir: t.TempDir()}
	if err := s.Put(context.Background(), "../escape.txt", strings.NewReader("x"), 1, "text/plain"); err == nil {
		t.Fatalf("expected traversal key to be rejected")
	}
}
