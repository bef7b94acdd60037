package cache

import (
	"context"
	"testing"
)

func TestFileCacheSetGet(t *testing.T) {
	dir := t.TempDir()
	c := NewFileCache(dir)
	ctx := context.Background()

	if err := c.SetBytes(ctx, "eurusd-2024", []byte("payload")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got, ok, err := c.GetBytes(ctx, "eurusd-2024")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || string(got) != "payload" {
		t.Fatalf("got %q, %v, want payload, true", got, ok)
	}
}

func TestFileCacheMiss(t *testing.T) {
	c := NewFileCache(t.TempDir())
	_, ok, err := c.GetBytes(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected a miss for an unwritten key")
	}
}

func TestFileCacheCreatesDirLazily(t *testing.T) {
	dir := t.TempDir() + "/nested/cache"
	c := NewFileCache(dir)
	if err := c.SetBytes(context.Background(), "k", []byte("v")); err != nil {
		t.Fatalf("expected SetBytes to create the directory tree, got %v", err)
	}
}
