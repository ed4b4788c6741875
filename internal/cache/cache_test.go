package cache

import (
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	a := Key("openai", "gpt-4o-mini", "metric", "Accuracy on GLUE")
	b := Key("openai", "gpt-4o-mini", "metric", "Accuracy on GLUE")
	c := Key("openai", "gpt-4o-mini", "spec", "Accuracy on GLUE")

	if a != b {
		t.Errorf("expected stable key, got %q and %q", a, b)
	}
	if a == c {
		t.Error("expected different keys for different query kinds")
	}
	if !strings.HasPrefix(a, "tabclaim:v1:") {
		t.Errorf("unexpected key prefix: %q", a)
	}

	// parts are delimited, not concatenated
	if Key("ab", "c") == Key("a", "bc") {
		t.Error("expected part boundaries to affect the key")
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("expected miss")
	}

	if err := c.Set("k", []byte("Dataset"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	val, ok := c.Get("k")
	if !ok || string(val) != "Dataset" {
		t.Fatalf("expected hit with Dataset, got %q %v", val, ok)
	}

	if err := c.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("expected miss after delete")
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	if err := c.Set("fresh", []byte("F1"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := c.Set("stale", []byte("BLEU"), -time.Second); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if val, ok := c.Get("fresh"); !ok || string(val) != "F1" {
		t.Errorf("expected fresh hit, got %q %v", val, ok)
	}
	if _, ok := c.Get("stale"); ok {
		t.Error("expected expired entry to miss")
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "*", "*.json"))
	if len(matches) != 1 {
		t.Errorf("expected expired file removed, found %d files", len(matches))
	}
}

func TestDiskCache_Prune(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)

	for _, k := range []string{"a", "b", "c"} {
		if err := c.Set(k, []byte(k), 0); err != nil {
			t.Fatalf("Set: %v", err)
		}
	}

	c.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if err := c.Set("late", []byte("Split"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	removed, err := c.Prune()
	if err != nil {
		t.Fatalf("Prune: %v", err)
	}
	if removed != 3 {
		t.Errorf("expected 3 expired entries removed, got %d", removed)
	}
	if val, ok := c.Get("late"); !ok || string(val) != "Split" {
		t.Errorf("expected live entry kept, got %q %v", val, ok)
	}

	// Pruning a cache that was never written is a no-op
	empty := NewDiskCache(filepath.Join(dir, "missing"), time.Hour)
	if n, err := empty.Prune(); err != nil || n != 0 {
		t.Errorf("expected no-op prune, got %d %v", n, err)
	}
}

func TestMemoryCache_CopiesValues(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	value := []byte("Model")
	_ = c.Set("k", value, 0)
	value[0] = 'X'

	got, _ := c.Get("k")
	if string(got) != "Model" {
		t.Errorf("expected stored copy, got %q", got)
	}
	got[0] = 'Y'
	again, _ := c.Get("k")
	if string(again) != "Model" {
		t.Errorf("expected returned copy, got %q", again)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", c.Len())
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()

	first := NewLayeredCache(time.Minute, dir, time.Hour)
	if err := first.Set("k", []byte("Language"), 0); err != nil {
		t.Fatalf("Set: %v", err)
	}

	// A fresh instance starts with an empty memory layer
	second := NewLayeredCache(time.Minute, dir, time.Hour)
	val, ok := second.Get("k")
	if !ok || string(val) != "Language" {
		t.Fatalf("expected disk hit, got %q %v", val, ok)
	}
	if val, ok := second.memory.Get("k"); !ok || string(val) != "Language" {
		t.Error("expected disk hit promoted to memory")
	}

	if _, ok := second.Get("k"); !ok {
		t.Fatal("expected memory hit")
	}
	if _, ok := second.Get("other"); ok {
		t.Fatal("expected miss")
	}
	if got, want := second.Stats(), (Stats{MemoryHits: 1, DiskHits: 1, Misses: 1}); got != want {
		t.Errorf("expected stats %+v, got %+v", want, got)
	}

	if err := second.Delete("k"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := second.Delete("k"); err != nil {
		t.Errorf("expected deleting a missing key to succeed, got %v", err)
	}
	if _, ok := second.Get("k"); ok {
		t.Error("expected miss after delete")
	}
}
