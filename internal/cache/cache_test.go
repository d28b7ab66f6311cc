package cache

import (
	"testing"
	"time"
)

func TestKeySanitizesMessageText(t *testing.T) {
	if got := Key("Hello, World!"); got != "helloworld" {
		t.Fatalf("unexpected key: %q", got)
	}
	if got := Key("  How ARE you?? "); got != "howareyou" {
		t.Fatalf("unexpected key: %q", got)
	}
	if Key("What's up?") != Key("whats up") {
		t.Fatal("punctuation variants should share a key")
	}
}

func TestStoreAddGet(t *testing.T) {
	store := New[string](8, time.Minute)
	store.Add("k", "v")

	got, ok := store.Get("k")
	if !ok || got != "v" {
		t.Fatalf("unexpected value: %q ok=%v", got, ok)
	}

	if _, ok := store.Get("missing"); ok {
		t.Fatal("expected miss for unknown key")
	}
}

func TestStoreEntriesExpire(t *testing.T) {
	store := New[int](8, 30*time.Millisecond)
	store.Add("k", 42)

	time.Sleep(80 * time.Millisecond)

	if _, ok := store.Get("k"); ok {
		t.Fatal("entry should have expired")
	}
}

func TestStoreBoundedSize(t *testing.T) {
	store := New[int](2, time.Minute)
	store.Add("a", 1)
	store.Add("b", 2)
	store.Add("c", 3)

	if store.Len() > 2 {
		t.Fatalf("store exceeded its bound: %d entries", store.Len())
	}
}
