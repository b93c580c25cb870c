package cache

import (
	"testing"
	"time"
)

func TestMemoryCache(t *testing.T) {
	c := NewMemory(time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Error("Expected miss for unknown key")
	}

	c.Set("cover", []byte{0xFF, 0xD8})
	value, ok := c.Get("cover")
	if !ok {
		t.Fatal("Expected hit for stored key")
	}
	if len(value) != 2 || value[0] != 0xFF {
		t.Errorf("Unexpected cached value: %v", value)
	}
	if c.Size() != 1 {
		t.Errorf("Expected size 1, got %d", c.Size())
	}
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := NewMemory(10 * time.Millisecond)
	c.Set("short", []byte("lived"))

	time.Sleep(30 * time.Millisecond)
	if _, ok := c.Get("short"); ok {
		t.Error("Expected expired entry to miss")
	}
}

func TestArtworkCache(t *testing.T) {
	a := NewArtwork()
	a.Set("hash1", []byte("png bytes"))

	if value, ok := a.Get("hash1"); !ok || string(value) != "png bytes" {
		t.Errorf("Artwork cache lost the entry: %v %v", value, ok)
	}
}
