package cache

import (
	"testing"
)

func TestHashKey(t *testing.T) {
	tests := []struct {
		name  string
		parts []string
	}{
		{
			name:  "single part",
			parts: []string{"scene"},
		},
		{
			name:  "multiple parts",
			parts: []string{"scene_view", "42", "anon"},
		},
		{
			name:  "empty parts",
			parts: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hashed1 := HashKey(tt.parts...)
			hashed2 := HashKey(tt.parts...)

			// Hash should be consistent
			if hashed1 != hashed2 {
				t.Errorf("HashKey() should be consistent, got %s and %s", hashed1, hashed2)
			}

			// Hash should be 32 characters (MD5 hex)
			if len(hashed1) != 32 {
				t.Errorf("HashKey() should return 32 character hex string, got length %d", len(hashed1))
			}
		})
	}
}

func TestHashKeyDistinguishesParts(t *testing.T) {
	a := HashKey("scene_view", "1", "2")
	b := HashKey("scene_view", "12")
	if a == b {
		t.Error("HashKey should not collide across different part splits")
	}
}

func TestNamespaceKey(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		expected string
	}{
		{
			name:     "simple key",
			key:      "test",
			expected: "storytree:test",
		},
		{
			name:     "key with colon",
			key:      "scene:42",
			expected: "storytree:scene:42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NamespaceKey(tt.key); got != tt.expected {
				t.Errorf("NamespaceKey(%q) = %q, want %q", tt.key, got, tt.expected)
			}
		})
	}
}

func TestDisabledCache(t *testing.T) {
	var c *Cache

	if _, err := c.Get("key"); err != ErrCacheDisabled {
		t.Errorf("Get on disabled cache should return ErrCacheDisabled, got %v", err)
	}
	if err := c.Set("key", "value", 0); err != ErrCacheDisabled {
		t.Errorf("Set on disabled cache should return ErrCacheDisabled, got %v", err)
	}
	if err := c.Delete("key"); err != ErrCacheDisabled {
		t.Errorf("Delete on disabled cache should return ErrCacheDisabled, got %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close on disabled cache should be a no-op, got %v", err)
	}
}
