package cache

import (
	"testing"
)

func TestMatchPattern(t *testing.T) {
	tests := []struct {
		pattern string
		name    string
		want    bool
	}{
		// Literals
		{"user:1", "user:1", true},
		{"user:1", "user:2", false},
		{"user:1", "user:10", false},

		// Star
		{"user:*", "user:1", true},
		{"user:*", "user:", true},
		{"user:*", "users:1", false},
		{"*", "anything", true},
		{"*", "", true},
		{"user:*:profile", "user:42:profile", true},
		{"user:*:profile", "user:42:settings", false},

		// Multiple stars with backtracking
		{"*:1", "user:1", true},
		{"a*b*c", "aXbYc", true},
		{"a*b*c", "abc", true},
		{"a*b*c", "aXcYb", false},
		{"*abc*", "xxabcxx", true},
		{"*abc*", "xxabxcx", false},

		// Question mark
		{"user:?", "user:1", true},
		{"user:?", "user:12", false},
		{"user:??", "user:12", true},
		{"?", "", false},

		// Mixed
		{"u?er:*", "user:7", true},
		{"u?er:*", "uber:7", true},
		{"u?er:*", "uuser:7", false},

		// Trailing stars
		{"user:1*", "user:1", true},
		{"user:1**", "user:1", true},
	}

	for _, tt := range tests {
		if got := MatchPattern(tt.pattern, tt.name); got != tt.want {
			t.Errorf("MatchPattern(%q, %q) = %v, want %v", tt.pattern, tt.name, got, tt.want)
		}
	}
}

func TestValidatePattern(t *testing.T) {
	if err := ValidatePattern("user:*"); err != nil {
		t.Errorf("Valid pattern rejected: %v", err)
	}
	if err := ValidatePattern(""); err != ErrBadPattern {
		t.Errorf("Empty pattern should return ErrBadPattern, got %v", err)
	}
}
