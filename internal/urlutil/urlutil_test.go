package urlutil

import "testing"

func TestDomain(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://www.example.org/about", "example.org"},
		{"http://Example.ORG", "example.org"},
		{"example.org", "example.org"},
		{"https://sub.example.org/x?y=1", "sub.example.org"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Domain(tt.raw); got != tt.want {
			t.Errorf("Domain(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestRoot(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"https://example.org/grants/apply?x=1#top", "https://example.org/"},
		{"example.org/about", "https://example.org/"},
		{"http://www.example.org", "http://www.example.org/"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Root(tt.raw); got != tt.want {
			t.Errorf("Root(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestPathDepth(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"https://example.org/", 0},
		{"https://example.org", 0},
		{"https://example.org/about", 1},
		{"https://example.org/grants/apply/", 2},
	}
	for _, tt := range tests {
		if got := PathDepth(tt.raw); got != tt.want {
			t.Errorf("PathDepth(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}
