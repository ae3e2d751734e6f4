package ui

import (
	"testing"
)

func TestSuggest(t *testing.T) {
	types := []string{"page", "post", "block", "revision"}

	tests := []struct {
		name   string
		target string
		want   []string
	}{
		{"close typo", "pgae", []string{"page", "post"}},
		{"exact match first", "post", []string{"post", "page"}},
		{"case insensitive", "PAGE", []string{"page", "post"}},
		{"nothing close", "navigation_menu", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Suggest(tt.target, types)
			if len(got) != len(tt.want) {
				t.Fatalf("Suggest(%q) = %v, want %v", tt.target, got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("Suggest(%q)[%d] = %q, want %q", tt.target, i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestSuggestCapsResults(t *testing.T) {
	candidates := []string{"aa", "ab", "ac", "ad", "ae"}
	got := Suggest("a", candidates)
	if len(got) != 3 {
		t.Errorf("Suggest() returned %d results, want 3", len(got))
	}
}

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"page", "page", 0},
		{"page", "", 4},
		{"", "post", 4},
		{"kitten", "sitting", 3},
		{"page", "pgae", 2},
		{"block", "blocks", 1},
	}

	for _, tt := range tests {
		if got := levenshtein(tt.a, tt.b); got != tt.want {
			t.Errorf("levenshtein(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}
