package ui

import (
	"sort"
	"strings"
)

// Suggest returns up to three candidates within edit distance 3 of the
// target, closest first. Matching is case-insensitive. Feeds the
// "did you mean" hint for mistyped content type names.
func Suggest(target string, candidates []string) []string {
	const maxDistance = 3
	const maxResults = 3

	type scored struct {
		name string
		dist int
	}
	var near []scored
	lowered := strings.ToLower(target)
	for _, c := range candidates {
		if d := levenshtein(lowered, strings.ToLower(c)); d <= maxDistance {
			near = append(near, scored{name: c, dist: d})
		}
	}
	sort.SliceStable(near, func(i, j int) bool { return near[i].dist < near[j].dist })

	if len(near) > maxResults {
		near = near[:maxResults]
	}
	out := make([]string, 0, len(near))
	for _, s := range near {
		out = append(out, s.name)
	}
	return out
}

// levenshtein computes edit distance with the two-row variant of the usual
// dynamic program.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	if len(a) == 0 {
		return len(b)
	}
	if len(b) == 0 {
		return len(a)
	}

	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			d := prev[j-1] + cost
			if prev[j]+1 < d {
				d = prev[j] + 1
			}
			if curr[j-1]+1 < d {
				d = curr[j-1] + 1
			}
			curr[j] = d
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
