package typosquat

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	errs "github.com/nodemedic/nodemedic/pkg/errors"
)

// MinOverlap is the minimum share of the original name's distinct
// characters a candidate must contain.
const MinOverlap = 0.7

// ScopePrefixes are npm scopes whose packages are never reported, as either
// the original or the candidate.
var ScopePrefixes = []string{"@types/", "@nestjs/", "@nx/", "@vitejs/", "@angular/"}

// Match reports whether candidate looks like a typosquat of original and
// returns its similarity score, 1 - distance/max(len). Names are compared
// case-insensitively.
func Match(original, candidate string) (float64, bool) {
	if candidate == original {
		return 0, false
	}
	o := strings.ToLower(original)
	c := strings.ToLower(candidate)

	if hasScopePrefix(o) || hasScopePrefix(c) {
		return 0, false
	}
	if strings.ContainsAny(c, "-/") {
		return 0, false
	}

	lo, lc := utf8.RuneCountInString(o), utf8.RuneCountInString(c)
	if abs(lo-lc) > 1 {
		return 0, false
	}

	dist := levenshtein.ComputeDistance(o, c)
	if dist != 1 && dist != 2 {
		return 0, false
	}

	if overlap(o, c) < MinOverlap {
		return 0, false
	}

	return 1 - float64(dist)/float64(max(lo, lc)), true
}

func hasScopePrefix(name string) bool {
	for _, p := range ScopePrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// overlap is |chars(o) ∩ chars(c)| / |chars(o)|.
func overlap(o, c string) float64 {
	so := make(map[rune]bool)
	for _, r := range o {
		so[r] = true
	}
	sc := make(map[rune]bool)
	for _, r := range c {
		sc[r] = true
	}
	shared := 0
	for r := range so {
		if sc[r] {
			shared++
		}
	}
	return float64(shared) / float64(max(len(so), 1))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// Index is a searchable list of registry package names.
type Index interface {
	// Near returns names whose length is within slack of length.
	Near(ctx context.Context, length, slack int) ([]string, error)
}

// Detector finds typosquat candidates in an [Index].
type Detector struct {
	index Index
	limit int
}

// NewDetector returns a detector over idx that reports at most limit
// suggestions. A limit of zero or less means no limit.
func NewDetector(idx Index, limit int) *Detector {
	return &Detector{index: idx, limit: limit}
}

// Find implements [Finder]. Suggestions are ordered by descending score,
// then name.
func (d *Detector) Find(ctx context.Context, name string) ([]Suggestion, error) {
	if err := errs.ValidateNpmPackageName(name); err != nil {
		return nil, err
	}
	names, err := d.index.Near(ctx, utf8.RuneCountInString(name), 1)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeLookupFailed, err, "search name index")
	}

	out := []Suggestion{}
	for _, cand := range names {
		score, ok := Match(name, cand)
		if !ok {
			continue
		}
		out = append(out, Suggestion{Name: cand, Score: &score})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if *out[i].Score != *out[j].Score {
			return *out[i].Score > *out[j].Score
		}
		return out[i].Name < out[j].Name
	})
	if d.limit > 0 && len(out) > d.limit {
		out = out[:d.limit]
	}
	return out, nil
}
