// Package match decides whether a normalized product is already in the
// catalog, using weighted field similarity.
//
// Brand, category and style count only on an exact (case-insensitive)
// match; names are compared by normalized edit distance. A field that is
// empty on either side drops out of the weighted average instead of
// counting as a mismatch.
package match

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/JonMunkholm/invsync/internal/core"
	"github.com/JonMunkholm/invsync/internal/normalize"
)

const (
	// MatchThreshold is the minimum confidence for FindMatch.
	MatchThreshold = 0.8

	// ReviewThreshold is the floor for candidates returned by FindMatches.
	ReviewThreshold = 0.6

	// DefaultMaxMatches caps FindMatches when no limit is given.
	DefaultMaxMatches = 5
)

// Field weights. They sum to 1.
const (
	brandWeight    = 0.3
	nameWeight     = 0.4
	categoryWeight = 0.2
	styleWeight    = 0.1
)

// Candidate is a catalog entry the matcher can pick.
type Candidate struct {
	ID      string                 `json:"id"`
	Product core.NormalizedProduct `json:"product"`
}

// Options tune FindMatch.
type Options struct {
	// SameBrandFirst tries candidates with the same brand before the
	// whole pool.
	SameBrandFirst bool
}

// CalculateSimilarity returns the weighted similarity of a and b in [0, 1].
// Two products with no comparable fields score 0.
func CalculateSimilarity(a, b core.NormalizedProduct) float64 {
	var score, weight float64

	add := func(w float64, left, right string, sim func(string, string) float64) {
		if left == "" || right == "" {
			return
		}
		weight += w
		score += w * sim(left, right)
	}

	add(brandWeight, brandKey(a.Brand), brandKey(b.Brand), exact)
	add(nameWeight, normalize.Fold(a.Name), normalize.Fold(b.Name), NameSimilarity)
	add(categoryWeight, fieldKey(a.Category), fieldKey(b.Category), exact)
	add(styleWeight, fieldKey(a.StyleID), fieldKey(b.StyleID), exact)

	if weight == 0 {
		return 0
	}
	return score / weight
}

// AreProductsMatching reports whether a and b meet MatchThreshold.
func AreProductsMatching(a, b core.NormalizedProduct) bool {
	return CalculateSimilarity(a, b) >= MatchThreshold
}

// FindMatch returns the best candidate with confidence of at least
// MatchThreshold, or nil. With SameBrandFirst, same-brand candidates are
// searched first and the rest of the pool only if none qualifies.
func FindMatch(product core.NormalizedProduct, pool []Candidate, opts Options) *core.ProductMatch {
	if len(pool) == 0 {
		return nil
	}

	if opts.SameBrandFirst && product.Brand != "" {
		key := brandKey(product.Brand)
		var same, rest []Candidate
		for _, c := range pool {
			if brandKey(c.Product.Brand) == key {
				same = append(same, c)
			} else {
				rest = append(rest, c)
			}
		}
		if m := best(product, same, MatchThreshold); m != nil {
			return m
		}
		return best(product, rest, MatchThreshold)
	}

	return best(product, pool, MatchThreshold)
}

// FindMatches returns up to limit candidates scoring at least
// ReviewThreshold, highest confidence first. A limit of 0 or less uses
// DefaultMaxMatches.
func FindMatches(product core.NormalizedProduct, pool []Candidate, limit int) []core.ProductMatch {
	if limit <= 0 {
		limit = DefaultMaxMatches
	}

	var matches []core.ProductMatch
	for _, c := range pool {
		score := CalculateSimilarity(product, c.Product)
		if score >= ReviewThreshold {
			matches = append(matches, core.ProductMatch{ID: c.ID, Confidence: score, Product: c.Product})
		}
	}

	// Sort by confidence descending; ties keep pool order.
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Confidence > matches[j].Confidence
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

func best(product core.NormalizedProduct, pool []Candidate, threshold float64) *core.ProductMatch {
	var top *core.ProductMatch
	for _, c := range pool {
		score := CalculateSimilarity(product, c.Product)
		if score < threshold {
			continue
		}
		if top == nil || score > top.Confidence {
			top = &core.ProductMatch{ID: c.ID, Confidence: score, Product: c.Product}
		}
	}
	return top
}

// NameSimilarity is 1 - levenshtein(a, b)/max(len(a), len(b)) over runes.
// Callers normalize first.
func NameSimilarity(a, b string) float64 {
	if a == b {
		return 1
	}
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

func exact(a, b string) float64 {
	if a == b {
		return 1
	}
	return 0
}

func brandKey(brand string) string {
	return fieldKey(normalize.Brand(brand))
}

func fieldKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
