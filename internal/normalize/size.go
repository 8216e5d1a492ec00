package normalize

import (
	"sort"
	"strings"

	"github.com/JonMunkholm/invsync/internal/core"
)

// CanonicalSizes is the closed size vocabulary in display order.
var CanonicalSizes = []string{
	"XS", "S", "M", "L", "XL", "2XL", "3XL", "4XL", "5XL",
	"Youth XS", "Youth S", "Youth M", "Youth L", "Youth XL",
	"One Size",
}

var sizeRank = func() map[string]int {
	m := make(map[string]int, len(CanonicalSizes))
	for i, s := range CanonicalSizes {
		m[s] = i
	}
	return m
}()

// adultSizeAliases is keyed by compactKey of the supplier token.
var adultSizeAliases = map[string]string{
	"xs": "XS", "xsm": "XS", "xsmall": "XS", "extrasmall": "XS", "xsml": "XS",
	"s": "S", "sm": "S", "sml": "S", "small": "S",
	"m": "M", "md": "M", "med": "M", "medium": "M",
	"l": "L", "lg": "L", "lrg": "L", "large": "L",
	"xl": "XL", "xlg": "XL", "xlarge": "XL", "extralarge": "XL",
	"2xl": "2XL", "xxl": "2XL", "2x": "2XL", "xxlarge": "2XL", "2xlarge": "2XL", "2extralarge": "2XL", "xxlg": "2XL",
	"3xl": "3XL", "xxxl": "3XL", "3x": "3XL", "xxxlarge": "3XL", "3xlarge": "3XL", "3extralarge": "3XL",
	"4xl": "4XL", "xxxxl": "4XL", "4x": "4XL", "4xlarge": "4XL", "4extralarge": "4XL",
	"5xl": "5XL", "xxxxxl": "5XL", "5x": "5XL", "5xlarge": "5XL", "5extralarge": "5XL",
}

var oneSizeAliases = map[string]bool{
	"onesize": true, "os": true, "osfa": true, "osfm": true, "one": true,
	"onesizefitsall": true, "onesizefitsmost": true, "adjustable": true, "adj": true,
}

// youthPrefixes are tried longest first so "youth" wins over "y".
var youthPrefixes = []string{"youth", "kids", "yth", "y"}

// Size maps a supplier size token onto the canonical vocabulary. The
// second result is false when the token was not recognized, in which case
// the trimmed raw value is returned (or core.SizeUnknown when empty).
func Size(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return core.SizeUnknown, false
	}
	key := compactKey(trimmed)
	if key == "" {
		return trimmed, false
	}

	if s, ok := adultSizeAliases[key]; ok {
		return s, true
	}
	if oneSizeAliases[key] {
		return "One Size", true
	}
	for _, p := range youthPrefixes {
		if rest, ok := strings.CutPrefix(key, p); ok && rest != "" {
			if s, ok := youthSize(rest); ok {
				return s, true
			}
		}
	}
	// "S (Youth)" and "Small Youth" put the marker last.
	if rest, ok := strings.CutSuffix(key, "youth"); ok && rest != "" {
		if s, ok := youthSize(rest); ok {
			return s, true
		}
	}
	return trimmed, false
}

func youthSize(key string) (string, bool) {
	s, ok := adultSizeAliases[key]
	if !ok {
		return "", false
	}
	switch s {
	case "XS", "S", "M", "L", "XL":
		return "Youth " + s, true
	}
	return "", false
}

// Sizes normalizes a list of size tokens, dropping duplicates and sorting
// the result by canonical order. Unrecognized tokens are kept after the
// canonical ones in input order and also returned separately so callers
// can warn about them.
func Sizes(raw []string) (sizes []string, unresolved []string) {
	seen := make(map[string]bool, len(raw))
	for _, r := range raw {
		s, ok := Size(r)
		if !ok {
			if strings.TrimSpace(r) == "" {
				continue
			}
			unresolved = append(unresolved, r)
		}
		if seen[s] {
			continue
		}
		seen[s] = true
		sizes = append(sizes, s)
	}
	SortSizes(sizes)
	return sizes, unresolved
}

// SortSizes orders sizes in place by canonical rank. Non-canonical values
// sort after every canonical size and keep their relative order.
func SortSizes(sizes []string) {
	sort.SliceStable(sizes, func(i, j int) bool {
		return SizeRank(sizes[i]) < SizeRank(sizes[j])
	})
}

// SizeRank returns the canonical position of size, or len(CanonicalSizes)
// for values outside the vocabulary.
func SizeRank(size string) int {
	if r, ok := sizeRank[size]; ok {
		return r
	}
	return len(CanonicalSizes)
}

// IsCanonicalSize reports whether size belongs to the closed vocabulary.
func IsCanonicalSize(size string) bool {
	_, ok := sizeRank[size]
	return ok
}
