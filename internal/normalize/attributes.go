package normalize

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Extract returns the value at the first path that holds a non-empty value.
// Paths are dotted ("pricing.wholesale") and walk nested objects.
func Extract(record map[string]any, paths ...string) (any, bool) {
	for _, path := range paths {
		v, ok := lookup(record, path)
		if ok && !isEmpty(v) {
			return v, true
		}
	}
	return nil, false
}

// ExtractString is Extract for text fields. Numbers are formatted without
// trailing zeros so numeric ids survive.
func ExtractString(record map[string]any, paths ...string) string {
	v, ok := Extract(record, paths...)
	if !ok {
		return ""
	}
	return strings.TrimSpace(stringify(v))
}

// ExtractFloat is Extract for numeric fields; numeric strings are accepted.
func ExtractFloat(record map[string]any, paths ...string) (float64, bool) {
	v, ok := Extract(record, paths...)
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	}
	return 0, false
}

// ExtractStrings reads a list field. Elements may be strings or objects, in
// which case the first of nameKeys present on the object is used. A single
// comma separated string is split.
func ExtractStrings(record map[string]any, path string, nameKeys ...string) []string {
	v, ok := Extract(record, path)
	if !ok {
		return nil
	}
	var out []string
	switch x := v.(type) {
	case []any:
		for _, item := range x {
			var s string
			if obj, ok := item.(map[string]any); ok {
				s = ExtractString(obj, nameKeys...)
			} else {
				s = strings.TrimSpace(stringify(item))
			}
			if s != "" {
				out = append(out, s)
			}
		}
	case []string:
		for _, s := range x {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	case string:
		for _, s := range strings.Split(x, ",") {
			if s = strings.TrimSpace(s); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

func lookup(record map[string]any, path string) (any, bool) {
	var cur any = record
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(x) == ""
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	}
	return false
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	}
	return ""
}

// brandAliases is keyed by compactKey of the supplier spelling.
var brandAliases = map[string]string{
	"ascolour":             "AS Colour",
	"ascolor":              "AS Colour",
	"americanapparel":      "American Apparel",
	"bellacanvas":          "Bella+Canvas",
	"bc":                   "Bella+Canvas",
	"canvas":               "Bella+Canvas",
	"champion":             "Champion",
	"comfortcolors":        "Comfort Colors",
	"district":             "District",
	"districtmade":         "District",
	"gildan":               "Gildan",
	"gildanactivewear":     "Gildan",
	"hanes":                "Hanes",
	"independent":          "Independent Trading Co.",
	"independenttrading":   "Independent Trading Co.",
	"independenttradingco": "Independent Trading Co.",
	"jerzees":              "JERZEES",
	"laneseven":            "Lane Seven",
	"losangelesapparel":    "Los Angeles Apparel",
	"nextlevel":            "Next Level",
	"nextlevelapparel":     "Next Level",
	"portcompany":          "Port & Company",
	"portandcompany":       "Port & Company",
	"sporttek":             "Sport-Tek",
}

// Brand resolves a supplier brand spelling to its canonical name. Unknown
// brands are returned trimmed with whitespace collapsed.
func Brand(raw string) string {
	if b, ok := brandAliases[compactKey(raw)]; ok {
		return b
	}
	return strings.Join(strings.Fields(raw), " ")
}

// brandPatterns are searched in order; the first hit wins.
var brandPatterns = []string{
	"Next Level", "Gildan", "Bella+Canvas", "Bella Canvas",
	"Comfort Colors", "Port & Company", "District", "JERZEES",
	"Hanes", "Champion", "American Apparel", "AS Colour",
	"Independent Trading", "Lane Seven", "Los Angeles Apparel", "Sport-Tek",
}

// DetectBrand finds a known brand mentioned in free text such as a style
// name. It falls back to the text before " - " and returns "" when neither
// applies.
func DetectBrand(text string) string {
	folded := Fold(text)
	for _, b := range brandPatterns {
		if strings.Contains(folded, Fold(b)) {
			return Brand(b)
		}
	}
	if before, _, ok := strings.Cut(text, " - "); ok {
		return Brand(before)
	}
	return ""
}

var namePrefixSeparators = " -:|/"

// StripNamePrefix removes a leading brand name and style code from a
// product name, so "Gildan 5000 - Heavy Cotton Tee" becomes
// "Heavy Cotton Tee". The name is returned unchanged if stripping would
// leave nothing.
func StripNamePrefix(name, brand, styleCode string) string {
	out := strings.TrimSpace(name)
	prefixes := []string{brand, Brand(brand), styleCode}
	for changed := true; changed; {
		changed = false
		for _, p := range prefixes {
			p = strings.TrimSpace(p)
			if p == "" || len(out) < len(p) || !strings.EqualFold(out[:len(p)], p) {
				continue
			}
			rest := out[len(p):]
			// Only strip whole words: "Gildan" must not eat "Gildanite".
			if rest != "" && !strings.ContainsRune(namePrefixSeparators, rune(rest[0])) {
				continue
			}
			rest = strings.TrimLeft(rest, namePrefixSeparators)
			if rest == "" {
				continue
			}
			out = rest
			changed = true
		}
	}
	return out
}

// Categories is the closed category vocabulary.
var Categories = []string{
	"t-shirts", "polos", "sweatshirts", "hoodies", "jackets", "outerwear",
	"pants", "shorts", "hats", "bags", "accessories", "workwear",
	"athletic", "youth", "other",
}

var categoryExact = map[string]string{
	"t-shirts":    "t-shirts",
	"t-shirt":     "t-shirts",
	"tees":        "t-shirts",
	"tee":         "t-shirts",
	"polo shirts": "polos",
	"polos":       "polos",
	"polo":        "polos",
	"sweatshirts": "sweatshirts",
	"fleece":      "sweatshirts",
	"hoodies":     "hoodies",
	"hoodie":      "hoodies",
	"jackets":     "jackets",
	"jacket":      "jackets",
	"outerwear":   "outerwear",
	"pants":       "pants",
	"shorts":      "shorts",
	"hats":        "hats",
	"caps":        "hats",
	"headwear":    "hats",
	"bags":        "bags",
	"accessories": "accessories",
	"workwear":    "workwear",
	"athletic":    "athletic",
	"youth":       "youth",
}

// categoryKeywords are tried in order after the exact table. Garment words
// come before modifiers so "Short Sleeve Tee" lands in t-shirts, and
// "sweatshirt" is checked before "tshirt", which it contains.
var categoryKeywords = []struct {
	word     string
	category string
}{
	{"hood", "hoodies"},
	{"polo", "polos"},
	{"sweatshirt", "sweatshirts"},
	{"crewneck", "sweatshirts"},
	{"fleece", "sweatshirts"},
	{"t-shirt", "t-shirts"},
	{"tshirt", "t-shirts"},
	{"tee", "t-shirts"},
	{"jacket", "jackets"},
	{"vest", "outerwear"},
	{"parka", "outerwear"},
	{"outerwear", "outerwear"},
	{"jogger", "pants"},
	{"pant", "pants"},
	{"short", "shorts"},
	{"beanie", "hats"},
	{"hat", "hats"},
	{"cap", "hats"},
	{"headwear", "hats"},
	{"tote", "bags"},
	{"backpack", "bags"},
	{"bag", "bags"},
	{"apron", "accessories"},
	{"accessor", "accessories"},
	{"work", "workwear"},
	{"performance", "athletic"},
	{"athletic", "athletic"},
	{"youth", "youth"},
	{"kids", "youth"},
}

// Category buckets a supplier category label into the closed vocabulary,
// falling back to "other".
func Category(raw string) string {
	key := Fold(raw)
	if key == "" {
		return "other"
	}
	if c, ok := categoryExact[key]; ok {
		return c
	}
	for _, kw := range categoryKeywords {
		if strings.Contains(key, kw.word) {
			return kw.category
		}
	}
	return "other"
}

var weightPattern = regexp.MustCompile(`^\s*([0-9]*\.?[0-9]+)\s*([a-zA-Z.]*)`)

var ouncesPerUnit = map[string]decimal.Decimal{
	"":       decimal.NewFromInt(1),
	"oz":     decimal.NewFromInt(1),
	"ounce":  decimal.NewFromInt(1),
	"ounces": decimal.NewFromInt(1),
	"g":      decimal.NewFromInt(1).Div(decimal.RequireFromString("28.349523125")),
	"gr":     decimal.NewFromInt(1).Div(decimal.RequireFromString("28.349523125")),
	"gram":   decimal.NewFromInt(1).Div(decimal.RequireFromString("28.349523125")),
	"grams":  decimal.NewFromInt(1).Div(decimal.RequireFromString("28.349523125")),
	"lb":     decimal.NewFromInt(16),
	"lbs":    decimal.NewFromInt(16),
	"pound":  decimal.NewFromInt(16),
	"pounds": decimal.NewFromInt(16),
	"kg":     decimal.RequireFromString("35.27396195"),
}

// WeightOz converts a weight such as "6.1 oz", "180g" or 0.5 (ounces) to
// ounces rounded to two places. Area weights like GSM are not piece weights
// and are rejected.
func WeightOz(raw any) (float64, bool) {
	switch x := raw.(type) {
	case float64:
		if x > 0 {
			return RoundCents(x), true
		}
		return 0, false
	case json.Number:
		f, err := x.Float64()
		if err != nil || f <= 0 {
			return 0, false
		}
		return RoundCents(f), true
	case string:
		m := weightPattern.FindStringSubmatch(x)
		if m == nil {
			return 0, false
		}
		return ConvertWeight(m[1], m[2])
	}
	return 0, false
}

// ConvertWeight converts value in unit to ounces.
func ConvertWeight(value, unit string) (float64, bool) {
	factor, ok := ouncesPerUnit[strings.TrimSuffix(strings.ToLower(unit), ".")]
	if !ok {
		return 0, false
	}
	d, err := decimal.NewFromString(value)
	if err != nil || !d.IsPositive() {
		return 0, false
	}
	return d.Mul(factor).Round(2).InexactFloat64(), true
}

var (
	blendRatio   = regexp.MustCompile(`^(\d{1,3})/(\d{1,3})(?:/(\d{1,3}))?\s+(.+)$`)
	fiberPercent = regexp.MustCompile(`(\d{1,3}(?:\.\d+)?)\s*%\s*([A-Za-z][A-Za-z\- ]*[A-Za-z])`)
)

var fiberNames = map[string]string{
	"poly":     "Polyester",
	"polyest":  "Polyester",
	"elastane": "Spandex",
	"lycra":    "Spandex",
	"cttn":     "Cotton",
}

// Material normalizes a fabric composition. "60% cotton, 40% poly" becomes
// "60% Cotton / 40% Polyester" and "50/50 cotton/polyester" becomes
// "50% Cotton / 50% Polyester". Unparsed text is title-cased.
func Material(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	if m := blendRatio.FindStringSubmatch(s); m != nil {
		pcts := []string{m[1], m[2]}
		if m[3] != "" {
			pcts = append(pcts, m[3])
		}
		fibers := strings.FieldsFunc(m[4], func(r rune) bool { return r == '/' || r == ',' })
		if len(fibers) == len(pcts) {
			parts := make([]string, len(pcts))
			for i := range pcts {
				parts[i] = pcts[i] + "% " + fiberName(fibers[i])
			}
			return strings.Join(parts, " / ")
		}
	}

	if ms := fiberPercent.FindAllStringSubmatch(s, -1); len(ms) > 0 {
		parts := make([]string, len(ms))
		for i, m := range ms {
			parts[i] = m[1] + "% " + fiberName(m[2])
		}
		return strings.Join(parts, " / ")
	}
	return fiberName(s)
}

func fiberName(s string) string {
	s = strings.TrimSpace(s)
	if n, ok := fiberNames[strings.ToLower(s)]; ok {
		return n
	}
	return Title(s)
}

var asColourSKU = regexp.MustCompile(`^\d{4,5}$`)

// ssPrefixes are style prefixes of brands distributed through S&S.
var ssPrefixes = []string{"LPC", "LST", "IND", "BC", "NL", "CC", "PC", "DT", "AL", "G", "B"}

// DetectSupplier guesses the supplier id from a supplier SKU. AS Colour
// uses bare 4-5 digit style codes; S&S styles carry known brand prefixes;
// everything else is assumed to be SanMar.
func DetectSupplier(sku string) string {
	s := strings.ToUpper(strings.TrimSpace(sku))
	if asColourSKU.MatchString(s) {
		return "ascolour"
	}
	for _, p := range ssPrefixes {
		if strings.HasPrefix(s, p) && len(s) > len(p) {
			return "ssactivewear"
		}
	}
	return "sanmar"
}
