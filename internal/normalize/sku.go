package normalize

import (
	"regexp"
	"strings"
)

// skuPattern is the canonical {brand}-{style}-{color}-{size} shape.
var skuPattern = regexp.MustCompile(`^[A-Z0-9]{2,4}-[A-Z0-9]{1,20}-[A-Z0-9]{2,4}-[A-Z0-9]{1,3}$`)

// brandCodes is keyed by the canonical brand name returned by Brand.
var brandCodes = map[string]string{
	"AS Colour":               "ASC",
	"American Apparel":        "AA",
	"Bella+Canvas":            "BC",
	"Champion":                "CHA",
	"Comfort Colors":          "CC",
	"District":                "DT",
	"Gildan":                  "GIL",
	"Hanes":                   "HAN",
	"Independent Trading Co.": "IND",
	"JERZEES":                 "JER",
	"Lane Seven":              "LS",
	"Los Angeles Apparel":     "LAA",
	"Next Level":              "NL",
	"Port & Company":          "PC",
	"Sport-Tek":               "ST",
}

// colorCodes is keyed by the canonical color name returned by Color.
var colorCodes = map[string]string{
	"Black":          "BLK",
	"White":          "WHT",
	"Navy":           "NVY",
	"Royal Blue":     "ROY",
	"Red":            "RED",
	"Cardinal":       "CRD",
	"Maroon":         "MAR",
	"Burgundy":       "BUR",
	"Grey":           "GRY",
	"Heather Grey":   "HGR",
	"Sport Grey":     "SGR",
	"Dark Heather":   "DKH",
	"Charcoal":       "CHR",
	"Ash":            "ASH",
	"Silver":         "SLV",
	"Forest Green":   "FGR",
	"Kelly Green":    "KGR",
	"Military Green": "MGR",
	"Olive":          "OLV",
	"Irish Green":    "IGR",
	"Lime":           "LIM",
	"Green":          "GRN",
	"Purple":         "PUR",
	"Gold":           "GLD",
	"Yellow":         "YEL",
	"Daisy":          "DSY",
	"Orange":         "ORG",
	"Safety Orange":  "SOR",
	"Safety Green":   "SGN",
	"Pink":           "PNK",
	"Light Pink":     "LPK",
	"Heliconia":      "HEL",
	"Light Blue":     "LBL",
	"Carolina Blue":  "CBL",
	"Sapphire":       "SAP",
	"Teal":           "TEA",
	"Aqua":           "AQU",
	"Natural":        "NAT",
	"Sand":           "SND",
	"Tan":            "TAN",
	"Brown":          "BRN",
	"Dark Chocolate": "DCH",
	"Coral":          "COR",
	"Mint":           "MNT",
	"Cream":          "CRM",
	"Bone":           "BON",
}

// sizeCodes is keyed by canonical size.
var sizeCodes = map[string]string{
	"XS": "XS", "S": "S", "M": "M", "L": "L", "XL": "XL",
	"2XL": "2XL", "3XL": "3XL", "4XL": "4XL", "5XL": "5XL",
	"Youth XS": "YXS", "Youth S": "YS", "Youth M": "YM", "Youth L": "YL", "Youth XL": "YXL",
	"One Size": "OS",
}

// SKUParts are the four code segments of a canonical SKU.
type SKUParts struct {
	BrandCode string `json:"brandCode"`
	StyleCode string `json:"styleCode"`
	ColorCode string `json:"colorCode"`
	SizeCode  string `json:"sizeCode"`
}

// String joins the parts into the canonical SKU.
func (p SKUParts) String() string {
	return strings.Join([]string{p.BrandCode, p.StyleCode, p.ColorCode, p.SizeCode}, "-")
}

// SKUCodes resolves brand, style, color and size into SKU segments.
// Values missing from the lookup tables get a derived code built from
// their leading letters and digits.
func SKUCodes(brand, style, color, size string) SKUParts {
	return SKUParts{
		BrandCode: brandCode(brand),
		StyleCode: styleCode(style),
		ColorCode: colorCode(color),
		SizeCode:  sizeCode(size),
	}
}

// NormalizeSKU builds the canonical SKU for a variant.
func NormalizeSKU(brand, style, color, size string) string {
	return SKUCodes(brand, style, color, size).String()
}

// ParseSKU splits a canonical SKU back into its segments. It reports false
// for strings that fail IsValidSKU.
func ParseSKU(sku string) (SKUParts, bool) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if !IsValidSKU(sku) {
		return SKUParts{}, false
	}
	parts := strings.Split(sku, "-")
	return SKUParts{
		BrandCode: parts[0],
		StyleCode: parts[1],
		ColorCode: parts[2],
		SizeCode:  parts[3],
	}, true
}

// IsValidSKU reports whether sku has the canonical four-segment format.
// It checks shape only and says nothing about whether the codes exist.
func IsValidSKU(sku string) bool {
	return skuPattern.MatchString(sku)
}

func brandCode(brand string) string {
	if code, ok := brandCodes[Brand(brand)]; ok {
		return code
	}
	return derivedCode(brand, 3, "GEN")
}

func styleCode(style string) string {
	code := alnumUpper(style)
	if code == "" {
		return "0"
	}
	if len(code) > 20 {
		code = code[:20]
	}
	return code
}

func colorCode(color string) string {
	c, _ := Color(color)
	if code, ok := colorCodes[c.Name]; ok {
		return code
	}
	return derivedCode(color, 3, "NA")
}

func sizeCode(size string) string {
	s, ok := Size(size)
	if ok {
		return sizeCodes[s]
	}
	return derivedCode(size, 3, "NA")
}

// derivedCode takes up to n leading letters or digits of s, padding
// single-character results with X so they still satisfy the SKU pattern.
func derivedCode(s string, n int, fallback string) string {
	code := alnumUpper(s)
	switch {
	case code == "":
		return fallback
	case len(code) > n:
		return code[:n]
	case len(code) == 1:
		return code + "X"
	}
	return code
}
