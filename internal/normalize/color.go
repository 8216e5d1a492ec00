package normalize

import (
	"strings"

	"github.com/JonMunkholm/invsync/internal/core"
)

type paletteEntry struct {
	name string
	hex  string
}

// palette is keyed by compactKey of the color name. Aliases point at the
// same entry so "Gray", "Grey" and "GRY" agree.
var palette = map[string]paletteEntry{
	"black":           {"Black", "#000000"},
	"blk":             {"Black", "#000000"},
	"jetblack":        {"Black", "#000000"},
	"white":           {"White", "#FFFFFF"},
	"wht":             {"White", "#FFFFFF"},
	"navy":            {"Navy", "#1F2A44"},
	"navyblue":        {"Navy", "#1F2A44"},
	"nvy":             {"Navy", "#1F2A44"},
	"royal":           {"Royal Blue", "#1D4F91"},
	"royalblue":       {"Royal Blue", "#1D4F91"},
	"red":             {"Red", "#C8102E"},
	"cardinal":        {"Cardinal", "#8A1538"},
	"cardinalred":     {"Cardinal", "#8A1538"},
	"maroon":          {"Maroon", "#5B2333"},
	"burgundy":        {"Burgundy", "#6D2135"},
	"grey":            {"Grey", "#8D8D8D"},
	"gray":            {"Grey", "#8D8D8D"},
	"gry":             {"Grey", "#8D8D8D"},
	"heathergrey":     {"Heather Grey", "#A5A5A5"},
	"heathergray":     {"Heather Grey", "#A5A5A5"},
	"athleticheather": {"Heather Grey", "#A5A5A5"},
	"sportgrey":       {"Sport Grey", "#97999B"},
	"sportgray":       {"Sport Grey", "#97999B"},
	"darkheather":     {"Dark Heather", "#425563"},
	"charcoal":        {"Charcoal", "#3C4043"},
	"charcoalheather": {"Charcoal", "#3C4043"},
	"ash":             {"Ash", "#C8C9C7"},
	"silver":          {"Silver", "#C0C0C0"},
	"forest":          {"Forest Green", "#2C5234"},
	"forestgreen":     {"Forest Green", "#2C5234"},
	"kelly":           {"Kelly Green", "#00843D"},
	"kellygreen":      {"Kelly Green", "#00843D"},
	"militarygreen":   {"Military Green", "#5E6738"},
	"olive":           {"Olive", "#6B6B3A"},
	"irishgreen":      {"Irish Green", "#00A651"},
	"lime":            {"Lime", "#92D400"},
	"green":           {"Green", "#008000"},
	"purple":          {"Purple", "#4B2E83"},
	"gold":            {"Gold", "#FFB81C"},
	"yellow":          {"Yellow", "#FFE600"},
	"daisy":           {"Daisy", "#FFD100"},
	"orange":          {"Orange", "#FF6A13"},
	"safetyorange":    {"Safety Orange", "#FF5F00"},
	"safetygreen":     {"Safety Green", "#C6E72B"},
	"pink":            {"Pink", "#F4A6C1"},
	"lightpink":       {"Light Pink", "#F8C8DC"},
	"heliconia":       {"Heliconia", "#E04F8C"},
	"lightblue":       {"Light Blue", "#A4C8E1"},
	"carolinablue":    {"Carolina Blue", "#7BAFD4"},
	"sapphire":        {"Sapphire", "#0076A8"},
	"teal":            {"Teal", "#00818A"},
	"aqua":            {"Aqua", "#00B5AD"},
	"natural":         {"Natural", "#F2E9D8"},
	"sand":            {"Sand", "#D6C7A1"},
	"tan":             {"Tan", "#C4A484"},
	"brown":           {"Brown", "#5C3A21"},
	"darkchocolate":   {"Dark Chocolate", "#3B2A20"},
	"coral":           {"Coral", "#FF7F6A"},
	"mint":            {"Mint", "#B8E2C8"},
	"cream":           {"Cream", "#FFF8E1"},
	"bone":            {"Bone", "#E3DAC9"},
}

// Color resolves a supplier color name to a display name and hex value.
// Unknown colors keep their name, title-cased, with core.DefaultColorHex.
// The second result reports whether the palette knew the color.
func Color(raw string) (core.ProductColor, bool) {
	trimmed := strings.TrimSpace(raw)
	if e, ok := palette[compactKey(trimmed)]; ok {
		return core.ProductColor{Name: e.name, Hex: e.hex}, true
	}
	return core.ProductColor{Name: Title(trimmed), Hex: core.DefaultColorHex}, false
}
