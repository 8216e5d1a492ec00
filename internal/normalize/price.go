package normalize

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/invsync/internal/core"
)

// DefaultBreakQuantities are the tier start quantities assumed when a
// supplier lists prices without quantities.
var DefaultBreakQuantities = []int{1, 12, 72, 144, 500}

// PriceTolerance is the largest price difference not treated as a change.
var PriceTolerance = decimal.NewFromFloat(0.01)

var (
	positionalPriceKey = regexp.MustCompile(`(?i)^price(\d+)$`)
	positionalQtyKey   = regexp.MustCompile(`(?i)^(?:qty|quantity|min)(\d+)$`)
	alphaPriceKey      = regexp.MustCompile(`^price([A-Z])$`)
	priceNumber        = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)$`)
)

// namedBreaks maps unit-named price keys to their tier start quantity.
var namedBreaks = []struct {
	key string
	qty int
}{
	{"piecePrice", 1},
	{"dozenPrice", 12},
	{"casePrice", 72},
}

// scalarPriceKeys are object keys that carry a single flat price.
var scalarPriceKeys = []string{"price", "basePrice", "wholesale", "piecePrice"}

type pricePoint struct {
	qty   int
	price decimal.Decimal
}

// PricingTiers converts any supported supplier pricing shape into ordered
// tiers. Accepted shapes:
//
//	[[1, 10.0], [12, 8.5]]                       array of tuples
//	[{"quantity": 1, "price": 10.0}, ...]        array of objects
//	{"price1": 10.0, "price2": 8.5, "qty2": 24}  positional object
//	{"priceA": 10.0, "priceB": 8.5}              alphabetical object
//	{"piecePrice": 10.0, "dozenPrice": 8.5}      named object
//	10.0 or "$10.00"                             scalar
//
// Entries with unreadable or non-positive prices are dropped. Unsupported
// shapes yield nil.
func PricingTiers(raw any) []core.PricingTier {
	var points []pricePoint
	switch v := raw.(type) {
	case nil:
		return nil
	case []any:
		points = tuplePoints(v)
	case map[string]any:
		points = objectPoints(v)
	default:
		if p, ok := parsePrice(v); ok {
			points = []pricePoint{{qty: 1, price: p}}
		}
	}
	return buildTiers(points)
}

func tuplePoints(items []any) []pricePoint {
	var points []pricePoint
	for i, item := range items {
		switch e := item.(type) {
		case []any:
			if len(e) < 2 {
				continue
			}
			qty, qok := parseQuantity(e[0])
			price, pok := parsePrice(e[1])
			if qok && pok {
				points = append(points, pricePoint{qty, price})
			}
		case map[string]any:
			price, ok := firstPrice(e, "price", "value", "amount")
			if !ok {
				continue
			}
			qty, ok := firstQuantity(e, "minQuantity", "quantity", "qty", "min")
			if !ok {
				qty = defaultBreak(i)
			}
			points = append(points, pricePoint{qty, price})
		default:
			// A bare list of prices is positional.
			if price, ok := parsePrice(e); ok {
				points = append(points, pricePoint{defaultBreak(i), price})
			}
		}
	}
	return points
}

func objectPoints(obj map[string]any) []pricePoint {
	if points := positionalPoints(obj); len(points) > 0 {
		return points
	}
	if points := alphabeticalPoints(obj); len(points) > 0 {
		return points
	}
	var points []pricePoint
	for _, nb := range namedBreaks {
		if p, ok := parsePrice(obj[nb.key]); ok {
			points = append(points, pricePoint{nb.qty, p})
		}
	}
	if len(points) > 0 {
		return points
	}
	if p, ok := firstPrice(obj, scalarPriceKeys...); ok {
		return []pricePoint{{qty: 1, price: p}}
	}
	return nil
}

func positionalPoints(obj map[string]any) []pricePoint {
	prices := map[int]decimal.Decimal{}
	qtys := map[int]int{}
	for k, v := range obj {
		if m := positionalPriceKey.FindStringSubmatch(k); m != nil {
			idx, _ := strconv.Atoi(m[1])
			if p, ok := parsePrice(v); ok {
				prices[idx] = p
			}
			continue
		}
		if m := positionalQtyKey.FindStringSubmatch(k); m != nil {
			idx, _ := strconv.Atoi(m[1])
			if q, ok := parseQuantity(v); ok {
				qtys[idx] = q
			}
		}
	}
	idxs := make([]int, 0, len(prices))
	for idx := range prices {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)

	points := make([]pricePoint, 0, len(idxs))
	for pos, idx := range idxs {
		qty, ok := qtys[idx]
		if !ok {
			qty = defaultBreak(pos)
		}
		points = append(points, pricePoint{qty, prices[idx]})
	}
	return points
}

func alphabeticalPoints(obj map[string]any) []pricePoint {
	letters := map[byte]decimal.Decimal{}
	for k, v := range obj {
		if m := alphaPriceKey.FindStringSubmatch(k); m != nil {
			if p, ok := parsePrice(v); ok {
				letters[m[1][0]] = p
			}
		}
	}
	keys := make([]byte, 0, len(letters))
	for l := range letters {
		keys = append(keys, l)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })

	points := make([]pricePoint, 0, len(keys))
	for pos, l := range keys {
		points = append(points, pricePoint{defaultBreak(pos), letters[l]})
	}
	return points
}

// buildTiers sorts points by quantity, keeps the first price seen for a
// repeated quantity, and turns them into contiguous ranges.
func buildTiers(points []pricePoint) []core.PricingTier {
	if len(points) == 0 {
		return nil
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].qty < points[j].qty })

	uniq := points[:0:0]
	for _, p := range points {
		if len(uniq) > 0 && uniq[len(uniq)-1].qty == p.qty {
			continue
		}
		uniq = append(uniq, p)
	}

	tiers := make([]core.PricingTier, len(uniq))
	for i, p := range uniq {
		tiers[i] = core.PricingTier{
			MinQuantity: p.qty,
			Price:       p.price.Round(2).InexactFloat64(),
		}
		if i+1 < len(uniq) {
			maxQty := uniq[i+1].qty - 1
			tiers[i].MaxQuantity = &maxQty
		}
	}
	return tiers
}

func defaultBreak(pos int) int {
	if pos < len(DefaultBreakQuantities) {
		return DefaultBreakQuantities[pos]
	}
	last := DefaultBreakQuantities[len(DefaultBreakQuantities)-1]
	return last * (pos - len(DefaultBreakQuantities) + 2)
}

func firstPrice(obj map[string]any, keys ...string) (decimal.Decimal, bool) {
	for _, k := range keys {
		if p, ok := parsePrice(obj[k]); ok {
			return p, true
		}
	}
	return decimal.Zero, false
}

func firstQuantity(obj map[string]any, keys ...string) (int, bool) {
	for _, k := range keys {
		if q, ok := parseQuantity(obj[k]); ok {
			return q, true
		}
	}
	return 0, false
}

// parsePrice reads a positive money amount from a JSON scalar. Strings may
// carry currency symbols and thousands separators.
func parsePrice(v any) (decimal.Decimal, bool) {
	var d decimal.Decimal
	switch x := v.(type) {
	case float64:
		d = decimal.NewFromFloat(x)
	case float32:
		d = decimal.NewFromFloat32(x)
	case int:
		d = decimal.NewFromInt(int64(x))
	case int64:
		d = decimal.NewFromInt(x)
	case json.Number:
		parsed, err := decimal.NewFromString(x.String())
		if err != nil {
			return decimal.Zero, false
		}
		d = parsed
	case string:
		s := strings.TrimSpace(x)
		s = strings.NewReplacer("$", "", "€", "", "£", "", ",", "").Replace(s)
		s = strings.TrimSpace(s)
		if !priceNumber.MatchString(s) {
			return decimal.Zero, false
		}
		parsed, err := decimal.NewFromString(s)
		if err != nil {
			return decimal.Zero, false
		}
		d = parsed
	default:
		return decimal.Zero, false
	}
	if !d.IsPositive() {
		return decimal.Zero, false
	}
	return d, true
}

func parseQuantity(v any) (int, bool) {
	switch x := v.(type) {
	case float64:
		if x >= 1 {
			return int(x), true
		}
	case int:
		if x >= 1 {
			return x, true
		}
	case json.Number:
		n, err := x.Int64()
		if err == nil && n >= 1 {
			return int(n), true
		}
	case string:
		s := strings.TrimSuffix(strings.TrimSpace(x), "+")
		n, err := strconv.Atoi(s)
		if err == nil && n >= 1 {
			return n, true
		}
	}
	return 0, false
}

// PriceForQuantity returns the unit price for qty. Quantities below the
// first tier get the first tier's price; an empty list prices at 0.
func PriceForQuantity(tiers []core.PricingTier, qty int) float64 {
	if len(tiers) == 0 {
		return 0
	}
	if qty < tiers[0].MinQuantity {
		return tiers[0].Price
	}
	for _, t := range tiers {
		if t.Contains(qty) {
			return t.Price
		}
	}
	// Gapped tiers: fall back to the highest tier starting at or below qty.
	price := tiers[0].Price
	for _, t := range tiers {
		if t.MinQuantity <= qty {
			price = t.Price
		}
	}
	return price
}

// ValidatePricingTiers checks that every price is positive, ranges are
// well formed and strictly increasing without overlap, and only the final
// tier is open ended. An empty list is valid here; presence is checked by
// the schema validator.
func ValidatePricingTiers(tiers []core.PricingTier) error {
	var errs core.ValidationErrors
	for i, t := range tiers {
		field := fmt.Sprintf("bulkBreaks[%d]", i)
		if t.Price <= 0 {
			errs = append(errs, core.ValidationError{Field: field, Value: fmt.Sprint(t.Price), Message: "pricing tier price must be positive"})
		}
		if t.MinQuantity < 1 {
			errs = append(errs, core.ValidationError{Field: field, Value: strconv.Itoa(t.MinQuantity), Message: "pricing tier minQuantity must be at least 1"})
		}
		if t.MaxQuantity != nil && *t.MaxQuantity < t.MinQuantity {
			errs = append(errs, core.ValidationError{Field: field, Value: strconv.Itoa(*t.MaxQuantity), Message: "pricing tier maxQuantity is below minQuantity"})
		}
		if t.MaxQuantity == nil && i != len(tiers)-1 {
			errs = append(errs, core.ValidationError{Field: field, Message: "pricing tier is open ended but is not the last tier"})
		}
		if i == 0 {
			continue
		}
		prev := tiers[i-1]
		if t.MinQuantity <= prev.MinQuantity {
			errs = append(errs, core.ValidationError{Field: field, Value: strconv.Itoa(t.MinQuantity), Message: "pricing tier ranges are not increasing"})
		} else if prev.MaxQuantity != nil && t.MinQuantity <= *prev.MaxQuantity {
			errs = append(errs, core.ValidationError{Field: field, Value: strconv.Itoa(t.MinQuantity), Message: "pricing tier ranges overlap"})
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// PriceChanged reports whether two prices differ by more than PriceTolerance.
func PriceChanged(from, to float64) bool {
	diff := decimal.NewFromFloat(to).Sub(decimal.NewFromFloat(from)).Abs()
	return diff.GreaterThan(PriceTolerance)
}

// PriceIncrease returns the relative increase from one price to another,
// or 0 when the price fell or the starting price is not positive.
func PriceIncrease(from, to float64) float64 {
	o := decimal.NewFromFloat(from)
	if !o.IsPositive() {
		return 0
	}
	rel := decimal.NewFromFloat(to).Sub(o).Div(o)
	if !rel.IsPositive() {
		return 0
	}
	return rel.InexactFloat64()
}

// RoundCents rounds a float amount to two decimal places.
func RoundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
