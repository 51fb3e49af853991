// Package catalog holds the static festival product table: product codes
// mapped to categories, day-count rules and prices. It is pure data plus
// lookups; the pricing normalizer layers validation on top of it.
package catalog

import (
	"sort"
	"strings"
)

// Festival day codes, in festival order. Saturday is the peak day for
// single-day pricing and is excluded from two-day passes.
const (
	DayFri = "fri"
	DaySat = "sat"
	DaySun = "sun"
	DayMon = "mon"
)

const PeakDay = DaySat

// DaySetSeparator is how canonical day-sets are serialized on order items.
const DaySetSeparator = ","

var DayOrder = []string{DayFri, DaySat, DaySun, DayMon}

var dayIndex = map[string]int{
	DayFri: 0,
	DaySat: 1,
	DaySun: 2,
	DayMon: 3,
}

// TwoDayAllowedDays are the days a 2-day pass may combine (Saturday excluded).
var TwoDayAllowedDays = []string{DayFri, DaySun, DayMon}

// ThreeDayFixedSet is the only legal 3-day selection.
var ThreeDayFixedSet = []string{DayFri, DaySun, DayMon}

type Product struct {
	Code         string
	Name         string
	Category     string
	DurationDays int
	BasePrice    float64
	// PeakPrice applies only to day-sensitive (1-day) products, charged
	// when the selected day is the peak day.
	PeakPrice float64
}

// DaySensitive reports whether the unit price depends on which day was chosen.
func (p Product) DaySensitive() bool {
	return p.PeakPrice > 0
}

var products = []Product{
	{Code: "GENERAL_1_DAY", Name: "Abonament General 1 Zi", Category: "general", DurationDays: 1, BasePrice: 199, PeakPrice: 249},
	{Code: "GENERAL_2_DAY", Name: "Abonament General 2 Zile", Category: "general", DurationDays: 2, BasePrice: 349},
	{Code: "GENERAL_3_DAY", Name: "Abonament General 3 Zile", Category: "general", DurationDays: 3, BasePrice: 499},
	{Code: "GENERAL_4_DAY", Name: "Abonament General 4 Zile", Category: "general", DurationDays: 4, BasePrice: 599},
	{Code: "VIP_1_DAY", Name: "Abonament VIP 1 Zi", Category: "vip", DurationDays: 1, BasePrice: 499, PeakPrice: 599},
	{Code: "VIP_2_DAY", Name: "Abonament VIP 2 Zile", Category: "vip", DurationDays: 2, BasePrice: 899},
	{Code: "VIP_3_DAY", Name: "Abonament VIP 3 Zile", Category: "vip", DurationDays: 3, BasePrice: 1299},
	{Code: "VIP_4_DAY", Name: "Abonament VIP 4 Zile", Category: "vip", DurationDays: 4, BasePrice: 1599},
}

var productsByCode = func() map[string]Product {
	m := make(map[string]Product, len(products))
	for _, p := range products {
		m[p.Code] = p
	}
	return m
}()

// Lookup returns the product for a code, or false for unknown codes.
func Lookup(code string) (Product, bool) {
	p, ok := productsByCode[strings.ToUpper(strings.TrimSpace(code))]
	return p, ok
}

// Products returns the full catalog in declaration order.
func Products() []Product {
	out := make([]Product, len(products))
	copy(out, products)
	return out
}

// IsKnownDay reports whether code is one of the four festival days.
func IsKnownDay(code string) bool {
	_, ok := dayIndex[code]
	return ok
}

// CanonicalDaySet lowercases, dedupes and sorts day codes into festival
// order. Unknown codes are kept (sorted last) so validation can name them.
func CanonicalDaySet(days []string) []string {
	seen := make(map[string]bool, len(days))
	out := make([]string, 0, len(days))
	for _, d := range days {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" || seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	sort.SliceStable(out, func(i, j int) bool {
		ii, iok := dayIndex[out[i]]
		jj, jok := dayIndex[out[j]]
		if iok != jok {
			return iok
		}
		if !iok {
			return out[i] < out[j]
		}
		return ii < jj
	})
	return out
}

// DaySetString serializes a canonical day-set for the day_set column.
func DaySetString(days []string) string {
	return strings.Join(CanonicalDaySet(days), DaySetSeparator)
}

// ParseDaySet is the inverse of DaySetString.
func ParseDaySet(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return CanonicalDaySet(strings.Split(s, DaySetSeparator))
}

// PackageDays returns the days a multi-day package consumes inventory on.
// For 2-day passes this is the whole allowed set, since any two of those
// days may be chosen; availability takes the conservative minimum.
func PackageDays(durationDays int) []string {
	switch durationDays {
	case 2:
		return append([]string(nil), TwoDayAllowedDays...)
	case 3:
		return append([]string(nil), ThreeDayFixedSet...)
	case 4:
		return append([]string(nil), DayOrder...)
	default:
		return append([]string(nil), DayOrder...)
	}
}
