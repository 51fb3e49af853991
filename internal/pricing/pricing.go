// Package pricing validates requested line items against the catalog's
// day rules and computes unit and line prices. It is pure computation;
// persistence happens in the order package.
package pricing

import (
	"fmt"
	"math"
	"strings"

	"fanpit-ticketing/internal/catalog"
	"fanpit-ticketing/internal/utils"
)

type ItemRequest struct {
	ProductCode      string   `json:"productCode"`
	Qty              float64  `json:"qty"`
	SelectedDayCodes []string `json:"selectedDayCodes,omitempty"`
}

// NormalizedLine is a validated, priced line item ready for persistence.
type NormalizedLine struct {
	Product   catalog.Product `json:"-"`
	Code      string          `json:"productCode"`
	Category  string          `json:"category"`
	Quantity  int             `json:"quantity"`
	UnitPrice float64         `json:"unitPrice"`
	LineTotal float64         `json:"lineTotal"`
	DaySet    []string        `json:"daySet"`
}

// DaySetString returns the canonical serialized day-set for storage.
func (l NormalizedLine) DaySetString() string {
	return catalog.DaySetString(l.DaySet)
}

// NormalizeItems validates and prices every requested line. The first
// invalid line fails the whole request; callers surface the message
// verbatim to the end user.
func NormalizeItems(entries []ItemRequest) ([]NormalizedLine, *utils.APIError) {
	if len(entries) == 0 {
		return nil, utils.ValidationError("no items in request")
	}
	lines := make([]NormalizedLine, 0, len(entries))
	for i, entry := range entries {
		line, err := NormalizeItem(entry)
		if err != nil {
			err.Message = fmt.Sprintf("item %d: %s", i+1, err.Message)
			return nil, err
		}
		lines = append(lines, line)
	}
	return lines, nil
}

// NormalizeItem validates a single entry. Quantity is checked before any
// day-set rule.
func NormalizeItem(entry ItemRequest) (NormalizedLine, *utils.APIError) {
	if entry.Qty != math.Trunc(entry.Qty) {
		return NormalizedLine{}, utils.ValidationError("quantity must be a whole number")
	}
	qty := int(entry.Qty)
	if qty <= 0 {
		return NormalizedLine{}, utils.ValidationError("quantity must be at least 1")
	}

	product, ok := catalog.Lookup(entry.ProductCode)
	if !ok {
		return NormalizedLine{}, utils.ValidationError("unknown product code %q", entry.ProductCode)
	}

	daySet, err := validateDaySet(product, entry.SelectedDayCodes)
	if err != nil {
		return NormalizedLine{}, err
	}

	unitPrice := unitPriceFor(product, daySet)
	return NormalizedLine{
		Product:   product,
		Code:      product.Code,
		Category:  product.Category,
		Quantity:  qty,
		UnitPrice: unitPrice,
		LineTotal: unitPrice * float64(qty),
		DaySet:    daySet,
	}, nil
}

func validateDaySet(product catalog.Product, selected []string) ([]string, *utils.APIError) {
	daySet := catalog.CanonicalDaySet(selected)
	for _, d := range daySet {
		if !catalog.IsKnownDay(d) {
			return nil, utils.ValidationError("unknown festival day %q", d)
		}
	}

	switch product.DurationDays {
	case 1:
		if len(daySet) != 1 {
			return nil, utils.ValidationError("%s requires exactly 1 selected day, got %d", product.Code, len(daySet))
		}
	case 2:
		if len(daySet) != 2 {
			return nil, utils.ValidationError("%s requires exactly 2 selected days, got %d", product.Code, len(daySet))
		}
		for _, d := range daySet {
			if !contains(catalog.TwoDayAllowedDays, d) {
				return nil, utils.ValidationError("2-day passes are not valid for Saturday; choose 2 of %s", strings.Join(catalog.TwoDayAllowedDays, ", "))
			}
		}
	case 3:
		if !sameSet(daySet, catalog.ThreeDayFixedSet) {
			return nil, utils.ValidationError("%s covers exactly %s; other combinations are not available", product.Code, strings.Join(catalog.ThreeDayFixedSet, ", "))
		}
	case 4:
		if !sameSet(daySet, catalog.DayOrder) {
			return nil, utils.ValidationError("%s covers all 4 festival days", product.Code)
		}
	default:
		return nil, utils.ValidationError("product %s has unsupported duration %d", product.Code, product.DurationDays)
	}

	return daySet, nil
}

func unitPriceFor(product catalog.Product, daySet []string) float64 {
	if product.DaySensitive() && len(daySet) == 1 && daySet[0] == catalog.PeakDay {
		return product.PeakPrice
	}
	return product.BasePrice
}

func contains(set []string, day string) bool {
	for _, d := range set {
		if d == day {
			return true
		}
	}
	return false
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, d := range b {
		if !contains(a, d) {
			return false
		}
	}
	return true
}
