package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"fanpit-ticketing/internal/catalog"
)

func TestNormalizeItemOneDayOffPeak(t *testing.T) {
	line, err := NormalizeItem(ItemRequest{
		ProductCode:      "GENERAL_1_DAY",
		Qty:              2,
		SelectedDayCodes: []string{"fri"},
	})
	assert.Nil(t, err)
	assert.Equal(t, 2, line.Quantity)
	assert.Equal(t, 199.0, line.UnitPrice)
	assert.Equal(t, 398.0, line.LineTotal)
	assert.Equal(t, []string{"fri"}, line.DaySet)
}

func TestNormalizeItemOneDayPeakPrice(t *testing.T) {
	line, err := NormalizeItem(ItemRequest{
		ProductCode:      "GENERAL_1_DAY",
		Qty:              1,
		SelectedDayCodes: []string{"sat"},
	})
	assert.Nil(t, err)
	assert.Equal(t, 249.0, line.UnitPrice)
	assert.Equal(t, 249.0, line.LineTotal)
}

func TestNormalizeItemOneDayWrongCount(t *testing.T) {
	_, err := NormalizeItem(ItemRequest{
		ProductCode:      "GENERAL_1_DAY",
		Qty:              1,
		SelectedDayCodes: []string{"fri", "sun"},
	})
	assert.NotNil(t, err)
	assert.Equal(t, 400, err.Status)
	assert.Contains(t, err.Message, "exactly 1 selected day")
}

func TestNormalizeItemTwoDayExcludesSaturday(t *testing.T) {
	_, err := NormalizeItem(ItemRequest{
		ProductCode:      "GENERAL_2_DAY",
		Qty:              1,
		SelectedDayCodes: []string{"fri", "sat"},
	})
	assert.NotNil(t, err)
	assert.Equal(t, 400, err.Status)
	assert.Contains(t, err.Message, "Saturday")
}

func TestNormalizeItemTwoDayAllowedCombos(t *testing.T) {
	combos := [][]string{
		{"fri", "sun"},
		{"fri", "mon"},
		{"sun", "mon"},
		{"mon", "fri"}, // order-independent
	}
	for _, combo := range combos {
		line, err := NormalizeItem(ItemRequest{
			ProductCode:      "GENERAL_2_DAY",
			Qty:              1,
			SelectedDayCodes: combo,
		})
		assert.Nil(t, err, "combo %v should be valid", combo)
		assert.Equal(t, 349.0, line.UnitPrice, "2-day price is flat")
	}
}

func TestNormalizeItemThreeDayFixedSetOnly(t *testing.T) {
	line, err := NormalizeItem(ItemRequest{
		ProductCode:      "VIP_3_DAY",
		Qty:              3,
		SelectedDayCodes: []string{"mon", "fri", "sun"},
	})
	assert.Nil(t, err)
	assert.Equal(t, []string{"fri", "sun", "mon"}, line.DaySet)
	assert.Equal(t, 3897.0, line.LineTotal)

	_, err = NormalizeItem(ItemRequest{
		ProductCode:      "VIP_3_DAY",
		Qty:              1,
		SelectedDayCodes: []string{"fri", "sat", "sun"},
	})
	assert.NotNil(t, err)
	assert.Equal(t, 400, err.Status)
}

func TestNormalizeItemFourDayRequiresAllDays(t *testing.T) {
	line, err := NormalizeItem(ItemRequest{
		ProductCode:      "GENERAL_4_DAY",
		Qty:              1,
		SelectedDayCodes: []string{"mon", "sun", "sat", "fri"},
	})
	assert.Nil(t, err)
	assert.Equal(t, []string{"fri", "sat", "sun", "mon"}, line.DaySet)

	_, err = NormalizeItem(ItemRequest{
		ProductCode:      "GENERAL_4_DAY",
		Qty:              1,
		SelectedDayCodes: []string{"fri", "sat", "sun"},
	})
	assert.NotNil(t, err)
}

func TestNormalizeItemQuantityCheckedBeforeDays(t *testing.T) {
	// Invalid quantity plus invalid day-set: the quantity error wins.
	_, err := NormalizeItem(ItemRequest{
		ProductCode:      "GENERAL_2_DAY",
		Qty:              0,
		SelectedDayCodes: []string{"fri", "sat"},
	})
	assert.NotNil(t, err)
	assert.Contains(t, err.Message, "quantity")

	_, err = NormalizeItem(ItemRequest{
		ProductCode:      "GENERAL_1_DAY",
		Qty:              1.5,
		SelectedDayCodes: []string{"fri"},
	})
	assert.NotNil(t, err)
	assert.Contains(t, err.Message, "whole number")
}

func TestNormalizeItemUnknownProduct(t *testing.T) {
	_, err := NormalizeItem(ItemRequest{ProductCode: "SUPER_PASS", Qty: 1})
	assert.NotNil(t, err)
	assert.Equal(t, 400, err.Status)
	assert.Contains(t, err.Message, "SUPER_PASS")
}

func TestNormalizeItemUnknownDay(t *testing.T) {
	_, err := NormalizeItem(ItemRequest{
		ProductCode:      "GENERAL_1_DAY",
		Qty:              1,
		SelectedDayCodes: []string{"tue"},
	})
	assert.NotNil(t, err)
	assert.Contains(t, err.Message, "tue")
}

func TestNormalizeItemsPrefixesItemIndex(t *testing.T) {
	_, err := NormalizeItems([]ItemRequest{
		{ProductCode: "GENERAL_1_DAY", Qty: 1, SelectedDayCodes: []string{"fri"}},
		{ProductCode: "GENERAL_1_DAY", Qty: -2, SelectedDayCodes: []string{"fri"}},
	})
	assert.NotNil(t, err)
	assert.Contains(t, err.Message, "item 2")
}

func TestNormalizeItemsEmpty(t *testing.T) {
	_, err := NormalizeItems(nil)
	assert.NotNil(t, err)
	assert.Equal(t, 400, err.Status)
}

func TestCanonicalDaySetDedupesAndSorts(t *testing.T) {
	got := catalog.CanonicalDaySet([]string{"Mon", "fri", "FRI", " sun "})
	assert.Equal(t, []string{"fri", "sun", "mon"}, got)
	assert.Equal(t, "fri,sun,mon", catalog.DaySetString(got))
	assert.Equal(t, got, catalog.ParseDaySet("fri,sun,mon"))
}
