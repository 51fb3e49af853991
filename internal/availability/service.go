// Package availability answers how many general-admission spots remain
// per festival day and per multi-day package. Sold counts come from paid
// orders' day links, with the day-set string as a fallback for items
// saved without links.
package availability

import (
	"fmt"
	"strings"

	"fanpit-ticketing/internal/catalog"
	"fanpit-ticketing/internal/logger"
	"fanpit-ticketing/internal/models"
	"fanpit-ticketing/internal/utils"
)

type DBLayer interface {
	ListEventDays() ([]models.EventDay, error)
	SoldByDayViaLinks() (map[int64]int, error)
	ItemsWithoutDayLinks() ([]models.OrderItem, error)
}

type Service struct {
	DB     DBLayer
	Cache  *Cache
	Logger *logger.Logger
	DayCap int
}

func NewService(dbLayer DBLayer, cache *Cache, log *logger.Logger, dayCap int) *Service {
	return &Service{DB: dbLayer, Cache: cache, Logger: log, DayCap: dayCap}
}

type DayAvailability struct {
	Day       string `json:"day"`
	Sold      int    `json:"sold"`
	Cap       int    `json:"cap"`
	Remaining int    `json:"remaining"`
}

type PackageAvailability struct {
	ProductCode string `json:"productCode"`
	Remaining   int    `json:"remaining"`
}

type Report struct {
	Days     []DayAvailability     `json:"days"`
	Packages []PackageAvailability `json:"packages"`
}

// GetReport computes remaining inventory for the requested days and every
// multi-day general package. Results are cached briefly in Redis.
func (s *Service) GetReport(requestedDays []string) (*Report, error) {
	days := catalog.CanonicalDaySet(requestedDays)
	if len(days) == 0 {
		days = append([]string(nil), catalog.DayOrder...)
	}
	for _, d := range days {
		if !catalog.IsKnownDay(d) {
			return nil, utils.ValidationError("unknown festival day %q", d)
		}
	}

	cacheKey := strings.Join(days, ",")
	var cached Report
	if s.Cache.Get(cacheKey, &cached) {
		return &cached, nil
	}

	soldByCode, err := s.soldByDayCode()
	if err != nil {
		return nil, err
	}

	remainingByCode := make(map[string]int, len(catalog.DayOrder))
	for _, code := range catalog.DayOrder {
		remaining := s.DayCap - soldByCode[code]
		if remaining < 0 {
			remaining = 0
		}
		remainingByCode[code] = remaining
	}

	report := &Report{}
	for _, code := range days {
		report.Days = append(report.Days, DayAvailability{
			Day:       code,
			Sold:      soldByCode[code],
			Cap:       s.DayCap,
			Remaining: remainingByCode[code],
		})
	}

	// A package consumes inventory on every constituent day, so its
	// remaining count is the minimum across them.
	for _, product := range catalog.Products() {
		if product.Category != models.CategoryGeneral || product.DurationDays < 2 {
			continue
		}
		min := -1
		for _, code := range catalog.PackageDays(product.DurationDays) {
			if min < 0 || remainingByCode[code] < min {
				min = remainingByCode[code]
			}
		}
		report.Packages = append(report.Packages, PackageAvailability{
			ProductCode: product.Code,
			Remaining:   min,
		})
	}

	s.Cache.Set(cacheKey, report)
	return report, nil
}

func (s *Service) soldByDayCode() (map[string]int, error) {
	eventDays, err := s.DB.ListEventDays()
	if err != nil {
		return nil, fmt.Errorf("failed to load event days: %w", err)
	}
	codeByID := make(map[int64]string, len(eventDays))
	for _, d := range eventDays {
		codeByID[d.ID] = strings.ToLower(d.Code)
	}

	soldByID, err := s.DB.SoldByDayViaLinks()
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sold counts: %w", err)
	}
	sold := make(map[string]int, len(soldByID))
	for id, qty := range soldByID {
		sold[codeByID[id]] += qty
	}

	// Items saved on deployments without the link table still count,
	// via their serialized day-set.
	unlinked, err := s.DB.ItemsWithoutDayLinks()
	if err != nil {
		return nil, fmt.Errorf("failed to load unlinked items: %w", err)
	}
	for _, item := range unlinked {
		for _, code := range catalog.ParseDaySet(item.DaySet) {
			sold[code] += item.Quantity
		}
	}

	return sold, nil
}
