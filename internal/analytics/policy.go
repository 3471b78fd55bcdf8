package analytics

import (
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/config"
)

const (
	ProfileCoverage = "coverage"
	ProfileQuantity = "quantity"

	// NoDemandDays stands in for days-until-stockout when average demand is zero.
	NoDemandDays = 999
)

// Policy holds every threshold the calculator applies.
type Policy struct {
	Profile string

	DemandWindowDays  int
	HistoryWindowDays int

	// coverage profile
	CriticalCoverDays float64
	ExcessCoverDays   float64

	// quantity profile
	CriticalStockQty float64
	ExcessStockQty   float64

	TargetCoverDays       float64
	ReorderMultiplierDays float64
	UrgentDays            int
	LeadTimeDays          float64
	SafetyStockDays       float64

	// TopN caps the recommendation list; zero leaves it uncapped.
	TopN int

	CurrencySymbol string
}

// CoveragePolicy classifies products by days of stock cover.
func CoveragePolicy() Policy {
	return Policy{
		Profile:               ProfileCoverage,
		DemandWindowDays:      30,
		HistoryWindowDays:     60,
		CriticalCoverDays:     7,
		ExcessCoverDays:       60,
		CriticalStockQty:      10,
		ExcessStockQty:        500,
		TargetCoverDays:       30,
		ReorderMultiplierDays: 37,
		UrgentDays:            3,
		LeadTimeDays:          3,
		SafetyStockDays:       7,
		TopN:                  10,
		CurrencySymbol:        "₽",
	}
}

// QuantityPolicy classifies products by absolute stock level.
func QuantityPolicy() Policy {
	p := CoveragePolicy()
	p.Profile = ProfileQuantity
	return p
}

// ProfilePolicy returns the named profile.
func ProfilePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", ProfileCoverage:
		return CoveragePolicy(), nil
	case ProfileQuantity:
		return QuantityPolicy(), nil
	default:
		return Policy{}, fmt.Errorf("unknown analytics profile %q", name)
	}
}

// PolicyFromConfig starts from the configured profile and applies every
// override that is set.
func PolicyFromConfig(cfg config.AnalyticsConfig) (Policy, error) {
	p, err := ProfilePolicy(cfg.Profile)
	if err != nil {
		return Policy{}, err
	}

	overrideInt(&p.DemandWindowDays, cfg.DemandWindowDays)
	overrideInt(&p.HistoryWindowDays, cfg.HistoryWindowDays)
	overrideFloat(&p.CriticalCoverDays, cfg.CriticalCoverDays)
	overrideFloat(&p.ExcessCoverDays, cfg.ExcessCoverDays)
	overrideFloat(&p.CriticalStockQty, cfg.CriticalStockQty)
	overrideFloat(&p.ExcessStockQty, cfg.ExcessStockQty)
	overrideFloat(&p.TargetCoverDays, cfg.TargetCoverDays)
	overrideFloat(&p.ReorderMultiplierDays, cfg.ReorderMultiplierDays)
	overrideInt(&p.UrgentDays, cfg.UrgentDays)
	overrideFloat(&p.LeadTimeDays, cfg.LeadTimeDays)
	overrideFloat(&p.SafetyStockDays, cfg.SafetyStockDays)
	overrideInt(&p.TopN, cfg.TopN)
	if cfg.CurrencySymbol != "" {
		p.CurrencySymbol = cfg.CurrencySymbol
	}

	return p, nil
}

// DemandFrom is the first day of the trailing demand window ending at today.
func (p Policy) DemandFrom(today time.Time) time.Time {
	return startOfDay(today).AddDate(0, 0, -p.DemandWindowDays)
}

// HistoryFrom is the first day shown in history charts.
func (p Policy) HistoryFrom(today time.Time) time.Time {
	return startOfDay(today).AddDate(0, 0, -p.HistoryWindowDays)
}

func overrideInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func overrideFloat(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
