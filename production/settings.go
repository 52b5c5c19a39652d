package production

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/warp/production-engine/generic"
	"github.com/warp/production-engine/variance"
)

// =============================================================================
// SIMULATION SETTINGS
// =============================================================================

// Settings are the run-wide knobs of a simulation.
type Settings struct {
	WorkingHoursPerDay int
	RestMinutesPerHour int

	// When false, purchase batches arrive the day they are ordered.
	WaitForDelivery bool

	VarianceMode    variance.Mode
	VariancePercent float64
	Seed            int64

	// Replenish when stock <= ReplenishmentThreshold * MinStock.
	ReplenishmentThreshold decimal.Decimal

	InitialCash   decimal.Decimal
	PrepayPercent decimal.Decimal

	DepreciationTiming generic.TimingPolicy
	PeriodicTiming     generic.TimingPolicy
	PayrollFrequency   generic.SettlementFrequency

	MonthLengthDays int

	// Hard ceiling on simulated hours.
	MaxHours int
}

// DefaultSettings returns the settings used when a scenario omits them.
func DefaultSettings() Settings {
	return Settings{
		WorkingHoursPerDay:     8,
		RestMinutesPerHour:     0,
		WaitForDelivery:        true,
		VarianceMode:           variance.ModeNone,
		Seed:                   1,
		ReplenishmentThreshold: decimal.NewFromInt(1),
		InitialCash:            decimal.Zero,
		PrepayPercent:          decimal.NewFromInt(100),
		DepreciationTiming:     generic.TimingDaily,
		PeriodicTiming:         generic.TimingDaily,
		PayrollFrequency:       generic.SettleDaily,
		MonthLengthDays:        generic.DefaultMonthLength,
		MaxHours:               10000,
	}
}

// WithDefaults fills fields whose zero value is meaningless (hours per day,
// enum modes, month length, ceiling). Booleans, money and ratios are taken
// as given, so start from DefaultSettings when building settings by hand.
func (s Settings) WithDefaults() Settings {
	d := DefaultSettings()
	if s.WorkingHoursPerDay <= 0 {
		s.WorkingHoursPerDay = d.WorkingHoursPerDay
	}
	if s.VarianceMode == "" {
		s.VarianceMode = d.VarianceMode
	}
	if s.DepreciationTiming == "" {
		s.DepreciationTiming = d.DepreciationTiming
	}
	if s.PeriodicTiming == "" {
		s.PeriodicTiming = d.PeriodicTiming
	}
	if s.PayrollFrequency == "" {
		s.PayrollFrequency = d.PayrollFrequency
	}
	if s.MonthLengthDays <= 0 {
		s.MonthLengthDays = d.MonthLengthDays
	}
	if s.MaxHours <= 0 {
		s.MaxHours = d.MaxHours
	}
	return s
}

// Validate checks ranges. Call after WithDefaults.
func (s Settings) Validate() error {
	if s.WorkingHoursPerDay < 1 || s.WorkingHoursPerDay > 24 {
		return &ConfigError{Entity: "settings", ID: "working_hours_per_day", Reason: fmt.Sprintf("must be 1..24, got %d", s.WorkingHoursPerDay)}
	}
	if s.RestMinutesPerHour < 0 || s.RestMinutesPerHour >= 60 {
		return &ConfigError{Entity: "settings", ID: "rest_minutes_per_hour", Reason: fmt.Sprintf("must be 0..59, got %d", s.RestMinutesPerHour)}
	}
	if _, err := variance.ParseMode(string(s.VarianceMode)); err != nil {
		return &ConfigError{Entity: "settings", ID: "variance_mode", Reason: err.Error()}
	}
	if s.VariancePercent < 0 || s.VariancePercent > 100 {
		return &ConfigError{Entity: "settings", ID: "variance_percent", Reason: "must be 0..100"}
	}
	if s.ReplenishmentThreshold.IsNegative() {
		return &ConfigError{Entity: "settings", ID: "replenishment_threshold", Reason: "must not be negative"}
	}
	if s.PrepayPercent.IsNegative() || s.PrepayPercent.GreaterThan(decimal.NewFromInt(100)) {
		return &ConfigError{Entity: "settings", ID: "prepay_percent", Reason: "must be 0..100"}
	}
	if _, err := generic.ParseTimingPolicy(string(s.DepreciationTiming)); err != nil {
		return &ConfigError{Entity: "settings", ID: "depreciation_timing", Reason: err.Error()}
	}
	if _, err := generic.ParseTimingPolicy(string(s.PeriodicTiming)); err != nil {
		return &ConfigError{Entity: "settings", ID: "periodic_timing", Reason: err.Error()}
	}
	if _, err := generic.ParseSettlementFrequency(string(s.PayrollFrequency)); err != nil {
		return &ConfigError{Entity: "settings", ID: "payroll_frequency", Reason: err.Error()}
	}
	return nil
}

// RestCoefficient is the productive share of each hour.
func (s Settings) RestCoefficient() float64 {
	return 1 - float64(s.RestMinutesPerHour)/60
}

// Clock returns the simulation clock for these settings.
func (s Settings) Clock() generic.Clock { return generic.NewClock(s.WorkingHoursPerDay) }
