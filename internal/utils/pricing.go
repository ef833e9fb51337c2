package utils

import (
	"fmt"
	"math"
	"time"

	"locker-rental-backend/internal/domain"
)

// PriceStep is one step of the flat pricing table: any duration up to and
// including MaxMinutes costs Price.
type PriceStep struct {
	MaxMinutes int32
	Price      int32
}

// DefaultPriceTable is ordered by MaxMinutes ascending.
var DefaultPriceTable = []PriceStep{
	{MaxMinutes: 60, Price: 20},
	{MaxMinutes: 120, Price: 30},
	{MaxMinutes: 180, Price: 35},
	{MaxMinutes: 240, Price: 40},
	{MaxMinutes: 360, Price: 45},
	{MaxMinutes: 480, Price: 50},
}

const (
	DefaultRatePerHour     int32 = 20
	DefaultOverstayRate    int32 = 15
	DefaultOverstayBlock         = 30 * time.Minute
	DefaultDialMinMinutes  int32 = 30
	DefaultDialMaxMinutes  int32 = 480
	DefaultDialStepMinutes int32 = 30
	DefaultVATRate               = 0.25
)

// Pricing holds the billing policy. All methods are pure.
type Pricing struct {
	Steps          []PriceStep
	RatePerHour    int32
	OverstayRate   int32
	OverstayBlock  time.Duration
	DialMinMinutes int32
	DialMaxMinutes int32
	DialStep       int32
	VATRate        float64
}

// VATBreakdown splits a VAT-inclusive price.
type VATBreakdown struct {
	Gross float64
	Net   float64
	VAT   float64
}

func DefaultPricing() Pricing {
	steps := make([]PriceStep, len(DefaultPriceTable))
	copy(steps, DefaultPriceTable)
	return Pricing{
		Steps:          steps,
		RatePerHour:    DefaultRatePerHour,
		OverstayRate:   DefaultOverstayRate,
		OverstayBlock:  DefaultOverstayBlock,
		DialMinMinutes: DefaultDialMinMinutes,
		DialMaxMinutes: DefaultDialMaxMinutes,
		DialStep:       DefaultDialStepMinutes,
		VATRate:        DefaultVATRate,
	}
}

// Validate checks the step table is non-empty and strictly ascending in both
// duration and price.
func (p Pricing) Validate() error {
	if len(p.Steps) == 0 {
		return fmt.Errorf("price table is empty")
	}
	for i, s := range p.Steps {
		if s.MaxMinutes <= 0 || s.Price < 0 {
			return fmt.Errorf("price step %d is invalid", i)
		}
		if i > 0 {
			prev := p.Steps[i-1]
			if s.MaxMinutes <= prev.MaxMinutes {
				return fmt.Errorf("price step %d is not ascending in duration", i)
			}
			if s.Price < prev.Price {
				return fmt.Errorf("price step %d decreases in price", i)
			}
		}
	}
	if p.RatePerHour <= 0 || p.OverstayRate < 0 || p.OverstayBlock <= 0 {
		return fmt.Errorf("invalid billing rates")
	}
	if p.DialStep <= 0 || p.DialMinMinutes <= 0 || p.DialMaxMinutes < p.DialMinMinutes {
		return fmt.Errorf("invalid dial bounds")
	}
	return nil
}

// MaxMinutes is the longest duration the table prices.
func (p Pricing) MaxMinutes() int32 {
	return p.Steps[len(p.Steps)-1].MaxMinutes
}

// MaxHours is the longest whole-hour rental or extension accepted.
func (p Pricing) MaxHours() int32 {
	return p.MaxMinutes() / 60
}

// PriceForMinutes looks up the first step covering minutes.
func (p Pricing) PriceForMinutes(minutes int32) (int32, error) {
	if minutes <= 0 {
		return 0, fmt.Errorf("%w: %d minutes", domain.ErrInvalidDuration, minutes)
	}
	for _, s := range p.Steps {
		if minutes <= s.MaxMinutes {
			return s.Price, nil
		}
	}
	return 0, fmt.Errorf("%w: %d minutes exceeds the price table", domain.ErrInvalidDuration, minutes)
}

// PriceForHours is the discrete variant used by the fixed duration buttons.
func (p Pricing) PriceForHours(hours int32) (int32, error) {
	if hours <= 0 || hours > p.MaxHours() {
		return 0, fmt.Errorf("%w: %d hours", domain.ErrInvalidDuration, hours)
	}
	return p.PriceForMinutes(hours * 60)
}

// SnapMinutes rounds to the nearest dial step and clamps to the dial bounds.
func (p Pricing) SnapMinutes(minutes int32) int32 {
	minutes = min(max(minutes, p.DialMinMinutes), p.DialMaxMinutes)
	snapped := int32(math.Round(float64(minutes)/float64(p.DialStep))) * p.DialStep
	if snapped < p.DialMinMinutes {
		return p.DialMinMinutes
	}
	if snapped > p.DialMaxMinutes {
		return p.DialMaxMinutes
	}
	return snapped
}

// DialPrice snaps an arbitrary dial position and prices it.
func (p Pricing) DialPrice(minutes int32) (int32, int32, error) {
	snapped := p.SnapMinutes(minutes)
	price, err := p.PriceForMinutes(snapped)
	if err != nil {
		return 0, 0, err
	}
	return snapped, price, nil
}

// OverstayBlocks counts every started block past end. Zero when now <= end.
func (p Pricing) OverstayBlocks(end, now time.Time) int32 {
	over := now.Sub(end)
	if over <= 0 {
		return 0
	}
	blocks := over / p.OverstayBlock
	if over%p.OverstayBlock != 0 {
		blocks++
	}
	return int32(blocks)
}

// OverstayCharge is the fee for the overstay accrued up to now.
func (p Pricing) OverstayCharge(end, now time.Time) (int32, int32) {
	blocks := p.OverstayBlocks(end, now)
	return blocks, blocks * p.OverstayRate
}

// ExtensionCost is linear in hours, unlike the rental step table.
func (p Pricing) ExtensionCost(extraHours int32) int32 {
	return extraHours * p.RatePerHour
}

// CalculateExtension returns the charge breakdown and the new end time.
// The extension counts from max(now, end) so an overstaying renter pays the
// overstay blocks once and is not billed again for the same window.
func (p Pricing) CalculateExtension(end, now time.Time, extraHours int32) (domain.ExtensionCharge, time.Time, error) {
	if extraHours <= 0 || extraHours > p.MaxHours() {
		return domain.ExtensionCharge{}, time.Time{}, fmt.Errorf("%w: extension of %d hours", domain.ErrInvalidDuration, extraHours)
	}
	blocks, overstay := p.OverstayCharge(end, now)
	cost := p.ExtensionCost(extraHours)

	from := end
	if now.After(end) {
		from = now
	}
	newEnd := from.Add(time.Duration(extraHours) * time.Hour)

	return domain.ExtensionCharge{
		OverstayBlocks:   blocks,
		OverstayCharge:   overstay,
		ExtensionCost:    cost,
		AdditionalCharge: cost + overstay,
	}, newEnd, nil
}

// ResyncPaidAmount is the amount assumed paid when a rental is rebuilt from a
// client credential.
func (p Pricing) ResyncPaidAmount(durationHours int32) int32 {
	return durationHours * p.RatePerHour
}

// SplitVAT splits a VAT-inclusive price into net and VAT, rounded to cents.
func (p Pricing) SplitVAT(price int32) VATBreakdown {
	gross := float64(price)
	net := math.Round(gross/(1+p.VATRate)*100) / 100
	return VATBreakdown{
		Gross: gross,
		Net:   net,
		VAT:   math.Round((gross-net)*100) / 100,
	}
}
