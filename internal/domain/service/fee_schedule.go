package service

import (
	"math"
)

// FeeTier prices dispute amounts up to and including UpTo. Amounts above
// Threshold also pay MarginalRate on the excess. The last tier has
// UpTo = +Inf and charges BaseFee flat.
type FeeTier struct {
	Threshold    float64
	UpTo         float64
	BaseFee      float64
	MarginalRate float64
}

type FeeQuote struct {
	BaseFee float64 `json:"base_fee"`
	Tax     float64 `json:"tax"`
	Total   float64 `json:"total"`
}

// TaxRate is applied to the base fee.
const TaxRate = 0.18

// DefaultFeeSchedule is sorted by UpTo.
var DefaultFeeSchedule = []FeeTier{
	{Threshold: 0, UpTo: 10000, BaseFee: 500},
	{Threshold: 10000, UpTo: 50000, BaseFee: 1500},
	{Threshold: 50000, UpTo: 100000, BaseFee: 3000, MarginalRate: 0.03},
	{Threshold: 100000, UpTo: 500000, BaseFee: 4500, MarginalRate: 0.02},
	{Threshold: 500000, UpTo: 1000000, BaseFee: 12500, MarginalRate: 0.01},
	{Threshold: 1000000, UpTo: math.Inf(1), BaseFee: 25000},
}

type FeeCalculator interface {
	ComputeFee(disputeAmount float64) FeeQuote
}

type TieredFeeCalculator struct {
	tiers   []FeeTier
	taxRate float64
}

func NewTieredFeeCalculator(tiers []FeeTier, taxRate float64) *TieredFeeCalculator {
	return &TieredFeeCalculator{tiers: tiers, taxRate: taxRate}
}

func NewDefaultFeeCalculator() *TieredFeeCalculator {
	return NewTieredFeeCalculator(DefaultFeeSchedule, TaxRate)
}

// ComputeFee picks the first tier whose upper bound covers the amount.
// Non-positive and NaN amounts owe nothing.
func (fc *TieredFeeCalculator) ComputeFee(disputeAmount float64) FeeQuote {
	if math.IsNaN(disputeAmount) || disputeAmount <= 0 {
		return FeeQuote{}
	}

	for _, tier := range fc.tiers {
		if disputeAmount > tier.UpTo {
			continue
		}

		base := tier.BaseFee
		if tier.MarginalRate > 0 && !math.IsInf(tier.UpTo, 1) {
			base += (disputeAmount - tier.Threshold) * tier.MarginalRate
		}

		base = RoundMoney(base)
		tax := RoundMoney(base * fc.taxRate)
		return FeeQuote{
			BaseFee: base,
			Tax:     tax,
			Total:   RoundMoney(base + tax),
		}
	}

	return FeeQuote{}
}

// RoundMoney rounds to two decimals, half away from zero.
func RoundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
