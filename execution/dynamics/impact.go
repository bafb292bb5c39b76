package dynamics

import "fmt"

// ParticipationRateLinear is the linear transaction function
//
//	f(v) = Offset·sgn(v) + Slope·v
//
// of the trade rate v. Offset is the fixed per-share cost (half spread plus
// fees) and Slope the rate sensitivity. f(0) is 0.
type ParticipationRateLinear struct {
	Offset float64
	Slope  float64
}

// SlopeOnly returns a linear transaction function with no fixed offset.
func SlopeOnly(slope float64) ParticipationRateLinear {
	return ParticipationRateLinear{Slope: slope}
}

// Evaluate returns f(v).
func (p ParticipationRateLinear) Evaluate(rate float64) float64 {
	if rate == 0 {
		return 0
	}
	return p.Offset*sign(rate) + p.Slope*rate
}

// Derivative returns df/dv away from zero.
func (p ParticipationRateLinear) Derivative(rate float64) float64 {
	return p.Slope
}

// IsZero reports whether the function is identically zero.
func (p ParticipationRateLinear) IsZero() bool {
	return p.Offset == 0 && p.Slope == 0
}

func (p ParticipationRateLinear) validate(name string) error {
	if !isFinite(p.Offset) || p.Offset < 0 {
		return fmt.Errorf("%s: offset must be non-negative", name)
	}
	if !isFinite(p.Slope) || p.Slope < 0 {
		return fmt.Errorf("%s: slope must be non-negative", name)
	}
	return nil
}

// AssetTransactionSettings captures the liquidity profile of the traded asset.
type AssetTransactionSettings struct {
	Price       float64
	DailyVolume float64
	BidAsk      float64
}

// PriceMarketImpactLinear calibrates linear permanent and temporary impact
// functions from the asset's liquidity profile.
//
// Trading permanentFraction of the daily volume moves the price permanently by
// one bid-ask spread; trading temporaryFraction of the daily volume costs one
// bid-ask spread of temporary impact on top of the half-spread offset.
func PriceMarketImpactLinear(ats AssetTransactionSettings, permanentFraction, temporaryFraction float64) (permanent, temporary ParticipationRateLinear, err error) {
	if ats.Price <= 0 || ats.DailyVolume <= 0 || ats.BidAsk < 0 {
		return ParticipationRateLinear{}, ParticipationRateLinear{}, fmt.Errorf("PriceMarketImpactLinear: invalid asset transaction settings %+v", ats)
	}
	if permanentFraction <= 0 || temporaryFraction <= 0 {
		return ParticipationRateLinear{}, ParticipationRateLinear{}, fmt.Errorf("PriceMarketImpactLinear: daily volume fractions must be positive")
	}

	permanent = ParticipationRateLinear{
		Slope: ats.BidAsk / (permanentFraction * ats.DailyVolume),
	}
	temporary = ParticipationRateLinear{
		Offset: 0.5 * ats.BidAsk,
		Slope:  ats.BidAsk / (temporaryFraction * ats.DailyVolume),
	}
	return permanent, temporary, nil
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// Sign is the signum used by the transaction functions.
func Sign(v float64) float64 {
	return sign(v)
}
