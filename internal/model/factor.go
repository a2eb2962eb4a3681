package model

// Factor column names. Kept as strings so score weights can be configured
// as (factor, weight) pairs.
const (
	FactorLogVol     = "factor_log_vol"
	FactorTurnover   = "factor_turnover"
	FactorVolRatio   = "factor_vol_ratio"
	FactorVolatility = "factor_volatility"
)

// FactorNames lists every factor the engine produces.
var FactorNames = []string{FactorLogVol, FactorTurnover, FactorVolRatio, FactorVolatility}

// FactorRow is a Bar extended with per-symbol derived fields. NextRet is the
// one-step-ahead return label (null on each symbol's last observed date).
// Rolling fields are null inside the symbol's warm-up window.
type FactorRow struct {
	Bar
	NextRet    float64 // (close[i+1]-close[i])/close[i], within the symbol only
	LogVol     float64 // ln(volume), null on non-positive volume
	VolRatio   float64 // volume / rolling-mean(volume, vol ratio window)
	Volatility float64 // rolling sample std of close, volatility window
}

// Factor returns the named factor value. The second result is false for an
// unknown name.
func (r FactorRow) Factor(name string) (float64, bool) {
	switch name {
	case FactorLogVol:
		return r.LogVol, true
	case FactorTurnover:
		return float64(r.Turnover), true
	case FactorVolRatio:
		return r.VolRatio, true
	case FactorVolatility:
		return r.Volatility, true
	default:
		return 0, false
	}
}

// KnownFactor reports whether name is a factor the engine produces.
func KnownFactor(name string) bool {
	for _, f := range FactorNames {
		if f == name {
			return true
		}
	}
	return false
}

// ScoredRow is a FactorRow extended with per-date-cohort z-scores and the
// weighted composite score. Z is ordered like the normalizer's weight list.
type ScoredRow struct {
	FactorRow
	Z     []float64
	Score float64 // null when any weighted z component is null
}
