package gesture

import (
	"math"

	"github.com/pkg/errors"
)

// Mapping is a clamped linear map from [DomainLow, DomainHigh] to [RangeLow, RangeHigh].
// RangeLow may exceed RangeHigh to invert the output, e.g. a bar whose pixel y shrinks as it fills.
type Mapping struct {
	DomainLow  float64 `json:"domain_low"`
	DomainHigh float64 `json:"domain_high"`
	RangeLow   float64 `json:"range_low"`
	RangeHigh  float64 `json:"range_high"`
}

// Validate rejects mappings with non-finite bounds.
func (m Mapping) Validate() error {
	for _, v := range [...]float64{m.DomainLow, m.DomainHigh, m.RangeLow, m.RangeHigh} {
		if !finite(v) {
			return errors.Wrapf(ErrInvalidMapping, "%+v", m)
		}
	}
	return nil
}

// Apply maps value through m.
func (m Mapping) Apply(value float64) (float64, error) {
	return Map(value, m.DomainLow, m.DomainHigh, m.RangeLow, m.RangeHigh)
}

// Map clamps value to the domain and linearly interpolates it into the range.
// Any finite value yields a result inside the range; non-finite values fail with ErrInvalidMetric
// and non-finite bounds with ErrInvalidMapping.
// When the domain is a single point, values below it map to rangeLow and all others to rangeHigh.
func Map(value, domainLow, domainHigh, rangeLow, rangeHigh float64) (float64, error) {
	m := Mapping{DomainLow: domainLow, DomainHigh: domainHigh, RangeLow: rangeLow, RangeHigh: rangeHigh}
	if err := m.Validate(); err != nil {
		return 0, err
	}
	if !finite(value) {
		return 0, errors.Wrapf(ErrInvalidMetric, "%v", value)
	}

	if domainLow == domainHigh {
		if value < domainLow {
			return rangeLow, nil
		}
		return rangeHigh, nil
	}

	lo, hi := math.Min(domainLow, domainHigh), math.Max(domainLow, domainHigh)
	clamped := math.Max(lo, math.Min(hi, value))

	t := (clamped - domainLow) / (domainHigh - domainLow)
	return rangeLow + t*(rangeHigh-rangeLow), nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
