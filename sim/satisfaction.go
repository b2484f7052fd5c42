package sim

import "math"

// satisfactionModel applies the score adjustments of SatisfactionSpec.
type satisfactionModel struct {
	spec SatisfactionSpec
}

// afterWait charges the excess over the threshold for one granted (or abandoned) wait.
func (m satisfactionModel) afterWait(p *Patient, waited float64) {
	if excess := waited - m.spec.WaitThresholdMinutes; excess > 0 {
		p.Satisfaction -= m.spec.PenaltyPerMinute * excess
	}
}

// shortened credits a stage cut short by an enhancement.
func (m satisfactionModel) shortened(p *Patient) {
	p.Satisfaction += m.spec.EnhancementBonus
}

// amenities credits amenity availability on arrival.
func (m satisfactionModel) amenities(p *Patient) {
	p.Satisfaction += m.spec.AmenityBonus
}

// clamp bounds a final score to [Min, Max].
func (m satisfactionModel) clamp(score float64) float64 {
	return math.Max(m.spec.Min, math.Min(m.spec.Max, score))
}
