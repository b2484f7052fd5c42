package sim

import (
	"fmt"
	"math"
	"math/rand"
)

// DistSpec selects a duration distribution family and its parameters.
type DistSpec struct {
	Type   string             `yaml:"type"`
	Params map[string]float64 `yaml:"params"`
}

// ValidDistributionTypes is the set of recognized distribution families.
var ValidDistributionTypes = map[string]bool{
	"lognormal":   true,
	"gamma":       true,
	"uniform":     true,
	"exponential": true,
	"constant":    true,
}

// DurationSampler draws stage durations in minutes.
type DurationSampler interface {
	// Sample returns a non-negative duration.
	Sample(rng *rand.Rand) float64
	// Mean returns the distribution's expected value.
	Mean() float64
}

// LogNormalSampler is parameterized by its mean and standard deviation in
// minutes rather than by the underlying normal's mu and sigma.
type LogNormalSampler struct {
	mu, sigma float64
	mean      float64
}

func newLogNormalSampler(mean, stdDev float64) *LogNormalSampler {
	cv2 := (stdDev * stdDev) / (mean * mean)
	sigma2 := math.Log1p(cv2)
	return &LogNormalSampler{
		mu:    math.Log(mean) - sigma2/2,
		sigma: math.Sqrt(sigma2),
		mean:  mean,
	}
}

func (s *LogNormalSampler) Sample(rng *rand.Rand) float64 {
	val := math.Exp(s.mu + s.sigma*rng.NormFloat64())
	if math.IsInf(val, 0) || math.IsNaN(val) {
		return s.mean
	}
	return val
}

func (s *LogNormalSampler) Mean() float64 { return s.mean }

// GammaSampler is parameterized by mean and standard deviation.
type GammaSampler struct {
	shape, scale float64
}

func (s *GammaSampler) Sample(rng *rand.Rand) float64 {
	return gammaRand(rng, s.shape, s.scale)
}

func (s *GammaSampler) Mean() float64 { return s.shape * s.scale }

// UniformSampler draws uniformly from [min, max).
type UniformSampler struct {
	min, max float64
}

func (s *UniformSampler) Sample(rng *rand.Rand) float64 {
	return s.min + rng.Float64()*(s.max-s.min)
}

func (s *UniformSampler) Mean() float64 { return (s.min + s.max) / 2 }

// ExponentialSampler produces exponentially-distributed durations.
type ExponentialSampler struct {
	mean float64
}

func (s *ExponentialSampler) Sample(rng *rand.Rand) float64 {
	return rng.ExpFloat64() * s.mean
}

func (s *ExponentialSampler) Mean() float64 { return s.mean }

// ConstantSampler always returns the same value and never touches the RNG.
type ConstantSampler struct {
	value float64
}

func (s *ConstantSampler) Sample(_ *rand.Rand) float64 { return s.value }

func (s *ConstantSampler) Mean() float64 { return s.value }

// gammaRand samples Gamma(shape, scale).
// Marsaglia-Tsang for shape >= 1, Ahrens-Dieter boost below.
func gammaRand(rng *rand.Rand, shape, scale float64) float64 {
	if shape < 1.0 {
		u := rng.Float64()
		return gammaRand(rng, shape+1.0, scale) * math.Pow(u, 1.0/shape)
	}

	d := shape - 1.0/3.0
	c := 1.0 / math.Sqrt(9.0*d)

	for {
		var x, v float64
		for {
			x = rng.NormFloat64()
			v = 1.0 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := rng.Float64()

		// Squeeze test
		if u < 1.0-0.0331*(x*x)*(x*x) {
			return d * v * scale
		}
		if math.Log(u) < 0.5*x*x+d*(1.0-v+math.Log(v)) {
			return d * v * scale
		}
	}
}

// requireParam checks that all required keys exist in a params map.
func requireParam(params map[string]float64, keys ...string) error {
	for _, k := range keys {
		if _, ok := params[k]; !ok {
			return fmt.Errorf("distribution requires parameter %q", k)
		}
	}
	return nil
}

// requirePositive checks that the named parameters are finite and > 0.
func requirePositive(params map[string]float64, keys ...string) error {
	for _, k := range keys {
		v := params[k]
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return fmt.Errorf("parameter %q must be a finite positive number, got %v", k, v)
		}
	}
	return nil
}

// NewDurationSampler creates a DurationSampler from a DistSpec.
func NewDurationSampler(spec DistSpec) (DurationSampler, error) {
	switch spec.Type {
	case "lognormal", "gamma":
		if err := requireParam(spec.Params, "mean", "std_dev"); err != nil {
			return nil, err
		}
		if err := requirePositive(spec.Params, "mean", "std_dev"); err != nil {
			return nil, err
		}
		mean, sd := spec.Params["mean"], spec.Params["std_dev"]
		if spec.Type == "lognormal" {
			return newLogNormalSampler(mean, sd), nil
		}
		return &GammaSampler{shape: (mean * mean) / (sd * sd), scale: (sd * sd) / mean}, nil

	case "uniform":
		if err := requireParam(spec.Params, "min", "max"); err != nil {
			return nil, err
		}
		lo, hi := spec.Params["min"], spec.Params["max"]
		if lo < 0 || hi < lo {
			return nil, fmt.Errorf("uniform requires 0 <= min <= max, got min=%v max=%v", lo, hi)
		}
		return &UniformSampler{min: lo, max: hi}, nil

	case "exponential":
		if err := requireParam(spec.Params, "mean"); err != nil {
			return nil, err
		}
		if err := requirePositive(spec.Params, "mean"); err != nil {
			return nil, err
		}
		return &ExponentialSampler{mean: spec.Params["mean"]}, nil

	case "constant":
		if err := requireParam(spec.Params, "value"); err != nil {
			return nil, err
		}
		if v := spec.Params["value"]; v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("constant value must be finite and non-negative, got %v", v)
		}
		return &ConstantSampler{value: spec.Params["value"]}, nil

	default:
		return nil, fmt.Errorf("unknown distribution type %q", spec.Type)
	}
}

// Uniform is a shorthand for building uniform DistSpecs in defaults and tests.
func Uniform(min, max float64) DistSpec {
	return DistSpec{Type: "uniform", Params: map[string]float64{"min": min, "max": max}}
}

// LogNormal is a shorthand for building log-normal DistSpecs.
func LogNormal(mean, stdDev float64) DistSpec {
	return DistSpec{Type: "lognormal", Params: map[string]float64{"mean": mean, "std_dev": stdDev}}
}

// Constant is a shorthand for building constant DistSpecs.
func Constant(value float64) DistSpec {
	return DistSpec{Type: "constant", Params: map[string]float64{"value": value}}
}
