package rbm

import (
	"bytes"
	"fmt"

	"github.com/pkg/errors"
)

// SamplingMethod selects how the visible units are sampled given the hidden units.
type SamplingMethod int

const (
	// Gibbs samples the visible units one at a time.
	Gibbs SamplingMethod = iota
	// MeanField relaxes the visible probabilities with damped parallel updates before sampling.
	MeanField
)

func (s SamplingMethod) String() string {
	switch s {
	case Gibbs:
		return "Gibbs"
	case MeanField:
		return "MeanField"
	}
	return fmt.Sprintf("SamplingMethod(%d)", int(s))
}

// Config configures the training of a Boltzmann machine.
type Config struct {
	LearningRate float64 // step width of the gradient updates of W, b and c
	Momentum     float64 // fraction of the previous update carried into the next
	WeightDecay  float64 // L2 penalty on W

	CDSteps        int  // number of alternating sampling steps in the negative phase
	Persistent     bool // keep the negative phase chains across Train calls
	SamplingMethod SamplingMethod
}

// DefaultConf returns the default training configuration.
func DefaultConf() Config {
	return Config{
		LearningRate:   0.01,
		Momentum:       0.5,
		WeightDecay:    0.001,
		CDSteps:        1,
		SamplingMethod: Gibbs,
	}
}

func (conf Config) IsValid() bool { return conf.Validate() == nil }

// Validate returns a ConfigError listing every invalid field, or nil.
func (conf Config) Validate() error {
	var errs ConfigError
	if conf.LearningRate < 0 {
		errs = append(errs, errors.Errorf("LearningRate must not be negative. Got %v", conf.LearningRate))
	}
	if conf.Momentum < 0 || conf.Momentum >= 1 {
		errs = append(errs, errors.Errorf("Momentum must be in [0, 1). Got %v", conf.Momentum))
	}
	if conf.WeightDecay < 0 {
		errs = append(errs, errors.Errorf("WeightDecay must not be negative. Got %v", conf.WeightDecay))
	}
	if conf.CDSteps < 1 {
		errs = append(errs, errors.Errorf("CDSteps must be at least 1. Got %d", conf.CDSteps))
	}
	switch conf.SamplingMethod {
	case Gibbs, MeanField:
	default:
		errs = append(errs, errors.Errorf("Unknown sampling method %v", conf.SamplingMethod))
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ConfigError collects every problem found while validating a configuration.
type ConfigError []error

func (err ConfigError) Error() string {
	var buf bytes.Buffer
	for _, e := range err {
		fmt.Fprintln(&buf, e.Error())
	}
	return buf.String()
}
