package semirbm

import (
	"github.com/gorgonia/semirbm/rbm"
	"github.com/pkg/errors"
)

// Lateral configures the visible-visible connections.
type Lateral struct {
	LearningRateLateral float64 // step width of the updates of L
	MomentumLateral     float64 // momentum of the updates of L
	WeightDecayLateral  float64 // L2 penalty on L

	Damping           float64 // weight of the previous estimate in each mean field update
	NumLateralUpdates int     // mean field iterations, or Gibbs sweeps minus one
}

// Config configures a SemiRBM.
type Config struct {
	rbm.Config
	Lateral

	// Seed seeds the random stream owned by the model. Zero picks a time based seed.
	Seed int64
}

// DefaultConf returns the default configuration, which samples the visible
// units with mean field updates.
func DefaultConf() Config {
	base := rbm.DefaultConf()
	base.SamplingMethod = rbm.MeanField
	return Config{
		Config: base,
		Lateral: Lateral{
			LearningRateLateral: 0.01,
			MomentumLateral:     0.5,
			WeightDecayLateral:  0,
			Damping:             0.2,
			NumLateralUpdates:   20,
		},
	}
}

func (conf Config) IsValid() bool { return conf.Validate() == nil }

// Validate returns a rbm.ConfigError listing every invalid field, or nil.
func (conf Config) Validate() error {
	var errs rbm.ConfigError
	if err := conf.Config.Validate(); err != nil {
		if ce, ok := err.(rbm.ConfigError); ok {
			errs = append(errs, ce...)
		} else {
			errs = append(errs, err)
		}
	}
	if conf.LearningRateLateral < 0 {
		errs = append(errs, errors.Errorf("LearningRateLateral must not be negative. Got %v", conf.LearningRateLateral))
	}
	if conf.MomentumLateral < 0 || conf.MomentumLateral >= 1 {
		errs = append(errs, errors.Errorf("MomentumLateral must be in [0, 1). Got %v", conf.MomentumLateral))
	}
	if conf.WeightDecayLateral < 0 {
		errs = append(errs, errors.Errorf("WeightDecayLateral must not be negative. Got %v", conf.WeightDecayLateral))
	}
	if conf.Damping < 0 || conf.Damping >= 1 {
		errs = append(errs, errors.Errorf("Damping must be in [0, 1). Got %v", conf.Damping))
	}
	if conf.NumLateralUpdates < 0 {
		errs = append(errs, errors.Errorf("NumLateralUpdates must not be negative. Got %d", conf.NumLateralUpdates))
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
