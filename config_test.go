package semirbm

import (
	"strings"
	"testing"

	"github.com/gorgonia/semirbm/rbm"
	"github.com/stretchr/testify/assert"
)

func TestDefaultConf(t *testing.T) {
	conf := DefaultConf()
	if !conf.IsValid() {
		t.Errorf("Expected Default Config to be correct")
	}
	assert.Equal(t, rbm.MeanField, conf.SamplingMethod)
	assert.Equal(t, 0.01, conf.LearningRateLateral)
	assert.Equal(t, 0.5, conf.MomentumLateral)
	assert.Equal(t, 0.0, conf.WeightDecayLateral)
	assert.Equal(t, 0.2, conf.Damping)
	assert.Equal(t, 20, conf.NumLateralUpdates)
}

func TestConfigValidate(t *testing.T) {
	conf := DefaultConf()
	conf.Damping = 1
	conf.NumLateralUpdates = -1
	conf.CDSteps = 0

	err := conf.Validate()
	if assert.Error(t, err) {
		assert.Len(t, err.(rbm.ConfigError), 3)
		assert.True(t, strings.Contains(err.Error(), "Damping"))
		assert.True(t, strings.Contains(err.Error(), "CDSteps"))
	}

	_, err = New(4, 3, conf)
	assert.Error(t, err)
}
