package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/suxatcode/gravity-sim/nbody"
)

func TestGetEnvConfig_defaults(t *testing.T) {
	conf, err := GetEnvConfig()
	require.NoError(t, err)
	assert := assert.New(t)
	assert.Equal("debug", conf.LogLevel)
	assert.Equal("8080", conf.Port)
	assert.Equal(5*time.Second, conf.HTTPTimeout)
	assert.Equal(SimulationConfig{
		G:           3,
		MaxVelocity: 0.1,
		Capacity:    4,
		MaxDepth:    8,
		Theta:       0.5,
		MinDistance: 0.01,
		Width:       1000,
		Height:      1000,
		Particles:   1000,
		Tick:        16 * time.Millisecond,
		Seed:        1,
	}, conf.Simulation)
}

func TestGetEnvConfig_overrides(t *testing.T) {
	t.Setenv("SIM_THETA", "0.8")
	t.Setenv("SIM_CAPACITY", "1")
	t.Setenv("SIM_WIDTH", "1200")
	t.Setenv("SIM_HEIGHT", "800")
	t.Setenv("SIM_TICK", "1s")
	t.Setenv("PRODUCTION", "true")
	conf, err := GetEnvConfig()
	require.NoError(t, err)
	assert := assert.New(t)
	assert.True(conf.Production)
	assert.Equal(0.8, conf.Simulation.Theta)
	assert.Equal(1, conf.Simulation.Capacity)
	assert.Equal(time.Second, conf.Simulation.Tick)
	nconf := conf.Simulation.NBodyConfig()
	assert.Equal(nbody.Rect{Left: 0, Top: 0, Right: 1200, Bottom: 800}, nconf.Boundary)
	_, err = nbody.NewSimulation(nconf)
	assert.NoError(err)
}

func TestGetEnvConfig_invalid(t *testing.T) {
	t.Setenv("SIM_CAPACITY", "many")
	_, err := GetEnvConfig()
	assert.Error(t, err)
}
