package app

import (
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/suxatcode/gravity-sim/nbody"
)

type Config struct {
	Production bool `env:"PRODUCTION" envDefault:"false"`
	// Levels are {trace, debug, info, warn, error, fatal, panic}.
	// See github.com/rs/zerolog@v1.19.0/log.go for possible values.
	LogLevel string `env:"LOGLEVEL" envDefault:"debug"`
	// HTTP timeouts (read and write)
	HTTPTimeout time.Duration `env:"TIMEOUT" envDefault:"5s"`
	Port        string        `env:"PORT" envDefault:"8080"`
	Simulation  SimulationConfig
}

type SimulationConfig struct {
	G           float64 `env:"SIM_G" envDefault:"3"`
	MaxVelocity float64 `env:"SIM_MAX_VELOCITY" envDefault:"0.1"`
	Capacity    int     `env:"SIM_CAPACITY" envDefault:"4"`
	MaxDepth    int     `env:"SIM_MAX_DEPTH" envDefault:"8"`
	Theta       float64 `env:"SIM_THETA" envDefault:"0.5"`
	MinDistance float64 `env:"SIM_MIN_DISTANCE" envDefault:"0.01"`
	// Width and Height of the simulated area, with the origin in the top left
	Width  float64 `env:"SIM_WIDTH" envDefault:"1000"`
	Height float64 `env:"SIM_HEIGHT" envDefault:"1000"`
	// Particles is the number of randomly initialized particles.
	Particles int `env:"SIM_PARTICLES" envDefault:"1000"`
	// Steps limits the number of steps; zero runs until interrupted.
	Steps int `env:"SIM_STEPS" envDefault:"0"`
	// Tick is the minimum time between two steps.
	Tick            time.Duration `env:"SIM_TICK" envDefault:"16ms"`
	Seed            int64         `env:"SIM_SEED" envDefault:"1"`
	Parallelization int           `env:"SIM_PARALLELIZATION" envDefault:"0"`
	// PNG is a file the final state is rendered to, if set.
	PNG string `env:"SIM_PNG" envDefault:""`
}

// GetEnvConfig reads the config from the environment, after loading a .env
// file if one exists.
func GetEnvConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, errors.Wrap(err, "failed to load .env")
	}
	conf := Config{}
	if err := env.Parse(&conf); err != nil {
		return Config{}, errors.Wrap(err, "failed to parse environment")
	}
	if err := env.Parse(&conf.Simulation); err != nil {
		return Config{}, errors.Wrap(err, "failed to parse simulation environment")
	}
	return conf, nil
}

func (c SimulationConfig) Boundary() nbody.Rect {
	return nbody.NewRect(c.Width/2, c.Height/2, c.Width, c.Height)
}

func (c SimulationConfig) NBodyConfig() nbody.Config {
	return nbody.Config{
		Boundary:        c.Boundary(),
		G:               c.G,
		MaxVelocity:     c.MaxVelocity,
		Capacity:        c.Capacity,
		MaxDepth:        c.MaxDepth,
		Theta:           c.Theta,
		MinDistance:     c.MinDistance,
		Parallelization: c.Parallelization,
		Integration:     nbody.IntegrationAccumulate,
	}
}

// SetupLogging configures the global zerolog logger.
func SetupLogging(conf Config) {
	level, err := zerolog.ParseLevel(conf.LogLevel)
	if err != nil {
		println("failed to parse LogLevel: '" + conf.LogLevel + "', setting to debug")
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	if !conf.Production {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}
