/*
 * simulate runs a gravity simulation on the particles received on stdin in
 * json format, or on randomly initialized particles if stdin is a terminal,
 * and writes the final state to stdout.
 */
package main

import (
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"os"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/suxatcode/gravity-sim/internal/app"
	"github.com/suxatcode/gravity-sim/internal/controller"
	"github.com/suxatcode/gravity-sim/nbody"
)

type input struct {
	Particles []*nbody.Particle `json:"particles"`
}

func readParticles(conf app.SimulationConfig) ([]*nbody.Particle, error) {
	if stat, err := os.Stdin.Stat(); err == nil && stat.Mode()&os.ModeCharDevice == 0 {
		in := input{}
		err := json.NewDecoder(os.Stdin).Decode(&in)
		if err == nil {
			for i, p := range in.Particles {
				if err := p.Validate(); err != nil {
					return nil, errors.Wrapf(err, "particle %d", i)
				}
			}
			return in.Particles, nil
		}
		if !errors.Is(err, io.EOF) {
			return nil, errors.Wrap(err, "failed to decode particles from stdin")
		}
	}
	rnd := rand.New(rand.NewSource(conf.Seed))
	return nbody.RandomParticles(conf.Particles, conf.Boundary(), rnd.Float64), nil
}

func main() {
	conf, err := app.GetEnvConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}
	app.SetupLogging(conf)
	particles, err := readParticles(conf.Simulation)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to read particles")
	}
	sim, err := nbody.NewSimulation(conf.Simulation.NBodyConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("invalid simulation config")
	}
	steps := conf.Simulation.Steps
	if steps <= 0 {
		steps = 1
	}
	runner := controller.NewRunner(sim, particles, 0, nil)
	ctx := log.Logger.WithContext(context.Background())
	if err := runner.Run(ctx, steps); err != nil {
		log.Fatal().Err(err).Msg("simulation failed")
	}
	snapshot := runner.Snapshot()
	log.Info().Msgf("Stats: %#v", snapshot.Stats)
	if conf.Simulation.PNG != "" {
		if err := writePNG(conf.Simulation, snapshot, sim.Tree()); err != nil {
			log.Fatal().Err(err).Msg("failed to render")
		}
	}
	if err := json.NewEncoder(os.Stdout).Encode(&snapshot); err != nil {
		log.Fatal().Err(err).Msg("failed to write result")
	}
}

func writePNG(conf app.SimulationConfig, snapshot controller.Snapshot, tree *nbody.QuadTree) error {
	file, err := os.Create(conf.PNG)
	if err != nil {
		return errors.Wrap(err, "failed to create png")
	}
	defer file.Close()
	return nbody.Draw(file, conf.Boundary(), snapshot.Particles, tree, int(conf.Width), int(conf.Height))
}
