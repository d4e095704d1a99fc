package controller

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/suxatcode/gravity-sim/nbody"
	"golang.org/x/time/rate"
)

// Stepper advances a particle collection by one tick.
//
//go:generate mockgen -destination stepper_mock.go -package controller . Stepper
type Stepper interface {
	// Step mutates particles in place.
	Step(particles []*nbody.Particle) (nbody.Stats, error)
	// Tree returns the tree built by the last Step, or nil.
	Tree() *nbody.QuadTree
}

// Snapshot is the state after a completed step.
type Snapshot struct {
	Step      int               `json:"step"`
	Particles []*nbody.Particle `json:"particles"`
	Boxes     []nbody.Rect      `json:"boxes"`
	Stats     nbody.Stats       `json:"stats"`
}

// Runner owns a particle collection and steps it. Readers only ever see the
// state between two steps.
type Runner struct {
	stepper Stepper
	metrics *Metrics
	limiter *rate.Limiter

	mu        sync.RWMutex
	particles []*nbody.Particle
	boxes     []nbody.Rect
	stats     nbody.Stats
	steps     int

	pendingMu sync.Mutex
	pending   []*nbody.Particle
}

// NewRunner steps at most once per tick; a zero tick steps as fast as
// possible. metrics may be nil.
func NewRunner(stepper Stepper, particles []*nbody.Particle, tick time.Duration, metrics *Metrics) *Runner {
	limit := rate.Inf
	if tick > 0 {
		limit = rate.Every(tick)
	}
	if metrics == nil {
		metrics = NewMetrics(nil)
	}
	return &Runner{
		stepper:   stepper,
		metrics:   metrics,
		limiter:   rate.NewLimiter(limit, 1),
		particles: particles,
		boxes:     []nbody.Rect{},
	}
}

// AddParticle queues p; it joins the simulation before the next step.
func (r *Runner) AddParticle(p *nbody.Particle) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	r.pending = append(r.pending, p)
	return nil
}

// StepOnce runs a single step.
func (r *Runner) StepOnce(ctx context.Context) (nbody.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pendingMu.Lock()
	r.particles = append(r.particles, r.pending...)
	r.pending = nil
	r.pendingMu.Unlock()

	start := time.Now()
	stats, err := r.stepper.Step(r.particles)
	elapsed := time.Since(start)
	if err != nil {
		r.metrics.observeFailure()
		log.Ctx(ctx).Error().Err(err).Msgf("step %d failed", r.steps+1)
		return stats, errors.Wrapf(err, "step %d", r.steps+1)
	}
	r.steps++
	r.stats = stats
	r.boxes = []nbody.Rect{}
	if tree := r.stepper.Tree(); tree != nil {
		r.boxes = tree.Boxes()
	}
	r.metrics.observe(stats, elapsed)
	if stats.Dropped > 0 {
		log.Ctx(ctx).Warn().Msgf("step %d: %d particles outside the boundary", r.steps, stats.Dropped)
	}
	log.Ctx(ctx).Debug().Msgf(
		"step %d finished: stats{particles: %d, nodes: %d, depth: %d, approximations: %d, time: %d µs}",
		r.steps, stats.Particles, stats.Nodes, stats.Depth, stats.Approximations, elapsed.Microseconds(),
	)
	return stats, nil
}

// Run steps until ctx is done, or steps times if steps > 0.
func (r *Runner) Run(ctx context.Context, steps int) error {
	for i := 0; steps <= 0 || i < steps; i++ {
		if ctx.Err() != nil {
			return nil
		}
		if err := r.limiter.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "step rate limiter")
		}
		if _, err := r.StepOnce(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot returns a copy of the last completed step.
func (r *Runner) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s := Snapshot{
		Step:      r.steps,
		Particles: make([]*nbody.Particle, len(r.particles)),
		Boxes:     make([]nbody.Rect, len(r.boxes)),
		Stats:     r.stats,
	}
	for i, p := range r.particles {
		s.Particles[i] = p.Clone()
	}
	copy(s.Boxes, r.boxes)
	return s
}
