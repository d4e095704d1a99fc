package nbody

import (
	"math"
	"sync"

	"github.com/pkg/errors"
	"github.com/quartercastle/vector"
)

var ErrInvalidConfig = errors.New("invalid simulation config")

// Integration selects how forces are turned into motion.
type Integration int

const (
	IntegrationUndefined Integration = iota
	// accumulate the net force per particle over the near field (exact pairs
	// within a leaf) and the far field (Barnes-Hut traversal), then update
	// every particle once
	IntegrationAccumulate
	// apply exact pairs within each leaf only, moving both particles right
	// after each pair; results depend on processing order
	IntegrationLeafLocal
)

type Config struct {
	// Boundary of the root node. Particles outside it are not simulated
	// against the others.
	Boundary Rect
	// G is the gravitational constant.
	G float64
	// MaxVelocity clamps each velocity component after an update.
	MaxVelocity float64
	Capacity    int
	MaxDepth    int
	// Theta is the Barnes-Hut threshold: a node of size s at distance d from a
	// particle is treated as a single body when s/d < Theta.
	Theta float64
	// MinDistance bounds the distance used for the force magnitude, so that
	// nearly coincident particles do not produce huge forces.
	MinDistance float64
	// Parallelization is the number of goroutines computing the far field.
	// Zero computes it on the calling goroutine.
	Parallelization int
	Integration     Integration
}

var DefaultConfig = Config{
	Boundary:    NewRect(500, 500, 1000, 1000),
	G:           3,
	MaxVelocity: 0.1,
	Capacity:    DefaultQuadTreeConfig.Capacity,
	MaxDepth:    DefaultQuadTreeConfig.MaxDepth,
	Theta:       0.5,
	MinDistance: 1e-2,
	Integration: IntegrationAccumulate,
}

// withDefaults replaces zero values by the ones of DefaultConfig.
func (conf Config) withDefaults() Config {
	if conf.Boundary.Width() == 0 || conf.Boundary.Height() == 0 {
		conf.Boundary = DefaultConfig.Boundary
	}
	if conf.G == 0 {
		conf.G = DefaultConfig.G
	}
	if conf.MaxVelocity == 0 {
		conf.MaxVelocity = DefaultConfig.MaxVelocity
	}
	if conf.Capacity == 0 {
		conf.Capacity = DefaultConfig.Capacity
	}
	if conf.MaxDepth == 0 {
		conf.MaxDepth = DefaultConfig.MaxDepth
	}
	if conf.Theta == 0 {
		conf.Theta = DefaultConfig.Theta
	}
	if conf.MinDistance == 0 {
		conf.MinDistance = DefaultConfig.MinDistance
	}
	if conf.Integration == IntegrationUndefined {
		conf.Integration = DefaultConfig.Integration
	}
	return conf
}

func (conf Config) Validate() error {
	switch {
	case conf.Boundary.Width() <= 0 || conf.Boundary.Height() <= 0:
		return errors.Wrapf(ErrInvalidConfig, "boundary %+v has no area", conf.Boundary)
	case conf.Capacity < 1:
		return errors.Wrapf(ErrInvalidConfig, "capacity must be at least 1, got %d", conf.Capacity)
	case conf.MaxDepth < 0:
		return errors.Wrapf(ErrInvalidConfig, "max depth must not be negative, got %d", conf.MaxDepth)
	case conf.Theta < 0:
		return errors.Wrapf(ErrInvalidConfig, "theta must not be negative, got %v", conf.Theta)
	case conf.MaxVelocity <= 0:
		return errors.Wrapf(ErrInvalidConfig, "max velocity must be positive, got %v", conf.MaxVelocity)
	case conf.MinDistance < 0:
		return errors.Wrapf(ErrInvalidConfig, "min distance must not be negative, got %v", conf.MinDistance)
	case conf.Parallelization < 0:
		return errors.Wrapf(ErrInvalidConfig, "parallelization must not be negative, got %d", conf.Parallelization)
	}
	return nil
}

// Stats describes one step.
type Stats struct {
	Particles int `json:"particles"`
	// Dropped particles were outside the boundary and not inserted.
	Dropped int `json:"dropped"`
	Nodes   int `json:"nodes"`
	Leaves  int `json:"leaves"`
	Depth   int `json:"depth"`
	// Approximations counts nodes treated as a single body.
	Approximations int `json:"approximations"`
	// Interactions counts exact particle-particle force evaluations.
	Interactions int `json:"interactions"`
}

// Simulation advances a particle collection one step at a time. The caller
// must not touch the particles while Step runs.
type Simulation struct {
	conf     Config
	treeConf QuadTreeConfig
	qt       *QuadTree
}

func NewSimulation(conf Config) (*Simulation, error) {
	s := &Simulation{}
	if err := s.ApplyConfig(conf); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Simulation) ApplyConfig(conf Config) error {
	conf = conf.withDefaults()
	if err := conf.Validate(); err != nil {
		return err
	}
	s.conf = conf
	s.treeConf = QuadTreeConfig{Capacity: conf.Capacity, MaxDepth: conf.MaxDepth}
	s.qt = NewQuadTree(&s.treeConf, conf.Boundary)
	return nil
}

func (s *Simulation) Config() Config { return s.conf }

// Tree returns the tree built by the last Step. It is rebuilt in place by
// the next Step.
func (s *Simulation) Tree() *QuadTree { return s.qt }

// Step rebuilds the tree from particles and advances every particle by one
// tick, in place. On error no particle has moved.
func (s *Simulation) Step(particles []*Particle) (Stats, error) {
	stats := Stats{Particles: len(particles)}
	if err := s.buildTree(particles); err != nil {
		return stats, err
	}
	s.treeStats(&stats)
	stats.Dropped = len(particles) - s.qt.Len()
	switch s.conf.Integration {
	case IntegrationLeafLocal:
		s.leafLocal(&stats)
	default:
		s.accumulateForces(particles, &stats)
		s.updatePositions(particles)
	}
	return stats, nil
}

// StepCopy is Step on a deep copy of particles, leaving them untouched.
func (s *Simulation) StepCopy(particles []*Particle) ([]*Particle, Stats, error) {
	next := make([]*Particle, len(particles))
	for i, p := range particles {
		next[i] = p.Clone()
	}
	stats, err := s.Step(next)
	if err != nil {
		return nil, stats, err
	}
	return next, stats, nil
}

func (s *Simulation) buildTree(particles []*Particle) error {
	s.qt.Clear()
	for _, p := range particles {
		p.resetAcceleration()
	}
	return errors.Wrap(s.qt.insertAll(particles), "failed to build quadtree")
}

func (s *Simulation) treeStats(stats *Stats) {
	s.qt.Walk(func(node *QuadTree) bool {
		stats.Nodes++
		if !node.divided {
			stats.Leaves++
		}
		if node.depth > stats.Depth {
			stats.Depth = node.depth
		}
		return true
	})
}

// attraction returns the force pulling a body of mass am at a towards a body
// of mass bm at b.
func (s *Simulation) attraction(a vector.Vector, am float64, b vector.Vector, bm float64) (float64, float64) {
	d := CalculateDistance(a.X(), a.Y(), b.X(), b.Y())
	distSq := math.Max(d.DistSq, s.conf.MinDistance*s.conf.MinDistance)
	return CalculateAttraction(d.Dx, d.Dy, distSq, d.Distance, am, bm, s.conf.G)
}

func (s *Simulation) accumulateForces(particles []*Particle, stats *Stats) {
	s.nearField(stats)
	s.farField(particles, stats)
}

// nearField applies exact pairwise forces among the particles of each leaf.
func (s *Simulation) nearField(stats *Stats) {
	s.qt.Walk(func(node *QuadTree) bool {
		if node.divided || len(node.points) < 2 {
			return true
		}
		for i, a := range node.points {
			for _, b := range node.points[i+1:] {
				fx, fy := s.attraction(a.Pos, a.Mass, b.Pos, b.Mass)
				vector.In(a.acc).Add(vector.Vector{fx, fy})
				vector.In(b.acc).Sub(vector.Vector{fx, fy})
				stats.Interactions++
			}
		}
		return true
	})
}

// farField adds the force of everything outside each particle's own leaf.
// Workers only read the tree and each writes the accumulators of its own
// slice of particles.
func (s *Simulation) farField(particles []*Particle, stats *Stats) {
	calculateForce := func(particles []*Particle, stats *Stats) {
		for _, p := range particles {
			t := traversal{sim: s, p: p}
			t.visit(s.qt)
			vector.In(p.acc).Add(vector.Vector{t.fx, t.fy})
			stats.Approximations += t.approximations
			stats.Interactions += t.interactions
		}
	}
	workers := s.conf.Parallelization
	if workers == 0 || len(particles) < 2 {
		calculateForce(particles, stats)
		return
	}
	total := len(particles)
	partial := make([]Stats, workers)
	wg := sync.WaitGroup{}
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(i int) {
			defer wg.Done()
			calculateForce(particles[i*total/workers:(i+1)*total/workers], &partial[i])
		}(i)
	}
	wg.Wait()
	for _, part := range partial {
		stats.Approximations += part.Approximations
		stats.Interactions += part.Interactions
	}
}

type traversal struct {
	sim            *Simulation
	p              *Particle
	fx, fy         float64
	approximations int
	interactions   int
}

func (t *traversal) visit(node *QuadTree) {
	if node.count == 0 {
		return
	}
	if !node.divided {
		if node == t.p.leaf {
			return // handled by nearField
		}
		for _, other := range node.points {
			if other == t.p {
				continue
			}
			t.add(t.sim.attraction(t.p.Pos, t.p.Mass, other.Pos, other.Mass))
			t.interactions++
		}
		return
	}
	// a node holding the particle itself is never a single far body
	if !node.boundary.Contains(t.p.Pos) {
		d := CalculateDistance(t.p.Pos.X(), t.p.Pos.Y(), node.massCenter.X(), node.massCenter.Y())
		if d.Distance > 0 && node.boundary.size()/d.Distance < t.sim.conf.Theta {
			t.add(t.sim.attraction(t.p.Pos, t.p.Mass, node.massCenter, node.massTotal))
			t.approximations++
			return
		}
	}
	for _, child := range node.children {
		t.visit(child)
	}
}

func (t *traversal) add(fx, fy float64) {
	t.fx += fx
	t.fy += fy
}

func (s *Simulation) updatePositions(particles []*Particle) {
	for _, p := range particles {
		p.Vel = clampVelocity(
			p.Vel.X()+p.acc.X()/p.Mass,
			p.Vel.Y()+p.acc.Y()/p.Mass,
			s.conf.MaxVelocity,
		)
		p.move()
	}
}

// leafLocal moves particles pair by pair within each leaf. Particles in
// different leaves do not interact.
func (s *Simulation) leafLocal(stats *Stats) {
	s.qt.Walk(func(node *QuadTree) bool {
		if node.divided || len(node.points) < 2 {
			return true
		}
		for i, a := range node.points {
			for _, b := range node.points[i+1:] {
				fx, fy := s.attraction(a.Pos, a.Mass, b.Pos, b.Mass)
				ApplyForce(a, b, fx, fy, s.conf.MaxVelocity)
				stats.Interactions++
			}
		}
		return true
	})
}
