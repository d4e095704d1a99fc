package nbody

import (
	"math"
	"math/rand"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
	"github.com/quartercastle/vector"
)

var ErrInvalidMass = errors.New("particle mass must be positive and finite")

// Particle is a point mass. Radius and Color are only used for rendering.
type Particle struct {
	Pos    vector.Vector `json:"pos"`
	Vel    vector.Vector `json:"vel"`
	Mass   float64       `json:"mass"`
	Radius float64       `json:"radius"`
	Color  string        `json:"color"`
	// acc accumulates the net force of the current step
	acc vector.Vector
	// leaf is the node the particle was stored in during the current step
	leaf *QuadTree
}

func NewParticle(x, y, vx, vy, mass, radius float64, color string) (*Particle, error) {
	p := &Particle{
		Pos:    vector.Vector{x, y},
		Vel:    vector.Vector{vx, vy},
		Mass:   mass,
		Radius: radius,
		Color:  color,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate checks a particle received from outside the package, e.g. decoded
// from JSON.
func (p *Particle) Validate() error {
	if p.Mass <= 0 || math.IsNaN(p.Mass) || math.IsInf(p.Mass, 0) {
		return errors.Wrapf(ErrInvalidMass, "got mass %v", p.Mass)
	}
	if len(p.Pos) != 2 {
		return errors.Errorf("particle position must have 2 components, got %d", len(p.Pos))
	}
	if len(p.Vel) != 0 && len(p.Vel) != 2 {
		return errors.Errorf("particle velocity must have 0 or 2 components, got %d", len(p.Vel))
	}
	return nil
}

// Clone returns a copy that shares no vectors with p.
func (p *Particle) Clone() *Particle {
	c := &Particle{
		Pos:    vector.Vector{p.Pos.X(), p.Pos.Y()},
		Mass:   p.Mass,
		Radius: p.Radius,
		Color:  p.Color,
	}
	if len(p.Vel) == 2 {
		c.Vel = vector.Vector{p.Vel.X(), p.Vel.Y()}
	}
	return c
}

func (p *Particle) resetAcceleration() {
	if len(p.Vel) != 2 {
		p.Vel = vector.Vector{0, 0}
	}
	p.acc = vector.Vector{0, 0}
	p.leaf = nil
}

func (p *Particle) move() {
	vector.In(p.Pos).Add(p.Vel)
}

func clampVelocity(vx, vy, maxVelocity float64) vector.Vector {
	return vector.Vector{
		clamp(vx, -maxVelocity, maxVelocity),
		clamp(vy, -maxVelocity, maxVelocity),
	}
}

// RandomParticles places n particles uniformly inside boundary, with zero
// velocity, mass in [1, 10), a radius growing with mass and a random hue.
// rnd defaults to math/rand.
func RandomParticles(n int, boundary Rect, rnd func() float64) []*Particle {
	if rnd == nil {
		rnd = rand.Float64
	}
	particles := make([]*Particle, 0, n)
	for i := 0; i < n; i++ {
		mass := 1 + 9*rnd()
		particles = append(particles, &Particle{
			Pos: vector.Vector{
				boundary.Left + rnd()*boundary.Width(),
				boundary.Top + rnd()*boundary.Height(),
			},
			Vel:    vector.Vector{0, 0},
			Mass:   mass,
			Radius: math.Sqrt(mass),
			Color:  colorful.Hsv(rnd()*360, 0.5+0.5*rnd(), 1).Clamped().Hex(),
		})
	}
	return particles
}
