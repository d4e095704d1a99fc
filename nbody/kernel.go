package nbody

import (
	"math"

	"golang.org/x/exp/constraints"
)

// Distance between two points. Dx and Dy point from the second point to the
// first.
type Distance struct {
	Distance float64
	DistSq   float64
	Dx, Dy   float64
}

func CalculateDistance(p1x, p1y, p2x, p2y float64) Distance {
	dx := p1x - p2x
	dy := p1y - p2y
	distSq := dx*dx + dy*dy
	return Distance{
		Distance: math.Sqrt(distSq),
		DistSq:   distSq,
		Dx:       dx,
		Dy:       dy,
	}
}

// CalculateAttraction returns the gravitational force pulling body A towards
// body B, where (dx, dy) is A minus B. Coincident bodies have no defined
// direction and yield a zero force.
func CalculateAttraction(dx, dy, distSq, distance, massA, massB, g float64) (fx, fy float64) {
	if distance == 0 || distSq == 0 {
		return 0, 0
	}
	force := g * massA * massB / distSq
	fx = -force * dx / distance
	fy = -force * dy / distance
	return fx, fy
}

// ApplyForce applies force (fx, fy) to a and the opposite force to b, clamps
// both velocities per axis to maxVelocity and advances both positions by the
// new velocity.
func ApplyForce(a, b *Particle, fx, fy, maxVelocity float64) {
	a.Vel = clampVelocity(a.Vel.X()+fx/a.Mass, a.Vel.Y()+fy/a.Mass, maxVelocity)
	b.Vel = clampVelocity(b.Vel.X()-fx/b.Mass, b.Vel.Y()-fy/b.Mass, maxVelocity)
	a.move()
	b.move()
}

func clamp[T constraints.Ordered](in, lo, hi T) T {
	if in != in { // NaN
		return in
	}
	if in > hi {
		return hi
	} else if in < lo {
		return lo
	}
	return in
}
