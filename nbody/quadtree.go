package nbody

import (
	"github.com/pkg/errors"
	"github.com/quartercastle/vector"
)

// ErrInsertInvariant means a particle inside a node's boundary was accepted by
// none of its children. It indicates broken subdivision geometry.
var ErrInsertInvariant = errors.New("quadtree insertion invariant violated")

type QuadTreeConfig struct {
	// Capacity is the number of particles a node holds before it subdivides.
	Capacity int
	// MaxDepth bounds subdivision; nodes at MaxDepth hold any number of
	// particles.
	MaxDepth int
}

var DefaultQuadTreeConfig = QuadTreeConfig{Capacity: 4, MaxDepth: 8}

// QuadTree is one node of a region quadtree over particles. massCenter and
// massTotal aggregate every particle inserted into the node's subtree.
type QuadTree struct {
	boundary   Rect
	config     *QuadTreeConfig
	points     []*Particle
	count      int
	massTotal  float64
	massCenter vector.Vector
	divided    bool
	children   [4]*QuadTree
	depth      int
}

func NewQuadTree(config *QuadTreeConfig, boundary Rect) *QuadTree {
	if config == nil {
		conf := DefaultQuadTreeConfig
		config = &conf
	}
	if config.Capacity <= 0 {
		config.Capacity = DefaultQuadTreeConfig.Capacity
	}
	return newQuadTree(config, boundary, 0)
}

func newQuadTree(config *QuadTreeConfig, boundary Rect, depth int) *QuadTree {
	return &QuadTree{
		boundary: boundary,
		config:   config,
		points:   make([]*Particle, 0, config.Capacity),
		depth:    depth,
	}
}

// BuildTree inserts all particles into a fresh tree. Particles outside
// boundary are skipped; compare Len with len(particles) to detect them.
func BuildTree(particles []*Particle, boundary Rect, capacity, maxDepth int) (*QuadTree, error) {
	qt := NewQuadTree(&QuadTreeConfig{Capacity: capacity, MaxDepth: maxDepth}, boundary)
	if err := qt.insertAll(particles); err != nil {
		return nil, err
	}
	return qt, nil
}

// Clear empties the node so it can be refilled with the same boundary.
func (qt *QuadTree) Clear() {
	qt.points = qt.points[:0]
	qt.count = 0
	qt.massTotal = 0
	qt.massCenter = nil
	qt.divided = false
	for i := range qt.children {
		qt.children[i] = nil
	}
}

func (qt *QuadTree) insertAll(particles []*Particle) error {
	for _, p := range particles {
		if _, err := qt.Insert(p); err != nil {
			return err
		}
	}
	return nil
}

// Insert places p in the subtree. It returns false without touching the tree
// when p lies outside the boundary.
func (qt *QuadTree) Insert(p *Particle) (bool, error) {
	if !qt.boundary.Contains(p.Pos) {
		return false, nil
	}
	qt.addMass(p)
	if !qt.divided {
		if len(qt.points) < qt.config.Capacity || qt.depth >= qt.config.MaxDepth {
			qt.points = append(qt.points, p)
			p.leaf = qt
			return true, nil
		}
		if err := qt.subdivide(); err != nil {
			return false, err
		}
	}
	return qt.insertIntoChildren(p)
}

func (qt *QuadTree) addMass(p *Particle) {
	if qt.massCenter == nil {
		qt.massCenter = vector.Vector{p.Pos.X(), p.Pos.Y()}
	} else {
		total := qt.massTotal + p.Mass
		qt.massCenter = vector.Vector{
			(qt.massCenter.X()*qt.massTotal + p.Pos.X()*p.Mass) / total,
			(qt.massCenter.Y()*qt.massTotal + p.Pos.Y()*p.Mass) / total,
		}
	}
	qt.massTotal += p.Mass
	qt.count++
}

func (qt *QuadTree) insertIntoChildren(p *Particle) (bool, error) {
	for _, child := range qt.children {
		ok, err := child.Insert(p)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, errors.Wrapf(
		ErrInsertInvariant,
		"particle at (%v, %v) is inside %+v at depth %d but no child accepted it",
		p.Pos.X(), p.Pos.Y(), qt.boundary, qt.depth,
	)
}

// subdivide creates the four children and moves the directly held particles
// into them.
func (qt *QuadTree) subdivide() error {
	for i, rect := range qt.boundary.quadrants() {
		qt.children[i] = newQuadTree(qt.config, rect, qt.depth+1)
	}
	qt.divided = true
	points := qt.points
	qt.points = make([]*Particle, 0)
	for _, p := range points {
		if _, err := qt.insertIntoChildren(p); err != nil {
			return err
		}
	}
	return nil
}

func (qt *QuadTree) Boundary() Rect { return qt.boundary }
func (qt *QuadTree) Divided() bool  { return qt.divided }
func (qt *QuadTree) Depth() int     { return qt.depth }

// Len is the number of particles stored in the subtree.
func (qt *QuadTree) Len() int { return qt.count }

func (qt *QuadTree) MassTotal() float64 { return qt.massTotal }

// MassCenter returns the center of mass of the subtree, or false for a node
// nothing was inserted into.
func (qt *QuadTree) MassCenter() (vector.Vector, bool) {
	if qt.massCenter == nil {
		return nil, false
	}
	return vector.Vector{qt.massCenter.X(), qt.massCenter.Y()}, true
}

// Points returns the particles held directly by the node.
func (qt *QuadTree) Points() []*Particle {
	return qt.points
}

// Child returns nil for undivided nodes.
func (qt *QuadTree) Child(q Quadrant) *QuadTree {
	return qt.children[q]
}

// Walk visits the subtree depth-first, children in Quadrant order. Returning
// false from fn skips the children of that node.
func (qt *QuadTree) Walk(fn func(*QuadTree) bool) {
	if !fn(qt) || !qt.divided {
		return
	}
	for _, child := range qt.children {
		child.Walk(fn)
	}
}

// Boxes lists the boundary of every node, for overlays.
func (qt *QuadTree) Boxes() []Rect {
	boxes := []Rect{}
	qt.Walk(func(node *QuadTree) bool {
		boxes = append(boxes, node.boundary)
		return true
	})
	return boxes
}
