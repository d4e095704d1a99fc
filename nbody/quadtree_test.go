package nbody

import (
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/quartercastle/vector"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func particleAt(x, y, mass float64) *Particle {
	return &Particle{Pos: vector.Vector{x, y}, Vel: vector.Vector{0, 0}, Mass: mass}
}

func TestQuadTree_Insert(t *testing.T) {
	qt := NewQuadTree(&QuadTreeConfig{Capacity: 2, MaxDepth: 8}, NewRect(5, 5, 10, 10))
	p11, p22, p33 := particleAt(1, 1, 1), particleAt(2, 2, 1), particleAt(3, 3, 1)
	assert := assert.New(t)
	for _, p := range []*Particle{p11, p22} {
		ok, err := qt.Insert(p)
		assert.NoError(err)
		assert.True(ok)
	}
	assert.Equal([]*Particle{p11, p22}, qt.Points())
	assert.False(qt.Divided(), "children should not exist, below capacity")
	for q := Northwest; q <= Southwest; q++ {
		assert.Nil(qt.Child(q))
	}

	ok, err := qt.Insert(p33)
	assert.NoError(err)
	assert.True(ok)
	assert.True(qt.Divided())
	assert.Empty(qt.Points(), "internal nodes hold no particles directly")
	nw := qt.Child(Northwest)
	assert.True(nw.Divided(), "all three particles fall into the northwest quadrant")
	assert.Equal([]*Particle{p11, p22}, nw.Child(Northwest).Points())
	assert.Equal([]*Particle{p33}, nw.Child(Southeast).Points())
	assert.Empty(qt.Child(Northeast).Points())
	assert.Empty(qt.Child(Southeast).Points())
	assert.Empty(qt.Child(Southwest).Points())
	assert.Equal(3, qt.Len())
	assert.Equal(3, nw.Len())
	assert.Equal(3.0, qt.MassTotal())
	assert.Equal(nw.Child(Southeast), p33.leaf)
	assert.Equal(2, p33.leaf.Depth())
}

func TestQuadTree_Insert_outOfBounds(t *testing.T) {
	qt := NewQuadTree(&QuadTreeConfig{Capacity: 1, MaxDepth: 8}, NewRect(0, 0, 10, 10))
	ok, err := qt.Insert(particleAt(6, 0, 1))
	assert := assert.New(t)
	assert.NoError(err)
	assert.False(ok)
	assert.Equal(0, qt.Len())
	assert.Zero(qt.MassTotal())
	_, hasCenter := qt.MassCenter()
	assert.False(hasCenter, "nothing was inserted")
}

func TestQuadTree_Insert_edgeGoesToFirstQuadrant(t *testing.T) {
	qt := NewQuadTree(&QuadTreeConfig{Capacity: 1, MaxDepth: 8}, NewRect(0, 0, 10, 10))
	first, onCenter := particleAt(-4, -4, 1), particleAt(0, 0, 1)
	for _, p := range []*Particle{first, onCenter} {
		ok, err := qt.Insert(p)
		require.NoError(t, err)
		require.True(t, ok)
	}
	// the center touches all four quadrants, northwest is tried first
	nw := qt.Child(Northwest)
	assert.Equal(t, 2, nw.Len())
	assert.Zero(t, qt.Child(Northeast).Len())
}

func TestQuadTree_MassCenter(t *testing.T) {
	rect := NewRect(5, 5, 10, 10)
	qt := NewQuadTree(&QuadTreeConfig{Capacity: 1, MaxDepth: 8}, rect)
	particles := []*Particle{particleAt(2.5, 2.5, 1), particleAt(7.5, 2.5, 2), particleAt(2.5, 7.5, 1)}
	for _, p := range particles {
		_, err := qt.Insert(p)
		require.NoError(t, err)
	}
	assert := assert.New(t)
	center, ok := qt.MassCenter()
	assert.True(ok)
	assert.InDelta((2.5+2*7.5+2.5)/4, center.X(), 1e-12)
	assert.InDelta((2.5+2*2.5+7.5)/4, center.Y(), 1e-12)
	for q, expect := range map[Quadrant]vector.Vector{
		Northwest: {2.5, 2.5},
		Northeast: {7.5, 2.5},
		Southwest: {2.5, 7.5},
	} {
		c, ok := qt.Child(q).MassCenter()
		assert.True(ok)
		assert.Equal(expect, c, q.String())
	}
	_, ok = qt.Child(Southeast).MassCenter()
	assert.False(ok, "all 3 particles already in the other buckets")
}

func TestQuadTree_massConservation(t *testing.T) {
	rnd := rand.New(rand.NewSource(7))
	boundary := NewRect(50, 50, 100, 100)
	particles := RandomParticles(200, boundary, rnd.Float64)
	totalMass, weightedX, weightedY := 0.0, 0.0, 0.0
	for _, p := range particles {
		totalMass += p.Mass
		weightedX += p.Mass * p.Pos.X()
		weightedY += p.Mass * p.Pos.Y()
	}
	for i := 0; i < 5; i++ {
		permuted := make([]*Particle, len(particles))
		for j, k := range rnd.Perm(len(particles)) {
			permuted[j] = particles[k]
		}
		qt, err := BuildTree(permuted, boundary, 1, 8)
		require.NoError(t, err)
		assert := assert.New(t)
		assert.Equal(len(particles), qt.Len())
		assert.InDelta(totalMass, qt.MassTotal(), 1e-9)
		center, ok := qt.MassCenter()
		assert.True(ok)
		assert.InDelta(weightedX/totalMass, center.X(), 1e-9)
		assert.InDelta(weightedY/totalMass, center.Y(), 1e-9)
	}
}

func TestQuadTree_everyParticleInExactlyOneLeaf(t *testing.T) {
	rnd := rand.New(rand.NewSource(3))
	boundary := NewRect(0, 0, 64, 64)
	particles := RandomParticles(500, boundary, rnd.Float64)
	// particles on edges shared by several quadrants
	particles = append(particles, particleAt(0, 0, 1), particleAt(-32, -32, 1), particleAt(32, 32, 1), particleAt(16, 0, 1))
	qt, err := BuildTree(particles, boundary, 3, 6)
	require.NoError(t, err)
	seen := map[*Particle]int{}
	qt.Walk(func(node *QuadTree) bool {
		if node.Divided() {
			assert.Empty(t, node.Points())
		} else if node.Depth() < 6 {
			assert.LessOrEqual(t, len(node.Points()), 3)
		}
		for _, p := range node.Points() {
			seen[p]++
			assert.True(t, node.Boundary().Contains(p.Pos))
			assert.Equal(t, node, p.leaf)
		}
		return true
	})
	assert.Len(t, seen, len(particles))
	for _, count := range seen {
		assert.Equal(t, 1, count)
	}
}

func TestQuadTree_depthBound(t *testing.T) {
	boundary := NewRect(0, 0, 10, 10)
	particles := []*Particle{}
	for i := 0; i < 20; i++ {
		particles = append(particles, particleAt(1, 1, 1))
	}
	qt, err := BuildTree(particles, boundary, 1, 4)
	require.NoError(t, err)
	assert := assert.New(t)
	assert.Equal(20, qt.Len())
	maxDepth := 0
	qt.Walk(func(node *QuadTree) bool {
		if node.Depth() > maxDepth {
			maxDepth = node.Depth()
		}
		if node.Depth() == 4 && node.Len() > 0 {
			assert.Len(node.Points(), 20, "coincident particles pile up at max depth")
			assert.False(node.Divided())
		}
		return true
	})
	assert.Equal(4, maxDepth)
}

func TestQuadTree_Walk_order(t *testing.T) {
	qt, err := BuildTree([]*Particle{
		particleAt(-1, -1, 1), particleAt(1, -1, 1), particleAt(1, 1, 1), particleAt(-1, 1, 1),
	}, NewRect(0, 0, 4, 4), 1, 8)
	require.NoError(t, err)
	order := []vector.Vector{}
	qt.Walk(func(node *QuadTree) bool {
		if len(node.Points()) == 1 {
			order = append(order, node.Points()[0].Pos)
		}
		return true
	})
	assert.Equal(t, []vector.Vector{{-1, -1}, {1, -1}, {1, 1}, {-1, 1}}, order)
	assert.Len(t, qt.Boxes(), 5)
	assert.Equal(t, NewRect(0, 0, 4, 4), qt.Boxes()[0])
}

func TestQuadTree_Clear(t *testing.T) {
	qt, err := BuildTree([]*Particle{particleAt(-1, -1, 1), particleAt(1, 1, 1)}, NewRect(0, 0, 4, 4), 1, 8)
	require.NoError(t, err)
	qt.Clear()
	assert := assert.New(t)
	assert.False(qt.Divided())
	assert.Zero(qt.Len())
	assert.Zero(qt.MassTotal())
	assert.Len(qt.Boxes(), 1)
}

func TestBuildTree_thousandParticles(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	boundary := NewRect(500, 500, 1000, 1000)
	particles := RandomParticles(1000, boundary, rnd.Float64)
	qt, err := BuildTree(particles, boundary, 4, 8)
	assert := assert.New(t)
	assert.NoError(err)
	assert.False(errors.Is(err, ErrInsertInvariant))
	totalMass := 0.0
	for _, p := range particles {
		totalMass += p.Mass
	}
	assert.InDelta(totalMass, qt.MassTotal(), 1e-9)
	assert.Equal(1000, qt.Len())
}

func TestQuadTree_insertIntoChildren_invariant(t *testing.T) {
	qt := NewQuadTree(&QuadTreeConfig{Capacity: 1, MaxDepth: 8}, NewRect(0, 0, 10, 10))
	_, err := qt.Insert(particleAt(1, 1, 1))
	require.NoError(t, err)
	_, err = qt.Insert(particleAt(2, 2, 1))
	require.NoError(t, err)
	// a child whose boundary no longer covers its quadrant
	qt.children[Southeast].boundary = NewRect(100, 100, 1, 1)
	_, err = qt.Insert(particleAt(3, 3, 1))
	assert := assert.New(t)
	assert.Error(err)
	assert.True(errors.Is(err, ErrInsertInvariant))
}
