package nbody

import (
	"math"

	"github.com/quartercastle/vector"
)

// Rect is an axis-aligned region. Edges are stored explicitly so that
// quadrants produced by subdivision share their edges bit for bit with the
// parent and each other.
type Rect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Right  float64 `json:"right"`
	Bottom float64 `json:"bottom"`
}

// NewRect returns the rectangle centered at (x, y) with the given size.
func NewRect(x, y, width, height float64) Rect {
	return Rect{
		Left:   x - width/2,
		Top:    y - height/2,
		Right:  x + width/2,
		Bottom: y + height/2,
	}
}

func (r Rect) Center() vector.Vector {
	return vector.Vector{(r.Left + r.Right) / 2, (r.Top + r.Bottom) / 2}
}

func (r Rect) Width() float64  { return r.Right - r.Left }
func (r Rect) Height() float64 { return r.Bottom - r.Top }
func (r Rect) Area() float64   { return r.Width() * r.Height() }

// size is the extent compared against the distance in the Barnes-Hut
// criterion.
func (r Rect) size() float64 {
	return math.Max(r.Width(), r.Height())
}

// Contains reports whether pos lies inside r. All four edges are inclusive.
func (r Rect) Contains(pos vector.Vector) bool {
	x, y := pos.X(), pos.Y()
	return r.Left <= x && x <= r.Right && r.Top <= y && y <= r.Bottom
}

// Quadrant indexes the children of a divided QuadTree.
type Quadrant int

const (
	Northwest Quadrant = iota
	Northeast
	Southeast
	Southwest
)

func (q Quadrant) String() string {
	switch q {
	case Northwest:
		return "northwest"
	case Northeast:
		return "northeast"
	case Southeast:
		return "southeast"
	case Southwest:
		return "southwest"
	}
	return "unknown"
}

// quadrants splits r at its center, in Quadrant order.
func (r Rect) quadrants() [4]Rect {
	midX := (r.Left + r.Right) / 2
	midY := (r.Top + r.Bottom) / 2
	return [4]Rect{
		Northwest: {Left: r.Left, Top: r.Top, Right: midX, Bottom: midY},
		Northeast: {Left: midX, Top: r.Top, Right: r.Right, Bottom: midY},
		Southeast: {Left: midX, Top: midY, Right: r.Right, Bottom: r.Bottom},
		Southwest: {Left: r.Left, Top: midY, Right: midX, Bottom: r.Bottom},
	}
}
