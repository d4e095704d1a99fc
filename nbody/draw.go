package nbody

import (
	"image"
	"image/color"
	"image/png"
	"io"
	"math"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/pkg/errors"
)

var boxColor = color.RGBA{R: 0x40, G: 0x40, B: 0x40, A: 0xff}

// Draw renders particles on a black background as a PNG of width x height
// pixels, mapping view onto the image. With a non-nil tree, node boundaries
// are drawn below the particles.
func Draw(w io.Writer, view Rect, particles []*Particle, tree *QuadTree, width, height int) error {
	if width <= 0 || height <= 0 {
		return errors.Errorf("image size must be positive, got %dx%d", width, height)
	}
	if view.Width() <= 0 || view.Height() <= 0 {
		return errors.Errorf("view %+v has no area", view)
	}
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.Set(x, y, color.Black)
		}
	}
	scaleX := float64(width) / view.Width()
	scaleY := float64(height) / view.Height()
	toImage := func(x, y float64) (int, int) {
		return int(math.Floor((x - view.Left) * scaleX)), int(math.Floor((y - view.Top) * scaleY))
	}
	if tree != nil {
		for _, box := range tree.Boxes() {
			x0, y0 := toImage(box.Left, box.Top)
			x1, y1 := toImage(box.Right, box.Bottom)
			for x := x0; x <= x1; x++ {
				img.Set(x, y0, boxColor)
				img.Set(x, y1, boxColor)
			}
			for y := y0; y <= y1; y++ {
				img.Set(x0, y, boxColor)
				img.Set(x1, y, boxColor)
			}
		}
	}
	for _, p := range particles {
		c, err := colorful.Hex(p.Color)
		if err != nil {
			c = colorful.Color{R: 1, G: 1, B: 1}
		}
		cx, cy := toImage(p.Pos.X(), p.Pos.Y())
		r := int(math.Ceil(p.Radius * math.Min(scaleX, scaleY)))
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				if dx*dx+dy*dy <= r*r {
					img.Set(cx+dx, cy+dy, c)
				}
			}
		}
	}
	return errors.Wrap(png.Encode(w, img), "failed to encode png")
}
