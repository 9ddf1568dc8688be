package spatial

import "math"

// Box is an axis-aligned rectangle given by its top-left corner and
// size, matching the bounding boxes reported by the sensor.
type Box struct {
	X float32
	Y float32
	W float32
	H float32
}

func (b Box) Center() Vector2f {
	return Vector2f{b.X + b.W/2, b.Y + b.H/2}
}

func (b Box) Area() float32 {
	return b.W * b.H
}

// Region is an oriented rectangle on the table plane.
type Region struct {
	Center  Vector2f
	Extents Vector2f // Half-Extents!

	// Rotation is counterclockwise, in degrees.
	Rotation float32
}

// NewRegion builds the hit region of an object from its anchor box and
// its current transform. The offset moves the center, the scale grows
// the extents about the center and the rotation orients the rectangle.
func NewRegion(anchor Box, offset Vector2f, rotation float32, scale float32) Region {
	return Region{
		Center:   anchor.Center().Add(offset),
		Extents:  Vector2f{anchor.W / 2 * scale, anchor.H / 2 * scale},
		Rotation: rotation,
	}
}

// Contains reports whether p falls inside the region. The point is
// mapped into the region's local frame before the extents check so
// rotated regions are handled exactly.
func (r Region) Contains(p Vector2f) bool {
	local := p.Sub(r.Center)
	if r.Rotation != 0 {
		rad := (float64)(-r.Rotation) * math.Pi / 180
		sin, cos := math.Sincos(rad)
		local = Vector2f{
			local.X*(float32)(cos) - local.Y*(float32)(sin),
			local.X*(float32)(sin) + local.Y*(float32)(cos),
		}
	}
	return InRangeWithEpsilon(local.X, -r.Extents.X, r.Extents.X, 0.0001) &&
		InRangeWithEpsilon(local.Y, -r.Extents.Y, r.Extents.Y, 0.0001)
}
