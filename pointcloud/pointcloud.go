// Package pointcloud implements the binary point cloud codec spoken by
// depth sensors, plus the level of detail reduction and recoloring
// applied before frames are rebroadcast to viewers.
//
// A payload starts with a 5 byte header: the point count as a little
// endian uint32 followed by a color flag byte. A quantized payload then
// carries six float32 quantization bounds followed by three uint16 per
// point, a raw payload carries three float32 per point. When colors are
// present they trail the positions as three uint8 per point. The whole
// payload is optionally zlib deflated.
package pointcloud

// Point is a position in sensor space, in meters.
type Point struct {
	X float32
	Y float32
	Z float32
}

// Color is an RGB color with channels in [0, 1].
type Color struct {
	R float32
	G float32
	B float32
}

// Bounds is the axis-aligned box enclosing a frame, used as the
// quantization range.
type Bounds struct {
	Min  Point
	Size Point
}

// Frame is a decoded point cloud. Colors is either nil or holds one
// color per point.
type Frame struct {
	Points []Point
	Colors []Color
}

func (f Frame) Len() int {
	return len(f.Points)
}

func (f Frame) HasColors() bool {
	return len(f.Colors) != 0
}

// Bounds returns the axis-aligned box enclosing the frame.
func (f Frame) Bounds() Bounds {
	if len(f.Points) == 0 {
		return Bounds{}
	}

	min := f.Points[0]
	max := f.Points[0]
	for _, p := range f.Points[1:] {
		if p.X < min.X {
			min.X = p.X
		}
		if p.Y < min.Y {
			min.Y = p.Y
		}
		if p.Z < min.Z {
			min.Z = p.Z
		}
		if p.X > max.X {
			max.X = p.X
		}
		if p.Y > max.Y {
			max.Y = p.Y
		}
		if p.Z > max.Z {
			max.Z = p.Z
		}
	}

	return Bounds{
		Min:  min,
		Size: Point{max.X - min.X, max.Y - min.Y, max.Z - min.Z},
	}
}
