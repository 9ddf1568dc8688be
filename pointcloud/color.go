package pointcloud

import "github.com/aukilabs/go-tooling/pkg/errors"

// ColorMode selects how a rebroadcast frame is colored.
type ColorMode string

const (
	// ColorModeRGB keeps the sensor colors.
	ColorModeRGB ColorMode = "rgb"

	// ColorModeDepth colors points by their distance from the sensor.
	ColorModeDepth ColorMode = "depth"

	// ColorModeHeight colors points by their height over the table.
	ColorModeHeight ColorMode = "height"

	// ColorModeNone strips colors from the frame.
	ColorModeNone ColorMode = "none"
)

// ParseColorMode maps a wire string to a color mode.
func ParseColorMode(s string) (ColorMode, error) {
	switch mode := ColorMode(s); mode {
	case ColorModeRGB, ColorModeDepth, ColorModeHeight, ColorModeNone:
		return mode, nil

	default:
		return "", errors.New("unknown point cloud color mode").
			WithTag("mode", s)
	}
}

// Colorize returns the frame colored according to the mode. The point
// slice is shared with the input, only the colors differ.
func Colorize(f Frame, mode ColorMode) Frame {
	switch mode {
	case ColorModeNone:
		return Frame{Points: f.Points}

	case ColorModeDepth:
		return Frame{Points: f.Points, Colors: rampColors(f.Points, func(p Point) float32 { return p.Z })}

	case ColorModeHeight:
		// The sensor looks down at the table, so height over the
		// table grows as depth shrinks.
		return Frame{Points: f.Points, Colors: rampColors(f.Points, func(p Point) float32 { return -p.Z })}

	default:
		return f
	}
}

// rampColors maps a scalar per point onto a cold-to-warm ramp
// normalized over the frame.
func rampColors(points []Point, value func(Point) float32) []Color {
	if len(points) == 0 {
		return nil
	}

	min := value(points[0])
	max := min
	for _, p := range points[1:] {
		v := value(p)
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	span := max - min
	colors := make([]Color, len(points))
	for i, p := range points {
		var t float32
		if span != 0 {
			t = (value(p) - min) / span
		}
		colors[i] = Color{R: t, G: 0.2, B: 1 - t}
	}
	return colors
}
