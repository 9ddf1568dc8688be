package interaction

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/tafl/models"
	"github.com/aukilabs/tafl/spatial"
)

// Demo object sets.
const (
	DemoSetFlat       = "2d"
	DemoSetVolumetric = "3d"
)

// DemoObjects returns fresh demo objects for the given set: "2d" for
// the six flat shapes, "3d" for the four volumetric ones, empty for
// both. Demo objects are session-owned and never touched by
// detector-driven object sync.
func DemoObjects(set string) ([]*models.InteractiveObject, error) {
	switch set {
	case DemoSetFlat:
		return flatDemoObjects(), nil

	case DemoSetVolumetric:
		return volumetricDemoObjects(), nil

	case "":
		return append(flatDemoObjects(), volumetricDemoObjects()...), nil

	default:
		return nil, errors.New("unknown demo object set").
			WithTag("set", set)
	}
}

func flatDemoObjects() []*models.InteractiveObject {
	return []*models.InteractiveObject{
		{
			Kind:   models.KindCircle,
			Color:  "#ef4444",
			Demo:   true,
			Anchor: spatial.Box{X: 80, Y: 80, W: 100, H: 100},
		},
		{
			Kind:   models.KindSquare,
			Color:  "#22c55e",
			Demo:   true,
			Anchor: spatial.Box{X: 270, Y: 80, W: 100, H: 100},
		},
		{
			Kind:   models.KindTriangle,
			Color:  "#3b82f6",
			Demo:   true,
			Anchor: spatial.Box{X: 460, Y: 80, W: 100, H: 100},
		},
		{
			Kind:   models.KindStar,
			Color:  "#eab308",
			Demo:   true,
			Anchor: spatial.Box{X: 80, Y: 280, W: 100, H: 100},
		},
		{
			Kind:   models.KindDiamond,
			Color:  "#a855f7",
			Demo:   true,
			Anchor: spatial.Box{X: 270, Y: 280, W: 100, H: 100},
		},
		{
			Kind:   models.KindHexagon,
			Color:  "#f97316",
			Demo:   true,
			Anchor: spatial.Box{X: 460, Y: 280, W: 100, H: 100},
		},
	}
}

func volumetricDemoObjects() []*models.InteractiveObject {
	return []*models.InteractiveObject{
		{
			Kind:       models.KindSphere,
			Color:      "#ef4444",
			Demo:       true,
			Is3D:       true,
			Anchor:     spatial.Box{X: 160, Y: 160, W: 80, H: 80},
			Position3D: spatial.Vector3f{X: -0.15, Y: 0.08, Z: -0.1},
		},
		{
			Kind:       models.KindCube,
			Color:      "#22c55e",
			Demo:       true,
			Is3D:       true,
			Anchor:     spatial.Box{X: 400, Y: 160, W: 80, H: 80},
			Position3D: spatial.Vector3f{X: 0.15, Y: 0.08, Z: -0.1},
		},
		{
			Kind:       models.KindCone,
			Color:      "#3b82f6",
			Demo:       true,
			Is3D:       true,
			Anchor:     spatial.Box{X: 160, Y: 320, W: 80, H: 80},
			Position3D: spatial.Vector3f{X: -0.15, Y: 0.08, Z: 0.1},
		},
		{
			Kind:       models.KindTorus,
			Color:      "#eab308",
			Demo:       true,
			Is3D:       true,
			Anchor:     spatial.Box{X: 400, Y: 320, W: 80, H: 80},
			Position3D: spatial.Vector3f{X: 0.15, Y: 0.08, Z: 0.1},
		},
	}
}
