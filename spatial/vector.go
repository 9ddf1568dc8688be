package spatial

import "math"

func EqualWithEpsilon(a float32, b float32, epsilon float64) bool {
	return math.Abs((float64)(a-b)) <= epsilon
}

func InRangeWithEpsilon(value float32, min float32, max float32, epsilon float32) bool {
	return value+epsilon >= min && value-epsilon <= max
}

// Vector2f is a point or displacement on the table plane, in pixel
// coordinates of the sensor frame.
type Vector2f struct {
	X float32
	Y float32
}

func NewVector2f(x, y float32) Vector2f {
	return Vector2f{x, y}
}

func (a Vector2f) Add(b Vector2f) Vector2f {
	return Vector2f{a.X + b.X, a.Y + b.Y}
}

func (a Vector2f) Sub(b Vector2f) Vector2f {
	return Vector2f{a.X - b.X, a.Y - b.Y}
}

func (a Vector2f) Mul(s float32) Vector2f {
	return Vector2f{a.X * s, a.Y * s}
}

func (a Vector2f) Length() float64 {
	return math.Sqrt((float64)(a.X*a.X + a.Y*a.Y))
}

// Angle returns the angle of the vector in degrees, in (-180, 180].
func (a Vector2f) Angle() float32 {
	return (float32)(math.Atan2((float64)(a.Y), (float64)(a.X)) * 180 / math.Pi)
}

func (a Vector2f) EqualWithEpsilon(b Vector2f, epsilon float64) bool {
	return math.Abs((float64)(a.X-b.X)) <= epsilon &&
		math.Abs((float64)(a.Y-b.Y)) <= epsilon
}

// Vector3f is a point in sensor space, in meters.
type Vector3f struct {
	X float32
	Y float32
	Z float32
}

func NewVector3f(x, y, z float32) Vector3f {
	return Vector3f{x, y, z}
}

func (a Vector3f) Add(b Vector3f) Vector3f {
	return Vector3f{a.X + b.X, a.Y + b.Y, a.Z + b.Z}
}

func (a Vector3f) Sub(b Vector3f) Vector3f {
	return Vector3f{a.X - b.X, a.Y - b.Y, a.Z - b.Z}
}

func (a Vector3f) Mul(s float32) Vector3f {
	return Vector3f{a.X * s, a.Y * s, a.Z * s}
}

func (a Vector3f) Dot(b Vector3f) float32 {
	return a.X*b.X + a.Y*b.Y + a.Z*b.Z
}

func (a Vector3f) Length() float64 {
	return math.Sqrt((float64)(a.X*a.X + a.Y*a.Y + a.Z*a.Z))
}

func (a Vector3f) Normalized() Vector3f {
	lenght := (float32)(a.Length())
	result := a
	if lenght != 0 {
		result.X /= lenght
		result.Y /= lenght
		result.Z /= lenght
	}
	return result
}

func (a Vector3f) EqualWithEpsilon(b Vector3f, epsilon float64) bool {
	return math.Abs((float64)(a.X-b.X)) <= epsilon &&
		math.Abs((float64)(a.Y-b.Y)) <= epsilon &&
		math.Abs((float64)(a.Z-b.Z)) <= epsilon
}
