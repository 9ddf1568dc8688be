package pointcloud

import (
	"encoding/binary"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	t.Run("raw payload decodes to exact positions", func(t *testing.T) {
		data := make([]byte, headerSize+2*rawPointSize)
		binary.LittleEndian.PutUint32(data[0:], 2)

		writePoint := func(offset int, x, y, z float32) {
			binary.LittleEndian.PutUint32(data[offset:], math.Float32bits(x))
			binary.LittleEndian.PutUint32(data[offset+4:], math.Float32bits(y))
			binary.LittleEndian.PutUint32(data[offset+8:], math.Float32bits(z))
		}
		writePoint(headerSize, 1.5, -2.25, 0.5)
		writePoint(headerSize+rawPointSize, -0.5, 3, 1)

		frame, err := Decode(data, false, false)
		require.NoError(t, err)
		require.Equal(t, []Point{
			{1.5, -2.25, 0.5},
			{-0.5, 3, 1},
		}, frame.Points)
		require.False(t, frame.HasColors())
	})

	t.Run("zero point payload decodes to an empty frame", func(t *testing.T) {
		data := make([]byte, headerSize)

		frame, err := Decode(data, false, true)
		require.NoError(t, err)
		require.Zero(t, frame.Len())
	})

	t.Run("empty payload is corrupt", func(t *testing.T) {
		_, err := Decode(nil, false, false)
		require.Error(t, err)
		require.True(t, IsCorruptPayload(err))
	})

	t.Run("payload shorter than its point count is corrupt", func(t *testing.T) {
		data := make([]byte, headerSize+rawPointSize)
		binary.LittleEndian.PutUint32(data[0:], 1000)

		_, err := Decode(data, false, false)
		require.Error(t, err)
		require.True(t, IsCorruptPayload(err))
	})

	t.Run("huge point count does not overflow the size check", func(t *testing.T) {
		data := make([]byte, headerSize+8)
		binary.LittleEndian.PutUint32(data[0:], math.MaxUint32)

		_, err := Decode(data, false, true)
		require.Error(t, err)
		require.True(t, IsCorruptPayload(err))
	})

	t.Run("garbage deflate stream is corrupt", func(t *testing.T) {
		_, err := Decode([]byte("not a zlib stream"), true, false)
		require.Error(t, err)
		require.True(t, IsCorruptPayload(err))
	})
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	frame := Frame{
		Points: make([]Point, 500),
		Colors: make([]Color, 500),
	}
	for i := range frame.Points {
		frame.Points[i] = Point{
			X: rng.Float32()*4 - 2,
			Y: rng.Float32()*4 - 2,
			Z: rng.Float32() * 3,
		}
		frame.Colors[i] = Color{
			R: rng.Float32(),
			G: rng.Float32(),
			B: rng.Float32(),
		}
	}

	t.Run("raw compressed", func(t *testing.T) {
		data, err := Encode(frame, EncodeOptions{Compress: true})
		require.NoError(t, err)

		decoded, err := Decode(data, true, false)
		require.NoError(t, err)
		require.Equal(t, frame.Points, decoded.Points)
		require.Len(t, decoded.Colors, 500)
	})

	t.Run("quantized error stays within the bounds resolution", func(t *testing.T) {
		data, err := Encode(frame, EncodeOptions{Quantize: true, Compress: true})
		require.NoError(t, err)

		decoded, err := Decode(data, true, true)
		require.NoError(t, err)
		require.Equal(t, frame.Len(), decoded.Len())

		bounds := frame.Bounds()
		maxErrX := float64(bounds.Size.X)/65535 + 1e-5
		maxErrY := float64(bounds.Size.Y)/65535 + 1e-5
		maxErrZ := float64(bounds.Size.Z)/65535 + 1e-5

		for i, p := range frame.Points {
			require.InDelta(t, p.X, decoded.Points[i].X, maxErrX)
			require.InDelta(t, p.Y, decoded.Points[i].Y, maxErrY)
			require.InDelta(t, p.Z, decoded.Points[i].Z, maxErrZ)
		}

		for i, c := range frame.Colors {
			require.InDelta(t, c.R, decoded.Colors[i].R, 1.0/255+1e-5)
			require.InDelta(t, c.G, decoded.Colors[i].G, 1.0/255+1e-5)
			require.InDelta(t, c.B, decoded.Colors[i].B, 1.0/255+1e-5)
		}
	})

	t.Run("flat axis survives quantization", func(t *testing.T) {
		flat := Frame{Points: []Point{
			{1, 2, 0.5},
			{2, 2, 0.75},
			{3, 2, 1},
		}}

		data, err := Encode(flat, EncodeOptions{Quantize: true})
		require.NoError(t, err)

		decoded, err := Decode(data, false, true)
		require.NoError(t, err)
		for i := range flat.Points {
			require.Equal(t, float32(2), decoded.Points[i].Y)
		}
	})

	t.Run("empty frame round trips", func(t *testing.T) {
		data, err := Encode(Frame{}, EncodeOptions{Quantize: true, Compress: true})
		require.NoError(t, err)

		decoded, err := Decode(data, true, true)
		require.NoError(t, err)
		require.Zero(t, decoded.Len())
	})
}
