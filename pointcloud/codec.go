package pointcloud

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/klauspost/compress/zlib"
)

const (
	headerSize = 5
	boundsSize = 24

	quantizedPointSize = 6
	rawPointSize       = 12
	colorSize          = 3

	// maxDecodedSize caps the inflated payload size so a malformed or
	// hostile payload cannot exhaust memory.
	maxDecodedSize = 64 << 20

	// DefaultCompressionLevel is the zlib level used when none is set.
	DefaultCompressionLevel = 6
)

// ErrTypeCorruptPayload tags errors caused by a payload that cannot be
// decoded. The frame that carried it is treated as empty by callers.
const ErrTypeCorruptPayload = "pointcloud_corrupt_payload"

// IsCorruptPayload reports whether err comes from an undecodable
// payload.
func IsCorruptPayload(err error) bool {
	return errors.IsType(err, ErrTypeCorruptPayload)
}

// Decode parses a binary point cloud payload. The compressed and
// quantized flags come from the enclosing message. A zero point count
// yields an empty frame without error. Decode never returns a partial
// frame: on error the returned frame is empty.
func Decode(data []byte, compressed, quantized bool) (Frame, error) {
	start := time.Now()

	frame, err := decode(data, compressed, quantized)
	instrumentDecode(start, frame, err)
	if err != nil {
		return Frame{}, err
	}
	return frame, nil
}

func decode(data []byte, compressed, quantized bool) (Frame, error) {
	if compressed {
		var err error
		if data, err = inflate(data); err != nil {
			return Frame{}, err
		}
	}

	if len(data) < headerSize {
		return Frame{}, errors.New("point cloud payload is truncated").
			WithType(ErrTypeCorruptPayload).
			WithTag("payload_size", len(data))
	}

	numPoints := binary.LittleEndian.Uint32(data[0:4])
	hasColors := data[4] != 0

	if numPoints == 0 {
		return Frame{}, nil
	}

	var positionsSize uint64
	if quantized {
		positionsSize = boundsSize + uint64(numPoints)*quantizedPointSize
	} else {
		positionsSize = uint64(numPoints) * rawPointSize
	}

	expectedSize := headerSize + positionsSize
	if hasColors {
		expectedSize += uint64(numPoints) * colorSize
	}
	if uint64(len(data)) < expectedSize {
		return Frame{}, errors.New("point cloud payload is shorter than its header implies").
			WithType(ErrTypeCorruptPayload).
			WithTag("payload_size", len(data)).
			WithTag("expected_size", expectedSize).
			WithTag("num_points", numPoints)
	}

	offset := headerSize
	points := make([]Point, numPoints)

	if quantized {
		var min, size [3]float32
		for i := range min {
			min[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[offset:]))
			offset += 4
		}
		for i := range size {
			size[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[offset:]))
			offset += 4
		}

		for i := range points {
			points[i] = Point{
				X: dequantize(binary.LittleEndian.Uint16(data[offset:]), min[0], size[0]),
				Y: dequantize(binary.LittleEndian.Uint16(data[offset+2:]), min[1], size[1]),
				Z: dequantize(binary.LittleEndian.Uint16(data[offset+4:]), min[2], size[2]),
			}
			offset += quantizedPointSize
		}
	} else {
		for i := range points {
			points[i] = Point{
				X: math.Float32frombits(binary.LittleEndian.Uint32(data[offset:])),
				Y: math.Float32frombits(binary.LittleEndian.Uint32(data[offset+4:])),
				Z: math.Float32frombits(binary.LittleEndian.Uint32(data[offset+8:])),
			}
			offset += rawPointSize
		}
	}

	var colors []Color
	if hasColors {
		colors = make([]Color, numPoints)
		for i := range colors {
			colors[i] = Color{
				R: float32(data[offset]) / 255,
				G: float32(data[offset+1]) / 255,
				B: float32(data[offset+2]) / 255,
			}
			offset += colorSize
		}
	}

	return Frame{Points: points, Colors: colors}, nil
}

func dequantize(q uint16, min, size float32) float32 {
	return float32(q)/65535*size + min
}

func inflate(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, errors.New("inflating point cloud payload failed").
			WithType(ErrTypeCorruptPayload).
			Wrap(err)
	}
	defer r.Close()

	out, err := io.ReadAll(io.LimitReader(r, maxDecodedSize+1))
	if err != nil {
		return nil, errors.New("inflating point cloud payload failed").
			WithType(ErrTypeCorruptPayload).
			Wrap(err)
	}
	if len(out) > maxDecodedSize {
		return nil, errors.New("point cloud payload exceeds the decoded size limit").
			WithType(ErrTypeCorruptPayload).
			WithTag("limit", maxDecodedSize)
	}
	return out, nil
}

// EncodeOptions controls how a frame is serialized.
type EncodeOptions struct {
	// Quantize packs positions as uint16 against the frame bounds
	// instead of raw float32, trading precision for size. The
	// quantization error is bounded by bounds_size/65535 per axis.
	Quantize bool

	// Compress deflates the whole payload.
	Compress bool

	// CompressionLevel is the zlib level, DefaultCompressionLevel when
	// zero.
	CompressionLevel int
}

// Encode serializes a frame. The output decodes back with Decode using
// the same flags.
func Encode(f Frame, opts EncodeOptions) ([]byte, error) {
	start := time.Now()

	data, err := encode(f, opts)
	instrumentEncode(start, len(data), err)
	return data, err
}

func encode(f Frame, opts EncodeOptions) ([]byte, error) {
	numPoints := len(f.Points)
	hasColors := f.HasColors()

	size := headerSize
	if opts.Quantize && numPoints != 0 {
		size += boundsSize + numPoints*quantizedPointSize
	} else {
		size += numPoints * rawPointSize
	}
	if hasColors {
		size += numPoints * colorSize
	}

	data := make([]byte, size)
	binary.LittleEndian.PutUint32(data[0:4], uint32(numPoints))
	if hasColors {
		data[4] = 1
	}
	offset := headerSize

	if opts.Quantize && numPoints != 0 {
		bounds := f.Bounds()
		min := [3]float32{bounds.Min.X, bounds.Min.Y, bounds.Min.Z}
		span := [3]float32{bounds.Size.X, bounds.Size.Y, bounds.Size.Z}

		for _, v := range min {
			binary.LittleEndian.PutUint32(data[offset:], math.Float32bits(v))
			offset += 4
		}
		for _, v := range span {
			binary.LittleEndian.PutUint32(data[offset:], math.Float32bits(v))
			offset += 4
		}

		for _, p := range f.Points {
			binary.LittleEndian.PutUint16(data[offset:], quantize(p.X, min[0], span[0]))
			binary.LittleEndian.PutUint16(data[offset+2:], quantize(p.Y, min[1], span[1]))
			binary.LittleEndian.PutUint16(data[offset+4:], quantize(p.Z, min[2], span[2]))
			offset += quantizedPointSize
		}
	} else {
		for _, p := range f.Points {
			binary.LittleEndian.PutUint32(data[offset:], math.Float32bits(p.X))
			binary.LittleEndian.PutUint32(data[offset+4:], math.Float32bits(p.Y))
			binary.LittleEndian.PutUint32(data[offset+8:], math.Float32bits(p.Z))
			offset += rawPointSize
		}
	}

	if hasColors {
		for _, c := range f.Colors {
			data[offset] = colorByte(c.R)
			data[offset+1] = colorByte(c.G)
			data[offset+2] = colorByte(c.B)
			offset += colorSize
		}
	}

	if !opts.Compress {
		return data, nil
	}

	level := opts.CompressionLevel
	if level == 0 {
		level = DefaultCompressionLevel
	}
	return deflate(data, level)
}

func quantize(v, min, size float32) uint16 {
	if size == 0 {
		return 0
	}
	q := (v - min) / size * 65535
	if q < 0 {
		return 0
	}
	if q > 65535 {
		return 65535
	}
	return uint16(q)
}

func colorByte(c float32) byte {
	v := c * 255
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return byte(v)
}

func deflate(data []byte, level int) ([]byte, error) {
	var buf bytes.Buffer

	w, err := zlib.NewWriterLevel(&buf, level)
	if err != nil {
		return nil, errors.New("creating deflate writer failed").
			WithTag("level", level).
			Wrap(err)
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, errors.New("deflating point cloud payload failed").Wrap(err)
	}
	if err := w.Close(); err != nil {
		return nil, errors.New("deflating point cloud payload failed").Wrap(err)
	}
	return buf.Bytes(), nil
}
