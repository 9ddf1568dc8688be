package pointcloud

import (
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	errTypeLabel = "error_type"
)

var (
	pointcloudDecodeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "pointcloud_decode_latency",
		Help: "The time to decode a point cloud payload.",
	})

	pointcloudDecodedPoints = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pointcloud_decoded_points",
		Help: "The number of points decoded from sensor payloads.",
	})

	pointcloudDecodeErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pointcloud_decode_errors",
		Help: "The errors that occured while decoding point cloud payloads.",
	}, []string{
		errTypeLabel,
	})

	pointcloudEncodeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name: "pointcloud_encode_latency",
		Help: "The time to encode a point cloud payload.",
	})

	pointcloudEncodedBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pointcloud_encoded_bytes",
		Help: "The number of payload bytes produced by the encoder.",
	})

	pointcloudDroppedPoints = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pointcloud_lod_dropped_points",
		Help: "The number of points dropped by level of detail reduction.",
	})
)

func instrumentDecode(start time.Time, f Frame, err error) {
	pointcloudDecodeLatency.Observe(time.Since(start).Seconds())

	if err != nil {
		pointcloudDecodeErrors.
			With(prometheus.Labels{
				errTypeLabel: errors.Type(err),
			}).
			Inc()
		return
	}
	pointcloudDecodedPoints.Add(float64(f.Len()))
}

func instrumentEncode(start time.Time, size int, err error) {
	if err != nil {
		return
	}
	pointcloudEncodeLatency.Observe(time.Since(start).Seconds())
	pointcloudEncodedBytes.Add(float64(size))
}

func instrumentReduce(dropped int) {
	if dropped <= 0 {
		return
	}
	pointcloudDroppedPoints.Add(float64(dropped))
}
