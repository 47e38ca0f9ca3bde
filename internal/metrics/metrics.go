// Package metrics exports protocol counters to Prometheus.
package metrics

import (
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/seagrayinc/halproto/pkg/hal"
)

var (
	registerOnce sync.Once

	framesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "halproto",
			Subsystem: "frames",
			Name:      "sent_total",
			Help:      "Frames written to the adapter.",
		},
		[]string{"type"},
	)
	framesReceived = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "halproto",
			Subsystem: "frames",
			Name:      "received_total",
			Help:      "Frames read from the adapter.",
		},
		[]string{"type"},
	)
	bytesTransferred = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "halproto",
			Subsystem: "link",
			Name:      "bytes_total",
			Help:      "Frame bytes moved over the link.",
		},
		[]string{"direction"},
	)
	exchangeFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "halproto",
			Subsystem: "exchange",
			Name:      "failures_total",
			Help:      "Failed exchanges by operation and cause.",
		},
		[]string{"op", "cause"},
	)
	commandDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "halproto",
			Subsystem: "command",
			Name:      "duration_seconds",
			Help:      "Adapter command duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"command", "success"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesSent, framesReceived, bytesTransferred, exchangeFailures, commandDuration)
	})
}

// Observer feeds session events into the package counters. The zero value is ready to use.
type Observer struct{}

// NewObserver registers the metrics and returns an Observer for hal.WithObserver.
func NewObserver() Observer {
	RegisterMetrics()
	return Observer{}
}

func (Observer) FrameSent(t hal.MessageType, size int) {
	framesSent.WithLabelValues(t.String()).Inc()
	bytesTransferred.WithLabelValues("tx").Add(float64(size))
}

func (Observer) FrameReceived(t hal.MessageType, size int) {
	framesReceived.WithLabelValues(t.String()).Inc()
	bytesTransferred.WithLabelValues("rx").Add(float64(size))
}

func (Observer) ExchangeFailed(op string, err error) {
	exchangeFailures.WithLabelValues(op, Cause(err)).Inc()
}

// Cause reduces err to a low-cardinality label: the exception name when one is attached,
// otherwise the kind of failure.
func Cause(err error) string {
	if code, ok := hal.ExceptionOf(err); ok {
		if code.Known() {
			return code.String()
		}
		return "RESERVED"
	}

	var terr *hal.TransportError
	switch {
	case errors.As(err, &terr):
		return "transport"
	case errors.Is(err, hal.ErrPayloadTooLarge):
		return "payload_too_large"
	case errors.Is(err, hal.ErrUnknownType):
		return "unknown_type"
	case errors.Is(err, hal.ErrMalformed):
		return "malformed"
	case errors.Is(err, hal.ErrUnexpectedType):
		return "unexpected_type"
	default:
		return "other"
	}
}

// RecordCommand records how long one adapter command took.
func RecordCommand(command string, d time.Duration, err error) {
	RegisterMetrics()
	commandDuration.WithLabelValues(command, strconv.FormatBool(err == nil)).Observe(d.Seconds())
}
