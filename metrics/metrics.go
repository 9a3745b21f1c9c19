package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Collectors holds the service counters. All methods are safe on a nil receiver,
// which disables recording.
type Collectors struct {
	keysGenerated      prometheus.Counter
	keyGenFailures     prometheus.Counter
	qkdRounds          prometheus.Counter
	siftedBits         prometheus.Counter
	transfersCreated   prometheus.Counter
	decryptFailures    *prometheus.CounterVec
	handlerErrors      *prometheus.CounterVec
	ciphertextBytesIn  prometheus.Counter
	keyGenerationTimes prometheus.Histogram
}

// NewCollectors creates the collectors and registers them with reg.
func NewCollectors(namespace string, reg prometheus.Registerer) (*Collectors, error) {
	c := &Collectors{
		keysGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "keys_generated_total",
			Help:      "Shared keys successfully generated.",
		}),
		keyGenFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "key_generation_failures_total",
			Help:      "Key generation calls that failed.",
		}),
		qkdRounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "qkd_rounds_total",
			Help:      "BB84 rounds simulated by successful key generations.",
		}),
		siftedBits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sifted_bits_total",
			Help:      "Sifted bits produced by successful key generations.",
		}),
		transfersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transfers_created_total",
			Help:      "Transfers recorded.",
		}),
		decryptFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decrypt_failures_total",
			Help:      "Failed decryptions by error kind.",
		}, []string{"kind"}),
		handlerErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_handler_errors_total",
			Help:      "Error responses by error kind.",
		}, []string{"kind"}),
		ciphertextBytesIn: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ciphertext_bytes_received_total",
			Help:      "Ciphertext bytes accepted by uploads.",
		}),
		keyGenerationTimes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "key_generation_duration_seconds",
			Help:      "Wall time of key generation calls.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}),
	}

	for _, col := range []prometheus.Collector{
		c.keysGenerated,
		c.keyGenFailures,
		c.qkdRounds,
		c.siftedBits,
		c.transfersCreated,
		c.decryptFailures,
		c.handlerErrors,
		c.ciphertextBytesIn,
		c.keyGenerationTimes,
	} {
		if err := reg.Register(col); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Collectors) KeyGenerated(rounds, siftedBits int, seconds float64) {
	if c == nil {
		return
	}
	c.keysGenerated.Inc()
	c.qkdRounds.Add(float64(rounds))
	c.siftedBits.Add(float64(siftedBits))
	c.keyGenerationTimes.Observe(seconds)
}

func (c *Collectors) KeyGenerationFailed(seconds float64) {
	if c == nil {
		return
	}
	c.keyGenFailures.Inc()
	c.keyGenerationTimes.Observe(seconds)
}

func (c *Collectors) TransferCreated(ciphertextBytes int) {
	if c == nil {
		return
	}
	c.transfersCreated.Inc()
	c.ciphertextBytesIn.Add(float64(ciphertextBytes))
}

func (c *Collectors) DecryptFailed(kind string) {
	if c == nil {
		return
	}
	c.decryptFailures.WithLabelValues(kind).Inc()
}

func (c *Collectors) HandlerError(kind string) {
	if c == nil {
		return
	}
	c.handlerErrors.WithLabelValues(kind).Inc()
}
