package qkd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ruteri/qkd-transfer-backend/interfaces"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/ruteri/qkd-transfer-backend/qkd"

// RoundRunner produces the sifted bits of one BB84 round.
type RoundRunner interface {
	RunRound() []Bit
}

// KeyResult is a generated key with the statistics of the run that produced it.
type KeyResult struct {
	Key        []byte
	Rounds     int
	SiftedBits int
}

// Bits returns the key length in bits.
func (r *KeyResult) Bits() int {
	return len(r.Key) * 8
}

// KeyAccumulator runs BB84 rounds until a key of the requested size has been sifted.
// It is safe for concurrent use: every Generate call owns its simulator and bit source.
type KeyAccumulator struct {
	cfg       Config
	newSource func() BitSource
	log       *slog.Logger
	tracer    trace.Tracer
}

// Option configures a KeyAccumulator.
type Option func(*KeyAccumulator)

// WithBitSource replaces the CSPRNG with sources built by fn, one per Generate call.
func WithBitSource(fn func() BitSource) Option {
	return func(a *KeyAccumulator) {
		a.newSource = fn
	}
}

// WithLogger sets the logger used for per-run debug output.
func WithLogger(log *slog.Logger) Option {
	return func(a *KeyAccumulator) {
		a.log = log
	}
}

// NewKeyAccumulator validates cfg and returns an accumulator using it.
func NewKeyAccumulator(cfg Config, opts ...Option) (*KeyAccumulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	a := &KeyAccumulator{
		cfg:       cfg,
		newSource: func() BitSource { return NewCryptoBitSource() },
		log:       slog.Default(),
		tracer:    otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Config returns the accumulator configuration.
func (a *KeyAccumulator) Config() Config {
	return a.cfg
}

// GenerateDefault generates a key with the configured target size and round budget.
func (a *KeyAccumulator) GenerateDefault(ctx context.Context) (*KeyResult, error) {
	return a.Generate(ctx, a.cfg.TargetBits, a.cfg.MaxRounds)
}

// GenerateSharedKey returns targetBits/8 key bytes, or an error wrapping
// ErrInsufficientKeyMaterial if maxRounds rounds did not sift enough bits.
func (a *KeyAccumulator) GenerateSharedKey(ctx context.Context, targetBits, maxRounds int) ([]byte, error) {
	res, err := a.Generate(ctx, targetBits, maxRounds)
	if err != nil {
		return nil, err
	}
	return res.Key, nil
}

// Generate is GenerateSharedKey with run statistics.
func (a *KeyAccumulator) Generate(ctx context.Context, targetBits, maxRounds int) (*KeyResult, error) {
	ctx, span := a.tracer.Start(ctx, "qkd.GenerateSharedKey", trace.WithAttributes(
		attribute.Int("qkd.target_bits", targetBits),
		attribute.Int("qkd.max_rounds", maxRounds),
		attribute.Int("qkd.qubits_per_round", a.cfg.QubitsPerRound),
	))
	defer span.End()

	res, err := a.generate(ctx, targetBits, maxRounds)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(
		attribute.Int("qkd.rounds", res.Rounds),
		attribute.Int("qkd.sifted_bits", res.SiftedBits),
	)
	a.log.Debug("generated shared key", "bits", res.Bits(), "rounds", res.Rounds, "siftedBits", res.SiftedBits)
	return res, nil
}

func (a *KeyAccumulator) generate(ctx context.Context, targetBits, maxRounds int) (*KeyResult, error) {
	if targetBits <= 0 || targetBits%8 != 0 {
		return nil, fmt.Errorf("%w: got %d", interfaces.ErrInvalidTargetBits, targetBits)
	}

	sim := NewRoundSimulator(a.cfg.QubitsPerRound, a.newSource())
	pool, rounds, err := Accumulate(ctx, sim, targetBits, maxRounds)
	if err != nil {
		return nil, err
	}

	return &KeyResult{
		Key:        PackBits(pool[:targetBits]),
		Rounds:     rounds,
		SiftedBits: len(pool),
	}, nil
}

// Accumulate runs rounds until at least targetBits sifted bits are pooled or
// maxRounds rounds have run, whichever comes first. It returns the whole pool,
// which may overshoot targetBits, and the number of rounds run.
func Accumulate(ctx context.Context, runner RoundRunner, targetBits, maxRounds int) ([]Bit, int, error) {
	var pool []Bit
	rounds := 0
	for rounds < maxRounds && len(pool) < targetBits {
		if err := ctx.Err(); err != nil {
			return nil, rounds, err
		}
		pool = append(pool, runner.RunRound()...)
		rounds++
	}

	if len(pool) < targetBits {
		return nil, rounds, fmt.Errorf("%w: sifted %d of %d bits in %d rounds",
			interfaces.ErrInsufficientKeyMaterial, len(pool), targetBits, rounds)
	}
	return pool, rounds, nil
}
