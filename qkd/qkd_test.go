package qkd

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/ruteri/qkd-transfer-backend/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSource replays bits in order, wrapping around, and records the matching flag of every draw.
type scriptedSource struct {
	bits  []Bit
	pos   int
	flags []bool
}

func (s *scriptedSource) NextBit(matchingBases bool) Bit {
	b := s.bits[s.pos%len(s.bits)]
	s.pos++
	s.flags = append(s.flags, matchingBases)
	return b
}

type fixedRunner struct {
	perRound []Bit
	calls    int
}

func (r *fixedRunner) RunRound() []Bit {
	r.calls++
	return r.perRound
}

func bits(vals ...int) []Bit {
	out := make([]Bit, len(vals))
	for i, v := range vals {
		out[i] = Bit(v)
	}
	return out
}

func TestRoundSimulator_Simulate(t *testing.T) {
	src := &scriptedSource{bits: bits(
		1, 0, 1, 1, // alice bits
		0, 0, 1, 1, // alice bases
		0, 1, 1, 0, // bob bases
		0, 1, 0, 0, // measurement draws
	)}
	sim := NewRoundSimulator(4, src)

	r := sim.Simulate()

	assert.Equal(t, bits(1, 0, 1, 1), r.AliceBits)
	assert.Equal(t, []Basis{Rectilinear, Rectilinear, Diagonal, Diagonal}, r.AliceBases)
	assert.Equal(t, []Basis{Rectilinear, Diagonal, Diagonal, Rectilinear}, r.BobBases)
	// positions 0 and 2 copy Alice, 1 and 3 take the draw
	assert.Equal(t, bits(1, 1, 1, 0), r.Measured)
	assert.Equal(t, bits(1, 1), r.Sift())

	assert.Len(t, src.flags, 16)
	assert.Equal(t, []bool{true, false, true, false}, src.flags[12:])
	for _, f := range src.flags[:12] {
		assert.False(t, f)
	}
}

func TestRoundSimulator_MatchingBasesAlwaysAgree(t *testing.T) {
	sim := NewRoundSimulator(MaxQubitsPerRound, NewCryptoBitSource())
	for i := 0; i < 200; i++ {
		r := sim.Simulate()
		for j := range r.Measured {
			if r.Matching(j) {
				require.Equal(t, r.AliceBits[j], r.Measured[j])
			}
		}
		assert.LessOrEqual(t, len(r.Sift()), MaxQubitsPerRound)
	}
}

func TestPackBits(t *testing.T) {
	assert.Equal(t, []byte{0xB1}, PackBits(bits(1, 0, 1, 1, 0, 0, 0, 1)))
	assert.Equal(t, []byte{0x80, 0x01}, PackBits(bits(1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 1)))
	assert.Empty(t, PackBits(nil))
}

func TestCryptoBitSource(t *testing.T) {
	src := NewCryptoBitSource()
	assert.Equal(t, Bit(0), src.NextBit(true))

	ones := 0
	for i := 0; i < 10000; i++ {
		b := src.NextBit(false)
		require.LessOrEqual(t, b, Bit(1))
		ones += int(b)
	}
	assert.InDelta(t, 5000, ones, 500)
}

func TestAccumulate(t *testing.T) {
	tests := []struct {
		name       string
		perRound   []Bit
		targetBits int
		maxRounds  int
		wantRounds int
		wantPool   int
		wantErr    error
	}{
		{
			name:       "overshoots target",
			perRound:   bits(1, 0, 1),
			targetBits: 8,
			maxRounds:  10,
			wantRounds: 3,
			wantPool:   9,
		},
		{
			name:       "exact fit",
			perRound:   bits(1, 1, 1, 1),
			targetBits: 8,
			maxRounds:  2,
			wantRounds: 2,
			wantPool:   8,
		},
		{
			name:       "budget exhausted",
			perRound:   bits(1, 0, 1),
			targetBits: 8,
			maxRounds:  2,
			wantRounds: 2,
			wantErr:    interfaces.ErrInsufficientKeyMaterial,
		},
		{
			name:       "zero round budget",
			perRound:   bits(1, 1, 1, 1, 1, 1, 1, 1),
			targetBits: 8,
			maxRounds:  0,
			wantRounds: 0,
			wantErr:    interfaces.ErrInsufficientKeyMaterial,
		},
		{
			name:       "nothing sifted",
			perRound:   nil,
			targetBits: 8,
			maxRounds:  5,
			wantRounds: 5,
			wantErr:    interfaces.ErrInsufficientKeyMaterial,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fixedRunner{perRound: tt.perRound}
			pool, rounds, err := Accumulate(context.Background(), runner, tt.targetBits, tt.maxRounds)

			assert.Equal(t, tt.wantRounds, rounds)
			assert.Equal(t, tt.wantRounds, runner.calls)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, pool)
				return
			}
			require.NoError(t, err)
			assert.Len(t, pool, tt.wantPool)
		})
	}
}

func TestAccumulate_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &fixedRunner{perRound: bits(1)}
	_, rounds, err := Accumulate(ctx, runner, 8, 100)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, rounds)
}

func TestKeyAccumulator_Generate(t *testing.T) {
	cfg := Config{QubitsPerRound: 8, TargetBits: 16, MaxRounds: 10}

	t.Run("all zero source", func(t *testing.T) {
		acc, err := NewKeyAccumulator(cfg, WithBitSource(func() BitSource {
			return &scriptedSource{bits: bits(0)}
		}))
		require.NoError(t, err)

		res, err := acc.Generate(context.Background(), 16, 10)
		require.NoError(t, err)
		assert.Equal(t, []byte{0x00, 0x00}, res.Key)
		assert.Equal(t, 2, res.Rounds)
		assert.Equal(t, 16, res.SiftedBits)
		assert.Equal(t, 16, res.Bits())
	})

	t.Run("all one source", func(t *testing.T) {
		acc, err := NewKeyAccumulator(cfg, WithBitSource(func() BitSource {
			return &scriptedSource{bits: bits(1)}
		}))
		require.NoError(t, err)

		key, err := acc.GenerateSharedKey(context.Background(), 24, 10)
		require.NoError(t, err)
		assert.Equal(t, []byte{0xFF, 0xFF, 0xFF}, key)
	})

	t.Run("surplus bits are dropped from the tail", func(t *testing.T) {
		// 12 qubits, all bases rectilinear: the sifted pool is Alice's bits in order
		script := make([]Bit, 0, 48)
		script = append(script, bits(1, 0, 1, 1, 0, 0, 0, 1, 1, 1, 1, 1)...)
		script = append(script, make([]Bit, 36)...)
		acc, err := NewKeyAccumulator(Config{QubitsPerRound: 12, TargetBits: 8, MaxRounds: 1}, WithBitSource(func() BitSource {
			return &scriptedSource{bits: script}
		}))
		require.NoError(t, err)

		res, err := acc.Generate(context.Background(), 8, 1)
		require.NoError(t, err)
		assert.Equal(t, []byte{0xB1}, res.Key)
		assert.Equal(t, 1, res.Rounds)
		assert.Equal(t, 12, res.SiftedBits)
	})

	t.Run("bases never match", func(t *testing.T) {
		// per round: 8 alice bits, alice bases all 0, bob bases all 1, 8 draws
		script := make([]Bit, 0, 32)
		script = append(script, bits(1, 1, 1, 1, 1, 1, 1, 1)...)
		script = append(script, bits(0, 0, 0, 0, 0, 0, 0, 0)...)
		script = append(script, bits(1, 1, 1, 1, 1, 1, 1, 1)...)
		script = append(script, bits(0, 0, 0, 0, 0, 0, 0, 0)...)
		acc, err := NewKeyAccumulator(cfg, WithBitSource(func() BitSource {
			return &scriptedSource{bits: script}
		}))
		require.NoError(t, err)

		_, err = acc.GenerateSharedKey(context.Background(), 16, 3)
		assert.ErrorIs(t, err, interfaces.ErrInsufficientKeyMaterial)
	})

	t.Run("rejects unaligned target", func(t *testing.T) {
		acc, err := NewKeyAccumulator(cfg)
		require.NoError(t, err)

		for _, target := range []int{0, -8, 12} {
			_, err = acc.GenerateSharedKey(context.Background(), target, 10)
			assert.ErrorIs(t, err, interfaces.ErrInvalidTargetBits)
		}
	})
}

func TestKeyAccumulator_ConcurrentGenerate(t *testing.T) {
	acc, err := NewKeyAccumulator(DefaultConfig())
	require.NoError(t, err)

	const workers = 16
	keys := make([][]byte, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			keys[i], errs[i] = acc.GenerateSharedKey(context.Background(), 128, 100)
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		require.NoError(t, errs[i])
		assert.Len(t, keys[i], 16)
	}
	assert.NotEqual(t, keys[0], keys[1])
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "default", cfg: DefaultConfig()},
		{name: "smallest", cfg: Config{QubitsPerRound: 1, TargetBits: 8, MaxRounds: 1}},
		{name: "too many qubits", cfg: Config{QubitsPerRound: 21, TargetBits: 128, MaxRounds: 1}, wantErr: true},
		{name: "no qubits", cfg: Config{QubitsPerRound: 0, TargetBits: 128, MaxRounds: 1}, wantErr: true},
		{name: "unaligned target", cfg: Config{QubitsPerRound: 20, TargetBits: 100, MaxRounds: 1}, wantErr: true},
		{name: "oversized target", cfg: Config{QubitsPerRound: 20, TargetBits: 1024, MaxRounds: 1}, wantErr: true},
		{name: "no rounds", cfg: Config{QubitsPerRound: 20, TargetBits: 128, MaxRounds: 0}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	_, err := NewKeyAccumulator(Config{})
	assert.Error(t, err)
}

func TestValidateTargetBits(t *testing.T) {
	for _, ok := range []int{8, 128, 256, 512} {
		assert.NoError(t, ValidateTargetBits(ok))
	}
	for _, bad := range []int{0, 7, 100, 520, -8} {
		err := ValidateTargetBits(bad)
		assert.True(t, errors.Is(err, interfaces.ErrInvalidTargetBits), "bits=%d", bad)
	}
}
