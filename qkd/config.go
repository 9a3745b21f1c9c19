package qkd

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/ruteri/qkd-transfer-backend/interfaces"
)

const (
	DefaultQubitsPerRound = MaxQubitsPerRound
	DefaultTargetBits     = 128
	DefaultMaxRounds      = 100

	// MaxTargetBits caps a single key request.
	MaxTargetBits = 512
)

const targetBitsTag = "min=8,max=512,bytealigned"

// Config holds the knobs of a KeyAccumulator.
type Config struct {
	QubitsPerRound int `validate:"min=1,max=20"`
	TargetBits     int `validate:"min=8,max=512,bytealigned"`
	MaxRounds      int `validate:"min=1"`
}

// DefaultConfig returns 20-qubit rounds, a 128-bit key and a 100 round budget.
func DefaultConfig() Config {
	return Config{
		QubitsPerRound: DefaultQubitsPerRound,
		TargetBits:     DefaultTargetBits,
		MaxRounds:      DefaultMaxRounds,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	if err := v.RegisterValidation("bytealigned", func(fl validator.FieldLevel) bool {
		return fl.Field().Int()%8 == 0
	}); err != nil {
		panic(err)
	}
	return v
}

// Validate checks every field against its bounds.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid qkd config: %w", err)
	}
	return nil
}

// ValidateTargetBits checks a requested key size. Failures wrap ErrInvalidTargetBits.
func ValidateTargetBits(bits int) error {
	if err := validate.Var(bits, targetBitsTag); err != nil {
		return fmt.Errorf("%w: got %d (max %d)", interfaces.ErrInvalidTargetBits, bits, MaxTargetBits)
	}
	return nil
}
