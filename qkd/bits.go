package qkd

import (
	"crypto/rand"
	"fmt"
)

// Bit is a classical bit value, 0 or 1.
type Bit uint8

// Basis is the polarization basis a qubit is prepared or measured in.
type Basis uint8

const (
	// Rectilinear is the Z basis (|0>, |1>).
	Rectilinear Basis = iota
	// Diagonal is the X basis (|+>, |->).
	Diagonal
)

func (b Basis) String() string {
	switch b {
	case Rectilinear:
		return "rectilinear"
	case Diagonal:
		return "diagonal"
	default:
		return fmt.Sprintf("basis(%d)", uint8(b))
	}
}

// BitSource supplies the randomness consumed by a RoundSimulator.
//
// matchingBases is true only for measurement draws on qubits that are measured
// in the basis they were prepared in. The simulator ignores the value of those
// draws, so sources may answer them without consuming entropy.
type BitSource interface {
	NextBit(matchingBases bool) Bit
}

// CryptoBitSource draws bits from crypto/rand, buffering 256 bits at a time.
// It is not safe for concurrent use.
type CryptoBitSource struct {
	buf   [32]byte
	avail int
}

// NewCryptoBitSource returns a BitSource backed by the OS CSPRNG.
func NewCryptoBitSource() *CryptoBitSource {
	return &CryptoBitSource{}
}

func (s *CryptoBitSource) NextBit(matchingBases bool) Bit {
	if matchingBases {
		return 0
	}
	if s.avail == 0 {
		if _, err := rand.Read(s.buf[:]); err != nil {
			panic("qkd: failed to read from CSPRNG: " + err.Error())
		}
		s.avail = len(s.buf) * 8
	}
	s.avail--
	return Bit(s.buf[s.avail/8]>>(s.avail%8)) & 1
}

// PackBits packs bits into bytes, most significant bit first: bits[0] becomes
// the highest-order bit of the first byte. len(bits) must be a multiple of 8;
// a trailing partial group is ignored.
func PackBits(bits []Bit) []byte {
	out := make([]byte, len(bits)/8)
	for i := range out {
		var v byte
		for _, b := range bits[i*8 : i*8+8] {
			v = v<<1 | byte(b&1)
		}
		out[i] = v
	}
	return out
}
