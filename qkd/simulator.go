package qkd

// MaxQubitsPerRound bounds the round width to what the circuit simulator the
// protocol was modelled on can run in one shot.
const MaxQubitsPerRound = 20

// Round is one BB84 exchange of n qubits. All slices have length n.
type Round struct {
	AliceBits  []Bit
	AliceBases []Basis
	BobBases   []Basis
	Measured   []Bit
}

// Matching reports whether Alice and Bob chose the same basis for qubit i.
func (r Round) Matching(i int) bool {
	return r.AliceBases[i] == r.BobBases[i]
}

// Sift returns Bob's measurements at the positions where the bases agree, in index order.
func (r Round) Sift() []Bit {
	sifted := make([]Bit, 0, len(r.Measured))
	for i, m := range r.Measured {
		if r.Matching(i) {
			sifted = append(sifted, m)
		}
	}
	return sifted
}

// RoundSimulator simulates BB84 rounds of a fixed width.
//
// Each round draws from its BitSource in this order: n bits for Alice's
// values, n for Alice's bases, n for Bob's bases, then one measurement draw
// per qubit. A qubit measured in its preparation basis yields Alice's bit;
// otherwise the state collapses and the measurement draw decides the outcome.
type RoundSimulator struct {
	qubits int
	source BitSource
}

// NewRoundSimulator creates a simulator for rounds of the given width.
func NewRoundSimulator(qubits int, source BitSource) *RoundSimulator {
	return &RoundSimulator{qubits: qubits, source: source}
}

// Qubits returns the round width.
func (s *RoundSimulator) Qubits() int {
	return s.qubits
}

// Simulate runs one round and returns every intermediate value.
func (s *RoundSimulator) Simulate() Round {
	n := s.qubits
	r := Round{
		AliceBits:  make([]Bit, n),
		AliceBases: make([]Basis, n),
		BobBases:   make([]Basis, n),
		Measured:   make([]Bit, n),
	}

	for i := range r.AliceBits {
		r.AliceBits[i] = s.source.NextBit(false) & 1
	}
	for i := range r.AliceBases {
		r.AliceBases[i] = Basis(s.source.NextBit(false) & 1)
	}
	for i := range r.BobBases {
		r.BobBases[i] = Basis(s.source.NextBit(false) & 1)
	}

	for i := range r.Measured {
		matching := r.Matching(i)
		collapsed := s.source.NextBit(matching) & 1
		if matching {
			r.Measured[i] = r.AliceBits[i]
		} else {
			r.Measured[i] = collapsed
		}
	}

	return r
}

// RunRound runs one round and returns its sifted bits.
func (s *RoundSimulator) RunRound() []Bit {
	return s.Simulate().Sift()
}
