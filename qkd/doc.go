// Package qkd simulates BB84 quantum key distribution to derive symmetric keys.
//
// A round prepares n qubits: Alice picks a random bit and a random basis
// (rectilinear or diagonal) per qubit, and Bob measures each qubit in a basis of
// his own random choice. When the bases agree Bob reads Alice's bit exactly;
// when they differ the outcome is a fair coin. Sifting keeps only the positions
// where the bases agree, roughly half of each round.
//
// KeyAccumulator repeats rounds, pooling sifted bits, until the requested number
// of key bits is available, then packs the first targetBits of the pool into
// bytes most significant bit first:
//
//	acc, _ := qkd.NewKeyAccumulator(qkd.DefaultConfig())
//	key, err := acc.GenerateSharedKey(ctx, 128, 100) // 16 bytes
//	if errors.Is(err, interfaces.ErrInsufficientKeyMaterial) {
//		// round budget spent; retry with more rounds
//	}
//
// Randomness comes from a BitSource. The default CryptoBitSource reads
// crypto/rand; tests inject scripted sources through WithBitSource.
//
// The simulation is noiseless and has no eavesdropper, so there is no error
// estimation or privacy amplification step. Both parties are simulated in one
// process and only the sifted key leaves the package.
package qkd
