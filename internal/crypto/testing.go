package crypto

import "io"

// SetRandReaderForTesting replaces the random source used for key
// generation, encapsulation seeds, and nonces. Returns a function that
// restores the previous reader.
//
// Only packages inside this module can reach it, since the package is internal.
func SetRandReaderForTesting(r io.Reader) func() {
	original := randReader
	randReader = r
	return func() { randReader = original }
}
