// Package qkdhandler serves BB84 shared keys over HTTP.
//
// GET /qkd/key runs the simulated key exchange with the server's configured
// target size, or with ?bits=N when given, and returns the key as hex along
// with the number of rounds and sifted bits it took.
package qkdhandler
