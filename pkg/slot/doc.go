// Package slot defines the contract between the storage codec and the host
// key/value slot store. A slot is a single addressable string. Reading a key
// that was never written yields the empty string, never an error; errors are
// reserved for transport or backend failures.
//
// Implementations in this module:
//
//	mock.Mock         in-memory store for tests and local runs
//	cstore.Client     Ratio1 CStore REST API, one slot per key
//	cstore.HashStore  Ratio1 CStore REST API, one slot per hash field
//
// Implementations must serialize writes to a single slot. Nothing in the
// contract offers atomicity across slots.
package slot
