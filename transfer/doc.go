// Package transfer records uploaded ciphertexts and decrypts them on request.
//
// A Store holds one Record per upload: the key and IV the sender used, the
// content id of the ciphertext in the configured storage backend, and the file
// names. Records are kept in memory only. Ciphertexts go to an
// interfaces.StorageBackend, so they outlive the process if the backend does.
//
// Create persists the ciphertext first and only then reserves an id, so a
// failed upload leaves nothing behind. Ids are random UUIDs, inserted with a
// compare-and-insert under the store lock.
//
// DecryptTransfer serves plaintext for a stored transfer. DecryptAdHoc
// decrypts caller-supplied bytes without touching the store.
package transfer
