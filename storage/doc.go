// Package storage provides content-addressed ciphertext storage with pluggable backends.
//
// Every backend stores opaque bytes under their SHA-256 content id:
//
//   - File system storage for local development and single-node deployments
//   - S3-compatible storage for cloud deployments
//   - IPFS storage on a node's mutable file system
//   - Vault KV v2 storage for deployments that keep ciphertexts next to other secrets
//   - Redis storage for short-lived transfers with a TTL
//
// # Storage URI Format
//
// Storage backends are specified using URI format:
//
//	[scheme]://[auth@]host[:port][/path][?params]
//
// Supported URI schemes:
//
//   - file:///var/lib/qkd/
//   - s3://ACCESS:SECRET@bucket-name/prefix/?region=us-west-2&endpoint=http://minio:9000&path_style=true
//   - ipfs://localhost:5001/qkd/ciphertexts?timeout=30s
//   - vault://vault.example.com:8200/secret/qkd?tls=true&token=...
//   - redis://:password@localhost:6379/0?prefix=qkd:ciphertext:&ttl=24h
//
// Vault falls back to VAULT_TOKEN when no token parameter is given. S3 falls
// back to the default AWS credential chain.
//
// # Multi-Backend Example
//
//	locations, err := interfaces.ParseStorageBackendLocations("file:///var/lib/qkd/,redis://localhost:6379/0")
//	if err != nil {
//	    return err
//	}
//	backend, err := storage.NewStorageBackendFactory(logger).CreateMultiBackend(locations)
//
// The multi-backend stores to every available backend and succeeds if any of
// them accepts the data. Fetch returns the first hit in configuration order.
package storage
