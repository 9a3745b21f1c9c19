// Command httpserver serves simulated QKD keys and encrypted file transfers.
//
// Alice fetches a key from GET /qkd/key, encrypts a file with AES-CBC under a
// random IV, and uploads the ciphertext with the key and IV. Bob looks the
// transfer up and downloads either the ciphertext or the server-side
// decryption.
//
// Ciphertexts are written to every backend named in --storage:
//
//	file://./qkd-data
//	s3://bucket/prefix/?region=eu-west-1
//	ipfs://127.0.0.1:5001/qkd?timeout=30s
//	vault://vault:8200/secret/qkd?token=...
//	redis://localhost:6379/0?prefix=qkd:&ttl=24h
//
// Transfer records themselves are in memory and do not survive a restart.
//
// Every flag can also be set through a QKD_* environment variable, and
// --env-file loads such variables from a dotenv file first.
//
// Example:
//
//	httpserver --listen-addr 0.0.0.0:8080 --target-bits 256 --storage file:///var/lib/qkd
package main
