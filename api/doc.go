/*
Package api holds the wire types and error envelope shared by the HTTP
handlers and their clients.

The service is split into two handler packages:

1. qkdhandler - BB84 key generation (GET /qkd/key)
2. transferhandler - ciphertext upload, lookup, download and decryption

Every non-2xx JSON response has the shape

	{"ok": false, "kind": "<ErrorKind>", "error": "<message>"}

Classify maps domain errors from the interfaces package to a status code and
kind. Validation failures are 400, unknown transfers 404, a BB84 run that
exhausted its round budget or an unreachable storage backend 503, a
key generation deadline 504. Anything else is 500 with a generic message.
*/
package api
