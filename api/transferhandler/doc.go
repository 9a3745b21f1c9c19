// Package transferhandler exposes the transfer store over HTTP.
//
// Alice uploads a ciphertext together with the key and IV she used. Bob can
// then look the transfer up, download the raw ciphertext, or ask the server to
// decrypt it for him. POST /decrypt decrypts caller-supplied material without
// recording anything.
//
// Uploads are multipart forms with the fields named in the api package. Keys
// travel as hex and IVs as standard base64.
package transferhandler
