package transferhandler

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/qkd-transfer-backend/api"
	"github.com/ruteri/qkd-transfer-backend/cryptoutils"
	"github.com/ruteri/qkd-transfer-backend/metrics"
	"github.com/ruteri/qkd-transfer-backend/transfer"
)

// DefaultMaxUploadBytes bounds multipart bodies when no limit is configured.
const DefaultMaxUploadBytes int64 = 64 << 20

// multipart parts above this size spill to temp files
const maxMemoryBytes = 8 << 20

const fallbackFilename = "decrypted.bin"

// Handler serves transfer uploads, lookups and decryption.
type Handler struct {
	store          *transfer.Store
	metrics        *metrics.Collectors
	maxUploadBytes int64
	log            *slog.Logger
}

// NewHandler creates a transfer handler. maxUploadBytes <= 0 selects
// DefaultMaxUploadBytes; metrics may be nil.
func NewHandler(store *transfer.Store, m *metrics.Collectors, maxUploadBytes int64, log *slog.Logger) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{
		store:          store,
		metrics:        m,
		maxUploadBytes: maxUploadBytes,
		log:            log,
	}
}

// RegisterRoutes registers:
//   - POST /upload
//   - GET /transfers/{id}
//   - GET /transfers/{id}/ciphertext
//   - GET /transfers/{id}/plaintext
//   - POST /decrypt
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/upload", h.HandleUpload)
	r.Get("/transfers/{id}", h.HandleLookup)
	r.Get("/transfers/{id}/ciphertext", h.HandleCiphertext)
	r.Get("/transfers/{id}/plaintext", h.HandlePlaintext)
	r.Post("/decrypt", h.HandleDecrypt)
}

// uploadedFile is the "file" part of a multipart request.
type uploadedFile struct {
	name string
	data []byte
}

// parseUpload reads the multipart form and its file part.
func (h *Handler) parseUpload(w http.ResponseWriter, r *http.Request) (*uploadedFile, error) {
	if r.ContentLength > h.maxUploadBytes {
		return nil, &http.MaxBytesError{Limit: h.maxUploadBytes}
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(maxMemoryBytes); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, err
		}
		return nil, api.BadRequest("invalid multipart form: %v", err)
	}

	f, header, err := r.FormFile(api.FormFile)
	if err != nil {
		return nil, api.BadRequest("missing %q part: %v", api.FormFile, err)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}

	return &uploadedFile{name: filepath.Base(header.Filename), data: data}, nil
}

func requireField(r *http.Request, name string) (string, error) {
	v := r.FormValue(name)
	if v == "" {
		return "", api.BadRequest("missing %q field", name)
	}
	return v, nil
}

// HandleUpload records an encrypted file.
//
// URL format: POST /upload (multipart: file, iv_b64, key_hex)
//
// Status codes:
//   - 200 OK: api.UploadResponse
//   - 400 Bad Request: missing field, bad encoding, wrong key or IV length
//   - 413 Request Entity Too Large: body above the upload limit
//   - 503 Service Unavailable: ciphertext could not be persisted
func (h *Handler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	file, err := h.parseUpload(w, r)
	if err != nil {
		h.fail(w, err)
		return
	}

	keyHex, err := requireField(r, api.FormKeyHex)
	if err != nil {
		h.fail(w, err)
		return
	}
	ivB64, err := requireField(r, api.FormIVBase64)
	if err != nil {
		h.fail(w, err)
		return
	}

	key, err := cryptoutils.DecodeKeyHex(keyHex)
	if err != nil {
		h.fail(w, err)
		return
	}
	iv, err := cryptoutils.DecodeIVBase64(ivB64)
	if err != nil {
		h.fail(w, err)
		return
	}

	rec, err := h.store.Create(r.Context(), transfer.CreateRequest{
		Ciphertext:        file.data,
		IV:                iv,
		Key:               key,
		EncryptedFilename: file.name,
	})
	if err != nil {
		h.log.Error("Failed to create transfer", "err", err, "filename", file.name)
		h.fail(w, err)
		return
	}
	h.metrics.TransferCreated(rec.CiphertextSize)

	id := rec.ID.String()
	response := api.UploadResponse{
		OK:                true,
		TransferID:        id,
		OriginalFilename:  rec.OriginalFilename,
		EncryptedFilename: rec.EncryptedFilename,
		DownloadURL:       api.CiphertextPath(id),
		DecryptURL:        api.PlaintextPath(id),
	}
	if err := api.WriteJSON(w, http.StatusOK, response); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

// HandleLookup returns the stored metadata, including the key and IV.
//
// URL format: GET /transfers/{id}
func (h *Handler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Lookup(transfer.ID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, err)
		return
	}

	id := rec.ID.String()
	response := api.TransferResponse{
		TransferID:        id,
		KeyHex:            cryptoutils.EncodeKeyHex(rec.Key),
		IVBase64:          cryptoutils.EncodeIVBase64(rec.IV),
		OriginalFilename:  rec.OriginalFilename,
		EncryptedFilename: rec.EncryptedFilename,
		DownloadURL:       api.CiphertextPath(id),
		DecryptURL:        api.PlaintextPath(id),
		CiphertextSize:    rec.CiphertextSize,
		CiphertextDigest:  rec.CiphertextDigest,
		CreatedAt:         rec.CreatedAt,
	}
	if err := api.WriteJSON(w, http.StatusOK, response); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

// HandleCiphertext serves the raw ciphertext as an attachment.
//
// URL format: GET /transfers/{id}/ciphertext
func (h *Handler) HandleCiphertext(w http.ResponseWriter, r *http.Request) {
	rec, data, err := h.store.Ciphertext(r.Context(), transfer.ID(chi.URLParam(r, "id")))
	if err != nil {
		h.fail(w, err)
		return
	}

	name := rec.EncryptedFilename
	if name == "" {
		name = rec.ID.String() + ".enc"
	}

	w.Header().Set(api.CiphertextDigestHeader, rec.CiphertextDigest)
	writeAttachment(w, name, "application/octet-stream", data)
}

// HandlePlaintext decrypts a stored transfer with its recorded key and IV.
//
// URL format: GET /transfers/{id}/plaintext
func (h *Handler) HandlePlaintext(w http.ResponseWriter, r *http.Request) {
	out, err := h.store.DecryptTransfer(r.Context(), transfer.ID(chi.URLParam(r, "id")))
	if err != nil {
		h.decryptFailed(w, err)
		return
	}

	writePlaintext(w, out)
}

// HandleDecrypt decrypts an uploaded ciphertext with caller-supplied material.
// Nothing is stored.
//
// URL format: POST /decrypt (multipart: file, iv_b64, key_hex, optional original_name)
func (h *Handler) HandleDecrypt(w http.ResponseWriter, r *http.Request) {
	file, err := h.parseUpload(w, r)
	if err != nil {
		h.fail(w, err)
		return
	}

	keyHex, err := requireField(r, api.FormKeyHex)
	if err != nil {
		h.fail(w, err)
		return
	}
	ivB64, err := requireField(r, api.FormIVBase64)
	if err != nil {
		h.fail(w, err)
		return
	}

	out, err := transfer.DecryptAdHoc(r.Context(), transfer.AdHocRequest{
		Ciphertext:   file.data,
		KeyHex:       keyHex,
		IVBase64:     ivB64,
		OriginalName: r.FormValue(api.FormOriginalName),
		UploadName:   file.name,
	})
	if err != nil {
		h.decryptFailed(w, err)
		return
	}

	writePlaintext(w, out)
}

func writePlaintext(w http.ResponseWriter, out *transfer.Plaintext) {
	name := out.Filename
	if name == "" {
		name = fallbackFilename
	}
	writeAttachment(w, name, out.ContentType, out.Data)
}

func writeAttachment(w http.ResponseWriter, filename, contentType string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) fail(w http.ResponseWriter, err error) api.ErrorKind {
	kind := api.WriteError(w, err)
	h.metrics.HandlerError(string(kind))
	return kind
}

func (h *Handler) decryptFailed(w http.ResponseWriter, err error) {
	kind := h.fail(w, err)
	if kind != api.KindNotFound {
		h.metrics.DecryptFailed(string(kind))
	}
}
