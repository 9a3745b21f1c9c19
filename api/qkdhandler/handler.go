package qkdhandler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/ruteri/qkd-transfer-backend/api"
	"github.com/ruteri/qkd-transfer-backend/cryptoutils"
	"github.com/ruteri/qkd-transfer-backend/metrics"
	"github.com/ruteri/qkd-transfer-backend/qkd"
)

// KeyGenerator runs BB84 key generation. *qkd.KeyAccumulator implements it.
type KeyGenerator interface {
	Generate(ctx context.Context, targetBits, maxRounds int) (*qkd.KeyResult, error)
	Config() qkd.Config
}

// Handler serves simulated QKD keys.
type Handler struct {
	keys    KeyGenerator
	metrics *metrics.Collectors
	timeout time.Duration
	log     *slog.Logger
}

// NewHandler creates a key handler. A zero timeout disables the per-request
// generation deadline; metrics may be nil.
func NewHandler(keys KeyGenerator, m *metrics.Collectors, timeout time.Duration, log *slog.Logger) *Handler {
	return &Handler{
		keys:    keys,
		metrics: m,
		timeout: timeout,
		log:     log,
	}
}

// RegisterRoutes registers:
//   - GET /qkd/key - generate a shared key
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/qkd/key", h.HandleKey)
}

// HandleKey generates a fresh key.
//
// URL format: GET /qkd/key[?bits=N]
//
// Status codes:
//   - 200 OK: api.KeyResponse
//   - 400 Bad Request: bits is not a multiple of 8 in [8, 512]
//   - 503 Service Unavailable: round budget exhausted
//   - 504 Gateway Timeout: generation deadline exceeded
func (h *Handler) HandleKey(w http.ResponseWriter, r *http.Request) {
	cfg := h.keys.Config()

	targetBits := cfg.TargetBits
	if raw := r.URL.Query().Get("bits"); raw != "" {
		bits, err := strconv.Atoi(raw)
		if err != nil {
			h.fail(w, api.BadRequest("bits must be an integer, got %q", raw))
			return
		}
		if err := qkd.ValidateTargetBits(bits); err != nil {
			h.fail(w, err)
			return
		}
		targetBits = bits
	}

	ctx := r.Context()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	start := time.Now()
	res, err := h.keys.Generate(ctx, targetBits, cfg.MaxRounds)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		h.metrics.KeyGenerationFailed(elapsed)
		h.log.Warn("Key generation failed", "err", err, "targetBits", targetBits, "maxRounds", cfg.MaxRounds)
		h.fail(w, err)
		return
	}
	h.metrics.KeyGenerated(res.Rounds, res.SiftedBits, elapsed)

	response := api.KeyResponse{
		KeyHex:     cryptoutils.EncodeKeyHex(res.Key),
		Bits:       res.Bits(),
		Rounds:     res.Rounds,
		SiftedBits: res.SiftedBits,
	}
	if err := api.WriteJSON(w, http.StatusOK, response); err != nil {
		h.log.Error("Failed to encode response", "err", err)
	}
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	kind := api.WriteError(w, err)
	h.metrics.HandlerError(string(kind))
}
