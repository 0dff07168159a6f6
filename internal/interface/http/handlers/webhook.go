package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	lineapi "github.com/dailypractice/attendance-hub/internal/infrastructure/external/line"
	linebot "github.com/dailypractice/attendance-hub/internal/interface/line"
	"github.com/dailypractice/attendance-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// LINE WEBHOOK HANDLER
// GET answers the console's verify probe. POST is authenticated by signature,
// dispatched, and always acknowledged with 200 once the signature is valid so
// the platform does not redeliver.
// ══════════════════════════════════════════════════════════════════════════════

// BatchHandler processes a verified batch of events.
type BatchHandler interface {
	HandleBatch(ctx context.Context, events []lineapi.Event) linebot.BatchSummary
}

// WebhookConfig configures LineWebhookHandler.
type WebhookConfig struct {
	// ChannelSecret signs request bodies.
	ChannelSecret string

	// MaxBodyBytes caps the request body (default: 1 MB).
	MaxBodyBytes int64

	// BatchTimeout bounds dispatching one request (default: 25s).
	BatchTimeout time.Duration
}

// LineWebhookHandler serves the LINE webhook endpoint.
type LineWebhookHandler struct {
	config  WebhookConfig
	batches BatchHandler
	logger  *logger.Logger
}

// NewLineWebhookHandler creates the webhook handler.
func NewLineWebhookHandler(config WebhookConfig, batches BatchHandler, log *logger.Logger) *LineWebhookHandler {
	if config.MaxBodyBytes <= 0 {
		config.MaxBodyBytes = 1 << 20
	}
	if config.BatchTimeout <= 0 {
		config.BatchTimeout = 25 * time.Second
	}
	if log == nil {
		log = logger.Nop()
	}
	return &LineWebhookHandler{config: config, batches: batches, logger: log.With(logger.Component("webhook"))}
}

// Verify answers GET probes.
func (h *LineWebhookHandler) Verify(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// ServeHTTP handles a webhook POST.
func (h *LineWebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		h.Verify(w, r)
		return
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.config.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn("webhook body too large", logger.Int64("limit", tooLarge.Limit))
		} else {
			h.logger.Warn("webhook body unreadable", logger.Err(err))
		}
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	if !lineapi.ValidSignature(h.config.ChannelSecret, body, r.Header.Get(lineapi.SignatureHeader)) {
		h.logger.Warn("webhook signature rejected", logger.String("remote", r.RemoteAddr))
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	req, err := lineapi.ParseWebhook(body)
	if err != nil {
		h.logger.Warn("webhook body malformed", logger.Err(err))
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	// the platform may hang up early; finish the batch regardless
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), h.config.BatchTimeout)
	defer cancel()

	start := time.Now()
	summary := h.batches.HandleBatch(ctx, req.Events)
	h.logger.Info("webhook batch processed",
		logger.Int("events", summary.Events),
		logger.Int("handled", summary.Handled),
		logger.Int("ignored", summary.Ignored),
		logger.Int("failed", summary.Failed),
		logger.Latency(time.Since(start)),
	)

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"ok":true}`))
}
