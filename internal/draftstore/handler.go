package draftstore

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/bridal-quote-platform/internal/booking"
	"github.com/wolfman30/bridal-quote-platform/internal/http/respond"
	"github.com/wolfman30/bridal-quote-platform/pkg/logging"
)

// Handler exposes the draft store to the wizard.
type Handler struct {
	store  *Store
	logger *logging.Logger
}

func NewHandler(store *Store, logger *logging.Logger) *Handler {
	if store == nil {
		panic("draftstore: store required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{store: store, logger: logger}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/drafts/{sessionID}/{key}", h.Get)
	r.Put("/drafts/{sessionID}/{key}", h.Put)
	r.Delete("/drafts/{sessionID}/{key}", h.Delete)
}

type draftValue struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Get returns {"key", "value"}. GET /drafts/{sessionID}/{key}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	value, err := h.store.Get(r.Context(), chi.URLParam(r, "sessionID"), key)
	if errors.Is(err, booking.ErrNotFound) {
		respond.JSON(w, http.StatusNotFound, respond.ErrorBody{Error: "draft value not found"})
		return
	}
	if err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, draftValue{Key: key, Value: value})
}

// Put stores the request body as the value. PUT /drafts/{sessionID}/{key}
func (h *Handler) Put(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, MaxValueBytes+1))
	if err != nil {
		respond.BadRequest(w, "unreadable body")
		return
	}
	key := chi.URLParam(r, "key")
	if err := h.store.Put(r.Context(), chi.URLParam(r, "sessionID"), key, body); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Delete clears one value. DELETE /drafts/{sessionID}/{key}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Delete(r.Context(), chi.URLParam(r, "sessionID"), chi.URLParam(r, "key")); err != nil {
		respond.Error(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
