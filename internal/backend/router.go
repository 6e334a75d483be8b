package backend

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/five82/reformer/internal/remote"
)

const maxBodyBytes = 4 << 20

// Router serves the sync API over store.
func Router(store RecordStore, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &handlers{store: store, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Route("/api/sync/{userID}", func(r chi.Router) {
		r.Get("/", h.getRecord)
		r.Put("/", h.putRecord)
		r.Post("/mutations", h.postMutation)
	})
	return r
}

type handlers struct {
	store  RecordStore
	logger *slog.Logger
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (h *handlers) getRecord(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	record, err := h.store.Get(r.Context(), userID)
	if errors.Is(err, ErrNotFound) {
		http.Error(w, "no record", http.StatusNotFound)
		return
	}
	if err != nil {
		h.fail(w, r, "get record", err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

func (h *handlers) putRecord(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var record remote.SyncRecord
	if err := decodeBody(w, r, &record); err != nil {
		http.Error(w, "invalid record: "+err.Error(), http.StatusBadRequest)
		return
	}
	if record.UserID == "" {
		record.UserID = userID
	}
	if record.UserID != userID {
		http.Error(w, "user_id does not match path", http.StatusBadRequest)
		return
	}
	if record.SyncedAt.IsZero() {
		http.Error(w, "synced_at required", http.StatusBadRequest)
		return
	}
	if err := h.store.Upsert(r.Context(), record); err != nil {
		h.fail(w, r, "upsert record", err)
		return
	}
	h.logger.Info("record stored", "user", userID, "synced_at", record.SyncedAt)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) postMutation(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	var m remote.Mutation
	if err := decodeBody(w, r, &m); err != nil {
		http.Error(w, "invalid mutation: "+err.Error(), http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(m.ID) == "" || m.Type == "" || m.Action == "" {
		http.Error(w, "id, type and action required", http.StatusBadRequest)
		return
	}
	if err := h.store.AppendMutation(r.Context(), userID, m); err != nil {
		h.fail(w, r, "append mutation", err)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func (h *handlers) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	h.logger.Error(op+" failed", "error", err, "request_id", middleware.GetReqID(r.Context()))
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dest any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dest)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
