package auditlog

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	dErrors "zerotrust/pkg/domain-errors"
	"zerotrust/pkg/platform/httputil"
	"zerotrust/pkg/requestcontext"
)

const maxRecordBytes = 1 << 20

// Appender persists one raw JSON record.
type Appender interface {
	Append(raw []byte) error
}

type StatusResponse struct {
	Status string `json:"status"`
}

// Handler serves POST /log.
type Handler struct {
	store  Appender
	logger *slog.Logger
}

func NewHandler(store Appender, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/log", h.HandleLog)
}

func (h *Handler) HandleLog(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRecordBytes))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "unable to read body"))
		return
	}

	if err := h.store.Append(body); err != nil {
		if errors.Is(err, ErrInvalidRecord) {
			h.logger.WarnContext(ctx, "rejected audit record",
				"request_id", requestID,
				"error", err,
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
			return
		}
		h.logger.ErrorContext(ctx, "failed to append audit record",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to write audit record"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, StatusResponse{Status: "ok"})
}
