package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"zerotrust/internal/gateway/models"
	dErrors "zerotrust/pkg/domain-errors"
	"zerotrust/pkg/platform/httputil"
	"zerotrust/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service defines the pipeline operations the handler exposes.
type Service interface {
	Query(ctx context.Context, credential string, req models.QueryRequest) (*models.QueryOutcome, error)
	Authorize(ctx context.Context, credential string, req models.QueryRequest) (bool, error)
	Identify(ctx context.Context, credential string) (*models.Identity, error)
	Databases() []models.DatabaseInfo
}

// Handler wires gateway endpoints to the pipeline service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a gateway handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts gateway endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/query", h.HandleQuery)
	r.Post("/authorize", h.HandleAuthorize)
	r.Get("/whoami", h.HandleWhoAmI)
	r.Get("/databases", h.HandleDatabases)
}

// HandleQuery handles POST /query requests.
func (h *Handler) HandleQuery(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	credential, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[QueryRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	outcome, err := h.service.Query(ctx, credential, req.ToModel())
	if err != nil {
		h.logger.WarnContext(ctx, "query rejected",
			"request_id", requestID,
			"database_id", req.DatabaseID,
			"resource", req.Resource,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "query completed",
		"request_id", requestID,
		"database_id", req.DatabaseID,
		"resource", req.Resource,
		"source", outcome.Source,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromOutcome(outcome))
}

// HandleAuthorize handles POST /authorize requests.
func (h *Handler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	credential, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}

	req, ok := httputil.DecodeAndPrepare[QueryRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	allowed, err := h.service.Authorize(ctx, credential, req.ToModel())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AuthorizeResponse{Allowed: allowed})
}

// HandleWhoAmI handles GET /whoami requests.
func (h *Handler) HandleWhoAmI(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	credential, ok := h.requireCredential(w, r)
	if !ok {
		return
	}

	identity, err := h.service.Identify(ctx, credential)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromIdentity(identity, requestcontext.Now(ctx)))
}

// HandleDatabases handles GET /databases requests.
func (h *Handler) HandleDatabases(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, DatabasesResponse{Databases: h.service.Databases()})
}

// requireCredential writes 401 when there is no bearer credential.
func (h *Handler) requireCredential(w http.ResponseWriter, r *http.Request) (string, bool) {
	credential := BearerCredential(r)
	if credential == "" {
		h.logger.InfoContext(r.Context(), "missing bearer credential",
			"request_id", requestcontext.RequestID(r.Context()),
			"path", r.URL.Path,
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing bearer credential"))
		return "", false
	}
	return credential, true
}

// requireIdentity rejects missing or unparseable credentials before the
// body is read, so credential errors take precedence over body errors.
func (h *Handler) requireIdentity(w http.ResponseWriter, r *http.Request) (string, bool) {
	credential, ok := h.requireCredential(w, r)
	if !ok {
		return "", false
	}
	if _, err := h.service.Identify(r.Context(), credential); err != nil {
		httputil.WriteError(w, err)
		return "", false
	}
	return credential, true
}

// BearerCredential returns the credential of an "Authorization: Bearer"
// header, or "" when there is none.
func BearerCredential(r *http.Request) string {
	fields := strings.Fields(r.Header.Get("Authorization"))
	if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
		return ""
	}
	return fields[1]
}
