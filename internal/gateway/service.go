// Package gateway runs the query pipeline: claims, policy, resolution,
// execution and audit, in that order, for one request at a time.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"zerotrust/internal/executor"
	"zerotrust/internal/gateway/models"
	"zerotrust/internal/resolver"
	dErrors "zerotrust/pkg/domain-errors"
	audit "zerotrust/pkg/platform/audit"
	"zerotrust/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks ClaimsExtractor,PolicyClient,SQLResolver,QueryExecutor,AuditPublisher

// MethodQuery is the method recorded in policy input for pipeline calls.
const MethodQuery = "POST"

type ClaimsExtractor interface {
	Extract(credential string) (*models.Identity, error)
}

type PolicyClient interface {
	Decide(ctx context.Context, input models.PolicyInput) bool
}

type SQLResolver interface {
	Resolve(ctx context.Context, req models.QueryRequest) models.ResolvedQuery
}

type QueryExecutor interface {
	Configured(databaseID string) bool
	Execute(ctx context.Context, databaseID, resource, statement string) (*models.ExecutionResult, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service orchestrates the pipeline. It holds no per-request state.
type Service struct {
	claims      ClaimsExtractor
	policy      PolicyClient
	resolver    SQLResolver
	executor    QueryExecutor
	audit       AuditPublisher
	databaseIDs []string
	logger      *slog.Logger
	tracer      trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.audit = publisher
	}
}

// WithDatabaseIDs sets the identifiers listed by Databases.
func WithDatabaseIDs(ids []string) Option {
	return func(s *Service) {
		s.databaseIDs = append([]string(nil), ids...)
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// New constructs a Service. All four pipeline stages are required.
func New(claims ClaimsExtractor, policy PolicyClient, resolver SQLResolver, executor QueryExecutor, opts ...Option) (*Service, error) {
	if claims == nil {
		return nil, errors.New("claims extractor is required")
	}
	if policy == nil {
		return nil, errors.New("policy client is required")
	}
	if resolver == nil {
		return nil, errors.New("sql resolver is required")
	}
	if executor == nil {
		return nil, errors.New("query executor is required")
	}
	s := &Service{
		claims:   claims,
		policy:   policy,
		resolver: resolver,
		executor: executor,
		logger:   slog.Default(),
		tracer:   otel.Tracer("zerotrust/gateway"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Identify extracts the caller's identity. A missing or unparsable
// credential is CodeUnauthorized.
func (s *Service) Identify(ctx context.Context, credential string) (*models.Identity, error) {
	if credential == "" {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "missing bearer credential")
	}
	identity, err := s.claims.Extract(credential)
	if err != nil {
		s.logger.InfoContext(ctx, "credential rejected",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeUnauthorized, "malformed credential")
	}
	return identity, nil
}

// Query runs the full pipeline. Downstream calls run on a context detached
// from the caller, so a disconnect does not abort them.
func (s *Service) Query(ctx context.Context, credential string, req models.QueryRequest) (*models.QueryOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "gateway.Query")
	defer span.End()

	identity, err := s.Identify(ctx, credential)
	if err != nil {
		span.SetStatus(codes.Error, "unauthorized")
		return nil, err
	}

	input := BuildPolicyInput(MethodQuery, identity, req)
	span.SetAttributes(
		attribute.String("zerotrust.database_id", input.DatabaseID),
		attribute.String("zerotrust.resource", input.Resource),
		attribute.String("zerotrust.role", identity.Role),
	)
	detached := context.WithoutCancel(ctx)

	if !s.decide(detached, input) {
		s.record(detached, audit.DecisionDeny, input)
		span.SetStatus(codes.Error, "denied")
		return nil, dErrors.New(dErrors.CodeForbidden, "access denied")
	}

	if !s.executor.Configured(req.DatabaseID) {
		span.SetStatus(codes.Error, "unknown database")
		return nil, dErrors.New(dErrors.CodeBadRequest, fmt.Sprintf("unknown database %q", req.DatabaseID))
	}

	resolved := s.resolve(detached, req)
	result, err := s.execute(detached, req, resolved)
	if errors.Is(err, executor.ErrUnknownDatabase) {
		span.SetStatus(codes.Error, "unknown database")
		return nil, dErrors.Wrap(err, dErrors.CodeBadRequest, fmt.Sprintf("unknown database %q", req.DatabaseID))
	}
	s.record(detached, audit.DecisionAllow, input)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "execution failed")
		return nil, dErrors.Exposed(err, dErrors.CodeInternal, err.Error())
	}

	source := resolved.Source
	if result.Degraded {
		source = models.SourceFallbackExecution
	}
	s.logger.InfoContext(ctx, "query served",
		"request_id", requestcontext.RequestID(ctx),
		"username", identity.Username,
		"database_id", req.DatabaseID,
		"source", source,
		"degraded", result.Degraded,
		"rows", len(result.Rows),
	)
	return &models.QueryOutcome{Result: result, Source: source}, nil
}

// Authorize runs claims and policy only. Both verdicts are audited; a deny is
// a result, not an error.
func (s *Service) Authorize(ctx context.Context, credential string, req models.QueryRequest) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "gateway.Authorize")
	defer span.End()

	identity, err := s.Identify(ctx, credential)
	if err != nil {
		return false, err
	}
	input := BuildPolicyInput(MethodQuery, identity, req)
	detached := context.WithoutCancel(ctx)

	allowed := s.decide(detached, input)
	decision := audit.DecisionDeny
	if allowed {
		decision = audit.DecisionAllow
	}
	s.record(detached, decision, input)
	return allowed, nil
}

// Databases lists the configured databases with their catalog descriptions.
func (s *Service) Databases() []models.DatabaseInfo {
	out := make([]models.DatabaseInfo, 0, len(s.databaseIDs))
	for _, id := range s.databaseIDs {
		info := models.DatabaseInfo{ID: id, Name: id}
		if db, ok := resolver.Lookup(id); ok {
			info.Name = db.Name
			info.Description = db.Description
			info.AllowedRoles = slices.Clone(db.AllowedRoles)
			info.Resources = db.Resources()
		}
		out = append(out, info)
	}
	return out
}

// BuildPolicyInput assembles the decision request. The same value is later
// recorded as the audit payload.
func BuildPolicyInput(method string, identity *models.Identity, req models.QueryRequest) models.PolicyInput {
	return models.PolicyInput{
		Method:     method,
		Identity:   *identity,
		Resource:   req.Resource,
		DatabaseID: req.DatabaseID,
		Action:     req.Action,
		PatientID:  req.PatientID,
	}
}

func (s *Service) decide(ctx context.Context, input models.PolicyInput) bool {
	ctx, span := s.tracer.Start(ctx, "policy.Decide")
	defer span.End()
	allowed := s.policy.Decide(ctx, input)
	span.SetAttributes(attribute.Bool("zerotrust.allowed", allowed))
	return allowed
}

func (s *Service) resolve(ctx context.Context, req models.QueryRequest) models.ResolvedQuery {
	ctx, span := s.tracer.Start(ctx, "resolver.Resolve")
	defer span.End()
	resolved := s.resolver.Resolve(ctx, req)
	span.SetAttributes(attribute.String("zerotrust.source", string(resolved.Source)))
	return resolved
}

func (s *Service) execute(ctx context.Context, req models.QueryRequest, resolved models.ResolvedQuery) (*models.ExecutionResult, error) {
	ctx, span := s.tracer.Start(ctx, "executor.Execute")
	defer span.End()
	result, err := s.executor.Execute(ctx, req.DatabaseID, req.Resource, resolved.SQL)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "execution failed")
		return nil, err
	}
	span.SetAttributes(attribute.Bool("zerotrust.degraded", result.Degraded))
	return result, nil
}

// record hands the audit event off. Failures are logged and dropped.
func (s *Service) record(ctx context.Context, decision audit.Decision, input models.PolicyInput) {
	if s.audit == nil {
		return
	}
	requestID := requestcontext.RequestID(ctx)
	event := audit.NewEvent(decision, input, requestID, requestcontext.Now(ctx))
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit record not queued",
			"request_id", requestID,
			"decision", decision,
			"error", err,
		)
	}
}
