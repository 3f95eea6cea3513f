// Package models holds the per-request values that flow through the query
// gateway pipeline. None of them outlive a single request.
package models

import "time"

// Identity is the caller as described by its bearer credential.
type Identity struct {
	Username  string         `json:"username"`
	Role      string         `json:"role"`
	Roles     []string       `json:"roles,omitempty"`
	RawClaims map[string]any `json:"claims"`
	IssuedAt  *time.Time     `json:"-"`
	ExpiresAt *time.Time     `json:"-"`
}

// PolicyInput is the decision request sent to the policy engine and, unchanged,
// recorded as the audit payload.
type PolicyInput struct {
	Method     string   `json:"method"`
	Identity   Identity `json:"identity"`
	Resource   string   `json:"resource"`
	DatabaseID string   `json:"database_id"`
	Action     string   `json:"action"`
	PatientID  string   `json:"patient_id,omitempty"`
}

// QueryRequest is the validated inbound request. At most one of SQL and
// NaturalLanguage is set.
type QueryRequest struct {
	Resource        string
	DatabaseID      string
	Action          string
	PatientID       string
	SQL             string
	NaturalLanguage string
}

// Source records which resolution tier produced a statement.
type Source string

const (
	SourceExplicit          Source = "explicit"
	SourceAI                Source = "ai"
	SourceFallbackPattern   Source = "fallback-pattern"
	SourceFallbackExecution Source = "fallback-execution"
)

// ResolvedQuery is the single statement chosen for a request.
type ResolvedQuery struct {
	SQL    string
	Source Source
}

// ExecutionResult is the terminal artifact returned to the caller.
type ExecutionResult struct {
	Rows     [][]any
	Columns  []string
	SQLUsed  string
	Degraded bool
	Note     string
}

// QueryOutcome pairs the execution result with how the statement was chosen.
type QueryOutcome struct {
	Result *ExecutionResult
	Source Source
}

// DatabaseInfo describes a configured database for listing.
type DatabaseInfo struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	AllowedRoles []string `json:"allowed_roles,omitempty"`
	Resources    []string `json:"resources,omitempty"`
}
