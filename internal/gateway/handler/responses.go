package handler

import (
	"time"

	"zerotrust/internal/claims"
	"zerotrust/internal/gateway/models"
)

// QueryResponse is the HTTP response for POST /query.
type QueryResponse struct {
	Rows    [][]any  `json:"rows"`
	Columns []string `json:"columns"`
	SQL     string   `json:"sql"`
	Source  string   `json:"source"`
	Note    string   `json:"note,omitempty"`
}

// FromOutcome converts a pipeline outcome to an HTTP response.
func FromOutcome(outcome *models.QueryOutcome) *QueryResponse {
	rows := outcome.Result.Rows
	if rows == nil {
		rows = [][]any{}
	}
	columns := outcome.Result.Columns
	if columns == nil {
		columns = []string{}
	}
	return &QueryResponse{
		Rows:    rows,
		Columns: columns,
		SQL:     outcome.Result.SQLUsed,
		Source:  string(outcome.Source),
		Note:    outcome.Result.Note,
	}
}

// AuthorizeResponse is the HTTP response for POST /authorize.
type AuthorizeResponse struct {
	Allowed bool `json:"allowed"`
}

// WhoAmIResponse is the HTTP response for GET /whoami.
type WhoAmIResponse struct {
	Username  string     `json:"username"`
	Role      string     `json:"role"`
	Roles     []string   `json:"roles"`
	IssuedAt  *time.Time `json:"issued_at,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Expired   bool       `json:"expired"`
}

// FromIdentity converts an identity to the whoami view. Raw claims are not
// echoed back.
func FromIdentity(id *models.Identity, now time.Time) *WhoAmIResponse {
	roles := id.Roles
	if roles == nil {
		roles = []string{}
	}
	return &WhoAmIResponse{
		Username:  id.Username,
		Role:      id.Role,
		Roles:     roles,
		IssuedAt:  id.IssuedAt,
		ExpiresAt: id.ExpiresAt,
		Expired:   claims.Expired(id, now),
	}
}

// DatabasesResponse is the HTTP response for GET /databases.
type DatabasesResponse struct {
	Databases []models.DatabaseInfo `json:"databases"`
}
