package handler

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"zerotrust/internal/gateway/models"
	dErrors "zerotrust/pkg/domain-errors"
)

//go:embed schema/query_request.json
var queryRequestSchemaJSON string

var queryRequestSchema = mustSchema(queryRequestSchemaJSON)

func mustSchema(src string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(src))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded schema: %v", err))
	}
	return schema
}

// QueryRequest is the HTTP request body for POST /query and POST /authorize.
type QueryRequest struct {
	Resource        string `json:"resource,omitempty"`
	DatabaseID      string `json:"database_id,omitempty"`
	Action          string `json:"action,omitempty"`
	PatientID       string `json:"patient_id,omitempty"`
	SQL             string `json:"sql,omitempty"`
	NaturalLanguage string `json:"natural_language,omitempty"`

	// LegacyDB is the older name for database_id.
	LegacyDB string `json:"db,omitempty"`
}

// Validate normalizes the request and checks it against the embedded schema.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *QueryRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}

	r.Resource = strings.TrimSpace(r.Resource)
	r.DatabaseID = strings.TrimSpace(r.DatabaseID)
	r.LegacyDB = strings.TrimSpace(r.LegacyDB)
	r.Action = strings.TrimSpace(r.Action)
	r.PatientID = strings.TrimSpace(r.PatientID)
	r.SQL = strings.TrimSpace(r.SQL)
	r.NaturalLanguage = strings.TrimSpace(r.NaturalLanguage)
	if r.DatabaseID == "" {
		r.DatabaseID = r.LegacyDB
	}
	r.LegacyDB = ""

	result, err := queryRequestSchema.Validate(gojsonschema.NewGoLoader(r))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeBadRequest, "invalid request body")
	}
	if !result.Valid() {
		return dErrors.New(dErrors.CodeValidation, describe(result.Errors()))
	}
	return nil
}

// ToModel converts the validated request to the pipeline's value.
func (r *QueryRequest) ToModel() models.QueryRequest {
	return models.QueryRequest{
		Resource:        r.Resource,
		DatabaseID:      r.DatabaseID,
		Action:          r.Action,
		PatientID:       r.PatientID,
		SQL:             r.SQL,
		NaturalLanguage: r.NaturalLanguage,
	}
}

func describe(errs []gojsonschema.ResultError) string {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		switch {
		case e.Type() == "number_not":
			msgs = append(msgs, "sql and natural_language are mutually exclusive")
		case e.Field() == "(root)":
			msgs = append(msgs, e.Description())
		default:
			msgs = append(msgs, e.Field()+": "+e.Description())
		}
	}
	return strings.Join(msgs, "; ")
}
