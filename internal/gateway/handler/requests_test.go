package handler

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "zerotrust/pkg/domain-errors"
)

func TestQueryRequest_Validate(t *testing.T) {
	t.Run("normalizes and prefers database_id over db", func(t *testing.T) {
		req := &QueryRequest{Resource: " patients ", DatabaseID: "us_db", LegacyDB: "eu_db", SQL: " SELECT 1 "}
		require.NoError(t, req.Validate())
		assert.Equal(t, "patients", req.Resource)
		assert.Equal(t, "us_db", req.DatabaseID)
		assert.Equal(t, "SELECT 1", req.SQL)
		assert.Empty(t, req.LegacyDB)
	})

	t.Run("neither sql nor question is accepted", func(t *testing.T) {
		req := &QueryRequest{Resource: "patients", LegacyDB: "sandbox_db"}
		require.NoError(t, req.Validate())
		assert.Equal(t, "sandbox_db", req.ToModel().DatabaseID)
	})

	t.Run("mutually exclusive inputs", func(t *testing.T) {
		req := &QueryRequest{Resource: "patients", DatabaseID: "us_db", SQL: "SELECT 1", NaturalLanguage: "q"}
		err := req.Validate()
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Contains(t, err.Error(), "mutually exclusive")
	})

	t.Run("overlong question", func(t *testing.T) {
		req := &QueryRequest{Resource: "patients", DatabaseID: "us_db", NaturalLanguage: strings.Repeat("x", 2001)}
		assert.True(t, dErrors.HasCode(req.Validate(), dErrors.CodeValidation))
	})

	t.Run("nil request", func(t *testing.T) {
		var req *QueryRequest
		assert.True(t, dErrors.HasCode(req.Validate(), dErrors.CodeBadRequest))
	})
}
