package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearth/internal/platform/logger"
	dErrors "hearth/pkg/domain-errors"
)

type installRequest struct {
	ModuleID string `json:"module_id" validate:"required"`
	Note     string `json:"note"`
}

func (r *installRequest) Normalize() {
	r.ModuleID = strings.ToLower(strings.TrimSpace(r.ModuleID))
}

func (r *installRequest) Validate() error {
	if r.Note == "forbidden" {
		return errors.New("note not allowed")
	}
	return nil
}

func decode(t *testing.T, body string) (*installRequest, *httptest.ResponseRecorder) {
	t.Helper()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewBufferString(body))
	out, ok := DecodeAndPrepare[installRequest](rec, req, logger.Discard(), context.Background(), "req-1")
	if !ok {
		return nil, rec
	}
	return out, rec
}

func TestDecodeAndPrepare(t *testing.T) {
	t.Run("normalizes valid body", func(t *testing.T) {
		out, _ := decode(t, `{"module_id":"  Meals "}`)
		require.NotNil(t, out)
		assert.Equal(t, "meals", out.ModuleID)
	})

	t.Run("malformed json is bad request", func(t *testing.T) {
		out, rec := decode(t, `{`)
		assert.Nil(t, out)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown fields are rejected", func(t *testing.T) {
		out, rec := decode(t, `{"module_id":"meals","extra":1}`)
		assert.Nil(t, out)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("oversized body is rejected", func(t *testing.T) {
		out, rec := decode(t, `{"module_id":"meals","note":"`+strings.Repeat("x", maxBodyBytes)+`"}`)
		assert.Nil(t, out)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "request body too large", body.Description)
	})

	t.Run("struct tag failure is validation error", func(t *testing.T) {
		out, rec := decode(t, `{"note":"x"}`)
		assert.Nil(t, out)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "validation_error", body.Error)
		assert.Equal(t, "module_id failed required validation", body.Description)
	})

	t.Run("plain Validate error becomes validation error", func(t *testing.T) {
		out, rec := decode(t, `{"module_id":"meals","note":"forbidden"}`)
		assert.Nil(t, out)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		err    error
		status int
		code   string
		desc   string
	}{
		{dErrors.New(dErrors.CodeConflict, "module already installed"), http.StatusConflict, "conflict", "module already installed"},
		{dErrors.New(dErrors.CodeNotFound, "module not installed"), http.StatusNotFound, "not_found", "module not installed"},
		{dErrors.New(dErrors.CodeForbidden, "owner or admin role required"), http.StatusForbidden, "forbidden", "owner or admin role required"},
		{dErrors.New(dErrors.CodePersistence, "pq: connection refused"), http.StatusServiceUnavailable, "storage_unavailable", ""},
		{errors.New("boom"), http.StatusInternalServerError, "internal_error", ""},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		WriteError(rec, tc.err)
		var body ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tc.status, rec.Code)
		assert.Equal(t, tc.code, body.Error)
		assert.Equal(t, tc.desc, body.Description)
	}
}
