package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"hearth/internal/modules/models"
	"hearth/internal/modules/service"
	"hearth/internal/modules/store/definition"
	"hearth/internal/modules/store/installation"
	"hearth/internal/platform/logger"
	"hearth/internal/platform/middleware"
	"hearth/internal/session"
	tenantmodels "hearth/internal/tenant/models"
	id "hearth/pkg/domain"
	"hearth/pkg/platform/httputil"
	fixtures "hearth/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	registry *service.Registry
	router   chi.Router
	caller   *session.Context
	owner    *session.Context
	member   *session.Context
	tenant   *tenantmodels.Tenant
	base     string
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	ctx := context.Background()
	s.registry = service.NewRegistry(definition.NewInMemory(), installation.NewInMemory())
	_, err := s.registry.RegisterDefinition(ctx, "meals", "Meals", "1.0.0")
	s.Require().NoError(err)

	s.tenant = fixtures.NewTenantBuilder().WithID(fixtures.TestIDs.TenantID1).Build()
	s.owner = fixtures.NewSessionBuilder().InTenant(s.tenant, tenantmodels.RoleOwner).Build()
	s.member = fixtures.NewSessionBuilder().WithUserID(fixtures.TestIDs.UserID2).InTenant(s.tenant, tenantmodels.RoleMember).Build()
	s.caller = s.owner
	s.base = "/v1/tenants/" + s.tenant.ID.String() + "/modules"

	h := New(s.registry, logger.Discard())
	s.router = chi.NewRouter()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithSession(r.Context(), s.caller)))
		})
	})
	h.Register(s.router)
	h.RegisterOperator(s.router)
}

func (s *HandlerSuite) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) errorOf(rec *httptest.ResponseRecorder) httputil.ErrorResponse {
	var body httputil.ErrorResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func (s *HandlerSuite) status() bool {
	rec := s.do(http.MethodGet, s.base+"/meals/status", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var body statusResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Enabled
}

func (s *HandlerSuite) TestInstallLifecycle() {
	rec := s.do(http.MethodPost, s.base+"/meals", `{"settings":{"diet":"vegetarian"}}`)
	s.Require().Equal(http.StatusCreated, rec.Code)
	var inst models.Installation
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &inst))
	s.Equal(id.ModuleID("meals"), inst.ModuleID)
	s.True(inst.Enabled)
	s.Equal("vegetarian", inst.Settings["diet"])
	s.True(s.status())

	rec = s.do(http.MethodPost, s.base+"/meals", "")
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal("module already installed", s.errorOf(rec).Description)

	rec = s.do(http.MethodDelete, s.base+"/meals", "")
	s.Equal(http.StatusNoContent, rec.Code)
	s.False(s.status())

	rec = s.do(http.MethodDelete, s.base+"/meals", "")
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal("module already disabled", s.errorOf(rec).Description)

	rec = s.do(http.MethodDelete, s.base+"/meals?hard=true", "")
	s.Equal(http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodDelete, s.base+"/meals", "")
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("module not installed", s.errorOf(rec).Description)
}

func (s *HandlerSuite) TestListIncludeDisabled() {
	s.Require().Equal(http.StatusCreated, s.do(http.MethodPost, s.base+"/meals", "").Code)
	s.Require().Equal(http.StatusNoContent, s.do(http.MethodDelete, s.base+"/meals", "").Code)

	count := func(query string) int {
		rec := s.do(http.MethodGet, s.base+query, "")
		s.Require().Equal(http.StatusOK, rec.Code)
		var body listResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
		return len(body.Modules)
	}
	s.Equal(0, count(""))
	s.Equal(1, count("?include_disabled=true"))
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, s.base+"?include_disabled=maybe", "").Code)
}

func (s *HandlerSuite) TestMemberCannotInstall() {
	s.caller = s.member
	rec := s.do(http.MethodPost, s.base+"/meals", "")
	s.Equal(http.StatusForbidden, rec.Code)
	s.False(s.status())
}

func (s *HandlerSuite) TestInactiveAndUnknownModules() {
	s.Require().NoError(s.registry.SetDefinitionActive(context.Background(), "meals", false))
	rec := s.do(http.MethodPost, s.base+"/meals", "")
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal("module is not active", s.errorOf(rec).Description)

	rec = s.do(http.MethodPost, s.base+"/garden", "")
	s.Equal(http.StatusNotFound, rec.Code)
	s.Equal("module not found", s.errorOf(rec).Description)
}

func (s *HandlerSuite) TestBadPathParams() {
	s.Equal(http.StatusBadRequest, s.do(http.MethodGet, "/v1/tenants/not-a-uuid/modules", "").Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, s.base+"/Bad.Module", "").Code)
	s.Equal(http.StatusBadRequest, s.do(http.MethodPost, s.base+"/meals", `{"settings":`).Code)
}

func (s *HandlerSuite) TestDefinitionRoutes() {
	rec := s.do(http.MethodPost, "/v1/modules", `{"id":"chores","name":"Chores","version":"0.1.0"}`)
	s.Require().Equal(http.StatusCreated, rec.Code)

	rec = s.do(http.MethodPost, "/v1/modules", `{"id":"chores","name":"Chores","version":"0.1.0"}`)
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/v1/modules", `{"id":"chores"}`)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, "/v1/modules/chores/active", `{"active":false}`)
	s.Equal(http.StatusNoContent, rec.Code)

	rec = s.do(http.MethodPut, "/v1/modules/chores/active", `{}`)
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPut, "/v1/modules/garden/active", `{"active":true}`)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/v1/modules", "")
	s.Require().Equal(http.StatusOK, rec.Code)
	var body definitionsResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Require().Len(body.Definitions, 2)
	s.Equal(id.ModuleID("chores"), body.Definitions[0].ID)
	s.False(body.Definitions[0].IsActive)
	s.True(body.Definitions[1].IsActive)
}
