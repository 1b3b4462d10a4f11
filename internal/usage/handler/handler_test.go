package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"hearth/internal/platform/logger"
	"hearth/internal/platform/middleware"
	"hearth/internal/session"
	tenantmodels "hearth/internal/tenant/models"
	"hearth/internal/usage/ledger"
	"hearth/internal/usage/store"
	"hearth/pkg/platform/httputil"
	fixtures "hearth/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	ledger *ledger.Ledger
	router chi.Router
	caller *session.Context
	now    time.Time

	owner    *session.Context
	member   *session.Context
	personal *session.Context
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	mem := store.NewInMemory()
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.ledger = ledger.New(mem, mem, ledger.WithClock(func() time.Time {
		s.now = s.now.Add(time.Minute)
		return s.now
	}))

	tenant := fixtures.NewTenantBuilder().WithID(fixtures.TestIDs.TenantID1).Build()
	s.owner = fixtures.NewSessionBuilder().InTenant(tenant, tenantmodels.RoleOwner).Build()
	s.member = fixtures.NewSessionBuilder().WithUserID(fixtures.TestIDs.UserID2).InTenant(tenant, tenantmodels.RoleMember).Build()
	s.personal = fixtures.NewSessionBuilder().Build()

	ctx := context.Background()
	for _, e := range []struct {
		user   *session.Context
		tenant bool
		action string
	}{
		{s.owner, true, "meals:weekly:generate"},
		{s.member, true, "meals:weekly:generate"},
		{s.member, true, "chores:rota:generate"},
		{s.personal, false, "meals:weekly:generate"},
	} {
		b := fixtures.NewEntryBuilder().WithUserID(e.user.UserID).WithAction(e.action)
		if e.tenant {
			b = b.WithTenant(tenant.ID)
		}
		_, err := s.ledger.Append(ctx, b.Build())
		s.Require().NoError(err)
	}

	s.router = chi.NewRouter()
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(middleware.WithSession(r.Context(), s.caller)))
		})
	})
	New(s.ledger, logger.Discard()).Register(s.router)
}

func (s *HandlerSuite) get(caller *session.Context, query url.Values) *httptest.ResponseRecorder {
	s.caller = caller
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/usage?"+query.Encode(), nil))
	return rec
}

func (s *HandlerSuite) history(caller *session.Context, query url.Values) historyResponse {
	rec := s.get(caller, query)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	var body historyResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func (s *HandlerSuite) TestManagerSeesWholeTenantNewestFirst() {
	body := s.history(s.owner, nil)
	s.Require().Len(body.Events, 3)
	s.Equal("chores:rota:generate", body.Events[0].Action)
	s.Equal(s.owner.UserID, body.Events[2].UserID)
	s.Equal(int64(150), body.Events[0].TokensTotal)
	s.Equal(100, body.Limit)
}

func (s *HandlerSuite) TestManagerCanNarrowByUser() {
	body := s.history(s.owner, url.Values{"user_id": {s.member.UserID.String()}})
	s.Len(body.Events, 2)
}

func (s *HandlerSuite) TestMemberSeesOnlyOwnRows() {
	body := s.history(s.member, nil)
	s.Require().Len(body.Events, 2)
	for _, e := range body.Events {
		s.Equal(s.member.UserID, e.UserID)
	}

	rec := s.get(s.member, url.Values{"user_id": {s.owner.UserID.String()}})
	s.Equal(http.StatusForbidden, rec.Code)
}

func (s *HandlerSuite) TestPersonalCallerSeesOnlyPersonalRows() {
	body := s.history(s.personal, nil)
	s.Require().Len(body.Events, 1)
	s.Nil(body.Events[0].TenantID)

	rec := s.get(s.personal, url.Values{"user_id": {s.member.UserID.String()}})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerSuite) TestFilters() {
	body := s.history(s.owner, url.Values{"action": {"meals:weekly:generate"}})
	s.Len(body.Events, 2)

	body = s.history(s.owner, url.Values{"limit": {"1"}, "offset": {"1"}})
	s.Require().Len(body.Events, 1)
	s.Equal(s.member.UserID, body.Events[0].UserID)
	s.Equal("meals:weekly:generate", body.Events[0].Action)

	since := time.Date(2026, 3, 1, 12, 2, 0, 0, time.UTC)
	body = s.history(s.owner, url.Values{"since": {since.Format(time.RFC3339)}})
	s.Len(body.Events, 2)
}

func (s *HandlerSuite) TestBadQueries() {
	for _, q := range []url.Values{
		{"limit": {"ten"}},
		{"limit": {"-1"}},
		{"since": {"yesterday"}},
		{"action": {"not-an-action"}},
		{"since": {"2026-03-02T00:00:00Z"}, "until": {"2026-03-01T00:00:00Z"}},
	} {
		rec := s.get(s.owner, q)
		s.Equal(http.StatusBadRequest, rec.Code, q.Encode())
		var body httputil.ErrorResponse
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
		s.NotEmpty(body.Description)
	}
}

func (s *HandlerSuite) TestMissingSession() {
	rec := s.get(nil, nil)
	s.Equal(http.StatusUnauthorized, rec.Code)
}
