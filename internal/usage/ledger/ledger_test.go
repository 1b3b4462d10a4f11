package ledger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"hearth/internal/usage/metrics"
	"hearth/internal/usage/models"
	"hearth/internal/usage/store"
	id "hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
)

type failingAppender struct{ err error }

func (f failingAppender) Append(context.Context, *models.UsageEvent) error { return f.err }

type countingAppender struct {
	store.Appender
	calls int
}

func (c *countingAppender) Append(ctx context.Context, e *models.UsageEvent) error {
	c.calls++
	return c.Appender.Append(ctx, e)
}

type LedgerSuite struct {
	suite.Suite
	mem     *store.InMemory
	counter *countingAppender
	metrics *metrics.Metrics
	ledger  *Ledger
	now     time.Time
	user    id.UserID
	tenant  id.TenantID
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerSuite))
}

func (s *LedgerSuite) SetupTest() {
	s.mem = store.NewInMemory()
	s.counter = &countingAppender{Appender: s.mem}
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.now = time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	s.ledger = New(s.counter, s.mem, WithMetrics(s.metrics), WithClock(func() time.Time { return s.now }))
	s.user = id.UserID(uuid.New())
	s.tenant = id.TenantID(uuid.New())
}

func (s *LedgerSuite) TestAppend() {
	ctx := context.Background()

	s.Run("computes total and persists", func() {
		ev, err := s.ledger.Append(ctx, models.Entry{
			Action: "meals:plan:generate", TenantID: s.tenant.Ref(), UserID: s.user,
			ModuleID: "meals", TokensInput: 150, TokensOutput: 75, Units: 1, DurationMs: 12,
		})
		s.Require().NoError(err)
		s.Equal(int64(225), ev.TokensTotal())
		s.Equal(s.now, ev.CreatedAt)
		s.False(ev.ID.IsNil())
		s.Equal(1.0, testutil.ToFloat64(s.metrics.EventsAppended.WithLabelValues("meals")))
	})

	s.Run("malformed action never reaches storage", func() {
		before := s.counter.calls
		_, err := s.ledger.Append(ctx, models.Entry{Action: "meals.plan", UserID: s.user})
		s.Require().Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal(before, s.counter.calls)
	})
}

func (s *LedgerSuite) TestAppendStorageFailure() {
	l := New(failingAppender{err: errors.New("connection reset")}, s.mem, WithMetrics(s.metrics))
	_, err := l.Append(context.Background(), models.Entry{Action: "meals:plan:generate", UserID: s.user})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodePersistence))
	s.Equal(1.0, testutil.ToFloat64(s.metrics.AppendFailures))
}

func (s *LedgerSuite) TestHistory() {
	ctx := context.Background()
	_, err := s.ledger.Append(ctx, models.Entry{Action: "meals:plan:generate", UserID: s.user})
	s.Require().NoError(err)
	_, err = s.ledger.Append(ctx, models.Entry{Action: "meals:plan:generate", TenantID: s.tenant.Ref(), UserID: s.user})
	s.Require().NoError(err)

	s.Run("personal events retrievable by user alone", func() {
		got, err := s.ledger.History(ctx, models.PersonalScope(s.user), models.Query{})
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.Nil(got[0].TenantID)
	})

	s.Run("personal events never in tenant scope", func() {
		got, err := s.ledger.History(ctx, models.TenantScope(s.tenant), models.Query{})
		s.Require().NoError(err)
		s.Require().Len(got, 1)
		s.NotNil(got[0].TenantID)
	})

	s.Run("empty scope is rejected", func() {
		_, err := s.ledger.History(ctx, models.Scope{}, models.Query{})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("invalid query is rejected", func() {
		_, err := s.ledger.History(ctx, models.PersonalScope(s.user), models.Query{Limit: -1})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}
