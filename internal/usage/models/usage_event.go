package models

import (
	"regexp"
	"time"

	id "hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
)

// actionPattern is module:domain:verb.
var actionPattern = regexp.MustCompile(`^[a-z0-9_-]+:[a-z0-9_-]+:[a-z0-9_-]+$`)

// ValidateAction rejects action strings that are not module:domain:verb.
func ValidateAction(action string) error {
	if !actionPattern.MatchString(action) {
		return dErrors.New(dErrors.CodeValidation, "action must match module:domain:verb")
	}
	return nil
}

// Entry is the caller-supplied part of a usage event. The ledger assigns the
// id and timestamp and derives the token total.
type Entry struct {
	Action       string
	TenantID     id.TenantRef
	UserID       id.UserID
	ModuleID     id.ModuleID
	TokensInput  int64
	TokensOutput int64
	Units        int64
	DurationMs   int64
	Metadata     id.Settings
}

// UsageEvent is one immutable ledger record. There is no total field:
// TokensTotal is always computed from the two token counts.
type UsageEvent struct {
	ID           id.UsageEventID
	Action       string
	TenantID     id.TenantRef
	UserID       id.UserID
	ModuleID     id.ModuleID
	TokensInput  int64
	TokensOutput int64
	Units        int64
	DurationMs   int64
	Metadata     id.Settings
	CreatedAt    time.Time
}

// NewUsageEvent validates e and stamps it. Failures carry CodeValidation.
func NewUsageEvent(eventID id.UsageEventID, e Entry, now time.Time) (*UsageEvent, error) {
	if err := ValidateAction(e.Action); err != nil {
		return nil, err
	}
	if e.UserID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "user id is required")
	}
	if !e.ModuleID.IsNil() {
		if _, err := id.ParseModuleID(string(e.ModuleID)); err != nil {
			return nil, dErrors.New(dErrors.CodeValidation, "invalid module id")
		}
	}
	if e.TokensInput < 0 || e.TokensOutput < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "token counts must be >= 0")
	}
	if e.Units < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "units must be >= 0")
	}
	if e.DurationMs < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "duration must be >= 0")
	}

	var tenant id.TenantRef
	if e.TenantID != nil {
		tenant = e.TenantID.Ref()
	}
	return &UsageEvent{
		ID:           eventID,
		Action:       e.Action,
		TenantID:     tenant,
		UserID:       e.UserID,
		ModuleID:     e.ModuleID,
		TokensInput:  e.TokensInput,
		TokensOutput: e.TokensOutput,
		Units:        e.Units,
		DurationMs:   e.DurationMs,
		Metadata:     e.Metadata.Clone(),
		CreatedAt:    now,
	}, nil
}

func (e *UsageEvent) TokensTotal() int64 {
	return e.TokensInput + e.TokensOutput
}

// IsPersonal reports whether the event belongs to no tenant.
func (e *UsageEvent) IsPersonal() bool {
	return e.TenantID == nil
}

// Clone returns a deep copy safe to hand out of a store.
func (e *UsageEvent) Clone() *UsageEvent {
	out := *e
	if e.TenantID != nil {
		out.TenantID = e.TenantID.Ref()
	}
	out.Metadata = e.Metadata.Clone()
	return &out
}
