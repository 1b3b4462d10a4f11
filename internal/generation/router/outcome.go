package router

import (
	"encoding/json"
	"math"

	id "hearth/pkg/domain"
)

// Usage is the metering attached to every outcome; it equals what was
// written to the ledger.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
	TotalTokens      int64
	DurationMs       int64
	Units            int64
}

// Outcome is either Succeeded or Failed.
type Outcome interface {
	outcome()
}

// Succeeded carries schema-conforming output.
type Succeeded struct {
	Data  json.RawMessage
	Usage Usage
}

// Failed carries a domain error. Token counts and units are always zero.
type Failed struct {
	Err   error
	Usage Usage
}

func (Succeeded) outcome() {}
func (Failed) outcome()    {}

// UsageOf returns the usage of either variant.
func UsageOf(o Outcome) Usage {
	switch v := o.(type) {
	case Succeeded:
		return v.Usage
	case Failed:
		return v.Usage
	default:
		return Usage{}
	}
}

// CostFunc converts tokens consumed by a module into billable units.
type CostFunc func(tokens int64, module id.ModuleID) int64

// PerThousandTokens charges rate units per started block of 1000 tokens.
func PerThousandTokens(rate int64) CostFunc {
	return func(tokens int64, _ id.ModuleID) int64 {
		if tokens <= 0 || rate <= 0 {
			return 0
		}
		blocks := (tokens + 999) / 1000
		if blocks > math.MaxInt64/rate {
			return math.MaxInt64
		}
		return blocks * rate
	}
}
