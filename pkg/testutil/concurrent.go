package testutil

import (
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"

	"hearth/internal/sentinel"
	dErrors "hearth/pkg/domain-errors"
)

// ConcurrentResult buckets the outcomes of one RunConcurrent call. Failures
// are classified by store sentinel or domain code; everything else lands in
// Other. Errs keeps every failure in completion order.
type ConcurrentResult struct {
	Successes int32
	Conflicts int32
	NotFounds int32
	Other     int32
	Errs      []error
}

// Failures is the number of calls that returned an error.
func (r *ConcurrentResult) Failures() int32 {
	return r.Conflicts + r.NotFounds + r.Other
}

// RunConcurrent starts n goroutines that all call fn at the same moment and
// waits for them to finish.
func RunConcurrent(n int, fn func(idx int) error) *ConcurrentResult {
	var (
		g     errgroup.Group
		mu    sync.Mutex
		start = make(chan struct{})
		res   = &ConcurrentResult{}
	)

	for i := range n {
		g.Go(func() error {
			<-start
			err := fn(i)

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				res.Successes++
				return nil
			case errors.Is(err, sentinel.ErrAlreadyUsed), dErrors.HasCode(err, dErrors.CodeConflict):
				res.Conflicts++
			case errors.Is(err, sentinel.ErrNotFound), dErrors.HasCode(err, dErrors.CodeNotFound):
				res.NotFounds++
			default:
				res.Other++
			}
			res.Errs = append(res.Errs, err)
			return nil
		})
	}

	close(start)
	_ = g.Wait()
	return res
}
