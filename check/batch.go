package check

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Outcome is the result or failure of one request of a batch.
type Outcome struct {
	Request Request `json:"request"`
	Result  *Result `json:"result,omitempty"`
	Err     error   `json:"-"`
	Error   string  `json:"error,omitempty"`
}

// CheckURLs runs reqs with at most parallelism checks in flight. Each
// check is independent: a failure is recorded in its Outcome and does not
// stop the others. Outcomes keep the order of reqs.
func (c *Checker) CheckURLs(ctx context.Context, reqs []Request, parallelism int) []Outcome {
	if parallelism <= 0 {
		parallelism = 1
	}
	out := make([]Outcome, len(reqs))
	var g errgroup.Group
	g.SetLimit(parallelism)
	for i, req := range reqs {
		g.Go(func() error {
			out[i].Request = req
			if err := ctx.Err(); err != nil {
				out[i].Err, out[i].Error = err, err.Error()
				return nil
			}
			res, err := c.CheckURL(ctx, req)
			out[i].Result = res
			if err != nil {
				out[i].Err, out[i].Error = err, err.Error()
			}
			return nil
		})
	}
	g.Wait()
	return out
}
