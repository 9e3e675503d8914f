// SPDX-License-Identifier: MPL-2.0

package workload

import (
	"context"

	"github.com/sourcegraph/conc/pool"
)

// All returns a run routine that runs every routine concurrently. The first
// failure cancels the others, and All returns that first error once every
// routine has exited. Nil routines are skipped.
func All(routines ...func(ctx context.Context) error) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()
		for _, r := range routines {
			if r == nil {
				continue
			}
			p.Go(r)
		}
		return p.Wait()
	}
}
