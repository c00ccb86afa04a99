package taskreg

import (
	"context"
	"sync/atomic"
)

// Steps counts progress events for one task. Each call to Next returns the
// next integer in sequence and forwards it to the emit callback.
type Steps struct {
	n    atomic.Int64
	emit func(ctx context.Context, step int)
}

func NewSteps(emit func(ctx context.Context, step int)) *Steps {
	return &Steps{emit: emit}
}

func (s *Steps) Next(ctx context.Context) int {
	step := int(s.n.Add(1))
	if s.emit != nil {
		s.emit(ctx, step)
	}
	return step
}

func (s *Steps) Count() int {
	return int(s.n.Load())
}
