package tx

import "context"

type stageCtxKey struct{}

var stageKey = stageCtxKey{}

// Stage buffers writes made by collaborating in-memory stores during a
// transition callback. The memory stores have no *sql.Tx to join, so without
// buffering, a collaborator write landing before a later callback failure
// would survive the aborted transition. The memory repository opens a Stage
// around the callback and commits it only after the callback returns nil,
// matching the all-or-nothing visibility the postgres stack gets from a real
// transaction.
type Stage struct {
	fns []func() error
}

// WithStage returns a context carrying a fresh Stage for the callback to
// hand to collaborator stores.
func WithStage(ctx context.Context) (context.Context, *Stage) {
	stage := &Stage{}
	return context.WithValue(ctx, stageKey, stage), stage
}

// StageFrom extracts the Stage from context if present. Memory stores check
// this on every write and buffer instead of applying when one is open.
func StageFrom(ctx context.Context) *Stage {
	stage, _ := ctx.Value(stageKey).(*Stage)
	return stage
}

// Defer queues a write to run at Commit.
func (s *Stage) Defer(fn func() error) {
	s.fns = append(s.fns, fn)
}

// Commit applies the buffered writes in order, stopping at the first error.
func (s *Stage) Commit() error {
	for _, fn := range s.fns {
		if err := fn(); err != nil {
			return err
		}
	}
	return nil
}
