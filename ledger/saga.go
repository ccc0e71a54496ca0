/*
saga.go - Ordered wallet writes with a completion log

PURPOSE:
  The store offers no cross-document transactions, so multi-wallet
  mutations (revert-and-apply, delete-then-remove-row) run as explicit
  ordered steps. Each step's completion is recorded; when a later step
  fails the resulting SagaError names the failed step and every step
  that had already committed, so the caller knows exactly which side of
  the ledger is stale instead of re-deriving it from wallet state.

  There is deliberately no automatic rollback. Compensations would need
  the same non-transactional writes that just failed; the engine
  documents which side wins in each partial-failure case instead.

SEE ALSO:
  - engine.go: Builds and runs sagas
  - errors.go: SagaError
*/
package ledger

import "context"

type sagaStep struct {
	name   string
	commit func(ctx context.Context) error
}

// walletSaga executes steps in order, stopping at the first failure.
type walletSaga struct {
	steps []sagaStep
	done  []string
}

func newWalletSaga() *walletSaga {
	return &walletSaga{}
}

func (s *walletSaga) add(name string, commit func(ctx context.Context) error) {
	s.steps = append(s.steps, sagaStep{name: name, commit: commit})
}

func (s *walletSaga) run(ctx context.Context) error {
	for _, step := range s.steps {
		if err := step.commit(ctx); err != nil {
			return &SagaError{
				Step:      step.name,
				Completed: append([]string(nil), s.done...),
				Err:       err,
			}
		}
		s.done = append(s.done, step.name)
	}
	return nil
}
