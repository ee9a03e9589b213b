package service

import "context"

type testTxRepos struct {
	chat ChatRepositoryInterface
}

func (t *testTxRepos) Chat() ChatRepositoryInterface {
	return t.chat
}

// testTxRunner runs fn inline. commitErr simulates a failed commit after fn succeeds.
type testTxRunner struct {
	repos      TxRepositories
	commitErr  error
	called     bool
	rolledBack bool
}

func (t *testTxRunner) WithTx(ctx context.Context, fn func(repos TxRepositories) error) error {
	t.called = true
	if err := fn(t.repos); err != nil {
		t.rolledBack = true
		return err
	}
	if t.commitErr != nil {
		t.rolledBack = true
		return t.commitErr
	}
	return nil
}
