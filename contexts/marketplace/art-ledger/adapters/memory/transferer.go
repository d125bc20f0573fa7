package memory

import (
	"context"
	"sync"

	"atelier/contexts/marketplace/art-ledger/domain/entities"
)

// Transferer records executed transfers in process. Repeating a transfer id is
// a no-op, matching what a real settlement rail does with its dedupe key.
type Transferer struct {
	mu       sync.Mutex
	executed []entities.Transfer
	seen     map[string]struct{}
	fail     map[string]error
}

func NewTransferer() *Transferer {
	return &Transferer{
		seen: make(map[string]struct{}),
		fail: make(map[string]error),
	}
}

func (t *Transferer) Transfer(_ context.Context, transfer entities.Transfer) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err, ok := t.fail[transfer.Recipient]; ok {
		return err
	}
	if _, ok := t.seen[transfer.TransferID]; ok {
		return nil
	}
	t.seen[transfer.TransferID] = struct{}{}
	t.executed = append(t.executed, transfer)
	return nil
}

// FailFor makes every transfer to recipient fail with err until cleared with
// a nil error.
func (t *Transferer) FailFor(recipient string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err == nil {
		delete(t.fail, recipient)
		return
	}
	t.fail[recipient] = err
}

func (t *Transferer) Executed() []entities.Transfer {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]entities.Transfer(nil), t.executed...)
}
