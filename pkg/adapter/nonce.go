package adapter

import (
	"context"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// nonceSource reads the next nonce from the chain, including pending transactions
type nonceSource interface {
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// nonceTracker hands out sequential nonces per account so a burn submitted right after
// an unconfirmed approval does not reuse its nonce when the node lags behind
type nonceTracker struct {
	mu      sync.Mutex
	next    map[common.Address]uint64
	pending map[common.Address]map[uint64]struct{}
}

func newNonceTracker() *nonceTracker {
	return &nonceTracker{
		next:    make(map[common.Address]uint64),
		pending: make(map[common.Address]map[uint64]struct{}),
	}
}

// reserve returns the next nonce for account, never lower than the chain's pending nonce
func (t *nonceTracker) reserve(ctx context.Context, source nonceSource, account common.Address) (uint64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	onChain, err := source.PendingNonceAt(ctx, account)
	if err != nil {
		return 0, fmt.Errorf("failed to get pending nonce: %v", err)
	}

	nonce := t.next[account]
	if onChain > nonce {
		nonce = onChain
	}
	t.next[account] = nonce + 1

	if t.pending[account] == nil {
		t.pending[account] = make(map[uint64]struct{})
	}
	t.pending[account][nonce] = struct{}{}
	return nonce, nil
}

// sent marks a reserved nonce as used by a broadcast transaction
func (t *nonceTracker) sent(account common.Address, nonce uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.pending[account], nonce)
}

// release returns a nonce whose transaction was never broadcast. It is reused only when
// it was the last one handed out and nothing else is pending.
func (t *nonceTracker) release(account common.Address, nonce uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	pending := t.pending[account]
	delete(pending, nonce)
	if len(pending) == 0 && t.next[account] == nonce+1 {
		t.next[account] = nonce
	}
}
