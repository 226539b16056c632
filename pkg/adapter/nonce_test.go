package adapter

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticNonces struct {
	nonce uint64
	err   error
}

func (s *staticNonces) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	return s.nonce, s.err
}

func TestNonceTracker(t *testing.T) {
	ctx := context.Background()
	account := common.HexToAddress("0x1111111111111111111111111111111111111111")
	source := &staticNonces{nonce: 7}
	tracker := newNonceTracker()

	first, err := tracker.reserve(ctx, source, account)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), first)
	tracker.sent(account, first)

	// the node has not seen the first transaction yet
	second, err := tracker.reserve(ctx, source, account)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), second)

	// a failed broadcast hands the nonce back
	tracker.release(account, second)
	again, err := tracker.reserve(ctx, source, account)
	require.NoError(t, err)
	assert.Equal(t, uint64(8), again)
	tracker.sent(account, again)

	// the chain moving ahead wins
	source.nonce = 20
	ahead, err := tracker.reserve(ctx, source, account)
	require.NoError(t, err)
	assert.Equal(t, uint64(20), ahead)
}

func TestNonceTrackerKeepsOrderWithPendingReservations(t *testing.T) {
	ctx := context.Background()
	account := common.HexToAddress("0x1111111111111111111111111111111111111111")
	tracker := newNonceTracker()
	source := &staticNonces{nonce: 3}

	a, err := tracker.reserve(ctx, source, account)
	require.NoError(t, err)
	b, err := tracker.reserve(ctx, source, account)
	require.NoError(t, err)

	// releasing an older nonce while a newer one is reserved must not rewind
	tracker.release(account, a)
	c, err := tracker.reserve(ctx, source, account)
	require.NoError(t, err)
	assert.Equal(t, b+1, c)
}

func TestNonceTrackerSourceError(t *testing.T) {
	tracker := newNonceTracker()
	_, err := tracker.reserve(context.Background(), &staticNonces{err: errors.New("connection refused")}, common.Address{})
	assert.ErrorContains(t, err, "connection refused")
}
