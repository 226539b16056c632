package wallet

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"

	"github.com/blocto/solana-go-sdk/types"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyedEVMSigner(t *testing.T) {
	key, err := crypto.GenerateKey()
	require.NoError(t, err)

	hexKey := hexutil.Encode(crypto.FromECDSA(key))
	signer, err := NewKeyedEVMSigner(hexKey)
	require.NoError(t, err)
	assert.Equal(t, crypto.PubkeyToAddress(key.PublicKey), signer.Address())

	ctx := context.Background()
	auth, err := signer.Transactor(ctx, big.NewInt(8453))
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), auth.From)
	assert.Equal(t, ctx, auth.Context)

	_, err = NewKeyedEVMSigner("not-a-key")
	assert.Error(t, err)
}

func TestKeypairSolanaSigner(t *testing.T) {
	account := types.NewAccount()

	t.Run("base58 secret", func(t *testing.T) {
		signer, err := NewKeypairSolanaSigner(base58.Encode(account.PrivateKey))
		require.NoError(t, err)
		assert.Equal(t, account.PublicKey, signer.PublicKey())

		sig, err := signer.Sign([]byte("message"))
		require.NoError(t, err)
		assert.Equal(t, account.Sign([]byte("message")), sig)
	})

	t.Run("json byte array", func(t *testing.T) {
		ints := make([]int, len(account.PrivateKey))
		for i, b := range account.PrivateKey {
			ints[i] = int(b)
		}
		encoded, err := json.Marshal(ints)
		require.NoError(t, err)

		signer, err := NewKeypairSolanaSigner(string(encoded))
		require.NoError(t, err)
		assert.Equal(t, account.PublicKey, signer.PublicKey())
	})

	t.Run("wrong length", func(t *testing.T) {
		_, err := NewKeypairSolanaSigner(base58.Encode([]byte{1, 2, 3}))
		assert.Error(t, err)
	})

	t.Run("byte out of range", func(t *testing.T) {
		_, err := NewKeypairSolanaSigner("[256]")
		assert.Error(t, err)
	})
}
