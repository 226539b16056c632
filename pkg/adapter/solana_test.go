package adapter

import (
	"context"
	"crypto/ed25519"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedrun-hq/speedrun-bridge/pkg/cctp"
	"github.com/speedrun-hq/speedrun-bridge/pkg/chains"
	"github.com/speedrun-hq/speedrun-bridge/pkg/logger"
	"github.com/speedrun-hq/speedrun-bridge/pkg/wallet"
)

type fakeSolanaRPC struct {
	mu sync.Mutex

	statuses []*SignatureStatus
	height   uint64
	sendErr  error
	sent     []types.Transaction
	polls    int
}

func (f *fakeSolanaRPC) LatestBlockhash(context.Context) (Blockhash, error) {
	return Blockhash{Hash: "EkSnNWid2cvwEVnVx9aBqawnmiCNiDgp3gUdkDPTKN1N", LastValidBlockHeight: 150}, nil
}

func (f *fakeSolanaRPC) SendTransaction(_ context.Context, tx types.Transaction) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return "", f.sendErr
	}
	f.sent = append(f.sent, tx)
	return base58.Encode(tx.Signatures[0]), nil
}

func (f *fakeSolanaRPC) SignatureStatus(context.Context, string) (*SignatureStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx := f.polls
	f.polls++
	if len(f.statuses) == 0 {
		return nil, nil
	}
	if idx >= len(f.statuses) {
		idx = len(f.statuses) - 1
	}
	return f.statuses[idx], nil
}

func (f *fakeSolanaRPC) BlockHeight(context.Context) (uint64, error) {
	return f.height, nil
}

func testSolanaChain() chains.ChainDescriptor {
	return chains.ChainDescriptor{
		ID:                 "solana-devnet",
		Name:               "Solana Devnet",
		Category:           chains.CategorySolana,
		Domain:             chains.DomainSolana,
		TokenMessenger:     chains.SolanaTokenMessengerMinter,
		MessageTransmitter: chains.SolanaMessageTransmitter,
		USDC:               "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU",
		RPCEndpoint:        "http://localhost:8899",
		Decimals:           6,
		Testnet:            true,
	}
}

func newTestSolanaAdapter(rpc SolanaRPC, signer wallet.SolanaSigner) *SolanaAdapter {
	opts := DefaultOptions()
	opts.PollInterval = time.Millisecond
	opts.ConfirmTimeout = 200 * time.Millisecond
	opts.MintTimeoutSolana = 200 * time.Millisecond
	return NewSolanaAdapter(testSolanaChain(), rpc, signer, opts, &logger.EmptyLogger{})
}

func TestAnchorDiscriminator(t *testing.T) {
	assert.Equal(t, []byte{215, 60, 61, 46, 114, 55, 128, 176}, anchorDiscriminator("deposit_for_burn"))
	assert.Equal(t, []byte{38, 144, 127, 225, 31, 225, 238, 25}, anchorDiscriminator("receive_message"))
}

func TestFirstNonce(t *testing.T) {
	tests := []struct {
		nonce    uint64
		expected uint64
	}{
		{nonce: 0, expected: 1},
		{nonce: 1, expected: 1},
		{nonce: 6400, expected: 1},
		{nonce: 6401, expected: 6401},
		{nonce: 20000, expected: 19201},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.expected, firstNonce(tc.nonce), "nonce %d", tc.nonce)
	}
}

func TestSolanaEncodeRecipient(t *testing.T) {
	a := newTestSolanaAdapter(&fakeSolanaRPC{}, nil)
	owner := types.NewAccount().PublicKey

	encoded, err := a.EncodeRecipient(owner.ToBase58())
	require.NoError(t, err)
	ata, _, err := common.FindAssociatedTokenAddress(owner, common.PublicKeyFromString(testSolanaChain().USDC))
	require.NoError(t, err)
	assert.Equal(t, cctp.Bytes32(ata), encoded)

	_, err = a.EncodeRecipient("0x1111111111111111111111111111111111111111")
	assert.ErrorIs(t, err, ErrInvalidRecipient)

	_, err = a.Address()
	assert.ErrorIs(t, err, ErrWalletNotConnected)
}

func TestSolanaBuildBurn(t *testing.T) {
	signer := wallet.NewSolanaSignerFromAccount(types.NewAccount())
	a := newTestSolanaAdapter(&fakeSolanaRPC{}, signer)
	ctx := context.Background()

	approve, err := a.BuildApprove(ctx, big.NewInt(1))
	require.NoError(t, err)
	assert.Nil(t, approve)

	recipient := cctp.AddressToBytes32([20]byte{0xaa})
	tx, err := a.BuildBurn(ctx, BurnTarget{Domain: chains.DomainBase, MintRecipient: recipient}, big.NewInt(2_500_000))
	require.NoError(t, err)
	require.NotNil(t, tx.Solana)
	require.Len(t, tx.Solana.Instructions, 1)
	require.Len(t, tx.Solana.Signers, 1)

	ix := tx.Solana.Instructions[0]
	assert.Equal(t, common.PublicKeyFromString(chains.SolanaTokenMessengerMinter), ix.ProgramID)
	require.Len(t, ix.Accounts, 17)
	assert.Equal(t, signer.PublicKey(), ix.Accounts[0].PubKey)
	assert.Equal(t, tx.Solana.Signers[0].PublicKey, ix.Accounts[10].PubKey)
	assert.True(t, ix.Accounts[10].IsSigner)

	// discriminator, amount u64, domain u32, recipient
	require.Len(t, ix.Data, 8+8+4+32)
	assert.Equal(t, anchorDiscriminator("deposit_for_burn"), ix.Data[:8])
	assert.Equal(t, []byte{0xa0, 0x25, 0x26, 0, 0, 0, 0, 0}, ix.Data[8:16])
	assert.Equal(t, []byte{6, 0, 0, 0}, ix.Data[16:20])
	assert.Equal(t, recipient[:], ix.Data[20:])

	tooLarge := new(big.Int).Lsh(big.NewInt(1), 64)
	_, err = a.BuildBurn(ctx, BurnTarget{Domain: chains.DomainBase, MintRecipient: recipient}, tooLarge)
	assert.Error(t, err)
}

func testBurnMessage(t *testing.T, recipient cctp.Bytes32) []byte {
	body := (&cctp.BurnMessage{
		BurnToken:     cctp.AddressToBytes32([20]byte{0x83}),
		MintRecipient: recipient,
		Amount:        big.NewInt(1_000_000),
		MessageSender: cctp.AddressToBytes32([20]byte{0x11}),
	}).Encode()
	msg := &cctp.Message{
		SourceDomain:      chains.DomainBase,
		DestinationDomain: chains.DomainSolana,
		Nonce:             6401,
		Body:              body,
	}
	return msg.Encode()
}

func TestSolanaBuildMint(t *testing.T) {
	signer := wallet.NewSolanaSignerFromAccount(types.NewAccount())
	a := newTestSolanaAdapter(&fakeSolanaRPC{}, signer)
	ctx := context.Background()

	owner := types.NewAccount().PublicKey
	recipient, err := a.EncodeRecipient(owner.ToBase58())
	require.NoError(t, err)
	raw := testBurnMessage(t, recipient)

	t.Run("recovery without owner", func(t *testing.T) {
		tx, err := a.BuildMint(ctx, MintInput{Message: raw, Attestation: []byte{1, 2, 3}, Recipient: recipient})
		require.NoError(t, err)
		require.Len(t, tx.Solana.Instructions, 1)

		ix := tx.Solana.Instructions[0]
		assert.Equal(t, common.PublicKeyFromString(chains.SolanaMessageTransmitter), ix.ProgramID)
		require.Len(t, ix.Accounts, 19)
		assert.Equal(t, common.PublicKey(recipient), ix.Accounts[14].PubKey)
		assert.Equal(t, anchorDiscriminator("receive_message"), ix.Data[:8])

		usedNonces, err := findPDA(
			common.PublicKeyFromString(chains.SolanaMessageTransmitter),
			[]byte("used_nonces"), []byte("6"), []byte("6401"),
		)
		require.NoError(t, err)
		assert.Equal(t, usedNonces, ix.Accounts[4].PubKey)
	})

	t.Run("creates recipient token account", func(t *testing.T) {
		tx, err := a.BuildMint(ctx, MintInput{
			Message:        raw,
			Attestation:    []byte{1},
			Recipient:      recipient,
			RecipientOwner: owner.ToBase58(),
		})
		require.NoError(t, err)
		require.Len(t, tx.Solana.Instructions, 2)
		assert.Equal(t, common.SPLAssociatedTokenAccountProgramID, tx.Solana.Instructions[0].ProgramID)
		assert.Equal(t, common.PublicKey(recipient), tx.Solana.Instructions[0].Accounts[1].PubKey)
	})

	t.Run("malformed message", func(t *testing.T) {
		_, err := a.BuildMint(ctx, MintInput{Message: []byte{1, 2}, Attestation: []byte{1}})
		assert.ErrorIs(t, err, cctp.ErrMessageTooShort)
	})
}

func TestSolanaExecute(t *testing.T) {
	ctx := context.Background()
	account := types.NewAccount()
	signer := wallet.NewSolanaSignerFromAccount(account)
	recipient := cctp.AddressToBytes32([20]byte{0xaa})

	build := func(t *testing.T, a *SolanaAdapter) *Transaction {
		tx, err := a.BuildBurn(ctx, BurnTarget{Domain: chains.DomainBase, MintRecipient: recipient}, big.NewInt(1))
		require.NoError(t, err)
		return tx
	}

	t.Run("confirmed", func(t *testing.T) {
		rpc := &fakeSolanaRPC{statuses: []*SignatureStatus{nil, {Confirmed: false}, {Confirmed: true}}}
		a := newTestSolanaAdapter(rpc, signer)

		sig, err := a.Execute(ctx, build(t, a))
		require.NoError(t, err)
		require.Len(t, rpc.sent, 1)

		sent := rpc.sent[0]
		assert.Equal(t, base58.Encode(sent.Signatures[0]), sig)
		require.Len(t, sent.Signatures, 2)

		serialized, err := sent.Message.Serialize()
		require.NoError(t, err)
		for i, sigBytes := range sent.Signatures {
			key := sent.Message.Accounts[i]
			assert.True(t, ed25519.Verify(key[:], serialized, sigBytes), "signature %d", i)
		}
	})

	t.Run("blockhash expired", func(t *testing.T) {
		rpc := &fakeSolanaRPC{height: 151}
		a := newTestSolanaAdapter(rpc, signer)

		sig, err := a.Execute(ctx, build(t, a))
		assert.ErrorIs(t, err, ErrSignatureExpired)
		assert.Empty(t, sig)
	})

	t.Run("failed on chain", func(t *testing.T) {
		rpc := &fakeSolanaRPC{statuses: []*SignatureStatus{{Err: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}}}}
		a := newTestSolanaAdapter(rpc, signer)

		sig, err := a.Execute(ctx, build(t, a))
		assert.Empty(t, sig)
		var execErr *ExecutionError
		require.ErrorAs(t, err, &execErr)
		assert.NotEmpty(t, execErr.TxHash)
		assert.ErrorIs(t, err, ErrTransactionReverted)
	})

	t.Run("not confirmed in time", func(t *testing.T) {
		rpc := &fakeSolanaRPC{statuses: []*SignatureStatus{{Confirmed: false}}}
		a := newTestSolanaAdapter(rpc, signer)

		sig, err := a.Execute(ctx, build(t, a))
		assert.ErrorIs(t, err, ErrConfirmationTimeout)
		assert.NotEmpty(t, sig)
	})

	t.Run("send rejected", func(t *testing.T) {
		rpc := &fakeSolanaRPC{sendErr: errors.New("Transaction simulation failed: insufficient lamports")}
		a := newTestSolanaAdapter(rpc, signer)

		sig, err := a.Execute(ctx, build(t, a))
		assert.Empty(t, sig)
		var execErr *ExecutionError
		assert.ErrorAs(t, err, &execErr)
	})
}
