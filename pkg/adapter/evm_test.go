package adapter

import (
	"bytes"
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedrun-hq/speedrun-bridge/pkg/cctp"
	"github.com/speedrun-hq/speedrun-bridge/pkg/chains"
	"github.com/speedrun-hq/speedrun-bridge/pkg/logger"
	"github.com/speedrun-hq/speedrun-bridge/pkg/wallet"
)

type fakeBackend struct {
	mu sync.Mutex

	erc20       abi.ABI
	allowance   *big.Int
	gasPrice    *big.Int
	estimateErr error
	replayErr   error
	status      uint64
	noReceipt   bool
	sent        []*types.Transaction
}

func newFakeBackend(t *testing.T) *fakeBackend {
	parsed, err := abi.JSON(bytes.NewReader([]byte(ERC20ABI)))
	require.NoError(t, err)
	return &fakeBackend{
		erc20:     parsed,
		allowance: big.NewInt(0),
		gasPrice:  big.NewInt(10_000_000_000),
		status:    types.ReceiptStatusSuccessful,
	}
}

func (b *fakeBackend) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x60}, nil
}

func (b *fakeBackend) CallContract(_ context.Context, call ethereum.CallMsg, _ *big.Int) ([]byte, error) {
	method := b.erc20.Methods["allowance"]
	if len(call.Data) >= 4 && bytes.Equal(call.Data[:4], method.ID) {
		return method.Outputs.Pack(b.allowance)
	}
	return nil, b.replayErr
}

func (b *fakeBackend) HeaderByNumber(context.Context, *big.Int) (*types.Header, error) {
	return &types.Header{Number: big.NewInt(10), BaseFee: big.NewInt(1)}, nil
}

func (b *fakeBackend) PendingCodeAt(context.Context, common.Address) ([]byte, error) {
	return []byte{0x60}, nil
}

func (b *fakeBackend) PendingNonceAt(context.Context, common.Address) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return uint64(len(b.sent)), nil
}

func (b *fakeBackend) SuggestGasPrice(context.Context) (*big.Int, error) {
	return b.gasPrice, nil
}

func (b *fakeBackend) SuggestGasTipCap(context.Context) (*big.Int, error) {
	return big.NewInt(1), nil
}

func (b *fakeBackend) EstimateGas(context.Context, ethereum.CallMsg) (uint64, error) {
	if b.estimateErr != nil {
		return 0, b.estimateErr
	}
	return 100_000, nil
}

func (b *fakeBackend) SendTransaction(_ context.Context, tx *types.Transaction) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, tx)
	return nil
}

func (b *fakeBackend) FilterLogs(context.Context, ethereum.FilterQuery) ([]types.Log, error) {
	return nil, nil
}

func (b *fakeBackend) SubscribeFilterLogs(context.Context, ethereum.FilterQuery, chan<- types.Log) (ethereum.Subscription, error) {
	return nil, errors.New("subscriptions not supported")
}

func (b *fakeBackend) TransactionReceipt(_ context.Context, hash common.Hash) (*types.Receipt, error) {
	if b.noReceipt {
		return nil, ethereum.NotFound
	}
	return &types.Receipt{
		Status:      b.status,
		TxHash:      hash,
		BlockNumber: big.NewInt(10),
		GasUsed:     21_000,
	}, nil
}

func (b *fakeBackend) ChainID(context.Context) (*big.Int, error) {
	return big.NewInt(8453), nil
}

func testEVMChain() chains.ChainDescriptor {
	return chains.ChainDescriptor{
		ID:                 "base",
		Name:               "Base",
		Category:           chains.CategoryEVM,
		Domain:             chains.DomainBase,
		NetworkID:          8453,
		TokenMessenger:     "0x1682Ae6375C4E4A97e4B583BC394c861A46D8962",
		MessageTransmitter: "0xAD09780d193884d503182aD4588450C416D6F9D4",
		USDC:               "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		RPCEndpoint:        "http://localhost:8545",
		Decimals:           6,
	}
}

func newTestEVMAdapter(t *testing.T, backend *fakeBackend, withSigner bool) *EVMAdapter {
	var signer wallet.EVMSigner
	if withSigner {
		key, err := crypto.GenerateKey()
		require.NoError(t, err)
		signer = wallet.NewEVMSignerFromKey(key)
	}
	opts := DefaultOptions()
	opts.GasMultiplier = 1.5
	opts.MintTimeoutEVM = 50 * time.Millisecond
	a, err := NewEVMAdapter(testEVMChain(), backend, signer, opts, &logger.EmptyLogger{})
	require.NoError(t, err)
	return a
}

func TestEVMAddress(t *testing.T) {
	backend := newFakeBackend(t)

	_, err := newTestEVMAdapter(t, backend, false).Address()
	assert.ErrorIs(t, err, ErrWalletNotConnected)

	addr, err := newTestEVMAdapter(t, backend, true).Address()
	require.NoError(t, err)
	assert.True(t, common.IsHexAddress(addr))
}

func TestEVMEncodeRecipient(t *testing.T) {
	a := newTestEVMAdapter(t, newFakeBackend(t), false)

	encoded, err := a.EncodeRecipient("0x1111111111111111111111111111111111111111")
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x1111111111111111111111111111111111111111"), encoded.EVMAddress())

	_, err = a.EncodeRecipient("9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM")
	assert.ErrorIs(t, err, ErrInvalidRecipient)
}

func TestEVMBuildApprove(t *testing.T) {
	backend := newFakeBackend(t)
	a := newTestEVMAdapter(t, backend, true)
	ctx := context.Background()

	t.Run("allowance covers amount", func(t *testing.T) {
		backend.allowance = big.NewInt(5_000_000)
		tx, err := a.BuildApprove(ctx, big.NewInt(5_000_000))
		require.NoError(t, err)
		assert.Nil(t, tx)
	})

	t.Run("allowance too low", func(t *testing.T) {
		backend.allowance = big.NewInt(1)
		tx, err := a.BuildApprove(ctx, big.NewInt(5_000_000))
		require.NoError(t, err)
		require.NotNil(t, tx)
		assert.Equal(t, TxApprove, tx.Kind)
		assert.Equal(t, common.HexToAddress(testEVMChain().USDC), tx.EVM.To)

		args, err := a.erc20.Methods["approve"].Inputs.Unpack(tx.EVM.Data[4:])
		require.NoError(t, err)
		assert.Equal(t, common.HexToAddress(testEVMChain().TokenMessenger), args[0])
		assert.Equal(t, big.NewInt(5_000_000), args[1])
	})
}

func TestEVMBuildBurnAndMint(t *testing.T) {
	a := newTestEVMAdapter(t, newFakeBackend(t), true)
	ctx := context.Background()

	recipient := cctp.AddressToBytes32(common.HexToAddress("0x2222222222222222222222222222222222222222"))
	tx, err := a.BuildBurn(ctx, BurnTarget{Domain: chains.DomainArbitrum, MintRecipient: recipient}, big.NewInt(1_500_000))
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress(testEVMChain().TokenMessenger), tx.EVM.To)

	args, err := a.messenger.Methods["depositForBurn"].Inputs.Unpack(tx.EVM.Data[4:])
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1_500_000), args[0])
	assert.Equal(t, chains.DomainArbitrum, args[1])
	assert.Equal(t, [32]byte(recipient), args[2])
	assert.Equal(t, common.HexToAddress(testEVMChain().USDC), args[3])

	_, err = a.BuildBurn(ctx, BurnTarget{Domain: chains.DomainArbitrum}, big.NewInt(1))
	assert.ErrorIs(t, err, ErrInvalidRecipient)

	mint, err := a.BuildMint(ctx, MintInput{Message: []byte{1, 2}, Attestation: []byte{3}})
	require.NoError(t, err)
	assert.Equal(t, TxMint, mint.Kind)
	assert.Equal(t, common.HexToAddress(testEVMChain().MessageTransmitter), mint.EVM.To)

	_, err = a.BuildMint(ctx, MintInput{})
	assert.Error(t, err)
}

func TestEVMExecute(t *testing.T) {
	ctx := context.Background()
	recipient := cctp.AddressToBytes32(common.HexToAddress("0x2222222222222222222222222222222222222222"))

	t.Run("confirmed", func(t *testing.T) {
		backend := newFakeBackend(t)
		a := newTestEVMAdapter(t, backend, true)
		tx, err := a.BuildBurn(ctx, BurnTarget{Domain: chains.DomainEthereum, MintRecipient: recipient}, big.NewInt(1))
		require.NoError(t, err)

		hash, err := a.Execute(ctx, tx)
		require.NoError(t, err)
		require.Len(t, backend.sent, 1)
		assert.Equal(t, backend.sent[0].Hash().Hex(), hash)
		assert.Equal(t, big.NewInt(15_000_000_000), backend.sent[0].GasPrice())
	})

	t.Run("reverted", func(t *testing.T) {
		backend := newFakeBackend(t)
		backend.status = types.ReceiptStatusFailed
		backend.replayErr = errors.New("execution reverted: Nonce already used")
		a := newTestEVMAdapter(t, backend, true)
		tx, err := a.BuildMint(ctx, MintInput{Message: []byte{1}, Attestation: []byte{2}})
		require.NoError(t, err)

		hash, err := a.Execute(ctx, tx)
		assert.Empty(t, hash)
		var execErr *ExecutionError
		require.ErrorAs(t, err, &execErr)
		assert.Equal(t, backend.sent[0].Hash().Hex(), execErr.TxHash)
		assert.ErrorIs(t, err, ErrTransactionReverted)
		assert.Contains(t, err.Error(), "Nonce already used")
	})

	t.Run("estimation fails", func(t *testing.T) {
		backend := newFakeBackend(t)
		backend.estimateErr = errors.New("insufficient funds for gas * price + value")
		a := newTestEVMAdapter(t, backend, true)
		tx, err := a.BuildMint(ctx, MintInput{Message: []byte{1}, Attestation: []byte{2}})
		require.NoError(t, err)

		hash, err := a.Execute(ctx, tx)
		assert.Empty(t, hash)
		var execErr *ExecutionError
		assert.ErrorAs(t, err, &execErr)
		assert.Empty(t, backend.sent)
	})

	t.Run("confirmation timeout keeps hash", func(t *testing.T) {
		backend := newFakeBackend(t)
		backend.noReceipt = true
		a := newTestEVMAdapter(t, backend, true)
		tx, err := a.BuildMint(ctx, MintInput{Message: []byte{1}, Attestation: []byte{2}})
		require.NoError(t, err)

		hash, err := a.Execute(ctx, tx)
		assert.ErrorIs(t, err, ErrConfirmationTimeout)
		assert.Equal(t, backend.sent[0].Hash().Hex(), hash)
	})

	t.Run("no signer", func(t *testing.T) {
		a := newTestEVMAdapter(t, newFakeBackend(t), false)
		_, err := a.Execute(ctx, &Transaction{Kind: TxBurn, EVM: &EVMCall{}})
		assert.ErrorIs(t, err, ErrWalletNotConnected)
	})
}
