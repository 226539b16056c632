package adapter

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/speedrun-hq/speedrun-bridge/pkg/cctp"
	"github.com/speedrun-hq/speedrun-bridge/pkg/chains"
	"github.com/speedrun-hq/speedrun-bridge/pkg/logger"
	"github.com/speedrun-hq/speedrun-bridge/pkg/wallet"
)

// EVMBackend is the chain access the EVM adapter needs, satisfied by *ethclient.Client
type EVMBackend interface {
	bind.ContractBackend
	bind.DeployBackend
	ChainID(ctx context.Context) (*big.Int, error)
}

// EVMAdapter executes CCTP transactions on an EVM chain
type EVMAdapter struct {
	desc    chains.ChainDescriptor
	backend EVMBackend
	signer  wallet.EVMSigner
	opts    Options
	logger  logger.Logger
	closer  func()
	nonces  *nonceTracker

	erc20       abi.ABI
	messenger   abi.ABI
	transmitter abi.ABI
}

var _ Adapter = (*EVMAdapter)(nil)

// DialEVM connects to the descriptor's RPC endpoint
func DialEVM(
	ctx context.Context,
	desc chains.ChainDescriptor,
	signer wallet.EVMSigner,
	opts Options,
	log logger.Logger,
) (*EVMAdapter, error) {
	client, err := ethclient.DialContext(ctx, desc.RPCEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to client: %v", err)
	}

	a, err := NewEVMAdapter(desc, client, signer, opts, log)
	if err != nil {
		client.Close()
		return nil, err
	}
	a.closer = client.Close
	return a, nil
}

// NewEVMAdapter creates an adapter over an existing backend
func NewEVMAdapter(
	desc chains.ChainDescriptor,
	backend EVMBackend,
	signer wallet.EVMSigner,
	opts Options,
	log logger.Logger,
) (*EVMAdapter, error) {
	erc20, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %v", err)
	}
	messenger, err := abi.JSON(strings.NewReader(TokenMessengerABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse TokenMessenger ABI: %v", err)
	}
	transmitter, err := abi.JSON(strings.NewReader(MessageTransmitterABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse MessageTransmitter ABI: %v", err)
	}

	if log == nil {
		log = &logger.EmptyLogger{}
	}

	return &EVMAdapter{
		desc:        desc,
		backend:     backend,
		signer:      signer,
		opts:        opts,
		logger:      log,
		nonces:      newNonceTracker(),
		erc20:       erc20,
		messenger:   messenger,
		transmitter: transmitter,
	}, nil
}

func (a *EVMAdapter) Address() (string, error) {
	if a.signer == nil {
		return "", ErrWalletNotConnected
	}
	return a.signer.Address().Hex(), nil
}

func (a *EVMAdapter) EncodeRecipient(addr string) (cctp.Bytes32, error) {
	addr = strings.TrimSpace(addr)
	if !common.IsHexAddress(addr) {
		return cctp.Bytes32{}, fmt.Errorf("%w: %q is not an EVM address", ErrInvalidRecipient, addr)
	}
	return cctp.AddressToBytes32(common.HexToAddress(addr)), nil
}

// BuildApprove reads the current allowance of the token messenger and only
// approves when it does not cover amount
func (a *EVMAdapter) BuildApprove(ctx context.Context, amount *big.Int) (*Transaction, error) {
	if a.signer == nil {
		return nil, ErrWalletNotConnected
	}
	owner := a.signer.Address()
	token := common.HexToAddress(a.desc.USDC)
	spender := common.HexToAddress(a.desc.TokenMessenger)

	erc20Contract := bind.NewBoundContract(token, a.erc20, a.backend, a.backend, a.backend)

	var out []interface{}
	if err := erc20Contract.Call(&bind.CallOpts{Context: ctx, From: owner}, &out, "allowance", owner, spender); err != nil {
		return nil, fmt.Errorf("failed to check allowance: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty allowance result")
	}
	allowance := *abi.ConvertType(out[0], new(big.Int)).(*big.Int)

	if allowance.Cmp(amount) >= 0 {
		a.logger.DebugWithChain(string(a.desc.ID), "Allowance %s covers amount %s, skipping approval", allowance.String(), amount.String())
		return nil, nil
	}

	data, err := a.erc20.Pack("approve", spender, amount)
	if err != nil {
		return nil, fmt.Errorf("failed to pack approve: %v", err)
	}
	return a.transaction(TxApprove, token, data), nil
}

func (a *EVMAdapter) BuildBurn(_ context.Context, target BurnTarget, amount *big.Int) (*Transaction, error) {
	if target.MintRecipient.IsZero() {
		return nil, fmt.Errorf("%w: empty mint recipient", ErrInvalidRecipient)
	}
	data, err := a.messenger.Pack(
		"depositForBurn",
		amount,
		target.Domain,
		[32]byte(target.MintRecipient),
		common.HexToAddress(a.desc.USDC),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to pack depositForBurn: %v", err)
	}
	return a.transaction(TxBurn, common.HexToAddress(a.desc.TokenMessenger), data), nil
}

func (a *EVMAdapter) BuildMint(_ context.Context, input MintInput) (*Transaction, error) {
	if len(input.Message) == 0 || len(input.Attestation) == 0 {
		return nil, fmt.Errorf("message and attestation are required")
	}
	data, err := a.transmitter.Pack("receiveMessage", input.Message, input.Attestation)
	if err != nil {
		return nil, fmt.Errorf("failed to pack receiveMessage: %v", err)
	}
	return a.transaction(TxMint, common.HexToAddress(a.desc.MessageTransmitter), data), nil
}

func (a *EVMAdapter) transaction(kind TxKind, to common.Address, data []byte) *Transaction {
	return &Transaction{
		Kind:  kind,
		Chain: a.desc,
		EVM:   &EVMCall{To: to, Data: data},
	}
}

// Execute signs and sends the call, then waits for the receipt until the timeout for its kind
func (a *EVMAdapter) Execute(ctx context.Context, tx *Transaction) (string, error) {
	if a.signer == nil {
		return "", ErrWalletNotConnected
	}
	if tx == nil || tx.EVM == nil {
		return "", fmt.Errorf("not an EVM transaction")
	}
	chainID := string(a.desc.ID)

	networkID, err := a.networkID(ctx)
	if err != nil {
		return "", err
	}
	opts, err := a.signer.Transactor(ctx, networkID)
	if err != nil {
		return "", err
	}

	gasPrice, err := a.gasPrice(ctx)
	if err != nil {
		a.logger.ErrorWithChain(chainID, "Warning: failed to get gas price, using dynamic fees: %v", err)
	} else {
		opts.GasPrice = gasPrice
	}

	nonce, err := a.nonces.reserve(ctx, a.backend, opts.From)
	if err != nil {
		return "", &ExecutionError{Chain: a.desc.ID, Err: err}
	}
	opts.Nonce = new(big.Int).SetUint64(nonce)

	contract := bind.NewBoundContract(tx.EVM.To, abi.ABI{}, a.backend, a.backend, a.backend)
	signed, err := contract.RawTransact(opts, tx.EVM.Data)
	if err != nil {
		a.nonces.release(opts.From, nonce)
		return "", &ExecutionError{Chain: a.desc.ID, Err: err}
	}
	a.nonces.sent(opts.From, nonce)

	hash := signed.Hash().Hex()
	a.logger.InfoWithChain(chainID, "%s transaction sent: %s", tx.Kind, hash)

	waitCtx, cancel := context.WithTimeout(ctx, a.opts.timeoutFor(tx.Kind, a.desc.Category))
	defer cancel()

	receipt, err := bind.WaitMined(waitCtx, a.backend, signed)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			a.logger.NoticeWithChain(chainID, "%s transaction %s not confirmed in time", tx.Kind, hash)
			return hash, fmt.Errorf("%w: %s", ErrConfirmationTimeout, hash)
		}
		return hash, fmt.Errorf("failed to wait for %s transaction: %w", tx.Kind, err)
	}

	if receipt.Status == types.ReceiptStatusFailed {
		reason := a.revertReason(ctx, opts.From, signed, receipt.BlockNumber)
		a.logger.ErrorWithChain(chainID, "%s transaction %s reverted: %v", tx.Kind, hash, reason)
		return "", &ExecutionError{
			Chain:  a.desc.ID,
			TxHash: hash,
			Err:    fmt.Errorf("%w: %w", ErrTransactionReverted, reason),
		}
	}

	a.logger.InfoWithChain(chainID, "%s transaction confirmed: %s (gas used: %d)", tx.Kind, hash, receipt.GasUsed)
	return hash, nil
}

func (a *EVMAdapter) networkID(ctx context.Context) (*big.Int, error) {
	if a.desc.NetworkID != 0 {
		return big.NewInt(a.desc.NetworkID), nil
	}
	id, err := a.backend.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get chain ID: %v", err)
	}
	return id, nil
}

// gasPrice returns the suggested gas price with the configured multiplier applied
func (a *EVMAdapter) gasPrice(ctx context.Context) (*big.Int, error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	suggested, err := a.backend.SuggestGasPrice(timeoutCtx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %v", err)
	}

	multiplier := a.opts.GasMultiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	multiplied := new(big.Float).Mul(new(big.Float).SetInt(suggested), big.NewFloat(multiplier))
	final := new(big.Int)
	multiplied.Int(final)
	return final, nil
}

// revertReason replays a failed transaction at its block to recover the revert error
func (a *EVMAdapter) revertReason(ctx context.Context, from common.Address, tx *types.Transaction, block *big.Int) error {
	msg := ethereum.CallMsg{
		From:     from,
		To:       tx.To(),
		Gas:      tx.Gas(),
		GasPrice: tx.GasPrice(),
		Value:    tx.Value(),
		Data:     tx.Data(),
	}
	if _, err := a.backend.CallContract(ctx, msg, block); err != nil {
		return err
	}
	return errors.New("no revert reason")
}

func (a *EVMAdapter) Close() {
	if a.closer != nil {
		a.closer()
	}
}
