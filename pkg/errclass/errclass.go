// Package errclass maps chain and wallet errors onto the outcomes the orchestrator acts on.
//
// Structured information is checked first: sentinel errors, go-ethereum JSON-RPC codes and
// revert data, Solana JSON-RPC errors and simulation logs. Matching on error text is the
// fallback for transports that only return a message.
package errclass

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	ethrpc "github.com/ethereum/go-ethereum/rpc"

	"github.com/speedrun-hq/speedrun-bridge/pkg/adapter"
	"github.com/speedrun-hq/speedrun-bridge/pkg/chains"
)

// Class is one member of the error taxonomy
type Class int

const (
	Genuine Class = iota
	AmbiguousExpiry
	AlreadyRedeemed
	Timeout
	UserRejected
	InsufficientFunds
	ConnectionLost
)

func (c Class) String() string {
	switch c {
	case AmbiguousExpiry:
		return "ambiguous_expiry"
	case AlreadyRedeemed:
		return "already_redeemed"
	case Timeout:
		return "timeout"
	case UserRejected:
		return "user_rejected"
	case InsufficientFunds:
		return "insufficient_funds"
	case ConnectionLost:
		return "connection_lost"
	default:
		return "genuine"
	}
}

// EIP-1193 code returned by wallets when the user declines a request
const codeUserRejected = 4001

// Solana JSON-RPC code for a failed preflight simulation
const codeSendTransactionPreflightFailure = -32002

var (
	alreadyRedeemedPatterns = []string{
		"nonce already used",
		"noncealreadyused",
		"already in use",
	}
	expiryPatterns = []string{
		"block height exceeded",
		"blockheight exceeded",
		"blockhash not found",
		"signature has expired",
		"transactionexpired",
	}
	userRejectedPatterns = []string{
		"user rejected",
		"user denied",
		"rejected the request",
	}
	insufficientFundsPatterns = []string{
		"insufficient funds",
		"insufficient lamports",
		"insufficient balance",
		"no record of a prior credit",
	}
	timeoutPatterns = []string{
		"timeout",
		"timed out",
		"deadline exceeded",
	}
	connectionPatterns = []string{
		"connection refused",
		"connection reset",
		"no such host",
		"websocket",
		"network error",
		"no response",
	}
)

// Classify returns the taxonomy member for err. A nil error is Genuine.
func Classify(err error) Class {
	if err == nil {
		return Genuine
	}
	if class, ok := classifyStructured(err); ok {
		return class
	}
	return classifyText(err.Error(), Logs(err))
}

func classifyStructured(err error) (Class, bool) {
	// revert reasons and program logs are more specific than the surrounding sentinel
	if reason, ok := revertReason(err); ok {
		if matchAny(strings.ToLower(reason), alreadyRedeemedPatterns) {
			return AlreadyRedeemed, true
		}
	}
	if logs := Logs(err); len(logs) > 0 {
		joined := strings.ToLower(strings.Join(logs, "\n"))
		if matchAny(joined, alreadyRedeemedPatterns) {
			return AlreadyRedeemed, true
		}
		if matchAny(joined, insufficientFundsPatterns) {
			return InsufficientFunds, true
		}
	}

	switch {
	case errors.Is(err, adapter.ErrSignatureExpired):
		return AmbiguousExpiry, true
	case errors.Is(err, adapter.ErrConfirmationTimeout), errors.Is(err, context.DeadlineExceeded):
		return Timeout, true
	}

	var rpcErr ethrpc.Error
	if errors.As(err, &rpcErr) && rpcErr.ErrorCode() == codeUserRejected {
		return UserRejected, true
	}

	var solErr *rpc.JsonRpcError
	if errors.As(err, &solErr) && solErr.Code == codeSendTransactionPreflightFailure {
		msg := strings.ToLower(solErr.Message)
		if matchAny(msg, expiryPatterns) {
			return AmbiguousExpiry, true
		}
	}

	return Genuine, false
}

func classifyText(msg string, logs []string) Class {
	lower := strings.ToLower(msg + "\n" + strings.Join(logs, "\n"))

	switch {
	case matchAny(lower, alreadyRedeemedPatterns):
		return AlreadyRedeemed
	case matchAny(lower, expiryPatterns):
		return AmbiguousExpiry
	case matchAny(lower, userRejectedPatterns):
		return UserRejected
	case matchAny(lower, insufficientFundsPatterns):
		return InsufficientFunds
	case matchAny(lower, timeoutPatterns):
		return Timeout
	case matchAny(lower, connectionPatterns), strings.Contains(msg, "EOF"):
		return ConnectionLost
	default:
		return Genuine
	}
}

func matchAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

// revertReason decodes the Error(string) revert data attached to a JSON-RPC error
func revertReason(err error) (string, bool) {
	var dataErr ethrpc.DataError
	if !errors.As(err, &dataErr) {
		return "", false
	}
	hexData, ok := dataErr.ErrorData().(string)
	if !ok {
		return "", false
	}
	data, derr := hexutil.Decode(hexData)
	if derr != nil {
		return "", false
	}
	reason, uerr := abi.UnpackRevert(data)
	if uerr != nil {
		return "", false
	}
	return reason, true
}

// Logs returns the program or simulation logs carried by err, if any
func Logs(err error) []string {
	var execErr *adapter.ExecutionError
	if errors.As(err, &execErr) && len(execErr.Logs) > 0 {
		return execErr.Logs
	}
	return adapter.SimulationLogs(err)
}

// maxLogLines bounds the simulation log excerpt included in a diagnosis
const maxLogLines = 4

// Diagnose turns a failed step error into remediation text for the chain category
func Diagnose(category chains.Category, chainID chains.ChainID, err error) string {
	if err == nil {
		return ""
	}

	var b strings.Builder
	switch Classify(err) {
	case InsufficientFunds:
		if category == chains.CategorySolana {
			fmt.Fprintf(&b, "Not enough SOL on %s to pay transaction fees and account rent. Fund the signer and retry.", chainID)
		} else {
			fmt.Fprintf(&b, "Not enough native balance on %s to pay for gas. Fund the signer and retry.", chainID)
		}
	case ConnectionLost:
		if category == chains.CategorySolana {
			fmt.Fprintf(&b, "Lost connection to the %s RPC node. Check %s_RPC_URL or try a different RPC provider, then recover the transfer.", chainID, chainID.EnvPrefix())
		} else {
			fmt.Fprintf(&b, "Lost connection to the %s RPC endpoint. Check %s_RPC_URL and network connectivity, then recover the transfer.", chainID, chainID.EnvPrefix())
		}
	case UserRejected:
		fmt.Fprintf(&b, "The signer rejected the transaction on %s.", chainID)
	case Timeout:
		fmt.Fprintf(&b, "Timed out waiting for %s. Check the wallet for the transaction before retrying.", chainID)
	default:
		cause := err
		var execErr *adapter.ExecutionError
		if errors.As(err, &execErr) {
			cause = execErr.Err
		}
		if category == chains.CategorySolana {
			fmt.Fprintf(&b, "Solana transaction on %s failed: %v", chainID, cause)
		} else {
			fmt.Fprintf(&b, "EVM transaction on %s failed: %v", chainID, cause)
		}
	}

	if logs := Logs(err); len(logs) > 0 {
		b.WriteString(" Simulation logs: ")
		b.WriteString(strings.Join(excerpt(logs, maxLogLines), " | "))
	}
	return b.String()
}

// excerpt keeps the last n lines, where programs report their failure
func excerpt(logs []string, n int) []string {
	if len(logs) <= n {
		return logs
	}
	return logs[len(logs)-n:]
}
