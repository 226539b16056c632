package adapter

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/blocto/solana-go-sdk/client"
	"github.com/blocto/solana-go-sdk/rpc"
	"github.com/blocto/solana-go-sdk/types"
)

// Blockhash is a recent blockhash and the last block height it is valid for
type Blockhash struct {
	Hash                 string
	LastValidBlockHeight uint64
}

// SignatureStatus is the observed state of a submitted signature
type SignatureStatus struct {
	Confirmed bool
	Err       interface{}
}

// SolanaRPC is the chain access the Solana adapter needs
type SolanaRPC interface {
	LatestBlockhash(ctx context.Context) (Blockhash, error)
	SendTransaction(ctx context.Context, tx types.Transaction) (string, error)
	// SignatureStatus returns nil when the signature is unknown to the node
	SignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error)
	BlockHeight(ctx context.Context) (uint64, error)
}

type solanaRPCClient struct {
	client *client.Client
}

// NewSolanaRPC creates a JSON-RPC client for endpoint
func NewSolanaRPC(endpoint string) SolanaRPC {
	return &solanaRPCClient{client: client.NewClient(endpoint)}
}

func (c *solanaRPCClient) LatestBlockhash(ctx context.Context) (Blockhash, error) {
	res, err := c.client.GetLatestBlockhash(ctx)
	if err != nil {
		return Blockhash{}, err
	}
	return Blockhash{Hash: res.Blockhash, LastValidBlockHeight: res.LatestValidBlockHeight}, nil
}

func (c *solanaRPCClient) SendTransaction(ctx context.Context, tx types.Transaction) (string, error) {
	return c.client.SendTransaction(ctx, tx)
}

func (c *solanaRPCClient) SignatureStatus(ctx context.Context, signature string) (*SignatureStatus, error) {
	status, err := c.client.GetSignatureStatus(ctx, signature)
	if err != nil || status == nil {
		return nil, err
	}
	confirmed := status.ConfirmationStatus != nil &&
		(*status.ConfirmationStatus == rpc.CommitmentConfirmed || *status.ConfirmationStatus == rpc.CommitmentFinalized)
	return &SignatureStatus{Confirmed: confirmed, Err: status.Err}, nil
}

func (c *solanaRPCClient) BlockHeight(ctx context.Context) (uint64, error) {
	res, err := c.client.RpcClient.GetBlockHeight(ctx)
	if err != nil {
		return 0, err
	}
	if err := res.GetError(); err != nil {
		return 0, err
	}
	return res.GetResult(), nil
}

// SimulationLogs extracts the program logs attached to a failed preflight simulation
func SimulationLogs(err error) []string {
	var rpcErr *rpc.JsonRpcError
	if !errors.As(err, &rpcErr) || rpcErr.Data == nil {
		return nil
	}
	raw, merr := json.Marshal(rpcErr.Data)
	if merr != nil {
		return nil
	}
	var data struct {
		Logs []string `json:"logs"`
	}
	if json.Unmarshal(raw, &data) != nil {
		return nil
	}
	return data.Logs
}
