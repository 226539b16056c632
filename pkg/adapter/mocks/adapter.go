package mocks

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/speedrun-hq/speedrun-bridge/pkg/adapter"
	"github.com/speedrun-hq/speedrun-bridge/pkg/cctp"
	"github.com/speedrun-hq/speedrun-bridge/pkg/chains"
	"github.com/speedrun-hq/speedrun-bridge/pkg/wallet"
)

// ExecuteResult is one scripted outcome of Execute
type ExecuteResult struct {
	Hash string
	Err  error
}

// MockAdapter is a scriptable adapter. Execute results are consumed per transaction
// kind in order, the last one repeating.
type MockAdapter struct {
	mu sync.Mutex

	Addr          string
	AddrErr       error
	NeedsApproval bool
	BuildErr      map[adapter.TxKind]error
	Results       map[adapter.TxKind][]ExecuteResult

	Executed []adapter.TxKind
	Burns    []adapter.BurnTarget
	Mints    []adapter.MintInput
	Closed   bool
}

var _ adapter.Adapter = (*MockAdapter)(nil)

// NewMockAdapter creates a mock adapter whose executions all succeed with generated hashes
func NewMockAdapter(addr string) *MockAdapter {
	return &MockAdapter{
		Addr:     addr,
		BuildErr: make(map[adapter.TxKind]error),
		Results:  make(map[adapter.TxKind][]ExecuteResult),
	}
}

// Script sets the outcomes of successive executions of kind
func (m *MockAdapter) Script(kind adapter.TxKind, results ...ExecuteResult) *MockAdapter {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Results[kind] = results
	return m
}

// ExecCount returns how many times a transaction of kind was executed
func (m *MockAdapter) ExecCount(kind adapter.TxKind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, k := range m.Executed {
		if k == kind {
			count++
		}
	}
	return count
}

func (m *MockAdapter) Address() (string, error) {
	if m.AddrErr != nil {
		return "", m.AddrErr
	}
	return m.Addr, nil
}

func (m *MockAdapter) EncodeRecipient(addr string) (cctp.Bytes32, error) {
	return cctp.ParseBytes32(addr)
}

func (m *MockAdapter) BuildApprove(_ context.Context, _ *big.Int) (*adapter.Transaction, error) {
	if err := m.BuildErr[adapter.TxApprove]; err != nil {
		return nil, err
	}
	if !m.NeedsApproval {
		return nil, nil
	}
	return &adapter.Transaction{Kind: adapter.TxApprove}, nil
}

func (m *MockAdapter) BuildBurn(_ context.Context, target adapter.BurnTarget, _ *big.Int) (*adapter.Transaction, error) {
	if err := m.BuildErr[adapter.TxBurn]; err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.Burns = append(m.Burns, target)
	m.mu.Unlock()
	return &adapter.Transaction{Kind: adapter.TxBurn}, nil
}

func (m *MockAdapter) BuildMint(_ context.Context, input adapter.MintInput) (*adapter.Transaction, error) {
	if err := m.BuildErr[adapter.TxMint]; err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.Mints = append(m.Mints, input)
	m.mu.Unlock()
	return &adapter.Transaction{Kind: adapter.TxMint}, nil
}

func (m *MockAdapter) Execute(_ context.Context, tx *adapter.Transaction) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	attempt := 0
	for _, k := range m.Executed {
		if k == tx.Kind {
			attempt++
		}
	}
	m.Executed = append(m.Executed, tx.Kind)

	results := m.Results[tx.Kind]
	if len(results) == 0 {
		return fmt.Sprintf("0x%s-%d", tx.Kind, attempt+1), nil
	}
	if attempt >= len(results) {
		attempt = len(results) - 1
	}
	return results[attempt].Hash, results[attempt].Err
}

func (m *MockAdapter) Close() {
	m.mu.Lock()
	m.Closed = true
	m.mu.Unlock()
}

// MockFactory hands out preconfigured adapters by chain id
type MockFactory struct {
	Adapters map[chains.ChainID]*MockAdapter
	Err      error
	Wallets  []wallet.Set
}

var _ adapter.Factory = (*MockFactory)(nil)

// NewMockFactory creates an empty factory
func NewMockFactory() *MockFactory {
	return &MockFactory{Adapters: make(map[chains.ChainID]*MockAdapter)}
}

// With registers the adapter returned for chain id
func (f *MockFactory) With(id chains.ChainID, a *MockAdapter) *MockFactory {
	f.Adapters[id] = a
	return f
}

func (f *MockFactory) New(_ context.Context, desc chains.ChainDescriptor, wallets wallet.Set) (adapter.Adapter, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.Wallets = append(f.Wallets, wallets)
	a, ok := f.Adapters[desc.ID]
	if !ok {
		return nil, fmt.Errorf("no mock adapter for chain %s", desc.ID)
	}
	return a, nil
}
