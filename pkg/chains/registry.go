package chains

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

const (
	Mainnet = "mainnet"
	Testnet = "testnet"
)

var (
	ErrUnsupportedChain = errors.New("unsupported chain")
	ErrMissingContract  = errors.New("missing contract mapping")
	ErrUnknownCategory  = errors.New("unknown execution category")
)

// CCTP domains assigned by the protocol
const (
	DomainEthereum  uint32 = 0
	DomainAvalanche uint32 = 1
	DomainOptimism  uint32 = 2
	DomainArbitrum  uint32 = 3
	DomainSolana    uint32 = 5
	DomainBase      uint32 = 6
	DomainPolygon   uint32 = 7
)

// Solana programs are deployed at the same addresses on mainnet and devnet
const (
	SolanaTokenMessengerMinter = "CCTPiPYPc6AsJuwueEnWgSgucamXDZwBd53dQ11YiKX3"
	SolanaMessageTransmitter   = "CCTPmbSD7gX1bxKPAmg77w8oFzNFpaQiQUWD43TKaecd"
)

// defaultChains is the built-in registry, RPC endpoints can be overridden through configuration
var defaultChains = []ChainDescriptor{
	// mainnet
	{
		ID:                 "ethereum",
		Name:               "Ethereum",
		Category:           CategoryEVM,
		Domain:             DomainEthereum,
		NetworkID:          1,
		TokenMessenger:     "0xBd3fa81B58Ba92a82136038B25aDec7066af3155",
		MessageTransmitter: "0x0a992d191DEeC32aFe36203Ad87D7d289a738F81",
		USDC:               "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		RPCEndpoint:        "https://eth.llamarpc.com",
		Decimals:           6,
	},
	{
		ID:                 "avalanche",
		Name:               "Avalanche",
		Category:           CategoryEVM,
		Domain:             DomainAvalanche,
		NetworkID:          43114,
		TokenMessenger:     "0x6B25532e1060CE10cc3B0A99e5683b91BFDe6982",
		MessageTransmitter: "0x8186359aF5F57FbB40c6b14A588d2A59C0C29880",
		USDC:               "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E",
		RPCEndpoint:        "https://api.avax.network/ext/bc/C/rpc",
		Decimals:           6,
	},
	{
		ID:                 "arbitrum",
		Name:               "Arbitrum",
		Category:           CategoryEVM,
		Domain:             DomainArbitrum,
		NetworkID:          42161,
		TokenMessenger:     "0x19330d10D9Cc8751218eaf51E8885D058642E08A",
		MessageTransmitter: "0xC30362313FBBA5cf9163F0bb16a0e01f01A896ca",
		USDC:               "0xaf88d065e77c8cC2239327C5EDb3A432268e5831",
		RPCEndpoint:        "https://arb1.arbitrum.io/rpc",
		Decimals:           6,
	},
	{
		ID:                 "base",
		Name:               "Base",
		Category:           CategoryEVM,
		Domain:             DomainBase,
		NetworkID:          8453,
		TokenMessenger:     "0x1682Ae6375C4E4A97e4B583BC394c861A46D8962",
		MessageTransmitter: "0xAD09780d193884d503182aD4588450C416D6F9D4",
		USDC:               "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		RPCEndpoint:        "https://mainnet.base.org",
		Decimals:           6,
	},
	{
		ID:                 "polygon",
		Name:               "Polygon",
		Category:           CategoryEVM,
		Domain:             DomainPolygon,
		NetworkID:          137,
		TokenMessenger:     "0x9daF8c91AEFAE50b9c0E69629D3F6Ca40cA3B3FE",
		MessageTransmitter: "0xF3be9355363857F3e001be68856A2f96b4C39Ba9",
		USDC:               "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
		RPCEndpoint:        "https://polygon-rpc.com",
		Decimals:           6,
	},
	{
		ID:                 "solana",
		Name:               "Solana",
		Category:           CategorySolana,
		Domain:             DomainSolana,
		TokenMessenger:     SolanaTokenMessengerMinter,
		MessageTransmitter: SolanaMessageTransmitter,
		USDC:               "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		RPCEndpoint:        "https://api.mainnet-beta.solana.com",
		Decimals:           6,
	},

	// testnet
	{
		ID:                 "ethereum-sepolia",
		Name:               "Ethereum Sepolia",
		Category:           CategoryEVM,
		Domain:             DomainEthereum,
		NetworkID:          11155111,
		TokenMessenger:     "0x9f3B8679c73C2Fef8b59B4f3444d4e156fb70AA5",
		MessageTransmitter: "0x7865fAfC2db2093669d92c0F33AeEF291086BEFD",
		USDC:               "0x1c7D4B196Cb0C7B01d743Fbc6116a902379C7238",
		RPCEndpoint:        "https://ethereum-sepolia-rpc.publicnode.com",
		Decimals:           6,
		Testnet:            true,
	},
	{
		ID:                 "avalanche-fuji",
		Name:               "Avalanche Fuji",
		Category:           CategoryEVM,
		Domain:             DomainAvalanche,
		NetworkID:          43113,
		TokenMessenger:     "0xeb08f243E5d3FCFF26A9E38Ae5520A669f4019d0",
		MessageTransmitter: "0xa9fB1b3009DCb79E2fe346c16a604B8Fa8aE0a79",
		USDC:               "0x5425890298aed601595a70AB815c96711a31Bc65",
		RPCEndpoint:        "https://api.avax-test.network/ext/bc/C/rpc",
		Decimals:           6,
		Testnet:            true,
	},
	{
		ID:                 "arbitrum-sepolia",
		Name:               "Arbitrum Sepolia",
		Category:           CategoryEVM,
		Domain:             DomainArbitrum,
		NetworkID:          421614,
		TokenMessenger:     "0x9f3B8679c73C2Fef8b59B4f3444d4e156fb70AA5",
		MessageTransmitter: "0xaCF1ceeF35caAc005e15888dDb8A3515C41B4872",
		USDC:               "0x75faf114eafb1BDbe2F0316DF893fd58CE46AA4d",
		RPCEndpoint:        "https://sepolia-rollup.arbitrum.io/rpc",
		Decimals:           6,
		Testnet:            true,
	},
	{
		ID:                 "base-sepolia",
		Name:               "Base Sepolia",
		Category:           CategoryEVM,
		Domain:             DomainBase,
		NetworkID:          84532,
		TokenMessenger:     "0x9f3B8679c73C2Fef8b59B4f3444d4e156fb70AA5",
		MessageTransmitter: "0x7865fAfC2db2093669d92c0F33AeEF291086BEFD",
		USDC:               "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
		RPCEndpoint:        "https://sepolia.base.org",
		Decimals:           6,
		Testnet:            true,
	},
	{
		ID:                 "solana-devnet",
		Name:               "Solana Devnet",
		Category:           CategorySolana,
		Domain:             DomainSolana,
		TokenMessenger:     SolanaTokenMessengerMinter,
		MessageTransmitter: SolanaMessageTransmitter,
		USDC:               "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU",
		RPCEndpoint:        "https://api.devnet.solana.com",
		Decimals:           6,
		Testnet:            true,
	},
}

// Registry is a read-only table of chain descriptors keyed by chain id
type Registry struct {
	chains map[ChainID]ChainDescriptor
}

// NewRegistry builds a registry from descriptors, later entries replace earlier ones with the same id
func NewRegistry(descriptors ...ChainDescriptor) *Registry {
	r := &Registry{chains: make(map[ChainID]ChainDescriptor, len(descriptors))}
	for _, d := range descriptors {
		r.chains[d.ID] = d
	}
	return r
}

// DefaultRegistry returns the built-in chains of the given network
func DefaultRegistry(network string) (*Registry, error) {
	if network != Mainnet && network != Testnet {
		return nil, fmt.Errorf("unsupported network: %s, must be '%s' or '%s'", network, Mainnet, Testnet)
	}

	selected := make([]ChainDescriptor, 0, len(defaultChains))
	for _, d := range defaultChains {
		if d.Testnet == (network == Testnet) {
			selected = append(selected, d)
		}
	}
	return NewRegistry(selected...), nil
}

type registryFile struct {
	Chains []ChainDescriptor `yaml:"chains"`
}

// LoadRegistryFile reads a YAML registry, used for deployments the built-in table does not cover
func LoadRegistryFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain registry %s: %w", path, err)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse chain registry %s: %w", path, err)
	}

	for i := range file.Chains {
		if file.Chains[i].Decimals == 0 {
			file.Chains[i].Decimals = 6
		}
	}

	registry := NewRegistry(file.Chains...)
	if err := registry.Validate(); err != nil {
		return nil, err
	}
	return registry, nil
}

// Lookup returns the descriptor of a chain
func (r *Registry) Lookup(id ChainID) (ChainDescriptor, bool) {
	d, ok := r.chains[id]
	return d, ok
}

// All returns every descriptor sorted by id
func (r *Registry) All() []ChainDescriptor {
	out := make([]ChainDescriptor, 0, len(r.chains))
	for _, d := range r.chains {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// WithRPCEndpoint returns a copy of the registry where the given chain uses another RPC endpoint
func (r *Registry) WithRPCEndpoint(id ChainID, endpoint string) *Registry {
	copied := NewRegistry(r.All()...)
	if d, ok := copied.chains[id]; ok && endpoint != "" {
		d.RPCEndpoint = endpoint
		copied.chains[id] = d
	}
	return copied
}

// Validate checks every descriptor of the registry
func (r *Registry) Validate() error {
	if len(r.chains) == 0 {
		return fmt.Errorf("chain registry is empty")
	}
	for _, d := range r.All() {
		if err := d.Validate(); err != nil {
			return err
		}
	}
	return nil
}
