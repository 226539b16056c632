package chains

import (
	"fmt"
	"strings"
)

// ChainID is the application level identifier of a chain, e.g. "base" or "solana-devnet"
type ChainID string

// Category is the execution environment a chain belongs to
type Category int

const (
	// CategoryEVM covers account based chains driven through JSON-RPC and ERC20 contracts
	CategoryEVM Category = iota + 1
	// CategorySolana covers chains driven through Solana programs and SPL tokens
	CategorySolana
)

// String returns the name of the category
func (c Category) String() string {
	switch c {
	case CategoryEVM:
		return "evm"
	case CategorySolana:
		return "solana"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// ParseCategory parses the name produced by Category.String
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "evm":
		return CategoryEVM, nil
	case "solana":
		return CategorySolana, nil
	default:
		return 0, fmt.Errorf("unknown execution category: %s", s)
	}
}

// UnmarshalText lets the category be read from registry files
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalText writes the category name
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// ChainDescriptor holds the network parameters of a supported chain
type ChainDescriptor struct {
	ID                 ChainID  `yaml:"id"`
	Name               string   `yaml:"name"`
	Category           Category `yaml:"category"`
	Domain             uint32   `yaml:"domain"`
	NetworkID          int64    `yaml:"network-id"`
	TokenMessenger     string   `yaml:"token-messenger"`
	MessageTransmitter string   `yaml:"message-transmitter"`
	USDC               string   `yaml:"usdc"`
	RPCEndpoint        string   `yaml:"rpc-endpoint"`
	Decimals           uint8    `yaml:"decimals"`
	Testnet            bool     `yaml:"testnet"`
}

// IsEVM reports whether the chain is EVM-like
func (d ChainDescriptor) IsEVM() bool {
	return d.Category == CategoryEVM
}

// IsSolana reports whether the chain is Solana-like
func (d ChainDescriptor) IsSolana() bool {
	return d.Category == CategorySolana
}

// Validate checks that every contract mapping needed for a transfer is present
func (d ChainDescriptor) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("chain id is required")
	}
	if d.Category != CategoryEVM && d.Category != CategorySolana {
		return fmt.Errorf("chain %s: %w", d.ID, ErrUnknownCategory)
	}
	if d.TokenMessenger == "" {
		return fmt.Errorf("chain %s: %w: token messenger", d.ID, ErrMissingContract)
	}
	if d.MessageTransmitter == "" {
		return fmt.Errorf("chain %s: %w: message transmitter", d.ID, ErrMissingContract)
	}
	if d.USDC == "" {
		return fmt.Errorf("chain %s: %w: usdc", d.ID, ErrMissingContract)
	}
	if d.RPCEndpoint == "" {
		return fmt.Errorf("chain %s: rpc endpoint is required", d.ID)
	}
	if d.Decimals != 6 {
		return fmt.Errorf("chain %s: usdc must have 6 decimals, got %d", d.ID, d.Decimals)
	}
	return nil
}

// EnvPrefix returns the prefix used for per chain environment overrides, e.g. BASE_SEPOLIA
func (id ChainID) EnvPrefix() string {
	return strings.ToUpper(strings.ReplaceAll(string(id), "-", "_"))
}
