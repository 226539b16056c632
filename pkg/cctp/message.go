// Package cctp decodes the cross-chain messages emitted by the burn contracts and carried by attestations.
package cctp

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
	"github.com/mr-tron/base58"
)

// layout of a version 0 message header
const (
	versionIndex           = 0
	sourceDomainIndex      = 4
	destinationDomainIndex = 8
	nonceIndex             = 12
	senderIndex            = 20
	recipientIndex         = 52
	destinationCallerIndex = 84
	messageBodyIndex       = 116
)

// layout of a burn message body
const (
	bodyVersionIndex       = 0
	bodyBurnTokenIndex     = 4
	bodyMintRecipientIndex = 36
	bodyAmountIndex        = 68
	bodyMessageSenderIndex = 100
	bodyLength             = 132
)

var (
	ErrMessageTooShort = errors.New("message too short")
	ErrBodyTooShort    = errors.New("burn message body too short")
)

// Bytes32 is the protocol's fixed width address encoding
type Bytes32 [32]byte

// IsZero reports whether all bytes are zero
func (b Bytes32) IsZero() bool {
	return b == Bytes32{}
}

// Hex returns the 0x prefixed hex form
func (b Bytes32) Hex() string {
	return hexutil.Encode(b[:])
}

// EVMAddress interprets the last 20 bytes as an EVM address
func (b Bytes32) EVMAddress() common.Address {
	return common.BytesToAddress(b[12:])
}

// Base58 interprets the bytes as a Solana public key
func (b Bytes32) Base58() string {
	return base58.Encode(b[:])
}

// AddressToBytes32 left pads an EVM address
func AddressToBytes32(addr common.Address) Bytes32 {
	var out Bytes32
	copy(out[12:], addr.Bytes())
	return out
}

// ParseBytes32 accepts a 0x prefixed hex string of 20 or 32 bytes, or a base58 string of 32 bytes
func ParseBytes32(s string) (Bytes32, error) {
	var out Bytes32
	s = strings.TrimSpace(s)
	if s == "" {
		return out, fmt.Errorf("empty address")
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		raw, err := hexutil.Decode("0x" + s[2:])
		if err != nil {
			return out, fmt.Errorf("invalid hex address %s: %w", s, err)
		}
		if len(raw) != 20 && len(raw) != 32 {
			return out, fmt.Errorf("invalid address length %d for %s", len(raw), s)
		}
		copy(out[32-len(raw):], raw)
		return out, nil
	}

	raw, err := base58.Decode(s)
	if err != nil {
		return out, fmt.Errorf("invalid base58 address %s: %w", s, err)
	}
	if len(raw) != 32 {
		return out, fmt.Errorf("invalid address length %d for %s", len(raw), s)
	}
	copy(out[:], raw)
	return out, nil
}

// BurnMessage is the body of a message emitted by depositForBurn
type BurnMessage struct {
	Version       uint32
	BurnToken     Bytes32
	MintRecipient Bytes32
	Amount        *big.Int
	MessageSender Bytes32
}

// Message is a decoded cross-chain message
type Message struct {
	Version           uint32
	SourceDomain      uint32
	DestinationDomain uint32
	Nonce             uint64
	Sender            Bytes32
	Recipient         Bytes32
	DestinationCaller Bytes32
	Body              []byte
}

// ParseMessage decodes the raw bytes of a message
func ParseMessage(raw []byte) (*Message, error) {
	if len(raw) < messageBodyIndex {
		return nil, fmt.Errorf("%w: %d bytes", ErrMessageTooShort, len(raw))
	}

	m := &Message{
		Version:           binary.BigEndian.Uint32(raw[versionIndex:sourceDomainIndex]),
		SourceDomain:      binary.BigEndian.Uint32(raw[sourceDomainIndex:destinationDomainIndex]),
		DestinationDomain: binary.BigEndian.Uint32(raw[destinationDomainIndex:nonceIndex]),
		Nonce:             binary.BigEndian.Uint64(raw[nonceIndex:senderIndex]),
		Body:              append([]byte(nil), raw[messageBodyIndex:]...),
	}
	copy(m.Sender[:], raw[senderIndex:recipientIndex])
	copy(m.Recipient[:], raw[recipientIndex:destinationCallerIndex])
	copy(m.DestinationCaller[:], raw[destinationCallerIndex:messageBodyIndex])

	return m, nil
}

// BurnMessage decodes the body as a burn message
func (m *Message) BurnMessage() (*BurnMessage, error) {
	body := m.Body
	if len(body) < bodyLength {
		return nil, fmt.Errorf("%w: %d bytes", ErrBodyTooShort, len(body))
	}

	amount := new(uint256.Int).SetBytes32(body[bodyAmountIndex:bodyMessageSenderIndex])

	b := &BurnMessage{
		Version: binary.BigEndian.Uint32(body[bodyVersionIndex:bodyBurnTokenIndex]),
		Amount:  amount.ToBig(),
	}
	copy(b.BurnToken[:], body[bodyBurnTokenIndex:bodyMintRecipientIndex])
	copy(b.MintRecipient[:], body[bodyMintRecipientIndex:bodyAmountIndex])
	copy(b.MessageSender[:], body[bodyMessageSenderIndex:bodyLength])

	return b, nil
}

// Encode serializes the message back into its wire form
func (m *Message) Encode() []byte {
	out := make([]byte, messageBodyIndex+len(m.Body))
	binary.BigEndian.PutUint32(out[versionIndex:], m.Version)
	binary.BigEndian.PutUint32(out[sourceDomainIndex:], m.SourceDomain)
	binary.BigEndian.PutUint32(out[destinationDomainIndex:], m.DestinationDomain)
	binary.BigEndian.PutUint64(out[nonceIndex:], m.Nonce)
	copy(out[senderIndex:], m.Sender[:])
	copy(out[recipientIndex:], m.Recipient[:])
	copy(out[destinationCallerIndex:], m.DestinationCaller[:])
	copy(out[messageBodyIndex:], m.Body)
	return out
}

// Encode serializes the burn message body
func (b *BurnMessage) Encode() []byte {
	out := make([]byte, bodyLength)
	binary.BigEndian.PutUint32(out[bodyVersionIndex:], b.Version)
	copy(out[bodyBurnTokenIndex:], b.BurnToken[:])
	copy(out[bodyMintRecipientIndex:], b.MintRecipient[:])
	if b.Amount != nil {
		amount, _ := uint256.FromBig(b.Amount)
		bytes := amount.Bytes32()
		copy(out[bodyAmountIndex:], bytes[:])
	}
	copy(out[bodyMessageSenderIndex:], b.MessageSender[:])
	return out
}
