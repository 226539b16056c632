package attestation

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/speedrun-hq/speedrun-bridge/pkg/cctp"
)

// StatusComplete is the status of a message whose attestation is signed
const StatusComplete = "complete"

// flexString accepts JSON strings and numbers, the service returns both for numeric fields
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

// DecodedMessageBody is the service's decoding of a burn message body
type DecodedMessageBody struct {
	BurnToken     string     `json:"burnToken"`
	MintRecipient string     `json:"mintRecipient"`
	Amount        flexString `json:"amount"`
	MessageSender string     `json:"messageSender"`
}

// DecodedMessage is the service's decoding of a message header
type DecodedMessage struct {
	SourceDomain       flexString          `json:"sourceDomain"`
	DestinationDomain  flexString          `json:"destinationDomain"`
	Nonce              flexString          `json:"nonce"`
	Sender             string              `json:"sender"`
	Recipient          string              `json:"recipient"`
	DestinationCaller  string              `json:"destinationCaller"`
	MessageBody        string              `json:"messageBody"`
	DecodedMessageBody *DecodedMessageBody `json:"decodedMessageBody"`
}

// MessageResponse is one entry of the messages endpoint
type MessageResponse struct {
	Message        string          `json:"message"`
	EventNonce     flexString      `json:"eventNonce"`
	Attestation    string          `json:"attestation"`
	Status         string          `json:"status"`
	DecodedMessage *DecodedMessage `json:"decodedMessage"`
}

// MessagesResponse is the body of GET /v2/messages/{sourceDomain}
type MessagesResponse struct {
	Messages []MessageResponse `json:"messages"`
}

// Attestation is a completed attestation ready to be redeemed
type Attestation struct {
	Message           []byte
	Attestation       []byte
	SourceDomain      uint32
	DestinationDomain uint32
	Nonce             uint64
	// MintRecipient is zero when neither the decoded payload nor the raw message carry one
	MintRecipient cctp.Bytes32
	BurnToken     cctp.Bytes32
	// Amount is nil when unknown
	Amount *big.Int
}

// HasRecipient reports whether a mint recipient could be recovered
func (a *Attestation) HasRecipient() bool {
	return !a.MintRecipient.IsZero()
}

// toAttestation converts a complete message, preferring the service's decoded fields and
// falling back to decoding the raw message
func (m MessageResponse) toAttestation() (*Attestation, error) {
	message, err := decodeHex(m.Message)
	if err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	signature, err := decodeHex(m.Attestation)
	if err != nil {
		return nil, fmt.Errorf("invalid attestation: %w", err)
	}

	att := &Attestation{Message: message, Attestation: signature}

	if parsed, perr := cctp.ParseMessage(message); perr == nil {
		att.SourceDomain = parsed.SourceDomain
		att.DestinationDomain = parsed.DestinationDomain
		att.Nonce = parsed.Nonce
		if burn, berr := parsed.BurnMessage(); berr == nil {
			att.MintRecipient = burn.MintRecipient
			att.BurnToken = burn.BurnToken
			att.Amount = burn.Amount
		}
	}

	if d := m.DecodedMessage; d != nil {
		if v, err := strconv.ParseUint(string(d.SourceDomain), 10, 32); err == nil {
			att.SourceDomain = uint32(v)
		}
		if v, err := strconv.ParseUint(string(d.DestinationDomain), 10, 32); err == nil {
			att.DestinationDomain = uint32(v)
		}
		if v, err := strconv.ParseUint(string(d.Nonce), 10, 64); err == nil {
			att.Nonce = v
		}
		if body := d.DecodedMessageBody; body != nil {
			if recipient, err := cctp.ParseBytes32(body.MintRecipient); err == nil && !recipient.IsZero() {
				att.MintRecipient = recipient
			}
			if token, err := cctp.ParseBytes32(body.BurnToken); err == nil {
				att.BurnToken = token
			}
			if amount, ok := new(big.Int).SetString(string(body.Amount), 10); ok {
				att.Amount = amount
			}
		}
	}

	return att, nil
}

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "PENDING" {
		return nil, fmt.Errorf("empty value")
	}
	if !strings.HasPrefix(s, "0x") {
		s = "0x" + s
	}
	return hexutil.Decode(s)
}
