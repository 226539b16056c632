package adapter

import (
	"crypto/sha256"
	"fmt"
	"strconv"

	"github.com/blocto/solana-go-sdk/common"
	"github.com/blocto/solana-go-sdk/types"
	"github.com/near/borsh-go"

	"github.com/speedrun-hq/speedrun-bridge/pkg/cctp"
)

// usedNoncesPerAccount is the number of nonces tracked by one used_nonces account
const usedNoncesPerAccount = 6400

// cctpPrograms holds the program ids of one CCTP deployment
type cctpPrograms struct {
	tokenMessengerMinter common.PublicKey
	messageTransmitter   common.PublicKey
	usdcMint             common.PublicKey
}

func anchorDiscriminator(name string) []byte {
	sum := sha256.Sum256([]byte("global:" + name))
	return sum[:8]
}

func findPDA(program common.PublicKey, seeds ...[]byte) (common.PublicKey, error) {
	pda, _, err := common.FindProgramAddress(seeds, program)
	if err != nil {
		return common.PublicKey{}, fmt.Errorf("failed to derive program address: %v", err)
	}
	return pda, nil
}

// firstNonce returns the first nonce stored in the used_nonces account holding nonce
func firstNonce(nonce uint64) uint64 {
	if nonce == 0 {
		return 1
	}
	return ((nonce-1)/usedNoncesPerAccount)*usedNoncesPerAccount + 1
}

type depositForBurnParams struct {
	Amount            uint64
	DestinationDomain uint32
	MintRecipient     common.PublicKey
}

type receiveMessageParams struct {
	Message     []byte
	Attestation []byte
}

func (p cctpPrograms) depositForBurn(
	owner common.PublicKey,
	eventData common.PublicKey,
	destinationDomain uint32,
	mintRecipient cctp.Bytes32,
	amount uint64,
) (types.Instruction, error) {
	tmm := p.tokenMessengerMinter
	mt := p.messageTransmitter

	senderAuthority, err := findPDA(tmm, []byte("sender_authority"))
	if err != nil {
		return types.Instruction{}, err
	}
	messageTransmitter, err := findPDA(mt, []byte("message_transmitter"))
	if err != nil {
		return types.Instruction{}, err
	}
	tokenMessenger, err := findPDA(tmm, []byte("token_messenger"))
	if err != nil {
		return types.Instruction{}, err
	}
	remoteTokenMessenger, err := findPDA(tmm, []byte("remote_token_messenger"), []byte(strconv.FormatUint(uint64(destinationDomain), 10)))
	if err != nil {
		return types.Instruction{}, err
	}
	tokenMinter, err := findPDA(tmm, []byte("token_minter"))
	if err != nil {
		return types.Instruction{}, err
	}
	localToken, err := findPDA(tmm, []byte("local_token"), p.usdcMint.Bytes())
	if err != nil {
		return types.Instruction{}, err
	}
	eventAuthority, err := findPDA(tmm, []byte("__event_authority"))
	if err != nil {
		return types.Instruction{}, err
	}
	burnTokenAccount, _, err := common.FindAssociatedTokenAddress(owner, p.usdcMint)
	if err != nil {
		return types.Instruction{}, fmt.Errorf("failed to derive token account: %v", err)
	}

	params, err := borsh.Serialize(depositForBurnParams{
		Amount:            amount,
		DestinationDomain: destinationDomain,
		MintRecipient:     common.PublicKey(mintRecipient),
	})
	if err != nil {
		return types.Instruction{}, fmt.Errorf("failed to encode depositForBurn params: %v", err)
	}

	return types.Instruction{
		ProgramID: tmm,
		Accounts: []types.AccountMeta{
			{PubKey: owner, IsSigner: true, IsWritable: false},
			{PubKey: owner, IsSigner: true, IsWritable: true},
			{PubKey: senderAuthority, IsSigner: false, IsWritable: false},
			{PubKey: burnTokenAccount, IsSigner: false, IsWritable: true},
			{PubKey: messageTransmitter, IsSigner: false, IsWritable: true},
			{PubKey: tokenMessenger, IsSigner: false, IsWritable: false},
			{PubKey: remoteTokenMessenger, IsSigner: false, IsWritable: false},
			{PubKey: tokenMinter, IsSigner: false, IsWritable: false},
			{PubKey: localToken, IsSigner: false, IsWritable: true},
			{PubKey: p.usdcMint, IsSigner: false, IsWritable: true},
			{PubKey: eventData, IsSigner: true, IsWritable: true},
			{PubKey: mt, IsSigner: false, IsWritable: false},
			{PubKey: tmm, IsSigner: false, IsWritable: false},
			{PubKey: common.TokenProgramID, IsSigner: false, IsWritable: false},
			{PubKey: common.SystemProgramID, IsSigner: false, IsWritable: false},
			{PubKey: eventAuthority, IsSigner: false, IsWritable: false},
			{PubKey: tmm, IsSigner: false, IsWritable: false},
		},
		Data: append(anchorDiscriminator("deposit_for_burn"), params...),
	}, nil
}

func (p cctpPrograms) receiveMessage(
	payer common.PublicKey,
	msg *cctp.Message,
	burn *cctp.BurnMessage,
	rawMessage []byte,
	attestation []byte,
) (types.Instruction, error) {
	tmm := p.tokenMessengerMinter
	mt := p.messageTransmitter
	sourceDomain := []byte(strconv.FormatUint(uint64(msg.SourceDomain), 10))

	authority, err := findPDA(mt, []byte("message_transmitter_authority"), tmm.Bytes())
	if err != nil {
		return types.Instruction{}, err
	}
	messageTransmitter, err := findPDA(mt, []byte("message_transmitter"))
	if err != nil {
		return types.Instruction{}, err
	}
	usedNonces, err := findPDA(mt, []byte("used_nonces"), sourceDomain, []byte(strconv.FormatUint(firstNonce(msg.Nonce), 10)))
	if err != nil {
		return types.Instruction{}, err
	}
	mtEventAuthority, err := findPDA(mt, []byte("__event_authority"))
	if err != nil {
		return types.Instruction{}, err
	}
	tokenMessenger, err := findPDA(tmm, []byte("token_messenger"))
	if err != nil {
		return types.Instruction{}, err
	}
	remoteTokenMessenger, err := findPDA(tmm, []byte("remote_token_messenger"), sourceDomain)
	if err != nil {
		return types.Instruction{}, err
	}
	tokenMinter, err := findPDA(tmm, []byte("token_minter"))
	if err != nil {
		return types.Instruction{}, err
	}
	localToken, err := findPDA(tmm, []byte("local_token"), p.usdcMint.Bytes())
	if err != nil {
		return types.Instruction{}, err
	}
	tokenPair, err := findPDA(tmm, []byte("token_pair"), sourceDomain, burn.BurnToken[:])
	if err != nil {
		return types.Instruction{}, err
	}
	custody, err := findPDA(tmm, []byte("custody"), p.usdcMint.Bytes())
	if err != nil {
		return types.Instruction{}, err
	}
	tmmEventAuthority, err := findPDA(tmm, []byte("__event_authority"))
	if err != nil {
		return types.Instruction{}, err
	}

	params, err := borsh.Serialize(receiveMessageParams{Message: rawMessage, Attestation: attestation})
	if err != nil {
		return types.Instruction{}, fmt.Errorf("failed to encode receiveMessage params: %v", err)
	}

	return types.Instruction{
		ProgramID: mt,
		Accounts: []types.AccountMeta{
			{PubKey: payer, IsSigner: true, IsWritable: true},
			{PubKey: payer, IsSigner: true, IsWritable: false},
			{PubKey: authority, IsSigner: false, IsWritable: false},
			{PubKey: messageTransmitter, IsSigner: false, IsWritable: false},
			{PubKey: usedNonces, IsSigner: false, IsWritable: true},
			{PubKey: tmm, IsSigner: false, IsWritable: false},
			{PubKey: common.SystemProgramID, IsSigner: false, IsWritable: false},
			{PubKey: mtEventAuthority, IsSigner: false, IsWritable: false},
			{PubKey: mt, IsSigner: false, IsWritable: false},
			// accounts forwarded to the token messenger minter
			{PubKey: tokenMessenger, IsSigner: false, IsWritable: false},
			{PubKey: remoteTokenMessenger, IsSigner: false, IsWritable: false},
			{PubKey: tokenMinter, IsSigner: false, IsWritable: true},
			{PubKey: localToken, IsSigner: false, IsWritable: true},
			{PubKey: tokenPair, IsSigner: false, IsWritable: false},
			{PubKey: common.PublicKey(burn.MintRecipient), IsSigner: false, IsWritable: true},
			{PubKey: custody, IsSigner: false, IsWritable: true},
			{PubKey: common.TokenProgramID, IsSigner: false, IsWritable: false},
			{PubKey: tmmEventAuthority, IsSigner: false, IsWritable: false},
			{PubKey: tmm, IsSigner: false, IsWritable: false},
		},
		Data: append(anchorDiscriminator("receive_message"), params...),
	}, nil
}

// createAssociatedTokenAccountIdempotent creates owner's token account for mint when missing
func createAssociatedTokenAccountIdempotent(funder, owner, mint common.PublicKey) (types.Instruction, error) {
	ata, _, err := common.FindAssociatedTokenAddress(owner, mint)
	if err != nil {
		return types.Instruction{}, fmt.Errorf("failed to derive token account: %v", err)
	}
	return types.Instruction{
		ProgramID: common.SPLAssociatedTokenAccountProgramID,
		Accounts: []types.AccountMeta{
			{PubKey: funder, IsSigner: true, IsWritable: true},
			{PubKey: ata, IsSigner: false, IsWritable: true},
			{PubKey: owner, IsSigner: false, IsWritable: false},
			{PubKey: mint, IsSigner: false, IsWritable: false},
			{PubKey: common.SystemProgramID, IsSigner: false, IsWritable: false},
			{PubKey: common.TokenProgramID, IsSigner: false, IsWritable: false},
		},
		Data: []byte{1},
	}, nil
}
