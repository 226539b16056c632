package adapter

// ERC20ABI covers the allowance check and approval of the burn token
const ERC20ABI = `[
	{
		"constant": true,
		"inputs": [
			{"name": "_owner", "type": "address"},
			{"name": "_spender", "type": "address"}
		],
		"name": "allowance",
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"constant": false,
		"inputs": [
			{"name": "_spender", "type": "address"},
			{"name": "_value", "type": "uint256"}
		],
		"name": "approve",
		"outputs": [{"name": "", "type": "bool"}],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// TokenMessengerABI is the subset of the CCTP TokenMessenger used for burns
const TokenMessengerABI = `[
	{
		"inputs": [
			{"name": "amount", "type": "uint256"},
			{"name": "destinationDomain", "type": "uint32"},
			{"name": "mintRecipient", "type": "bytes32"},
			{"name": "burnToken", "type": "address"}
		],
		"name": "depositForBurn",
		"outputs": [{"name": "_nonce", "type": "uint64"}],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// MessageTransmitterABI is the subset of the CCTP MessageTransmitter used for mints
const MessageTransmitterABI = `[
	{
		"inputs": [
			{"name": "message", "type": "bytes"},
			{"name": "attestation", "type": "bytes"}
		],
		"name": "receiveMessage",
		"outputs": [{"name": "success", "type": "bool"}],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`
