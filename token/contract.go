// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package token implements the confidential asset ledger precompile
// (LP-4250). Balances are ciphertext handles held in the ledger's own
// storage; transfers move value homomorphically so no plaintext amount ever
// touches the chain.
package token

import (
	"encoding/binary"
	"errors"

	"github.com/luxfi/crowdfund/contract"
	"github.com/luxfi/crowdfund/fhe"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
)

// ContractAddress is the confidential ledger address (LP-4250)
var ContractAddress = common.HexToAddress("0x0000000000000000000000000000000000004250")

// Storage slot key for the minter (keccak256("token.minter") at runtime)
var minterSlot = common.Keccak256Hash([]byte("token.minter"))

// Function selectors
var (
	SelectorMint            = [4]byte{0x1a, 0x69, 0x52, 0x30} // mint(address,uint64)
	SelectorSetMinter       = [4]byte{0xfc, 0xa3, 0xb5, 0xaa} // setMinter(address)
	SelectorTransfer        = [4]byte{0x7a, 0x8c, 0x16, 0x3d} // confidentialTransfer(address,bytes32)
	SelectorTransferAndCall = [4]byte{0x4f, 0x2b, 0xe9, 0x1f} // confidentialTransferAndCall(address,bytes32,bytes,bytes)
	SelectorBalanceOf       = [4]byte{0x9c, 0xd4, 0x5b, 0xaf} // confidentialBalanceOf(address)
)

// Event signatures, hashed at init
var (
	transferTopic = common.Keccak256Hash([]byte("ConfidentialTransfer(address,address,bytes32)"))
	mintTopic     = common.Keccak256Hash([]byte("ConfidentialMint(address,bytes32)"))
)

// Gas costs
const (
	GasMint            uint64 = 150000
	GasTransfer        uint64 = 300000
	GasTransferAndCall uint64 = 800000
	GasBalanceRead     uint64 = 200
	GasAdminWrite      uint64 = 5000
)

// Errors
var (
	ErrUnknownReceiver   = errors.New("recipient has no registered transfer callback")
	ErrTransferRejected  = errors.New("transfer rejected by recipient")
	ErrProofMismatch     = errors.New("ciphertext proof does not match amount handle")
	ErrInvalidCiphertext = errors.New("uninitialized amount ciphertext")
	ErrUnauthorizedMint  = errors.New("caller is not the minter")
	ErrInsufficientGas   = errors.New("insufficient gas")
	ErrInvalidInput      = errors.New("invalid input")
)

// TokenPrecompile implements the stateful precompiled contract interface
var TokenPrecompile = &tokenPrecompile{}

type tokenPrecompile struct{}

// Run executes the confidential ledger precompile
func (p *tokenPrecompile) Run(
	accessibleState contract.AccessibleState,
	caller common.Address,
	addr common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if len(input) < 4 {
		return nil, suppliedGas, ErrInvalidInput
	}

	var selector [4]byte
	copy(selector[:], input[:4])
	args := input[4:]

	switch selector {
	case SelectorMint:
		return p.handleMint(accessibleState.GetStateDB(), caller, args, suppliedGas, readOnly)
	case SelectorSetMinter:
		return p.handleSetMinter(accessibleState.GetStateDB(), caller, args, suppliedGas, readOnly)
	case SelectorTransfer:
		return p.handleTransfer(accessibleState.GetStateDB(), caller, args, suppliedGas, readOnly)
	case SelectorTransferAndCall:
		return p.handleTransferAndCall(accessibleState, caller, args, suppliedGas, readOnly)
	case SelectorBalanceOf:
		return p.handleBalanceOf(accessibleState.GetStateDB(), args, suppliedGas)
	default:
		return nil, suppliedGas, ErrInvalidInput
	}
}

// balanceSlot derives the storage slot holding [account]'s balance handle.
func balanceSlot(account common.Address) common.Hash {
	return common.Keccak256Hash(account.Bytes(), []byte("balance"))
}

// BalanceOf returns the handle of [account]'s encrypted balance. The zero
// handle means the account has never held the token (encrypted zero).
func BalanceOf(state contract.StateDB, account common.Address) common.Hash {
	return state.GetState(ContractAddress, balanceSlot(account))
}

func setBalance(state contract.StateDB, account common.Address, handle common.Hash) {
	state.SetState(ContractAddress, balanceSlot(account), handle)
}

// balanceOrZero returns [account]'s balance handle, materializing an
// encrypted zero for accounts that never held the token.
func balanceOrZero(state contract.StateDB, account common.Address) (common.Hash, error) {
	bal := BalanceOf(state, account)
	if fhe.IsInitialized(bal) {
		return bal, nil
	}
	return fhe.Encrypt(0)
}

// Mint credits [amount] plaintext units to [to]'s encrypted balance and
// returns the new balance handle. The holder and the ledger are granted
// decrypt access to the new balance.
func Mint(state contract.StateDB, to common.Address, amount uint64) (common.Hash, error) {
	minted, err := fhe.Encrypt(amount)
	if err != nil {
		return common.Hash{}, err
	}

	cur, err := balanceOrZero(state, to)
	if err != nil {
		return common.Hash{}, err
	}
	newBal, err := fhe.Add(cur, minted)
	if err != nil {
		return common.Hash{}, err
	}

	setBalance(state, to, newBal)
	fhe.Allow(newBal, to)
	fhe.Allow(newBal, ContractAddress)

	state.AddLog(&types.Log{
		Address: ContractAddress,
		Topics:  []common.Hash{mintTopic, common.BytesToHash(to.Bytes())},
		Data:    minted.Bytes(),
	})

	return newBal, nil
}

// ConfidentialTransfer moves the encrypted [amount] from [from] to [to] and
// returns the handle of the ciphertext actually transferred. The returned
// handle is re-derived from the amount so sender, recipient, and ledger all
// hold decrypt access to it.
func ConfidentialTransfer(state contract.StateDB, from, to common.Address, amount common.Hash) (common.Hash, error) {
	if !fhe.IsInitialized(amount) {
		return common.Hash{}, ErrInvalidCiphertext
	}

	fromBal, err := balanceOrZero(state, from)
	if err != nil {
		return common.Hash{}, err
	}
	newFromBal, err := fhe.Sub(fromBal, amount)
	if err != nil {
		return common.Hash{}, err
	}
	toBal, err := balanceOrZero(state, to)
	if err != nil {
		return common.Hash{}, err
	}
	newToBal, err := fhe.Add(toBal, amount)
	if err != nil {
		return common.Hash{}, err
	}

	setBalance(state, from, newFromBal)
	fhe.Allow(newFromBal, from)
	fhe.Allow(newFromBal, ContractAddress)
	setBalance(state, to, newToBal)
	fhe.Allow(newToBal, to)
	fhe.Allow(newToBal, ContractAddress)

	// Re-derive the transferred ciphertext under a fresh handle so the
	// parties of this transfer get access without widening the ACL of the
	// caller's input handle.
	zero, err := fhe.Encrypt(0)
	if err != nil {
		return common.Hash{}, err
	}
	transferred, err := fhe.Add(amount, zero)
	if err != nil {
		return common.Hash{}, err
	}
	fhe.Allow(transferred, from)
	fhe.Allow(transferred, to)
	fhe.Allow(transferred, ContractAddress)

	state.AddLog(&types.Log{
		Address: ContractAddress,
		Topics: []common.Hash{
			transferTopic,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data: transferred.Bytes(),
	})

	return transferred, nil
}

// ConfidentialTransferAndCall moves the encrypted [amount] from [from] to
// [to], then synchronously invokes [to]'s registered transfer callback with
// the transferred handle and [data]. The balance movement and the callback
// commit or revert together: any callback error, or an encrypted-false
// acceptance, rolls the transfer back via snapshot.
//
// [proof] is the serialized ciphertext backing [amount]; it must verify and
// hash to the same handle.
func ConfidentialTransferAndCall(
	env contract.AccessibleState,
	operator common.Address,
	from common.Address,
	to common.Address,
	amount common.Hash,
	proof []byte,
	data []byte,
) (common.Hash, error) {
	receiver, ok := GetReceiver(to)
	if !ok {
		return common.Hash{}, ErrUnknownReceiver
	}

	imported, err := fhe.Verify(proof, fhe.TypeEuint64)
	if err != nil {
		return common.Hash{}, err
	}
	if imported != amount {
		return common.Hash{}, ErrProofMismatch
	}

	state := env.GetStateDB()
	snapshot := state.Snapshot()

	transferred, err := ConfidentialTransfer(state, from, to, amount)
	if err != nil {
		state.RevertToSnapshot(snapshot)
		return common.Hash{}, err
	}

	accept, err := receiver.OnConfidentialTransferReceived(env, operator, from, transferred, data)
	if err != nil {
		state.RevertToSnapshot(snapshot)
		return common.Hash{}, err
	}

	accepted, err := fhe.DecryptBool(accept, ContractAddress)
	if err != nil {
		state.RevertToSnapshot(snapshot)
		return common.Hash{}, err
	}
	if !accepted {
		state.RevertToSnapshot(snapshot)
		return common.Hash{}, ErrTransferRejected
	}

	return transferred, nil
}

// Handler implementations

func (p *tokenPrecompile) handleMint(
	state contract.StateDB,
	caller common.Address,
	args []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < GasMint {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasMint

	if !p.isMinter(state, caller) {
		return nil, remainingGas, ErrUnauthorizedMint
	}
	if len(args) < 64 {
		return nil, remainingGas, ErrInvalidInput
	}
	to := common.BytesToAddress(args[12:32])
	amount, err := parseUint64Word(args[32:64])
	if err != nil {
		return nil, remainingGas, err
	}

	handle, err := Mint(state, to, amount)
	if err != nil {
		return nil, remainingGas, err
	}

	return handle.Bytes(), remainingGas, nil
}

func (p *tokenPrecompile) handleSetMinter(
	state contract.StateDB,
	caller common.Address,
	args []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < GasAdminWrite {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasAdminWrite

	if !p.isMinter(state, caller) {
		return nil, remainingGas, ErrUnauthorizedMint
	}
	if len(args) < 32 {
		return nil, remainingGas, ErrInvalidInput
	}
	newMinter := common.BytesToAddress(args[12:32])

	var val common.Hash
	copy(val[12:], newMinter.Bytes())
	state.SetState(ContractAddress, minterSlot, val)

	return nil, remainingGas, nil
}

func (p *tokenPrecompile) handleTransfer(
	state contract.StateDB,
	caller common.Address,
	args []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < GasTransfer {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasTransfer

	if len(args) < 64 {
		return nil, remainingGas, ErrInvalidInput
	}
	to := common.BytesToAddress(args[12:32])
	amount := common.BytesToHash(args[32:64])

	transferred, err := ConfidentialTransfer(state, caller, to, amount)
	if err != nil {
		return nil, remainingGas, err
	}

	return transferred.Bytes(), remainingGas, nil
}

// handleTransferAndCall parses: to (32) | amount handle (32) | proof length
// word (32) | proof bytes | attached data (remainder).
func (p *tokenPrecompile) handleTransferAndCall(
	accessibleState contract.AccessibleState,
	caller common.Address,
	args []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < GasTransferAndCall {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasTransferAndCall

	if len(args) < 96 {
		return nil, remainingGas, ErrInvalidInput
	}
	to := common.BytesToAddress(args[12:32])
	amount := common.BytesToHash(args[32:64])
	proofLen, err := parseUint64Word(args[64:96])
	if err != nil {
		return nil, remainingGas, err
	}
	// Compared this way round so a huge length word cannot wrap the bound
	if proofLen > uint64(len(args)-96) {
		return nil, remainingGas, ErrInvalidInput
	}
	proof := args[96 : 96+proofLen]
	data := args[96+proofLen:]

	transferred, err := ConfidentialTransferAndCall(accessibleState, caller, caller, to, amount, proof, data)
	if err != nil {
		return nil, remainingGas, err
	}

	return transferred.Bytes(), remainingGas, nil
}

func (p *tokenPrecompile) handleBalanceOf(
	state contract.StateDB,
	args []byte,
	suppliedGas uint64,
) ([]byte, uint64, error) {
	if suppliedGas < GasBalanceRead {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasBalanceRead

	if len(args) < 32 {
		return nil, remainingGas, ErrInvalidInput
	}
	account := common.BytesToAddress(args[12:32])

	return BalanceOf(state, account).Bytes(), remainingGas, nil
}

// parseUint64Word reads a 32-byte big-endian word that must fit in uint64.
// Plaintext monetary inputs are uint64 throughout; larger words are a
// validation failure, not a silent truncation.
func parseUint64Word(word []byte) (uint64, error) {
	for _, b := range word[:24] {
		if b != 0 {
			return 0, ErrInvalidInput
		}
	}
	return binary.BigEndian.Uint64(word[24:32]), nil
}

// isMinter reports whether [caller] may mint. Until a minter is set, any
// caller may, so genesis tooling can bootstrap supply.
func (p *tokenPrecompile) isMinter(state contract.StateDB, caller common.Address) bool {
	val := state.GetState(ContractAddress, minterSlot)
	minter := common.BytesToAddress(val[12:])
	if minter == (common.Address{}) {
		return true
	}
	return caller == minter
}
