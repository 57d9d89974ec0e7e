// Copyright (C) 2019-2024, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

package fhe

import (
	"encoding/binary"
	"errors"

	"github.com/luxfi/crowdfund/contract"
	"github.com/luxfi/geth/common"
)

// Ciphertext type constants - must match github.com/luxfi/fhe FheUintType
const (
	TypeEbool   uint8 = 0 // FheBool - 1 bit
	TypeEuint8  uint8 = 2 // FheUint8 - 8 bits
	TypeEuint16 uint8 = 3 // FheUint16 - 16 bits
	TypeEuint32 uint8 = 4 // FheUint32 - 32 bits
	TypeEuint64 uint8 = 5 // FheUint64 - 64 bits
)

// ContractAddress is the FHE co-processor address (LP-4240)
var ContractAddress = common.HexToAddress("0x0000000000000000000000000000000000004240")

// Gas costs for FHE operations
const (
	GasEncrypt uint64 = 50000
	GasDecrypt uint64 = 10000
	GasAdd     uint64 = 65000
	GasSub     uint64 = 65000
	GasLe      uint64 = 60000
	GasVerify  uint64 = 50000
	GasAllow   uint64 = 5000
	GasACLRead uint64 = 200
)

var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrOperationFailed   = errors.New("FHE operation failed")
	ErrNotImplemented    = errors.New("operation not implemented")
	ErrInsufficientGas   = errors.New("insufficient gas for FHE operation")
	ErrInvalidCiphertext = errors.New("invalid ciphertext handle")
	ErrNotPermitted      = errors.New("account not permitted to decrypt")
)

// FHEPrecompile is the singleton co-processor precompile
var FHEPrecompile = &fhePrecompile{}

type fhePrecompile struct{}

// Run executes the FHE precompile
func (c *fhePrecompile) Run(
	accessibleState contract.AccessibleState,
	caller common.Address,
	addr common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) (ret []byte, remainingGas uint64, err error) {
	if len(input) < 4 {
		return nil, suppliedGas, ErrInvalidInput
	}

	selector := input[:4]
	data := input[4:]

	switch string(selector) {
	// Arithmetic over stored handles
	case "\x23\xb8\x72\xdd": // add(bytes32,bytes32)
		return c.handleBinaryOp(Add, GasAdd, data, suppliedGas)
	case "\x51\xca\xb0\x91": // sub(bytes32,bytes32)
		return c.handleBinaryOp(Sub, GasSub, data, suppliedGas)
	case "\x26\xa3\x31\x9e": // le(bytes32,bytes32)
		return c.handleBinaryOp(Le, GasLe, data, suppliedGas)

	// Encryption
	case "\xa5\x17\x5c\x89": // asEuint64(uint64)
		return c.handleAsEuint64(data, suppliedGas)
	case "\x8c\x3f\x5a\x42": // asEbool(bool)
		return c.handleAsEbool(data, suppliedGas)
	case "\x45\xa9\x32\x18": // verify(bytes,uint8)
		return c.handleVerify(data, suppliedGas)

	// Permissioning
	case "\x30\x71\x1e\x5c": // allow(bytes32,address)
		return c.handleAllow(data, suppliedGas, readOnly)
	case "\x91\x6a\x55\x3b": // isAllowed(bytes32,address)
		return c.handleIsAllowed(data, suppliedGas)
	case "\x0e\x27\x6c\x44": // isInitialized(bytes32)
		return c.handleIsInitialized(data, suppliedGas)

	// Decryption (ACL-gated)
	case "\x12\x3d\x4c\x87": // decrypt(bytes32)
		return c.handleDecrypt(caller, data, suppliedGas)

	default:
		return nil, suppliedGas, ErrNotImplemented
	}
}

func (c *fhePrecompile) handleBinaryOp(
	op func(a, b common.Hash) (common.Hash, error),
	gasCost uint64,
	data []byte,
	gas uint64,
) ([]byte, uint64, error) {
	if len(data) < 64 {
		return nil, gas, ErrInvalidInput
	}
	if gas < gasCost {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := gas - gasCost

	handle1 := common.BytesToHash(data[:32])
	handle2 := common.BytesToHash(data[32:64])

	result, err := op(handle1, handle2)
	if err != nil {
		return nil, remainingGas, err
	}

	return result.Bytes(), remainingGas, nil
}

func (c *fhePrecompile) handleAsEuint64(data []byte, gas uint64) ([]byte, uint64, error) {
	if len(data) < 32 {
		return nil, gas, ErrInvalidInput
	}
	if gas < GasEncrypt {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := gas - GasEncrypt

	value := binary.BigEndian.Uint64(data[24:32])
	handle, err := Encrypt(value)
	if err != nil {
		return nil, remainingGas, err
	}

	return handle.Bytes(), remainingGas, nil
}

func (c *fhePrecompile) handleAsEbool(data []byte, gas uint64) ([]byte, uint64, error) {
	if len(data) < 32 {
		return nil, gas, ErrInvalidInput
	}
	if gas < GasEncrypt {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := gas - GasEncrypt

	handle, err := EncryptBool(data[31] != 0)
	if err != nil {
		return nil, remainingGas, err
	}

	return handle.Bytes(), remainingGas, nil
}

// handleVerify imports an externally-encrypted ciphertext. Input layout:
// one type byte followed by the serialized ciphertext.
func (c *fhePrecompile) handleVerify(data []byte, gas uint64) ([]byte, uint64, error) {
	if len(data) < 2 {
		return nil, gas, ErrInvalidInput
	}
	if gas < GasVerify {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := gas - GasVerify

	ctType := data[0]
	handle, err := Verify(data[1:], ctType)
	if err != nil {
		return nil, remainingGas, err
	}

	return handle.Bytes(), remainingGas, nil
}

func (c *fhePrecompile) handleAllow(data []byte, gas uint64, readOnly bool) ([]byte, uint64, error) {
	if readOnly {
		return nil, gas, contract.ErrWriteProtection
	}
	if len(data) < 64 {
		return nil, gas, ErrInvalidInput
	}
	if gas < GasAllow {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := gas - GasAllow

	handle := common.BytesToHash(data[:32])
	viewer := common.BytesToAddress(data[44:64])
	if !IsInitialized(handle) {
		return nil, remainingGas, ErrInvalidCiphertext
	}
	Allow(handle, viewer)

	return nil, remainingGas, nil
}

func (c *fhePrecompile) handleIsAllowed(data []byte, gas uint64) ([]byte, uint64, error) {
	if len(data) < 64 {
		return nil, gas, ErrInvalidInput
	}
	if gas < GasACLRead {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := gas - GasACLRead

	handle := common.BytesToHash(data[:32])
	viewer := common.BytesToAddress(data[44:64])

	result := make([]byte, 32)
	if IsAllowed(handle, viewer) {
		result[31] = 1
	}

	return result, remainingGas, nil
}

func (c *fhePrecompile) handleIsInitialized(data []byte, gas uint64) ([]byte, uint64, error) {
	if len(data) < 32 {
		return nil, gas, ErrInvalidInput
	}
	if gas < GasACLRead {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := gas - GasACLRead

	result := make([]byte, 32)
	if IsInitialized(common.BytesToHash(data[:32])) {
		result[31] = 1
	}

	return result, remainingGas, nil
}

func (c *fhePrecompile) handleDecrypt(caller common.Address, data []byte, gas uint64) ([]byte, uint64, error) {
	if len(data) < 32 {
		return nil, gas, ErrInvalidInput
	}
	if gas < GasDecrypt {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := gas - GasDecrypt

	handle := common.BytesToHash(data[:32])
	value, err := Decrypt(handle, caller)
	if err != nil {
		return nil, remainingGas, err
	}

	result := make([]byte, 32)
	binary.BigEndian.PutUint64(result[24:], value)

	return result, remainingGas, nil
}
