// Copyright (C) 2019-2025, Lux Partners Limited. All rights reserved.
// See the file LICENSE for licensing terms.

// Package fhe implements the FHE co-processor precompile (LP-4240): a
// ciphertext store keyed by 32-byte handles, homomorphic arithmetic over
// stored handles, and a per-handle access control list gating decryption.
package fhe

import (
	"math/big"

	"github.com/luxfi/geth/common"
)

// ciphertextStore holds encrypted values indexed by handle
var ciphertextStore = make(map[common.Hash][]byte)
var ciphertextTypes = make(map[common.Hash]uint8)

// aclStore maps a handle to the set of accounts allowed to decrypt it.
// Grants are additive and never revoked.
var aclStore = make(map[common.Hash]map[common.Address]bool)

// storeCiphertext saves ciphertext and returns its handle
func storeCiphertext(ct []byte, ctType uint8) common.Hash {
	hash := common.BytesToHash(ct)
	ciphertextStore[hash] = ct
	ciphertextTypes[hash] = ctType
	return hash
}

// getCiphertext retrieves ciphertext by handle
func getCiphertext(hash common.Hash) ([]byte, uint8, bool) {
	ct, ok := ciphertextStore[hash]
	if !ok {
		return nil, 0, false
	}
	return ct, ciphertextTypes[hash], true
}

// Encrypt trivially encrypts a plaintext uint64 and returns the handle of
// the stored ciphertext.
func Encrypt(value uint64) (common.Hash, error) {
	ct := tfheTrivialEncrypt(new(big.Int).SetUint64(value), TypeEuint64)
	if ct == nil {
		return common.Hash{}, ErrOperationFailed
	}
	return storeCiphertext(ct, TypeEuint64), nil
}

// EncryptBool encrypts a boolean and returns the handle of the stored
// ciphertext.
func EncryptBool(b bool) (common.Hash, error) {
	var v uint64
	if b {
		v = 1
	}
	ct := tfheTrivialEncrypt(new(big.Int).SetUint64(v), TypeEbool)
	if ct == nil {
		return common.Hash{}, ErrOperationFailed
	}
	return storeCiphertext(ct, TypeEbool), nil
}

// Add homomorphically adds the ciphertexts behind two handles and returns
// the handle of the sum.
func Add(a, b common.Hash) (common.Hash, error) {
	lhs, lhsType, ok := getCiphertext(a)
	if !ok {
		return common.Hash{}, ErrInvalidCiphertext
	}
	rhs, _, ok := getCiphertext(b)
	if !ok {
		return common.Hash{}, ErrInvalidCiphertext
	}
	result := tfheAdd(lhs, rhs, lhsType)
	if result == nil {
		return common.Hash{}, ErrOperationFailed
	}
	return storeCiphertext(result, lhsType), nil
}

// Sub homomorphically subtracts the ciphertext behind [b] from the one
// behind [a].
func Sub(a, b common.Hash) (common.Hash, error) {
	lhs, lhsType, ok := getCiphertext(a)
	if !ok {
		return common.Hash{}, ErrInvalidCiphertext
	}
	rhs, _, ok := getCiphertext(b)
	if !ok {
		return common.Hash{}, ErrInvalidCiphertext
	}
	result := tfheSub(lhs, rhs, lhsType)
	if result == nil {
		return common.Hash{}, ErrOperationFailed
	}
	return storeCiphertext(result, lhsType), nil
}

// Le compares the ciphertexts behind two handles and returns the handle of
// an encrypted boolean a <= b.
func Le(a, b common.Hash) (common.Hash, error) {
	lhs, lhsType, ok := getCiphertext(a)
	if !ok {
		return common.Hash{}, ErrInvalidCiphertext
	}
	rhs, _, ok := getCiphertext(b)
	if !ok {
		return common.Hash{}, ErrInvalidCiphertext
	}
	result := tfheLe(lhs, rhs, lhsType)
	if result == nil {
		return common.Hash{}, ErrOperationFailed
	}
	return storeCiphertext(result, TypeEbool), nil
}

// IsInitialized reports whether [h] refers to a stored ciphertext. The zero
// handle is never initialized and is treated by callers as encrypted zero.
func IsInitialized(h common.Hash) bool {
	if h == (common.Hash{}) {
		return false
	}
	_, ok := ciphertextStore[h]
	return ok
}

// Allow grants [viewer] permanent decrypt access to the ciphertext behind
// [h]. Grants are additive; there is no revocation.
func Allow(h common.Hash, viewer common.Address) {
	if aclStore[h] == nil {
		aclStore[h] = make(map[common.Address]bool)
	}
	aclStore[h][viewer] = true
}

// IsAllowed reports whether [viewer] has been granted decrypt access to [h].
func IsAllowed(h common.Hash, viewer common.Address) bool {
	return aclStore[h][viewer]
}

// Decrypt decrypts the ciphertext behind [h] on behalf of [viewer]. The
// viewer must have been granted access via Allow.
func Decrypt(h common.Hash, viewer common.Address) (uint64, error) {
	if !IsAllowed(h, viewer) {
		return 0, ErrNotPermitted
	}
	ct, ctType, ok := getCiphertext(h)
	if !ok {
		return 0, ErrInvalidCiphertext
	}
	plaintext := tfheDecrypt(ct, ctType)
	if plaintext == nil {
		return 0, ErrOperationFailed
	}
	return plaintext.Uint64(), nil
}

// DecryptBool decrypts an encrypted boolean behind [h] on behalf of
// [viewer].
func DecryptBool(h common.Hash, viewer common.Address) (bool, error) {
	v, err := Decrypt(h, viewer)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// Verify checks that [ct] deserializes to a well-formed ciphertext, stores
// it, and returns its handle. This is the import path for externally
// encrypted values: the serialized ciphertext doubles as the proof artifact
// that the handle refers to a well-formed encryption.
func Verify(ct []byte, ctType uint8) (common.Hash, error) {
	if !tfheVerify(ct, ctType) {
		return common.Hash{}, ErrInvalidCiphertext
	}
	return storeCiphertext(ct, ctType), nil
}

// Ciphertext returns the serialized ciphertext and type behind [h], for use
// as a verification proof artifact.
func Ciphertext(h common.Hash) ([]byte, uint8, bool) {
	return getCiphertext(h)
}
