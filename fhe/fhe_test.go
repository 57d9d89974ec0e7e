// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package fhe

import (
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/luxfi/fhe"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

// TestTFHEInitialization tests that the TFHE components initialize correctly
func TestTFHEInitialization(t *testing.T) {
	err := initTFHE()
	require.NoError(t, err, "TFHE initialization should succeed")
	require.NotNil(t, evaluator, "evaluator should be initialized")
	require.NotNil(t, encryptor, "encryptor should be initialized")
	require.NotNil(t, decryptor, "decryptor should be initialized")
	require.NotNil(t, secretKey, "secretKey should be initialized")
	require.NotNil(t, publicKey, "publicKey should be initialized")
}

// TestFheTypeMapping tests FHE type constant to TFHE type mapping
func TestFheTypeMapping(t *testing.T) {
	tests := []struct {
		name     string
		fheType  uint8
		expected fhe.FheUintType
	}{
		{"bool", TypeEbool, fhe.FheBool},
		{"uint8", TypeEuint8, fhe.FheUint8},
		{"uint16", TypeEuint16, fhe.FheUint16},
		{"uint32", TypeEuint32, fhe.FheUint32},
		{"uint64", TypeEuint64, fhe.FheUint64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := fheTypeToTFHEType(tt.fheType)
			require.Equal(t, tt.expected, result)
		})
	}
}

// TestTrivialEncryptDecrypt tests encrypt-decrypt roundtrip
func TestTrivialEncryptDecrypt(t *testing.T) {
	err := initTFHE()
	require.NoError(t, err)

	tests := []struct {
		name    string
		value   uint64
		fheType uint8
	}{
		{"zero_uint8", 0, TypeEuint8},
		{"one_uint8", 1, TypeEuint8},
		{"max_uint8", 255, TypeEuint8},
		{"uint32_42", 42, TypeEuint32},
		{"uint64_large", 12345678, TypeEuint64},
		{"bool_true", 1, TypeEbool},
		{"bool_false", 0, TypeEbool},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Encrypt
			ct := tfheTrivialEncrypt(big.NewInt(int64(tt.value)), tt.fheType)
			require.NotNil(t, ct, "encryption should succeed")
			require.Greater(t, len(ct), 0, "ciphertext should not be empty")

			// Decrypt
			decrypted := tfheDecrypt(ct, tt.fheType)
			require.NotNil(t, decrypted)
			require.Equal(t, tt.value, decrypted.Uint64(), "decrypted value should match")
		})
	}
}

// TestBitCiphertextSerialization tests BitCiphertext serialization roundtrip
func TestBitCiphertextSerialization(t *testing.T) {
	err := initTFHE()
	require.NoError(t, err)

	// Encrypt a value
	value := uint64(42)
	ct := tfheTrivialEncrypt(big.NewInt(int64(value)), TypeEuint8)
	require.NotNil(t, ct)

	// Deserialize to BitCiphertext and back
	bc := deserializeBitCiphertext(ct)
	require.NotNil(t, bc)

	serialized := serializeBitCiphertext(bc)
	require.NotNil(t, serialized)

	// Deserialize again and verify
	bc2 := deserializeBitCiphertext(serialized)
	require.NotNil(t, bc2)
	require.Equal(t, bc.NumBits(), bc2.NumBits())
}

// TestCiphertextStore tests the ciphertext storage mechanism
func TestCiphertextStore(t *testing.T) {
	err := initTFHE()
	require.NoError(t, err)

	// Create ciphertext
	ct := tfheTrivialEncrypt(big.NewInt(42), TypeEuint8)
	require.NotNil(t, ct)

	// Store it
	handle := storeCiphertext(ct, TypeEuint8)
	require.NotEqual(t, common.Hash{}, handle)

	// Retrieve it
	retrieved, ctType, ok := getCiphertext(handle)
	require.True(t, ok)
	require.Equal(t, TypeEuint8, ctType)
	require.Equal(t, ct, retrieved)
}

// TestEncryptAndDecryptWithACL tests the full encrypt/allow/decrypt path
func TestEncryptAndDecryptWithACL(t *testing.T) {
	viewer := common.HexToAddress("0x1234567890123456789012345678901234567890")
	stranger := common.HexToAddress("0xDEADBEEFDEADBEEFDEADBEEFDEADBEEFDEADBEEF")

	handle, err := Encrypt(750)
	require.NoError(t, err)
	require.NotEqual(t, common.Hash{}, handle)
	require.True(t, IsInitialized(handle))

	// No grant yet: decryption is refused for everyone
	_, err = Decrypt(handle, viewer)
	require.ErrorIs(t, err, ErrNotPermitted)

	Allow(handle, viewer)
	require.True(t, IsAllowed(handle, viewer))
	require.False(t, IsAllowed(handle, stranger))

	value, err := Decrypt(handle, viewer)
	require.NoError(t, err)
	require.Equal(t, uint64(750), value)

	// Grants never leak to other accounts
	_, err = Decrypt(handle, stranger)
	require.ErrorIs(t, err, ErrNotPermitted)
}

// TestAddHandles tests homomorphic addition over stored handles
func TestAddHandles(t *testing.T) {
	viewer := common.HexToAddress("0x1111111111111111111111111111111111111111")

	a, err := Encrypt(300)
	require.NoError(t, err)
	b, err := Encrypt(450)
	require.NoError(t, err)

	sum, err := Add(a, b)
	require.NoError(t, err)
	require.NotEqual(t, common.Hash{}, sum)

	// The sum handle starts with an empty ACL
	_, err = Decrypt(sum, viewer)
	require.ErrorIs(t, err, ErrNotPermitted)

	Allow(sum, viewer)
	value, err := Decrypt(sum, viewer)
	require.NoError(t, err)
	require.Equal(t, uint64(750), value)
}

// TestSubHandles tests homomorphic subtraction over stored handles
func TestSubHandles(t *testing.T) {
	viewer := common.HexToAddress("0x2222222222222222222222222222222222222222")

	a, err := Encrypt(500)
	require.NoError(t, err)
	b, err := Encrypt(400)
	require.NoError(t, err)

	diff, err := Sub(a, b)
	require.NoError(t, err)

	Allow(diff, viewer)
	value, err := Decrypt(diff, viewer)
	require.NoError(t, err)
	require.Equal(t, uint64(100), value)
}

// TestLeHandles tests the encrypted comparison path
func TestLeHandles(t *testing.T) {
	viewer := common.HexToAddress("0x3333333333333333333333333333333333333333")

	tests := []struct {
		name     string
		a, b     uint64
		expected bool
	}{
		{"less", 3, 5, true},
		{"equal", 5, 5, true},
		{"greater", 7, 5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := Encrypt(tt.a)
			require.NoError(t, err)
			b, err := Encrypt(tt.b)
			require.NoError(t, err)

			cmp, err := Le(a, b)
			require.NoError(t, err)

			Allow(cmp, viewer)
			result, err := DecryptBool(cmp, viewer)
			require.NoError(t, err)
			require.Equal(t, tt.expected, result)
		})
	}
}

// TestAddUnknownHandle tests that arithmetic on unknown handles fails
func TestAddUnknownHandle(t *testing.T) {
	a, err := Encrypt(1)
	require.NoError(t, err)

	_, err = Add(a, common.HexToHash("0xabcdef"))
	require.ErrorIs(t, err, ErrInvalidCiphertext)

	_, err = Add(common.Hash{}, a)
	require.ErrorIs(t, err, ErrInvalidCiphertext)
}

// TestEncryptBool tests encrypted boolean roundtrip
func TestEncryptBool(t *testing.T) {
	viewer := common.HexToAddress("0x4444444444444444444444444444444444444444")

	for _, b := range []bool{true, false} {
		handle, err := EncryptBool(b)
		require.NoError(t, err)

		Allow(handle, viewer)
		result, err := DecryptBool(handle, viewer)
		require.NoError(t, err)
		require.Equal(t, b, result)
	}
}

// TestVerifyImport tests importing an externally-serialized ciphertext
func TestVerifyImport(t *testing.T) {
	original, err := Encrypt(999)
	require.NoError(t, err)

	ct, ctType, ok := Ciphertext(original)
	require.True(t, ok)
	require.Equal(t, TypeEuint64, ctType)

	// Re-importing the serialized ciphertext yields the same handle
	imported, err := Verify(ct, ctType)
	require.NoError(t, err)
	require.Equal(t, original, imported)

	// Garbage does not verify
	_, err = Verify([]byte{0x00, 0x01, 0x02, 0x03}, TypeEuint64)
	require.ErrorIs(t, err, ErrInvalidCiphertext)
}

// TestIsInitialized tests the zero-handle sentinel
func TestIsInitialized(t *testing.T) {
	require.False(t, IsInitialized(common.Hash{}))
	require.False(t, IsInitialized(common.HexToHash("0x1234")))

	handle, err := Encrypt(1)
	require.NoError(t, err)
	require.True(t, IsInitialized(handle))
}

// TestPrecompileRun tests the selector-routed precompile surface
func TestPrecompileRun(t *testing.T) {
	caller := common.HexToAddress("0x5555555555555555555555555555555555555555")

	t.Run("asEuint64 then decrypt via allow", func(t *testing.T) {
		input := make([]byte, 36)
		copy(input[:4], "\xa5\x17\x5c\x89") // asEuint64(uint64)
		binary.BigEndian.PutUint64(input[28:36], 1234)

		ret, remaining, err := FHEPrecompile.Run(nil, caller, ContractAddress, input, GasEncrypt, false)
		require.NoError(t, err)
		require.Equal(t, uint64(0), remaining)
		require.Len(t, ret, 32)

		handle := common.BytesToHash(ret)
		require.True(t, IsInitialized(handle))

		// Decrypt without a grant fails
		decInput := append([]byte("\x12\x3d\x4c\x87"), handle.Bytes()...)
		_, _, err = FHEPrecompile.Run(nil, caller, ContractAddress, decInput, GasDecrypt, false)
		require.ErrorIs(t, err, ErrNotPermitted)

		// Grant the caller via allow(bytes32,address), then decrypt
		allowInput := make([]byte, 68)
		copy(allowInput[:4], "\x30\x71\x1e\x5c")
		copy(allowInput[4:36], handle.Bytes())
		copy(allowInput[48:68], caller.Bytes())
		_, _, err = FHEPrecompile.Run(nil, caller, ContractAddress, allowInput, GasAllow, false)
		require.NoError(t, err)

		ret, _, err = FHEPrecompile.Run(nil, caller, ContractAddress, decInput, GasDecrypt, false)
		require.NoError(t, err)
		require.Equal(t, uint64(1234), binary.BigEndian.Uint64(ret[24:]))
	})

	t.Run("add over handles", func(t *testing.T) {
		a, err := Encrypt(10)
		require.NoError(t, err)
		b, err := Encrypt(3)
		require.NoError(t, err)

		input := make([]byte, 68)
		copy(input[:4], "\x23\xb8\x72\xdd") // add(bytes32,bytes32)
		copy(input[4:36], a.Bytes())
		copy(input[36:68], b.Bytes())

		ret, _, err := FHEPrecompile.Run(nil, caller, ContractAddress, input, GasAdd, false)
		require.NoError(t, err)

		sum := common.BytesToHash(ret)
		Allow(sum, caller)
		value, err := Decrypt(sum, caller)
		require.NoError(t, err)
		require.Equal(t, uint64(13), value)
	})

	t.Run("insufficient gas", func(t *testing.T) {
		input := make([]byte, 36)
		copy(input[:4], "\xa5\x17\x5c\x89")
		_, remaining, err := FHEPrecompile.Run(nil, caller, ContractAddress, input, GasEncrypt-1, false)
		require.ErrorIs(t, err, ErrInsufficientGas)
		require.Equal(t, uint64(0), remaining)
	})

	t.Run("allow is write-protected", func(t *testing.T) {
		handle, err := Encrypt(1)
		require.NoError(t, err)

		input := make([]byte, 68)
		copy(input[:4], "\x30\x71\x1e\x5c")
		copy(input[4:36], handle.Bytes())
		copy(input[48:68], caller.Bytes())

		_, _, err = FHEPrecompile.Run(nil, caller, ContractAddress, input, GasAllow, true)
		require.Error(t, err)
	})

	t.Run("unknown selector", func(t *testing.T) {
		_, _, err := FHEPrecompile.Run(nil, caller, ContractAddress, []byte{0xde, 0xad, 0xbe, 0xef}, GasAdd, false)
		require.ErrorIs(t, err, ErrNotImplemented)
	})
}
