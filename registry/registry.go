// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package registry

import (
	"fmt"

	"github.com/luxfi/geth/common"
)

// ============================================================================
// PRECOMPILE ADDRESS SCHEME - Aligned with LP Numbering (LP-0099)
// ============================================================================
//
// All Lux-native precompiles use trailing-significant 20-byte addresses:
//   Format: 0x0000000000000000000000000000000000PCII
//
// The address ends with the 16-bit LP number (PCII) for easy identification.
// The selector encodes:
//   0x 0000...0000 P C II
//                  │ │ └┴─ Item/function (8 bits, 256 items per family×chain)
//                  │ └──── Chain slot    (4 bits, 16 chains max)
//                  └────── Family page   (4 bits, aligned with LP-Pxxx)
//
// The confidential crowdfunding suite lives on the Privacy page (P=4):
//   FHE co-processor    = P=4, C=2, II=0x40 → 0x...4240 (LP-4240)
//   Confidential ledger = P=4, C=2, II=0x50 → 0x...4250 (LP-4250)
//   Crowdfund engine    = P=4, C=2, II=0x51 → 0x...4251 (LP-4251)

const (
	// Privacy/Encryption (P=4) → LP-4xxx

	// FHE co-processor (II = 0x40-0x4F)
	FHECChain = "0x0000000000000000000000000000000000004240" // C-Chain FHE (LP-4240)
	FHEZChain = "0x0000000000000000000000000000000000004640" // Z-Chain FHE (LP-4640)

	// Confidential accounting (II = 0x50-0x5F)
	ConfidentialTokenCChain = "0x0000000000000000000000000000000000004250" // C-Chain confidential ledger (LP-4250)
	CrowdfundCChain         = "0x0000000000000000000000000000000000004251" // C-Chain crowdfund engine (LP-4251)
	ConfidentialTokenZChain = "0x0000000000000000000000000000000000004650" // Z-Chain confidential ledger (LP-4650)
	CrowdfundZChain         = "0x0000000000000000000000000000000000004651" // Z-Chain crowdfund engine (LP-4651)
)

// PrecompileAddress calculates address from (P, C, II) nibbles
// P = Family page (aligned with LP-Pxxx), C = Chain slot, II = Item
// Returns trailing-significant format: 0x0000000000000000000000000000000000PCII
func PrecompileAddress(p, c, ii uint8) common.Address {
	if p > 15 || c > 15 {
		return common.Address{}
	}
	// Build the 4-character selector: PCII (hex)
	selector := fmt.Sprintf("%x%x%02x", p, c, ii)
	// Pad with leading zeros to 40 hex chars (20 bytes)
	addr := "0000000000000000000000000000000000" + selector
	return common.HexToAddress("0x" + addr)
}

// ChainSlot returns the C-nibble for a chain name
func ChainSlot(chain string) uint8 {
	switch chain {
	case "C", "c":
		return 2
	case "Z", "z":
		return 6
	default:
		return 0xFF
	}
}

// ChainPrecompiles defines which precompiles are enabled for each chain
var ChainPrecompiles = map[string][]string{
	// C-Chain (main EVM)
	"C": {
		FHECChain, ConfidentialTokenCChain, CrowdfundCChain,
	},

	// Z-Chain (Privacy)
	"Z": {
		FHEZChain, ConfidentialTokenZChain, CrowdfundZChain,
	},
}

// PrecompileInfo contains metadata about a precompile
type PrecompileInfo struct {
	Address     string
	Name        string
	Description string
	GasBase     uint64
	Chains      []string
	LPRange     string // LP-Pxxx range alignment
}

// AllPrecompiles lists all available precompiles with their metadata
var AllPrecompiles = []PrecompileInfo{
	{FHECChain, "FHE", "Fully Homomorphic Encryption co-processor", 500000, []string{"C", "Z"}, "LP-4xxx"},
	{ConfidentialTokenCChain, "CONFIDENTIAL_TOKEN", "Confidential fungible asset ledger", 50000, []string{"C", "Z"}, "LP-4xxx"},
	{CrowdfundCChain, "CROWDFUND", "Confidential crowdfunding engine", 50000, []string{"C", "Z"}, "LP-4xxx"},
}

// GetPrecompileAddress returns the address for a precompile by name
func GetPrecompileAddress(name string) common.Address {
	for _, p := range AllPrecompiles {
		if p.Name == name {
			return common.HexToAddress(p.Address)
		}
	}
	return common.Address{}
}

// GetChainPrecompiles returns all precompile addresses for a chain
func GetChainPrecompiles(chainLetter string) []common.Address {
	addrs, ok := ChainPrecompiles[chainLetter]
	if !ok {
		return nil
	}

	result := make([]common.Address, len(addrs))
	for i, addr := range addrs {
		result[i] = common.HexToAddress(addr)
	}
	return result
}

// IsPrecompileEnabled checks if a precompile is enabled for a chain
func IsPrecompileEnabled(chainLetter string, precompileAddr common.Address) bool {
	addrs := ChainPrecompiles[chainLetter]

	for _, addr := range addrs {
		if common.HexToAddress(addr) == precompileAddr {
			return true
		}
	}
	return false
}
