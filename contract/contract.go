// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package contract defines the interfaces stateful precompiles are built
// against: the state access they receive at run time and the configuration
// hooks the chain invokes on activation.
package contract

import (
	"math/big"

	"github.com/holiman/uint256"
	"github.com/luxfi/crowdfund/precompileconfig"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/tracing"
	"github.com/luxfi/geth/core/types"
)

// StateDB is the subset of the EVM state database available to stateful
// precompiles.
type StateDB interface {
	GetState(common.Address, common.Hash) common.Hash
	SetState(common.Address, common.Hash, common.Hash) common.Hash

	GetBalance(common.Address) *uint256.Int
	AddBalance(common.Address, *uint256.Int, tracing.BalanceChangeReason) uint256.Int
	SubBalance(common.Address, *uint256.Int, tracing.BalanceChangeReason) uint256.Int

	GetNonce(common.Address) uint64
	SetNonce(common.Address, uint64, tracing.NonceChangeReason)

	CreateAccount(common.Address)
	Exist(common.Address) bool

	AddLog(*types.Log)
	Logs() []*types.Log

	TxHash() common.Hash

	Snapshot() int
	RevertToSnapshot(int)
}

// BlockContext exposes block metadata to precompiles during execution.
type BlockContext interface {
	Number() *big.Int
	Timestamp() uint64
}

// AccessibleState is the execution environment handed to a precompile's Run.
type AccessibleState interface {
	GetStateDB() StateDB
	GetBlockContext() BlockContext
}

// ConfigurationBlockContext is the block context available while a
// precompile is being configured (activated or deactivated).
type ConfigurationBlockContext interface {
	Number() *big.Int
	Timestamp() uint64
}

// StatefulPrecompiledContract is the interface for executing a precompiled
// contract with access to the EVM state.
type StatefulPrecompiledContract interface {
	// Run executes the precompiled contract.
	Run(
		accessibleState AccessibleState,
		caller common.Address,
		addr common.Address,
		input []byte,
		suppliedGas uint64,
		readOnly bool,
	) (ret []byte, remainingGas uint64, err error)
}

// Configurator updates the state according to the module's config on
// activation.
type Configurator interface {
	MakeConfig() precompileconfig.Config
	Configure(
		chainConfig precompileconfig.ChainConfig,
		precompileConfig precompileconfig.Config,
		state StateDB,
		blockContext ConfigurationBlockContext,
	) error
}
