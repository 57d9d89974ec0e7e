// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package precompileconfig defines the configuration interface implemented
// by every stateful precompile module, plus the shared activation Upgrade.
package precompileconfig

import "github.com/luxfi/geth/common"

// Config is implemented by each precompile's configuration struct.
type Config interface {
	// Key returns the unique key for the precompile.
	Key() string
	// Timestamp returns the timestamp at which this precompile activates.
	// A nil return means the upgrade is never enabled.
	Timestamp() *uint64
	// IsDisabled returns true if this network upgrade deactivates the
	// precompile.
	IsDisabled() bool
	// Equal returns true if the provided argument configures the same
	// precompile with the same parameters.
	Equal(Config) bool
	// Verify is called on startup and an error is treated as fatal.
	Verify(ChainConfig) error
}

// ChainConfig provides the chain-level view precompiles may consult while
// verifying or applying their configuration.
type ChainConfig interface {
	// IsPrecompileEnabled returns true if the precompile at [addr] is
	// enabled at [timestamp].
	IsPrecompileEnabled(addr common.Address, timestamp uint64) bool
}

// Upgrade contains the shared timestamp/disable fields of every precompile
// activation.
type Upgrade struct {
	BlockTimestamp *uint64 `json:"blockTimestamp,omitempty"`
	Disable        bool    `json:"disable,omitempty"`
}

// Timestamp returns the timestamp this network upgrade goes into effect.
func (u *Upgrade) Timestamp() *uint64 {
	return u.BlockTimestamp
}

// IsDisabled returns true if the network upgrade deactivates the precompile.
func (u *Upgrade) IsDisabled() bool {
	return u.Disable
}

// Equal returns true iff [other] has the same activation parameters.
func (u *Upgrade) Equal(other *Upgrade) bool {
	if other == nil {
		return false
	}
	if u.Disable != other.Disable {
		return false
	}
	if (u.BlockTimestamp == nil) != (other.BlockTimestamp == nil) {
		return false
	}
	return u.BlockTimestamp == nil || *u.BlockTimestamp == *other.BlockTimestamp
}
