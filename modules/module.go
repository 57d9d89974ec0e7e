// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package modules maintains the registry of stateful precompile modules and
// the reserved address ranges they may occupy.
package modules

import (
	"bytes"

	"github.com/luxfi/crowdfund/contract"
	"github.com/luxfi/geth/common"
)

// Module is the registration unit for a stateful precompile: its config
// key, its reserved address, the contract itself, and the configurator
// applied on activation.
type Module struct {
	// ConfigKey is the unique key for the module's configuration.
	ConfigKey string
	// Address is the address the precompile is registered at.
	Address common.Address
	// Contract is the precompile executed at [Address].
	Contract contract.StatefulPrecompiledContract
	// Configurator updates the state when the module is activated or
	// deactivated.
	Configurator contract.Configurator
}

type moduleArray []Module

func (m moduleArray) Len() int {
	return len(m)
}

func (m moduleArray) Swap(i, j int) {
	m[i], m[j] = m[j], m[i]
}

func (m moduleArray) Less(i, j int) bool {
	return bytes.Compare(m[i].Address.Bytes(), m[j].Address.Bytes()) < 0
}
