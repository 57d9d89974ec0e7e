// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package crowdfund

import (
	"fmt"

	"github.com/luxfi/crowdfund/contract"
	"github.com/luxfi/crowdfund/modules"
	"github.com/luxfi/crowdfund/precompileconfig"
	"github.com/luxfi/crowdfund/token"
	"github.com/luxfi/geth/common"
)

var _ contract.Configurator = (*configurator)(nil)

// ConfigKey is the key used in json config files to specify this precompile
const ConfigKey = "crowdfundConfig"

// Module is the precompile module
var Module = modules.Module{
	ConfigKey:    ConfigKey,
	Address:      ContractAddress,
	Contract:     CrowdfundPrecompile,
	Configurator: &configurator{},
}

type configurator struct{}

func init() {
	if err := modules.RegisterModule(Module); err != nil {
		panic(err)
	}
	// The engine receives contributions exclusively through the ledger's
	// transfer-and-call path.
	if err := token.RegisterReceiver(ContractAddress, contributionReceiver{}); err != nil {
		panic(err)
	}
}

// contributionReceiver adapts the engine to the ledger's receiver interface.
// The ledger invokes registered receivers directly, so the caller it
// presents is always its own address.
type contributionReceiver struct{}

func (contributionReceiver) OnConfidentialTransferReceived(
	env contract.AccessibleState,
	operator common.Address,
	from common.Address,
	amount common.Hash,
	data []byte,
) (common.Hash, error) {
	return CrowdfundPrecompile.OnConfidentialTransferReceived(env, token.ContractAddress, operator, from, amount, data)
}

// MakeConfig returns a new precompile config instance
func (*configurator) MakeConfig() precompileconfig.Config {
	return &Config{}
}

// Configure configures the state with the given precompile config
func (*configurator) Configure(
	chainConfig precompileconfig.ChainConfig,
	cfg precompileconfig.Config,
	state contract.StateDB,
	blockContext contract.ConfigurationBlockContext,
) error {
	_, ok := cfg.(*Config)
	if !ok {
		return fmt.Errorf("expected config type %T, got %T: %v", &Config{}, cfg, cfg)
	}
	return nil
}

// Config implements the precompileconfig.Config interface
type Config struct {
	precompileconfig.Upgrade
}

// Key returns the key for the precompile config
func (*Config) Key() string { return ConfigKey }

// Verify checks the config is valid
func (*Config) Verify(chainConfig precompileconfig.ChainConfig) error { return nil }

// Equal returns true if the given config is equal to this config
func (c *Config) Equal(cfg precompileconfig.Config) bool {
	other, ok := cfg.(*Config)
	if !ok {
		return false
	}
	return c.Upgrade.Equal(&other.Upgrade)
}
