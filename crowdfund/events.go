// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package crowdfund

import (
	"encoding/binary"

	"github.com/luxfi/crowdfund/contract"
	"github.com/luxfi/geth/common"
	"github.com/luxfi/geth/core/types"
)

// Event signatures, hashed at init
var (
	campaignCreatedTopic      = common.Keccak256Hash([]byte("CampaignCreated(uint256,address,uint64,uint64,string)"))
	contributionReceivedTopic = common.Keccak256Hash([]byte("ContributionReceived(uint256,address,bytes32)"))
	campaignEndedTopic        = common.Keccak256Hash([]byte("CampaignEnded(uint256,address,bytes32)"))
)

func idTopic(id uint64) common.Hash {
	var topic common.Hash
	binary.BigEndian.PutUint64(topic[24:], id)
	return topic
}

// emitCampaignCreated logs the public facts of a new campaign: its id,
// creator, plaintext funding goal, deadline, and name. The goal is public
// by design; only contribution amounts stay encrypted.
func emitCampaignCreated(state contract.StateDB, id uint64, creator common.Address, target, deadline uint64, name string) {
	data := make([]byte, 64, 64+len(name))
	binary.BigEndian.PutUint64(data[24:32], target)
	binary.BigEndian.PutUint64(data[56:64], deadline)
	data = append(data, []byte(name)...)

	state.AddLog(&types.Log{
		Address: ContractAddress,
		Topics:  []common.Hash{campaignCreatedTopic, idTopic(id), common.BytesToHash(creator.Bytes())},
		Data:    data,
	})
}

// emitContributionReceived logs an accepted contribution. The amount is the
// ciphertext handle, never a plaintext value.
func emitContributionReceived(state contract.StateDB, id uint64, contributor common.Address, amount common.Hash) {
	state.AddLog(&types.Log{
		Address: ContractAddress,
		Topics:  []common.Hash{contributionReceivedTopic, idTopic(id), common.BytesToHash(contributor.Bytes())},
		Data:    amount.Bytes(),
	})
}

// emitCampaignEnded logs settlement, carrying the payout handle the ledger
// transfer actually returned.
func emitCampaignEnded(state contract.StateDB, id uint64, creator common.Address, payout common.Hash) {
	state.AddLog(&types.Log{
		Address: ContractAddress,
		Topics:  []common.Hash{campaignEndedTopic, idTopic(id), common.BytesToHash(creator.Bytes())},
		Data:    payout.Bytes(),
	})
}
