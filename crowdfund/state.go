// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package crowdfund

import (
	"encoding/binary"

	"github.com/luxfi/crowdfund/contract"
	"github.com/luxfi/geth/common"
)

// All campaign state lives in the engine's own storage. Slots are derived
// by hashing the campaign id with a field tag, so records never collide.

var nextIdSlot = common.Keccak256Hash([]byte("crowdfund.nextId"))

func campaignSlot(id uint64, field string) common.Hash {
	var idBytes [8]byte
	binary.BigEndian.PutUint64(idBytes[:], id)
	return common.Keccak256Hash(idBytes[:], []byte(field))
}

func contributionSlot(id uint64, contributor common.Address) common.Hash {
	var idBytes [8]byte
	binary.BigEndian.PutUint64(idBytes[:], id)
	return common.Keccak256Hash(idBytes[:], contributor.Bytes(), []byte("contribution"))
}

func getStateUint64(state contract.StateDB, slot common.Hash) uint64 {
	val := state.GetState(ContractAddress, slot)
	return binary.BigEndian.Uint64(val[24:])
}

func setStateUint64(state contract.StateDB, slot common.Hash, v uint64) {
	var val common.Hash
	binary.BigEndian.PutUint64(val[24:], v)
	state.SetState(ContractAddress, slot, val)
}

func getStateAddress(state contract.StateDB, slot common.Hash) common.Address {
	val := state.GetState(ContractAddress, slot)
	return common.BytesToAddress(val[12:])
}

func setStateAddress(state contract.StateDB, slot common.Hash, addr common.Address) {
	var val common.Hash
	copy(val[12:], addr.Bytes())
	state.SetState(ContractAddress, slot, val)
}

func getStateBool(state contract.StateDB, slot common.Hash) bool {
	val := state.GetState(ContractAddress, slot)
	return val[31] != 0
}

func setStateBool(state contract.StateDB, slot common.Hash, v bool) {
	var val common.Hash
	if v {
		val[31] = 1
	}
	state.SetState(ContractAddress, slot, val)
}

// Campaign names are stored as a length word followed by 32-byte chunks at
// derived slots.

func setName(state contract.StateDB, id uint64, name string) {
	data := []byte(name)
	setStateUint64(state, campaignSlot(id, "name.len"), uint64(len(data)))
	for i := 0; i < len(data); i += 32 {
		var chunk common.Hash
		copy(chunk[:], data[i:])
		state.SetState(ContractAddress, nameChunkSlot(id, i/32), chunk)
	}
}

func getName(state contract.StateDB, id uint64) string {
	length := getStateUint64(state, campaignSlot(id, "name.len"))
	if length == 0 {
		return ""
	}
	data := make([]byte, 0, length)
	for i := 0; uint64(i*32) < length; i++ {
		chunk := state.GetState(ContractAddress, nameChunkSlot(id, i))
		data = append(data, chunk[:]...)
	}
	return string(data[:length])
}

func nameChunkSlot(id uint64, chunk int) common.Hash {
	var idBytes [8]byte
	binary.BigEndian.PutUint64(idBytes[:], id)
	var chunkBytes [8]byte
	binary.BigEndian.PutUint64(chunkBytes[:], uint64(chunk))
	return common.Keccak256Hash(idBytes[:], []byte("name.chunk"), chunkBytes[:])
}

// Campaign is the stored record of a single fundraising campaign.
type Campaign struct {
	Id       uint64
	Name     string
	Creator  common.Address
	Target   common.Hash // encrypted funding goal
	Raised   common.Hash // encrypted running total
	Deadline uint64      // unix seconds
	Ended    bool
}

// campaignExists reports whether [id] names a created campaign. The creator
// field doubles as the existence sentinel: no campaign is ever created with
// a zero creator.
func campaignExists(state contract.StateDB, id uint64) bool {
	if id == 0 {
		return false
	}
	return getStateAddress(state, campaignSlot(id, "creator")) != (common.Address{})
}

func loadCampaign(state contract.StateDB, id uint64) Campaign {
	return Campaign{
		Id:       id,
		Name:     getName(state, id),
		Creator:  getStateAddress(state, campaignSlot(id, "creator")),
		Target:   state.GetState(ContractAddress, campaignSlot(id, "target")),
		Raised:   state.GetState(ContractAddress, campaignSlot(id, "raised")),
		Deadline: getStateUint64(state, campaignSlot(id, "deadline")),
		Ended:    getStateBool(state, campaignSlot(id, "ended")),
	}
}
