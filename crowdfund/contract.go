// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package crowdfund implements the confidential crowdfunding engine
// precompile (LP-4251). Campaigns have a public goal and deadline but keep
// every contribution amount encrypted: running totals and per-contributor
// entries are ciphertext handles aggregated homomorphically through the FHE
// co-processor, and settlement moves the raised total to the creator
// through the confidential asset ledger.
package crowdfund

import (
	"encoding/binary"
	"errors"

	"github.com/luxfi/crowdfund/contract"
	"github.com/luxfi/crowdfund/fhe"
	"github.com/luxfi/crowdfund/token"
	"github.com/luxfi/geth/common"
)

// ContractAddress is the crowdfund engine address (LP-4251)
var ContractAddress = common.HexToAddress("0x0000000000000000000000000000000000004251")

// Function selectors
var (
	SelectorCreateCampaign   = [4]byte{0x8e, 0x1a, 0x55, 0x23} // createCampaign(uint64,uint64,string)
	SelectorEndCampaign      = [4]byte{0x50, 0xc6, 0x7d, 0x02} // endCampaign(uint256)
	SelectorGetCampaign      = [4]byte{0x14, 0x9f, 0xc1, 0x8e} // getCampaign(uint256)
	SelectorContributionOf   = [4]byte{0x6f, 0x0f, 0x9a, 0x4c} // contributionOf(uint256,address)
	SelectorIsCampaignActive = [4]byte{0xb2, 0x5d, 0x43, 0x71} // isCampaignActive(uint256)
	SelectorTreasuryBalance  = [4]byte{0x3b, 0x8b, 0xe3, 0x90} // treasuryBalance()
	SelectorOnReceived       = [4]byte{0xc7, 0x44, 0x12, 0xd5} // onConfidentialTransferReceived(address,address,bytes32,bytes)
)

// Gas costs
const (
	GasCreateCampaign uint64 = 300000
	GasContribution   uint64 = 400000
	GasEndCampaign    uint64 = 600000
	GasRead           uint64 = 200
)

// Errors
var (
	// Validation
	ErrEmptyName    = errors.New("campaign name must not be empty")
	ErrZeroTarget   = errors.New("campaign target must be positive")
	ErrPastDeadline = errors.New("campaign deadline must be in the future")
	// Not found
	ErrCampaignNotFound = errors.New("campaign not found")
	// Authorization
	ErrNotCreator      = errors.New("caller is not the campaign creator")
	ErrUntrustedLedger = errors.New("caller is not the confidential ledger")
	// Lifecycle
	ErrCampaignEnded   = errors.New("campaign already ended")
	ErrCampaignExpired = errors.New("campaign deadline has passed")

	ErrInsufficientGas = errors.New("insufficient gas")
	ErrInvalidInput    = errors.New("invalid input")
)

// CrowdfundPrecompile implements the stateful precompiled contract interface
var CrowdfundPrecompile = &crowdfundPrecompile{}

type crowdfundPrecompile struct{}

// Run executes the crowdfund precompile
func (c *crowdfundPrecompile) Run(
	accessibleState contract.AccessibleState,
	caller common.Address,
	addr common.Address,
	input []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if len(input) < 4 {
		return nil, suppliedGas, ErrInvalidInput
	}

	var selector [4]byte
	copy(selector[:], input[:4])
	args := input[4:]

	switch selector {
	case SelectorCreateCampaign:
		return c.handleCreateCampaign(accessibleState, caller, args, suppliedGas, readOnly)
	case SelectorEndCampaign:
		return c.handleEndCampaign(accessibleState, caller, args, suppliedGas, readOnly)
	case SelectorOnReceived:
		return c.handleOnReceived(accessibleState, caller, args, suppliedGas, readOnly)
	case SelectorGetCampaign:
		return c.handleGetCampaign(accessibleState.GetStateDB(), args, suppliedGas)
	case SelectorContributionOf:
		return c.handleContributionOf(accessibleState.GetStateDB(), args, suppliedGas)
	case SelectorIsCampaignActive:
		return c.handleIsCampaignActive(accessibleState, args, suppliedGas)
	case SelectorTreasuryBalance:
		return c.handleTreasuryBalance(accessibleState.GetStateDB(), suppliedGas)
	default:
		return nil, suppliedGas, ErrInvalidInput
	}
}

// CreateCampaign registers a new campaign and returns its id. Ids are
// assigned from 1 upward; 0 is never a valid id. Validation failures leave
// the id counter and all storage untouched.
func (c *crowdfundPrecompile) CreateCampaign(
	env contract.AccessibleState,
	caller common.Address,
	name string,
	target uint64,
	deadline uint64,
) (uint64, error) {
	if len(name) == 0 {
		return 0, ErrEmptyName
	}
	if target == 0 {
		return 0, ErrZeroTarget
	}
	now := env.GetBlockContext().Timestamp()
	if deadline <= now {
		return 0, ErrPastDeadline
	}

	targetHandle, err := fhe.Encrypt(target)
	if err != nil {
		return 0, err
	}
	raisedHandle, err := fhe.Encrypt(0)
	if err != nil {
		return 0, err
	}

	state := env.GetStateDB()
	id := getStateUint64(state, nextIdSlot) + 1
	setStateUint64(state, nextIdSlot, id)

	setName(state, id, name)
	setStateAddress(state, campaignSlot(id, "creator"), caller)
	state.SetState(ContractAddress, campaignSlot(id, "target"), targetHandle)
	state.SetState(ContractAddress, campaignSlot(id, "raised"), raisedHandle)
	setStateUint64(state, campaignSlot(id, "deadline"), deadline)

	// Creator and engine can always inspect the goal and the running total
	fhe.Allow(targetHandle, caller)
	fhe.Allow(targetHandle, ContractAddress)
	fhe.Allow(raisedHandle, caller)
	fhe.Allow(raisedHandle, ContractAddress)

	emitCampaignCreated(state, id, caller, target, deadline, name)

	return id, nil
}

// OnConfidentialTransferReceived accepts a contribution delivered by the
// confidential ledger. [caller] must be the ledger address; [data] carries
// the 32-byte campaign id word. On success the encrypted amount is folded
// into the campaign total and the contributor's entry, and the returned
// handle is an encrypted true the ledger may decrypt. Any error makes the
// ledger revert the transfer.
func (c *crowdfundPrecompile) OnConfidentialTransferReceived(
	env contract.AccessibleState,
	caller common.Address,
	operator common.Address,
	from common.Address,
	amount common.Hash,
	data []byte,
) (common.Hash, error) {
	if caller != token.ContractAddress {
		return common.Hash{}, ErrUntrustedLedger
	}
	if len(data) < 32 {
		return common.Hash{}, ErrInvalidInput
	}
	id := binary.BigEndian.Uint64(data[24:32])

	state := env.GetStateDB()
	if !campaignExists(state, id) {
		return common.Hash{}, ErrCampaignNotFound
	}
	if getStateBool(state, campaignSlot(id, "ended")) {
		return common.Hash{}, ErrCampaignEnded
	}
	now := env.GetBlockContext().Timestamp()
	if now > getStateUint64(state, campaignSlot(id, "deadline")) {
		return common.Hash{}, ErrCampaignExpired
	}

	creator := getStateAddress(state, campaignSlot(id, "creator"))

	raised := state.GetState(ContractAddress, campaignSlot(id, "raised"))
	newRaised, err := fhe.Add(raised, amount)
	if err != nil {
		return common.Hash{}, err
	}
	state.SetState(ContractAddress, campaignSlot(id, "raised"), newRaised)
	fhe.Allow(newRaised, creator)
	fhe.Allow(newRaised, ContractAddress)

	entrySlot := contributionSlot(id, from)
	entry := state.GetState(ContractAddress, entrySlot)
	var newEntry common.Hash
	if fhe.IsInitialized(entry) {
		newEntry, err = fhe.Add(entry, amount)
		if err != nil {
			return common.Hash{}, err
		}
	} else {
		newEntry = amount
	}
	state.SetState(ContractAddress, entrySlot, newEntry)
	fhe.Allow(newEntry, from)
	fhe.Allow(newEntry, ContractAddress)

	emitContributionReceived(state, id, from, amount)

	accept, err := fhe.EncryptBool(true)
	if err != nil {
		return common.Hash{}, err
	}
	fhe.Allow(accept, token.ContractAddress)

	return accept, nil
}

// EndCampaign settles a campaign: it marks the campaign ended, captures the
// raised total, resets the running total to encrypted zero, and only then
// transfers the captured total to the creator through the ledger. The
// mutation order means a re-entrant call during the transfer already
// observes the campaign as ended with nothing left to pay out.
//
// Deliberately unguarded by goal or deadline: the creator may settle at any
// moment, funding goal met or not.
func (c *crowdfundPrecompile) EndCampaign(
	env contract.AccessibleState,
	caller common.Address,
	id uint64,
) (common.Hash, error) {
	state := env.GetStateDB()
	if !campaignExists(state, id) {
		return common.Hash{}, ErrCampaignNotFound
	}
	creator := getStateAddress(state, campaignSlot(id, "creator"))
	if caller != creator {
		return common.Hash{}, ErrNotCreator
	}
	if getStateBool(state, campaignSlot(id, "ended")) {
		return common.Hash{}, ErrCampaignEnded
	}

	payout := state.GetState(ContractAddress, campaignSlot(id, "raised"))
	fhe.Allow(payout, creator)

	setStateBool(state, campaignSlot(id, "ended"), true)
	freshZero, err := fhe.Encrypt(0)
	if err != nil {
		return common.Hash{}, err
	}
	fhe.Allow(freshZero, creator)
	fhe.Allow(freshZero, ContractAddress)
	state.SetState(ContractAddress, campaignSlot(id, "raised"), freshZero)

	transferred, err := token.ConfidentialTransfer(state, ContractAddress, creator, payout)
	if err != nil {
		return common.Hash{}, err
	}

	emitCampaignEnded(state, id, creator, transferred)

	return transferred, nil
}

// GetCampaign returns the stored record for [id]. Unknown ids yield the
// zero-valued record: callers detect absence by the creator field being the
// zero address, not by an error.
func (c *crowdfundPrecompile) GetCampaign(state contract.StateDB, id uint64) Campaign {
	if !campaignExists(state, id) {
		return Campaign{}
	}
	return loadCampaign(state, id)
}

// ContributionOf returns the handle of [contributor]'s cumulative encrypted
// contribution to [id]. The zero handle means no accepted contribution.
// Entries survive settlement; they are never reset.
func (c *crowdfundPrecompile) ContributionOf(state contract.StateDB, id uint64, contributor common.Address) (common.Hash, error) {
	if !campaignExists(state, id) {
		return common.Hash{}, ErrCampaignNotFound
	}
	return state.GetState(ContractAddress, contributionSlot(id, contributor)), nil
}

// IsCampaignActive reports whether [id] currently accepts contributions:
// it exists, has not been ended, and its deadline has not passed. The
// deadline instant itself is still active.
func (c *crowdfundPrecompile) IsCampaignActive(env contract.AccessibleState, id uint64) bool {
	state := env.GetStateDB()
	if !campaignExists(state, id) {
		return false
	}
	if getStateBool(state, campaignSlot(id, "ended")) {
		return false
	}
	return env.GetBlockContext().Timestamp() <= getStateUint64(state, campaignSlot(id, "deadline"))
}

// TreasuryBalance returns the handle of the engine's own ledger balance:
// the pooled, still-unsettled contributions across all campaigns.
func (c *crowdfundPrecompile) TreasuryBalance(state contract.StateDB) common.Hash {
	return token.BalanceOf(state, ContractAddress)
}

// Handler implementations

// handleCreateCampaign parses: target (32) | deadline (32) | name (rest).
func (c *crowdfundPrecompile) handleCreateCampaign(
	env contract.AccessibleState,
	caller common.Address,
	args []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < GasCreateCampaign {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasCreateCampaign

	if len(args) < 64 {
		return nil, remainingGas, ErrInvalidInput
	}
	target, err := parseUint64Word(args[:32])
	if err != nil {
		return nil, remainingGas, err
	}
	deadline, err := parseUint64Word(args[32:64])
	if err != nil {
		return nil, remainingGas, err
	}
	name := string(args[64:])

	id, err := c.CreateCampaign(env, caller, name, target, deadline)
	if err != nil {
		return nil, remainingGas, err
	}

	result := make([]byte, 32)
	binary.BigEndian.PutUint64(result[24:], id)
	return result, remainingGas, nil
}

func (c *crowdfundPrecompile) handleEndCampaign(
	env contract.AccessibleState,
	caller common.Address,
	args []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < GasEndCampaign {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasEndCampaign

	if len(args) < 32 {
		return nil, remainingGas, ErrInvalidInput
	}
	id := binary.BigEndian.Uint64(args[24:32])

	payout, err := c.EndCampaign(env, caller, id)
	if err != nil {
		return nil, remainingGas, err
	}

	return payout.Bytes(), remainingGas, nil
}

// handleOnReceived parses: operator (32) | from (32) | amount handle (32) |
// data (rest). Only the confidential ledger may deliver contributions.
func (c *crowdfundPrecompile) handleOnReceived(
	env contract.AccessibleState,
	caller common.Address,
	args []byte,
	suppliedGas uint64,
	readOnly bool,
) ([]byte, uint64, error) {
	if readOnly {
		return nil, suppliedGas, contract.ErrWriteProtection
	}
	if suppliedGas < GasContribution {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasContribution

	if len(args) < 96 {
		return nil, remainingGas, ErrInvalidInput
	}
	operator := common.BytesToAddress(args[12:32])
	from := common.BytesToAddress(args[44:64])
	amount := common.BytesToHash(args[64:96])
	data := args[96:]

	accept, err := c.OnConfidentialTransferReceived(env, caller, operator, from, amount, data)
	if err != nil {
		return nil, remainingGas, err
	}

	return accept.Bytes(), remainingGas, nil
}

// handleGetCampaign returns: creator (32) | target handle (32) | raised
// handle (32) | deadline (32) | ended (32) | name (rest).
func (c *crowdfundPrecompile) handleGetCampaign(
	state contract.StateDB,
	args []byte,
	suppliedGas uint64,
) ([]byte, uint64, error) {
	if suppliedGas < GasRead {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasRead

	if len(args) < 32 {
		return nil, remainingGas, ErrInvalidInput
	}
	id := binary.BigEndian.Uint64(args[24:32])

	campaign := c.GetCampaign(state, id)

	result := make([]byte, 160, 160+len(campaign.Name))
	copy(result[12:32], campaign.Creator.Bytes())
	copy(result[32:64], campaign.Target.Bytes())
	copy(result[64:96], campaign.Raised.Bytes())
	binary.BigEndian.PutUint64(result[120:128], campaign.Deadline)
	if campaign.Ended {
		result[159] = 1
	}
	result = append(result, []byte(campaign.Name)...)

	return result, remainingGas, nil
}

func (c *crowdfundPrecompile) handleContributionOf(
	state contract.StateDB,
	args []byte,
	suppliedGas uint64,
) ([]byte, uint64, error) {
	if suppliedGas < GasRead {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasRead

	if len(args) < 64 {
		return nil, remainingGas, ErrInvalidInput
	}
	id := binary.BigEndian.Uint64(args[24:32])
	contributor := common.BytesToAddress(args[44:64])

	entry, err := c.ContributionOf(state, id, contributor)
	if err != nil {
		return nil, remainingGas, err
	}

	return entry.Bytes(), remainingGas, nil
}

func (c *crowdfundPrecompile) handleIsCampaignActive(
	env contract.AccessibleState,
	args []byte,
	suppliedGas uint64,
) ([]byte, uint64, error) {
	if suppliedGas < GasRead {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasRead

	if len(args) < 32 {
		return nil, remainingGas, ErrInvalidInput
	}
	id := binary.BigEndian.Uint64(args[24:32])

	result := make([]byte, 32)
	if c.IsCampaignActive(env, id) {
		result[31] = 1
	}

	return result, remainingGas, nil
}

func (c *crowdfundPrecompile) handleTreasuryBalance(
	state contract.StateDB,
	suppliedGas uint64,
) ([]byte, uint64, error) {
	if suppliedGas < GasRead {
		return nil, 0, ErrInsufficientGas
	}
	remainingGas := suppliedGas - GasRead

	return c.TreasuryBalance(state).Bytes(), remainingGas, nil
}

// parseUint64Word reads a 32-byte big-endian word that must fit in uint64.
// Monetary values and timestamps are uint64 throughout; larger words are a
// validation failure, not a silent truncation.
func parseUint64Word(word []byte) (uint64, error) {
	for _, b := range word[:24] {
		if b != 0 {
			return 0, ErrInvalidInput
		}
	}
	return binary.BigEndian.Uint64(word[24:32]), nil
}
