// Copyright (C) 2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"fmt"

	"github.com/luxfi/crowdfund/contract"
	"github.com/luxfi/geth/common"
)

// TransferReceiver is implemented by on-chain recipients that accept
// confidential transfer-and-call deliveries. The callback runs synchronously
// inside the transfer; it returns the handle of an encrypted boolean (the
// ledger must be granted decrypt access to it) deciding whether the
// transfer is kept. A non-nil error rejects the transfer outright and is
// surfaced to the sender unchanged.
type TransferReceiver interface {
	OnConfidentialTransferReceived(
		env contract.AccessibleState,
		operator common.Address,
		from common.Address,
		amount common.Hash,
		data []byte,
	) (common.Hash, error)
}

// receivers maps a recipient precompile address to its callback.
var receivers = make(map[common.Address]TransferReceiver)

// RegisterReceiver registers [r] as the transfer callback for [addr].
// Receivers register once at init, mirroring module registration.
func RegisterReceiver(addr common.Address, r TransferReceiver) error {
	if _, ok := receivers[addr]; ok {
		return fmt.Errorf("receiver already registered for %s", addr)
	}
	receivers[addr] = r
	return nil
}

// GetReceiver returns the callback registered for [addr].
func GetReceiver(addr common.Address) (TransferReceiver, bool) {
	r, ok := receivers[addr]
	return r, ok
}
