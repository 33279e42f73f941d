package types

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Mechanism selects which bridge contract family the relay watches and
// which destination action it executes. Chosen once at startup.
type Mechanism string

const (
	MechanismMintBurn    Mechanism = "mint-burn"
	MechanismLockRelease Mechanism = "lock-release"
)

func (m Mechanism) Valid() bool {
	return m == MechanismMintBurn || m == MechanismLockRelease
}

// EventKind discriminates the log layout a DecodedEvent was extracted from.
type EventKind string

const (
	EventBurn       EventKind = "burn"
	EventLock       EventKind = "lock"
	EventSwap       EventKind = "swap"
	EventSimpleSwap EventKind = "simple-swap"
	// EventManual marks operator-submitted and simulated transfers that did
	// not originate from a source-chain log.
	EventManual EventKind = "manual"
)

// DecodedEvent is a bridge event extracted from a source-chain log.
// Amounts are in the token's smallest unit.
type DecodedEvent struct {
	Kind        EventKind
	SourceChain int
	Sender      common.Address
	Recipient   common.Address

	// TokenSymbol is set for burn and manual events; lock and swap layouts
	// carry contract addresses instead and the symbol is resolved from the
	// network token table.
	TokenSymbol string
	// TokenSymbolOut is set on manual/simulated cross-token transfers; log
	// layouts carry the out-token as an address in TokenOut instead.
	TokenSymbolOut string
	TokenIn        common.Address
	TokenOut       common.Address
	Pool           common.Address

	Amount       *big.Int
	Fee          *big.Int
	MinAmountOut *big.Int

	TargetChain   int
	TransactionID [32]byte

	// SourceTxHash is the hash of the transaction that emitted the log,
	// carried for logging context only. Zero for manual/simulated transfers.
	SourceTxHash common.Hash
}

// ProcessedKey returns the idempotency ledger key for the event. Keys are
// namespaced per mechanism so a mint-burn and a lock-release event with the
// same raw transaction key never collide. Mint-burn keys additionally carry
// the token symbol because the burn event alone does not disambiguate asset.
func (e *DecodedEvent) ProcessedKey(mechanism Mechanism) string {
	if mechanism == MechanismMintBurn {
		return fmt.Sprintf("%s:%s:%#x", mechanism, e.TokenSymbol, e.TransactionID)
	}
	return fmt.Sprintf("%s:%#x", mechanism, e.TransactionID)
}

// FailureRecord is a dispatch that did not reach a confirmed destination
// transaction. Stored for operator replay through the manual release
// endpoint; the poll cursor has already moved past the source event.
type FailureRecord struct {
	ID            string
	Mechanism     string
	SourceChain   int
	TargetChain   int
	TokenSymbol   string
	Recipient     string
	Amount        string // decimal string, smallest unit
	TransactionID string
	SourceTxHash  string
	TsFound       int64
	Message       string // messsages that help to track processing/errors
}
