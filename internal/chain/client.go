package chain

import (
	"context"
	"time"
)

// ReceiptStatus mirrors the EVM receipt status field.
type ReceiptStatus string

const (
	ReceiptSuccess ReceiptStatus = "success"
	ReceiptFailure ReceiptStatus = "failure"
)

type Receipt struct {
	TxHash      string
	Status      ReceiptStatus
	BlockNumber uint64
}

// Client is the narrow chain surface the join flow consumes. The node,
// the contract and transaction signing all stay external.
type Client interface {
	// SubmitJoin sends the join transaction carrying the handle on behalf
	// of the given wallet address and returns the transaction hash.
	SubmitJoin(ctx context.Context, handle, address string) (string, error)

	// WaitForReceipt polls until the transaction is mined or the timeout
	// elapses, whichever comes first.
	WaitForReceipt(ctx context.Context, txHash string, timeout time.Duration) (*Receipt, error)

	// HasJoined reports whether the address already joined on-chain.
	HasJoined(ctx context.Context, address string) (bool, error)

	// TotalJoined returns the contract's participant counter.
	TotalJoined(ctx context.Context) (uint64, error)
}
