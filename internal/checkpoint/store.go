package checkpoint

import (
	"context"
	"time"
)

// Checkpoint records a join confirmed on-chain whose off-chain half has
// not landed yet. It lets a returning wallet resume at the avatar stage
// instead of paying for a second transaction.
type Checkpoint struct {
	WalletAddress string    `json:"wallet_address"`
	XHandle       string    `json:"x_handle"`
	TxHash        string    `json:"tx_hash"`
	ConfirmedAt   time.Time `json:"confirmed_at"`
}

// Store persists the two bits of cross-visit client state: the saga
// checkpoint and the one-shot celebration flag, both keyed by address.
type Store interface {
	SaveCheckpoint(ctx context.Context, cp Checkpoint) error
	// LoadCheckpoint returns nil when no checkpoint exists.
	LoadCheckpoint(ctx context.Context, address string) (*Checkpoint, error)
	ClearCheckpoint(ctx context.Context, address string) error

	HasCelebrated(ctx context.Context, address string) (bool, error)
	MarkCelebrated(ctx context.Context, address string) error
}
