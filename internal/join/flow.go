package join

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/monument-wall/wall-service/internal/chain"
	"github.com/monument-wall/wall-service/internal/checkpoint"
	"github.com/monument-wall/wall-service/internal/domain"
	"github.com/monument-wall/wall-service/internal/metrics"
	"github.com/monument-wall/wall-service/internal/service"
	"github.com/monument-wall/wall-service/internal/storage"
	"github.com/monument-wall/wall-service/pkg/errs"
)

// State names a step of the join saga. Transitions only move forward;
// a handle conflict parks the flow at StateAwaitingPersist so the user
// can pick a new handle without re-uploading or paying for a second
// transaction.
type State string

const (
	StateIdle            State = "idle"
	StateCheckingHandle  State = "checking_handle"
	StateSubmittingTx    State = "submitting_tx"
	StateConfirmingTx    State = "confirming_tx"
	StateAwaitingUpload  State = "awaiting_upload"
	StateAwaitingPersist State = "awaiting_persist"
	StateComplete        State = "complete"
	StateFailed          State = "failed"
)

// failure stages for the join failure counter
const (
	stageHandleCheck = "handle_check"
	stageSubmit      = "submit"
	stageConfirm     = "confirm"
	stageUpload      = "upload"
	stagePersist     = "persist"
)

// Participants is the slice of the participant service the saga needs.
type Participants interface {
	CheckAvailability(ctx context.Context, handle string) (bool, error)
	Create(ctx context.Context, address, handle, avatarFilename string) (domain.Participant, error)
	Lookup(ctx context.Context, address string) (service.Membership, error)
}

// Coordinator owns the shared dependencies and mints one Flow per join
// attempt.
type Coordinator struct {
	participants   Participants
	chain          chain.Client
	blobs          storage.BlobStore
	checkpoints    checkpoint.Store
	receiptTimeout time.Duration
}

func NewCoordinator(participants Participants, ch chain.Client, blobs storage.BlobStore, cps checkpoint.Store, receiptTimeout time.Duration) *Coordinator {
	if receiptTimeout <= 0 {
		receiptTimeout = 60 * time.Second
	}
	return &Coordinator{
		participants:   participants,
		chain:          ch,
		blobs:          blobs,
		checkpoints:    cps,
		receiptTimeout: receiptTimeout,
	}
}

// Flow is a single wallet's journey onto the wall.
type Flow struct {
	co *Coordinator

	mu       sync.Mutex
	state    State
	address  string
	handle   string
	txHash   string
	avatar   string
	lastErr  error
	finished *domain.Participant
}

// NewFlow starts a saga for the given wallet.
func (c *Coordinator) NewFlow(address string) *Flow {
	return &Flow{
		co:      c,
		state:   StateIdle,
		address: domain.NormalizeAddress(address),
	}
}

// Resume rebuilds a flow from a persisted checkpoint so a wallet that
// reloaded after confirmation lands directly at the avatar stage.
// Returns nil when there is nothing to resume.
func (c *Coordinator) Resume(ctx context.Context, address string) (*Flow, error) {
	cp, err := c.checkpoints.LoadCheckpoint(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("load checkpoint: %w", err)
	}
	if cp == nil {
		return nil, nil
	}
	return &Flow{
		co:      c,
		state:   StateAwaitingUpload,
		address: domain.NormalizeAddress(cp.WalletAddress),
		handle:  cp.XHandle,
		txHash:  cp.TxHash,
	}, nil
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) TxHash() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.txHash
}

// Err returns the error that moved the flow to StateFailed.
func (f *Flow) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// Participant returns the persisted row once the flow is complete.
func (f *Flow) Participant() *domain.Participant {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.finished
}

func (f *Flow) fail(stage string, err error) error {
	metrics.JoinFailuresTotal.WithLabelValues(stage).Inc()
	f.mu.Lock()
	f.state = StateFailed
	f.lastErr = err
	f.mu.Unlock()
	return err
}

func (f *Flow) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

// Begin runs the on-chain half: handle check, transaction submission and
// receipt confirmation. On success the flow parks at StateAwaitingUpload
// with a checkpoint persisted.
func (f *Flow) Begin(ctx context.Context, handle string) error {
	f.mu.Lock()
	if f.state != StateIdle {
		s := f.state
		f.mu.Unlock()
		return fmt.Errorf("%w: join already started (state %s)", errs.ErrConflict, s)
	}
	if f.address == "" {
		f.mu.Unlock()
		return fmt.Errorf("%w: %v", errs.ErrUnauthorized, domain.ErrNotConnected)
	}
	f.state = StateCheckingHandle
	f.handle = domain.NormalizeHandle(handle)
	f.mu.Unlock()

	if !domain.ValidHandle(f.handle) {
		return f.fail(stageHandleCheck, fmt.Errorf("%w: handle must be 1-%d characters", errs.ErrValidation, domain.MaxHandleLen))
	}

	m, err := f.co.participants.Lookup(ctx, f.address)
	if err != nil {
		return f.fail(stageHandleCheck, err)
	}
	if m.Joined {
		return f.fail(stageHandleCheck, fmt.Errorf("%w: wallet already on the wall", errs.ErrConflict))
	}

	free, err := f.co.participants.CheckAvailability(ctx, f.handle)
	if err != nil {
		return f.fail(stageHandleCheck, err)
	}
	if !free {
		return f.fail(stageHandleCheck, fmt.Errorf("%w: %v", errs.ErrConflict, domain.ErrHandleUnavailable))
	}

	f.setState(StateSubmittingTx)
	txHash, err := f.co.chain.SubmitJoin(ctx, f.handle, f.address)
	if err != nil {
		return f.fail(stageSubmit, fmt.Errorf("%w: %v", errs.ErrTransaction, err))
	}
	f.mu.Lock()
	f.txHash = txHash
	f.state = StateConfirmingTx
	f.mu.Unlock()

	receipt, err := f.co.chain.WaitForReceipt(ctx, txHash, f.co.receiptTimeout)
	if err != nil {
		return f.fail(stageConfirm, fmt.Errorf("%w: %v", errs.ErrTransaction, err))
	}
	if receipt.Status != chain.ReceiptSuccess {
		return f.fail(stageConfirm, fmt.Errorf("%w: transaction %s reverted", errs.ErrTransaction, txHash))
	}

	cp := checkpoint.Checkpoint{
		WalletAddress: f.address,
		XHandle:       f.handle,
		TxHash:        txHash,
		ConfirmedAt:   time.Now().UTC(),
	}
	if err := f.co.checkpoints.SaveCheckpoint(ctx, cp); err != nil {
		// the join still proceeds; only resumability is lost
		slog.Warn("save join checkpoint", "wallet", f.address, "err", err)
	}

	f.setState(StateAwaitingUpload)
	return nil
}

// ProvideAvatar validates, resamples and uploads the avatar, then parks
// the flow at StateAwaitingPersist.
func (f *Flow) ProvideAvatar(ctx context.Context, contentType string, data []byte) error {
	f.mu.Lock()
	if f.state != StateAwaitingUpload {
		s := f.state
		f.mu.Unlock()
		return fmt.Errorf("%w: avatar not expected in state %s", errs.ErrConflict, s)
	}
	addr := f.address
	f.mu.Unlock()

	av, err := ProcessAvatar(addr, contentType, data)
	if err != nil {
		metrics.JoinFailuresTotal.WithLabelValues(stageUpload).Inc()
		return err
	}

	if _, err := f.co.blobs.Upload(ctx, av.Filename, av.Data, "image/png"); err != nil {
		metrics.JoinFailuresTotal.WithLabelValues(stageUpload).Inc()
		return fmt.Errorf("%w: %v", errs.ErrUpload, err)
	}

	f.mu.Lock()
	f.avatar = av.Filename
	f.state = StateAwaitingPersist
	f.mu.Unlock()
	return nil
}

// UpdateHandle swaps the handle while parked at StateAwaitingPersist,
// the recovery path for a uniqueness conflict discovered at persist.
func (f *Flow) UpdateHandle(handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != StateAwaitingPersist {
		return fmt.Errorf("%w: handle locked in state %s", errs.ErrConflict, f.state)
	}
	handle = domain.NormalizeHandle(handle)
	if !domain.ValidHandle(handle) {
		return fmt.Errorf("%w: handle must be 1-%d characters", errs.ErrValidation, domain.MaxHandleLen)
	}
	f.handle = handle
	return nil
}

// Persist writes the participant row. A uniqueness conflict keeps the
// flow at StateAwaitingPersist so the caller can UpdateHandle and retry
// without touching the chain or the upload again.
func (f *Flow) Persist(ctx context.Context) (*domain.Participant, error) {
	f.mu.Lock()
	if f.state != StateAwaitingPersist {
		s := f.state
		f.mu.Unlock()
		return nil, fmt.Errorf("%w: nothing to persist in state %s", errs.ErrConflict, s)
	}
	addr, handle, avatar := f.address, f.handle, f.avatar
	f.mu.Unlock()

	p, err := f.co.participants.Create(ctx, addr, handle, avatar)
	if errors.Is(err, domain.ErrUserExists) {
		metrics.JoinFailuresTotal.WithLabelValues(stagePersist).Inc()
		return nil, fmt.Errorf("%w: %w", errs.ErrConflict, err)
	}
	if err != nil {
		metrics.JoinFailuresTotal.WithLabelValues(stagePersist).Inc()
		return nil, fmt.Errorf("%w: %v", errs.ErrPersist, err)
	}

	if err := f.co.checkpoints.ClearCheckpoint(ctx, addr); err != nil {
		slog.Warn("clear join checkpoint", "wallet", addr, "err", err)
	}

	f.mu.Lock()
	f.state = StateComplete
	f.finished = &p
	f.mu.Unlock()

	metrics.JoinsCompletedTotal.Inc()
	return &p, nil
}
