package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/monument-wall/wall-service/internal/domain"
	"github.com/monument-wall/wall-service/internal/metrics"
	"github.com/monument-wall/wall-service/pkg/errs"
)

// LookupTTL bounds how long a membership lookup may be served from cache.
const LookupTTL = 30 * time.Second

// ParticipantStore is the persistence surface the service needs.
type ParticipantStore interface {
	Insert(ctx context.Context, p *domain.Participant) error
	GetByWallet(ctx context.Context, address string) (*domain.Participant, error)
	HandleExists(ctx context.Context, handle string) (bool, error)
	Count(ctx context.Context) (int, error)
}

// MembershipSource answers membership questions from the contract.
type MembershipSource interface {
	HasJoined(ctx context.Context, address string) (bool, error)
	TotalJoined(ctx context.Context) (uint64, error)
}

// Membership is the result of a wallet lookup. Joined reflects the
// contract; Participant is nil when the chain says joined but no row
// exists yet (persist still in flight).
type Membership struct {
	Joined      bool
	Participant *domain.Participant
}

// Progress is the wall fill counter. OnChain is the contract's own
// counter; it can run ahead of Placed while persists are in flight.
type Progress struct {
	Placed   int    `json:"placed"`
	Capacity int    `json:"capacity"`
	OnChain  uint64 `json:"on_chain"`
}

type ParticipantService struct {
	store ParticipantStore
	chain MembershipSource
	cache *lookupCache
}

func NewParticipantService(store ParticipantStore, chain MembershipSource) *ParticipantService {
	return &ParticipantService{
		store: store,
		chain: chain,
		cache: newLookupCache(LookupTTL),
	}
}

// CheckAvailability reports whether a handle is still free. The check is
// case-insensitive and advisory: the unique index is the authority.
func (s *ParticipantService) CheckAvailability(ctx context.Context, handle string) (bool, error) {
	metrics.AvailabilityChecksTotal.Inc()

	handle = domain.NormalizeHandle(handle)
	if !domain.ValidHandle(handle) {
		return false, fmt.Errorf("%w: handle must be 1-%d characters", errs.ErrValidation, domain.MaxHandleLen)
	}

	taken, err := s.store.HandleExists(ctx, handle)
	if err != nil {
		return false, fmt.Errorf("check handle: %w", err)
	}
	return !taken, nil
}

// Lookup resolves a wallet's membership, chain first, then the store for
// the row behind it. Results, including misses, are cached for LookupTTL.
func (s *ParticipantService) Lookup(ctx context.Context, address string) (Membership, error) {
	address = domain.NormalizeAddress(address)
	if address == "" {
		return Membership{}, fmt.Errorf("%w: empty wallet address", errs.ErrValidation)
	}

	if e, ok := s.cache.get(address); ok {
		return Membership{Joined: e.joined, Participant: e.participant}, nil
	}

	joined, err := s.chain.HasJoined(ctx, address)
	if err != nil {
		return Membership{}, fmt.Errorf("%w: hasJoined: %v", errs.ErrUpstream, err)
	}
	if !joined {
		s.cache.put(address, nil, false)
		return Membership{Joined: false}, nil
	}

	p, err := s.store.GetByWallet(ctx, address)
	if errors.Is(err, domain.ErrParticipantNotFound) {
		// joined on chain, row not landed yet; do not cache the gap
		return Membership{Joined: true}, nil
	}
	if err != nil {
		return Membership{}, fmt.Errorf("get participant: %w", err)
	}

	s.cache.put(address, p, true)
	return Membership{Joined: true, Participant: p}, nil
}

// Create persists a confirmed join. Uniqueness violations surface as
// domain.ErrUserExists for the caller to resolve with a new handle.
func (s *ParticipantService) Create(ctx context.Context, address, handle, avatarFilename string) (domain.Participant, error) {
	address = domain.NormalizeAddress(address)
	handle = domain.NormalizeHandle(handle)
	if !domain.ValidHandle(handle) {
		return domain.Participant{}, fmt.Errorf("%w: handle must be 1-%d characters", errs.ErrValidation, domain.MaxHandleLen)
	}
	if address == "" {
		return domain.Participant{}, fmt.Errorf("%w: empty wallet address", errs.ErrValidation)
	}

	p := domain.Participant{
		WalletAddress:  address,
		XHandle:        handle,
		AvatarFilename: avatarFilename,
	}
	if err := s.store.Insert(ctx, &p); err != nil {
		return domain.Participant{}, err
	}

	s.cache.invalidate(address)
	return p, nil
}

// Progress returns the fill counter shown above the wall. The chain
// counter is best effort; the store count is the authority for tiles.
func (s *ParticipantService) Progress(ctx context.Context) (Progress, error) {
	placed, err := s.store.Count(ctx)
	if err != nil {
		return Progress{}, fmt.Errorf("count participants: %w", err)
	}

	onChain, err := s.chain.TotalJoined(ctx)
	if err != nil {
		slog.Warn("totalJoined read failed", "err", err)
		onChain = uint64(placed)
	}

	return Progress{Placed: placed, Capacity: domain.WallCapacity, OnChain: onChain}, nil
}
