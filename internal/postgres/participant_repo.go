package postgres

import (
	"context"
	"errors"

	"github.com/monument-wall/wall-service/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pg error code for unique_violation; both the wallet_address and the
// lower(x_handle) unique indexes surface through it.
const uniqueViolation = "23505"

type ParticipantRepository struct {
	db *pgxpool.Pool
}

func NewParticipantRepository(db *pgxpool.Pool) *ParticipantRepository {
	return &ParticipantRepository{db: db}
}

// Insert persists a participant row inside the capacity guard.
// The wall row lock keeps two parallel inserts from passing 10000 together.
func (r *ParticipantRepository) Insert(ctx context.Context, p *domain.Participant) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Serialize capacity checks. Two parallel inserts at 9999 must not
	// both pass the count.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext('wall_capacity'))`); err != nil {
		return err
	}
	var count int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM participants`).Scan(&count); err != nil {
		return err
	}
	if count >= domain.WallCapacity {
		return domain.ErrWallFull
	}

	row := tx.QueryRow(ctx, `
		INSERT INTO participants (wallet_address, x_handle, avatar_filename)
		VALUES ($1, $2, $3)
		RETURNING id, wallet_address, x_handle, avatar_filename, created_at
	`, domain.NormalizeAddress(p.WalletAddress), p.XHandle, p.AvatarFilename)
	if err := row.Scan(&p.ID, &p.WalletAddress, &p.XHandle, &p.AvatarFilename, &p.CreatedAt); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrUserExists
		}
		return err
	}

	return tx.Commit(ctx)
}

// ListAll returns every participant in created_at order; tile position on
// the wall is the index in this list.
func (r *ParticipantRepository) ListAll(ctx context.Context) ([]domain.Participant, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, wallet_address, x_handle, avatar_filename, created_at
		FROM participants
		ORDER BY created_at ASC, id ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]domain.Participant, 0, 256)
	for rows.Next() {
		var p domain.Participant
		if err := rows.Scan(&p.ID, &p.WalletAddress, &p.XHandle, &p.AvatarFilename, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ParticipantRepository) GetByWallet(ctx context.Context, address string) (*domain.Participant, error) {
	var p domain.Participant
	err := r.db.QueryRow(ctx, `
		SELECT id, wallet_address, x_handle, avatar_filename, created_at
		FROM participants WHERE wallet_address = $1
	`, domain.NormalizeAddress(address)).
		Scan(&p.ID, &p.WalletAddress, &p.XHandle, &p.AvatarFilename, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrParticipantNotFound
		}
		return nil, err
	}
	return &p, nil
}

// HandleExists reports whether any participant already claimed the handle,
// compared case-insensitively.
func (r *ParticipantRepository) HandleExists(ctx context.Context, handle string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM participants WHERE lower(x_handle) = lower($1))`,
		domain.NormalizeHandle(handle)).Scan(&exists)
	return exists, err
}

func (r *ParticipantRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM participants`).Scan(&count)
	return count, err
}
