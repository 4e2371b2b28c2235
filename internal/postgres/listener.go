package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/monument-wall/wall-service/internal/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// insertPayload is the JSON the participants_notify trigger attaches to
// each NOTIFY (see migrations/001_participants.sql).
type insertPayload struct {
	ID             string    `json:"id"`
	WalletAddress  string    `json:"wallet_address"`
	XHandle        string    `json:"x_handle"`
	AvatarFilename string    `json:"avatar_filename"`
	CreatedAt      time.Time `json:"created_at"`
}

func (p insertPayload) participant() domain.Participant {
	return domain.Participant{
		ID:             p.ID,
		WalletAddress:  p.WalletAddress,
		XHandle:        p.XHandle,
		AvatarFilename: p.AvatarFilename,
		CreatedAt:      p.CreatedAt,
	}
}

// InsertListener delivers participant-insert rows pushed by the database.
type InsertListener struct {
	db      *pgxpool.Pool
	channel string
}

func NewInsertListener(db *pgxpool.Pool, channel string) *InsertListener {
	return &InsertListener{db: db, channel: channel}
}

// Listen pins one connection on LISTEN and pushes decoded rows until the
// connection drops or ctx is cancelled. The ready channel closes once
// LISTEN is established; event and error channels close on return.
// Reconnecting is the caller's job (see wall.Subscriber).
func (l *InsertListener) Listen(ctx context.Context) (<-chan domain.Participant, <-chan error, <-chan struct{}) {
	events := make(chan domain.Participant)
	errc := make(chan error, 1)
	ready := make(chan struct{})

	go func() {
		defer close(events)
		defer close(errc)

		conn, err := l.db.Acquire(ctx)
		if err != nil {
			errc <- fmt.Errorf("acquire listen conn: %w", err)
			return
		}
		defer conn.Release()

		if _, err := conn.Exec(ctx, `LISTEN `+pgxIdent(l.channel)); err != nil {
			errc <- fmt.Errorf("listen %s: %w", l.channel, err)
			return
		}
		close(ready)

		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					errc <- fmt.Errorf("wait notification: %w", err)
				}
				return
			}

			var payload insertPayload
			if err := json.Unmarshal([]byte(n.Payload), &payload); err != nil {
				errc <- fmt.Errorf("decode insert payload: %w", err)
				continue
			}

			select {
			case events <- payload.participant():
			case <-ctx.Done():
				return
			}
		}
	}()

	return events, errc, ready
}

// DecodeInsertPayload parses one NOTIFY payload. Split out for tests.
func DecodeInsertPayload(raw string) (domain.Participant, error) {
	var p insertPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return domain.Participant{}, err
	}
	return p.participant(), nil
}

// pgxIdent quotes a channel name as an identifier; LISTEN does not take
// bind parameters.
func pgxIdent(name string) string {
	out := make([]byte, 0, len(name)+2)
	out = append(out, '"')
	for i := 0; i < len(name); i++ {
		if name[i] == '"' {
			out = append(out, '"')
		}
		out = append(out, name[i])
	}
	return string(append(out, '"'))
}
