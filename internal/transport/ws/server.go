package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/monument-wall/wall-service/internal/checkpoint"
	"github.com/monument-wall/wall-service/internal/domain"
	"github.com/monument-wall/wall-service/internal/join"
	"github.com/monument-wall/wall-service/internal/service"
	"github.com/monument-wall/wall-service/internal/wall"
)

// MemberLookup resolves whether a connecting wallet already owns a tile
// and answers debounced handle availability checks.
type MemberLookup interface {
	Lookup(ctx context.Context, address string) (service.Membership, error)
	CheckAvailability(ctx context.Context, handle string) (bool, error)
}

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	list     *wall.List
	members  MemberLookup
	flags    checkpoint.Store
	avatars  wall.AvatarURLFunc
	siteURL  string

	pingEvery time.Duration
}

func NewServer(hub *Hub, list *wall.List, members MemberLookup, flags checkpoint.Store, avatars wall.AvatarURLFunc, siteURL string) *Server {
	return &Server{
		hub:     hub,
		list:    list,
		members: members,
		flags:   flags,
		avatars: avatars,
		siteURL: siteURL,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
	}
}

// WS endpoint: GET /ws/wall?viewport=mobile|desktop&wallet=0x...
// wallet is optional; spectators watch without one.
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	class := wall.ParseViewport(q.Get("viewport"))
	address := domain.NormalizeAddress(q.Get("wallet"))

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	v := newViewer(conn, wall.NewSession(class, address))

	if address != "" {
		if m, err := s.members.Lookup(r.Context(), address); err != nil {
			slog.Warn("ws membership lookup failed", "wallet", address, "err", err)
		} else if m.Participant != nil {
			v.withSession(func(sess *wall.Session) { sess.SetMy(m.Participant) })
		}
	}

	s.hub.Add(v)
	s.sendState(v)

	go s.writeLoop(v)
	s.readLoop(v)

	s.hub.Remove(v)
	if err := v.Close(); err != nil {
		slog.Debug("ws close failed", "wallet", address, "err", err)
	}
}

func (s *Server) sendState(v *viewer) {
	snapshot := s.list.Snapshot()
	var view wall.View
	v.withSession(func(sess *wall.Session) {
		view = sess.Render(snapshot, s.avatars)
	})
	if err := v.Send(Message{Type: TypeState, Payload: StatePayload{View: view}}); err != nil {
		slog.Debug("ws send state failed", "err", err)
	}
}

// BroadcastBatch fans a flushed insert batch out to every viewer. Wire
// it as the batcher's flush handler.
func (s *Server) BroadcastBatch(batch []domain.Participant, total int) {
	if len(batch) == 0 {
		return
	}

	handles := make([]string, 0, len(batch))
	indexes := make([]int, 0, len(batch))
	for i, p := range batch {
		handles = append(handles, p.XHandle)
		indexes = append(indexes, total-len(batch)+i)
	}
	joined := Message{Type: TypeJoined, Payload: JoinedPayload{
		Handles:       handles,
		GlobalIndexes: indexes,
		Placed:        total,
		Capacity:      domain.WallCapacity,
	}}
	firstNew := total - len(batch)

	snapshot := s.list.Snapshot()
	s.hub.ForEach(func(c Conn) {
		v, ok := c.(*viewer)
		if !ok {
			_ = c.Send(joined)
			return
		}

		var (
			own  *domain.Participant
			view *wall.View
		)
		v.withSession(func(sess *wall.Session) {
			own = sess.ObserveBatch(batch)
			if start, end := sess.Pager().Window(); firstNew < end && total > start {
				rendered := sess.Render(snapshot, s.avatars)
				view = &rendered
			}
		})

		_ = v.Send(joined)
		if view != nil {
			_ = v.Send(Message{Type: TypeState, Payload: StatePayload{View: *view}})
		}
		if own != nil {
			s.celebrate(v, own)
		}
	})
}

// celebrate fires the one-shot confetti event for a viewer whose tile
// just landed. The flag store makes it once per wallet, not per session.
func (s *Server) celebrate(v *viewer, p *domain.Participant) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done, err := s.flags.HasCelebrated(ctx, p.WalletAddress)
	if err != nil {
		slog.Warn("celebration flag read failed", "wallet", p.WalletAddress, "err", err)
		return
	}
	if done {
		return
	}
	// Deliver before consuming the flag: a viewer dropped mid-flush
	// gets another chance on the next visit. The rare duplicate beats
	// never showing the confetti.
	if err := v.Send(Message{Type: TypeCelebrate, Payload: CelebratePayload{
		Handle:   p.XHandle,
		ShareURL: wall.ShareURL(s.siteURL),
	}}); err != nil {
		return
	}

	if err := s.flags.MarkCelebrated(ctx, p.WalletAddress); err != nil {
		slog.Warn("celebration flag write failed", "wallet", p.WalletAddress, "err", err)
	}
}

// BroadcastStatus tells every viewer whether the realtime feed is live.
// Wire it as the subscriber's status handler.
func (s *Server) BroadcastStatus(live bool) {
	s.hub.Broadcast(Message{Type: TypeStatus, Payload: StatusPayload{Live: live}})
}

func (s *Server) readLoop(v *viewer) {
	defer func() { _ = v.Close() }()

	v.conn.SetReadLimit(1 << 16)
	v.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	v.conn.SetPongHandler(func(string) error {
		v.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	for {
		_, data, err := v.conn.ReadMessage()
		if err != nil {
			break
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		s.handleClientMessage(v, msg)
	}
}

func (s *Server) handleClientMessage(v *viewer, msg Message) {
	switch msg.Type {
	case TypePage:
		var p PagePayload
		if decode(msg.Payload, &p) != nil {
			return
		}
		dir := wall.PageNext
		if p.Direction == "prev" {
			dir = wall.PagePrev
		}
		moved := false
		v.withSession(func(sess *wall.Session) { moved = sess.GoToPage(dir) })
		if moved {
			s.sendState(v)
		}

	case TypeViewport:
		var p ViewportPayload
		if decode(msg.Payload, &p) != nil {
			return
		}
		switched := false
		v.withSession(func(sess *wall.Session) {
			switched = sess.SetViewport(wall.ParseViewport(p.Viewport))
		})
		if switched {
			s.sendState(v)
		}

	case TypeVisible:
		var p VisiblePayload
		if decode(msg.Payload, &p) != nil {
			return
		}
		any := false
		v.withSession(func(sess *wall.Session) {
			for _, idx := range p.Indexes {
				if sess.MarkVisible(idx) {
					any = true
				}
			}
		})
		if any {
			s.sendState(v)
		}

	case TypeInspect:
		var p InspectPayload
		if decode(msg.Payload, &p) != nil {
			return
		}
		d := wall.Detail(s.list.Snapshot(), p.Index, s.avatars)
		_ = v.Send(Message{Type: TypeDetail, Payload: DetailPayload{Detail: d}})

	case TypeHandle:
		var p HandlePayload
		if decode(msg.Payload, &p) != nil {
			return
		}
		v.debouncerFor(s).Trigger(p.Handle)

	default:
		// ignore
	}
}

func (s *Server) writeLoop(v *viewer) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = v.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-v.closed:
			return
		}
	}
}

// --- helpers ---

func decode(payload interface{}, dst interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dst)
}

// checkAvailability answers a settled handle input.
func (s *Server) checkAvailability(v *viewer, handle string) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	out := AvailabilityPayload{Handle: domain.NormalizeHandle(handle)}
	free, err := s.members.CheckAvailability(ctx, handle)
	if err != nil {
		out.Reason = err.Error()
	} else {
		out.Available = free
	}
	_ = v.Send(Message{Type: TypeAvailability, Payload: out})
}

// viewer pairs a websocket connection with its wall session. The session
// is touched from the read loop and the flush fan-out, hence the mutex.
type viewer struct {
	conn     *websocket.Conn
	session  *wall.Session
	sessMu   sync.Mutex
	sendMu   chan struct{}
	closed   chan struct{}
	debounce *join.Debouncer
}

func newViewer(c *websocket.Conn, sess *wall.Session) *viewer {
	return &viewer{
		conn:    c,
		session: sess,
		sendMu:  make(chan struct{}, 1),
		closed:  make(chan struct{}),
	}
}

// debouncerFor lazily builds the per-viewer handle debouncer. Only the
// read loop calls this, so there is no race on the field.
func (v *viewer) debouncerFor(s *Server) *join.Debouncer {
	if v.debounce == nil {
		v.debounce = join.NewDebouncer(join.DebounceInterval, func(handle string) {
			select {
			case <-v.closed:
			default:
				s.checkAvailability(v, handle)
			}
		})
	}
	return v.debounce
}

func (v *viewer) withSession(fn func(*wall.Session)) {
	v.sessMu.Lock()
	defer v.sessMu.Unlock()
	fn(v.session)
}

func (v *viewer) Send(msg Message) error {
	v.sendMu <- struct{}{}
	defer func() { <-v.sendMu }()
	v.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return v.conn.WriteJSON(msg)
}

func (v *viewer) Close() error {
	select {
	case <-v.closed:
	default:
		close(v.closed)
	}
	if v.debounce != nil {
		v.debounce.Stop()
	}
	return v.conn.Close()
}

func (v *viewer) Address() string {
	v.sessMu.Lock()
	defer v.sessMu.Unlock()
	if my := v.session.My(); my != nil {
		return my.WalletAddress
	}
	return ""
}
