package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monument-wall/wall-service/internal/checkpoint"
	"github.com/monument-wall/wall-service/internal/domain"
	"github.com/monument-wall/wall-service/internal/service"
	"github.com/monument-wall/wall-service/internal/wall"
)

type fakeMembers struct {
	byWallet map[string]*domain.Participant
	taken    map[string]bool
}

func (f *fakeMembers) Lookup(ctx context.Context, address string) (service.Membership, error) {
	p, ok := f.byWallet[domain.NormalizeAddress(address)]
	if !ok {
		return service.Membership{}, nil
	}
	return service.Membership{Joined: true, Participant: p}, nil
}

func (f *fakeMembers) CheckAvailability(ctx context.Context, handle string) (bool, error) {
	return !f.taken[domain.NormalizeHandle(handle)], nil
}

func testAvatarURL(name string) string { return "https://blobs.test/" + name }

func participant(i int) domain.Participant {
	return domain.Participant{
		ID:             fmt.Sprintf("p-%d", i),
		WalletAddress:  fmt.Sprintf("0x%040d", i),
		XHandle:        fmt.Sprintf("user%d", i),
		AvatarFilename: fmt.Sprintf("0x%040d-1.png", i),
		CreatedAt:      time.Unix(int64(1700000000+i), 0),
	}
}

func newTestServer(t *testing.T, list *wall.List, members MemberLookup) (*Server, *httptest.Server) {
	t.Helper()
	flags, err := checkpoint.NewFileStore(t.TempDir())
	require.NoError(t, err)

	srv := NewServer(NewHub(), list, members, flags, testAvatarURL, "https://wall.test")
	ts := httptest.NewServer(http.HandlerFunc(srv.HandleWS))
	t.Cleanup(ts.Close)
	return srv, ts
}

func dial(t *testing.T, ts *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	u := "ws" + strings.TrimPrefix(ts.URL, "http") + "?" + query
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func payloadAs(t *testing.T, msg Message, dst interface{}) {
	t.Helper()
	b, err := json.Marshal(msg.Payload)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(b, dst))
}

func TestHandleWSSendsInitialState(t *testing.T) {
	list := wall.NewList()
	list.Load([]domain.Participant{participant(0), participant(1)})
	_, ts := newTestServer(t, list, &fakeMembers{})

	conn := dial(t, ts, "viewport=mobile")

	msg := readMessage(t, conn)
	assert.Equal(t, TypeState, msg.Type)

	var state StatePayload
	payloadAs(t, msg, &state)
	assert.Equal(t, wall.ViewportMobile, state.View.Viewport)
	assert.Equal(t, 2, state.View.Placed)
	assert.Len(t, state.View.Tiles, 500)
	assert.True(t, state.View.Tiles[0].Filled)
	assert.False(t, state.View.Tiles[2].Filled)
}

func TestHandleWSMarksOwnTile(t *testing.T) {
	me := participant(1)
	list := wall.NewList()
	list.Load([]domain.Participant{participant(0), me})
	members := &fakeMembers{byWallet: map[string]*domain.Participant{me.WalletAddress: &me}}
	_, ts := newTestServer(t, list, members)

	conn := dial(t, ts, "viewport=desktop&wallet="+me.WalletAddress)

	var state StatePayload
	payloadAs(t, readMessage(t, conn), &state)
	assert.False(t, state.View.Tiles[0].Mine)
	assert.True(t, state.View.Tiles[1].Mine)
}

func TestBroadcastBatchFansOutJoinsAndCelebration(t *testing.T) {
	list := wall.NewList()
	list.Load([]domain.Participant{participant(0), participant(1)})
	joiner := participant(2)
	srv, ts := newTestServer(t, list, &fakeMembers{})

	conn := dial(t, ts, "viewport=mobile&wallet="+joiner.WalletAddress)
	readMessage(t, conn) // initial state

	total := list.Append([]domain.Participant{joiner})
	srv.BroadcastBatch([]domain.Participant{joiner}, total)

	msg := readMessage(t, conn)
	require.Equal(t, TypeJoined, msg.Type)
	var joined JoinedPayload
	payloadAs(t, msg, &joined)
	assert.Equal(t, []string{"user2"}, joined.Handles)
	assert.Equal(t, []int{2}, joined.GlobalIndexes)
	assert.Equal(t, 3, joined.Placed)

	msg = readMessage(t, conn)
	require.Equal(t, TypeState, msg.Type)
	var state StatePayload
	payloadAs(t, msg, &state)
	assert.Equal(t, 3, state.View.Placed)
	assert.True(t, state.View.Tiles[2].Mine)

	msg = readMessage(t, conn)
	require.Equal(t, TypeCelebrate, msg.Type)
	var cel CelebratePayload
	payloadAs(t, msg, &cel)
	assert.Equal(t, "user2", cel.Handle)
	assert.Contains(t, cel.ShareURL, "twitter.com/intent")
}

func TestCelebrationFiresOncePerWallet(t *testing.T) {
	list := wall.NewList()
	joinerA := participant(0)
	srv, ts := newTestServer(t, list, &fakeMembers{})

	conn := dial(t, ts, "wallet="+joinerA.WalletAddress)
	readMessage(t, conn) // initial state

	total := list.Append([]domain.Participant{joinerA})
	srv.BroadcastBatch([]domain.Participant{joinerA}, total)

	readMessage(t, conn) // joined
	readMessage(t, conn) // state
	msg := readMessage(t, conn)
	require.Equal(t, TypeCelebrate, msg.Type)

	// reconnect; the flag store must suppress a second celebration
	conn2 := dial(t, ts, "wallet="+joinerA.WalletAddress)
	readMessage(t, conn2) // initial state

	joinerB := participant(1)
	total = list.Append([]domain.Participant{joinerB})
	srv.BroadcastBatch([]domain.Participant{joinerB}, total)

	msg = readMessage(t, conn2)
	require.Equal(t, TypeJoined, msg.Type)
	msg = readMessage(t, conn2)
	require.Equal(t, TypeState, msg.Type)

	// no celebrate follows; the next frame is a timeout
	conn2.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var extra Message
	err := conn2.ReadJSON(&extra)
	assert.Error(t, err)
}

// captureConn upgrades one connection and hands the server side back to
// the test, so delivery failures can be forced deterministically.
func captureConn(t *testing.T) *websocket.Conn {
	t.Helper()
	connCh := make(chan *websocket.Conn, 1)
	up := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := up.Upgrade(w, r, nil)
		require.NoError(t, err)
		connCh <- c
	}))
	t.Cleanup(ts.Close)
	dial(t, ts, "")
	return <-connCh
}

func TestCelebrationNotConsumedOnFailedDelivery(t *testing.T) {
	srv, ts := newTestServer(t, wall.NewList(), &fakeMembers{})
	joiner := participant(0)

	dead := captureConn(t)
	require.NoError(t, dead.Close())
	v := newViewer(dead, wall.NewSession(wall.ViewportMobile, joiner.WalletAddress))
	srv.celebrate(v, &joiner)

	done, err := srv.flags.HasCelebrated(context.Background(), joiner.WalletAddress)
	require.NoError(t, err)
	assert.False(t, done, "a frame the viewer never saw must not burn the flag")

	// next visit on a healthy connection still gets the confetti
	conn := dial(t, ts, "wallet="+joiner.WalletAddress)
	readMessage(t, conn) // initial state

	total := srv.list.Append([]domain.Participant{joiner})
	srv.BroadcastBatch([]domain.Participant{joiner}, total)
	readMessage(t, conn) // joined
	readMessage(t, conn) // state
	msg := readMessage(t, conn)
	require.Equal(t, TypeCelebrate, msg.Type)

	done, err = srv.flags.HasCelebrated(context.Background(), joiner.WalletAddress)
	require.NoError(t, err)
	assert.True(t, done)
}

func TestPageTurnReturnsFreshState(t *testing.T) {
	items := make([]domain.Participant, 600)
	for i := range items {
		items[i] = participant(i)
	}
	list := wall.NewList()
	list.Load(items)
	_, ts := newTestServer(t, list, &fakeMembers{})

	conn := dial(t, ts, "viewport=mobile")
	readMessage(t, conn) // page 0

	require.NoError(t, conn.WriteJSON(Message{Type: TypePage, Payload: PagePayload{Direction: "next"}}))

	var state StatePayload
	payloadAs(t, readMessage(t, conn), &state)
	assert.Equal(t, 1, state.View.Page)
	assert.Equal(t, 500, state.View.Tiles[0].Index)
}

func TestPageTurnAtBoundaryIsSilent(t *testing.T) {
	list := wall.NewList()
	_, ts := newTestServer(t, list, &fakeMembers{})

	conn := dial(t, ts, "viewport=mobile")
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(Message{Type: TypePage, Payload: PagePayload{Direction: "prev"}}))

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var msg Message
	assert.Error(t, conn.ReadJSON(&msg), "no state frame for a clamped page turn")
}

func TestInspectReturnsTileDetail(t *testing.T) {
	list := wall.NewList()
	list.Load([]domain.Participant{participant(0)})
	_, ts := newTestServer(t, list, &fakeMembers{})

	conn := dial(t, ts, "")
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(Message{Type: TypeInspect, Payload: InspectPayload{Index: 0}}))

	msg := readMessage(t, conn)
	require.Equal(t, TypeDetail, msg.Type)
	var d DetailPayload
	payloadAs(t, msg, &d)
	require.NotNil(t, d.Detail)
	assert.Equal(t, "user0", d.Detail.Handle)
	assert.Contains(t, d.Detail.FallbackURL, "unavatar.io")

	// empty slot yields a null detail
	require.NoError(t, conn.WriteJSON(Message{Type: TypeInspect, Payload: InspectPayload{Index: 42}}))
	msg = readMessage(t, conn)
	require.Equal(t, TypeDetail, msg.Type)
	d = DetailPayload{}
	payloadAs(t, msg, &d)
	assert.Nil(t, d.Detail)
}

func TestHandleInputDebouncesToOneAvailabilityAnswer(t *testing.T) {
	list := wall.NewList()
	_, ts := newTestServer(t, list, &fakeMembers{taken: map[string]bool{"alice": true}})

	conn := dial(t, ts, "")
	readMessage(t, conn) // initial state

	// a burst of keystrokes; only the trailing value should be answered
	for _, h := range []string{"a", "al", "ali", "alice"} {
		require.NoError(t, conn.WriteJSON(Message{Type: TypeHandle, Payload: HandlePayload{Handle: h}}))
	}

	msg := readMessage(t, conn)
	require.Equal(t, TypeAvailability, msg.Type)
	var avail AvailabilityPayload
	payloadAs(t, msg, &avail)
	assert.Equal(t, "alice", avail.Handle)
	assert.False(t, avail.Available)

	// no answers for the swallowed prefixes
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var extra Message
	assert.Error(t, conn.ReadJSON(&extra))
}

func TestVisibleMaterializesDeferredTiles(t *testing.T) {
	items := make([]domain.Participant, 80)
	for i := range items {
		items[i] = participant(i)
	}
	list := wall.NewList()
	list.Load(items)
	_, ts := newTestServer(t, list, &fakeMembers{})

	conn := dial(t, ts, "viewport=mobile")

	var state StatePayload
	payloadAs(t, readMessage(t, conn), &state)
	assert.True(t, state.View.Tiles[0].Loaded, "eager tile")
	assert.False(t, state.View.Tiles[60].Loaded, "deferred tile")

	require.NoError(t, conn.WriteJSON(Message{Type: TypeVisible, Payload: VisiblePayload{Indexes: []int{60}}}))

	payloadAs(t, readMessage(t, conn), &state)
	assert.True(t, state.View.Tiles[60].Loaded)
	assert.NotEmpty(t, state.View.Tiles[60].AvatarURL)
}
