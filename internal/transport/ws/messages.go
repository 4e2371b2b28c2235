package ws

import "github.com/monument-wall/wall-service/internal/wall"

// server -> client
const (
	TypeState     = "state"     // full page snapshot for this viewer
	TypeJoined    = "joined"    // a flushed batch of new tiles
	TypeStatus    = "status"    // realtime feed liveness
	TypeCelebrate = "celebrate" // this viewer's own tile just landed
	TypeDetail    = "detail"    // tile detail response
	TypeError     = "error"
)

// client -> server
const (
	TypePage     = "page"     // turn a page
	TypeViewport = "viewport" // viewport class changed
	TypeVisible  = "visible"  // tile indexes scrolled into view
	TypeInspect  = "inspect"  // request tile detail
	TypeHandle   = "handle"   // handle input keystroke, debounced server-side
)

// TypeAvailability answers debounced handle input.
const TypeAvailability = "availability"

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// StatePayload is a rendered page plus the fill counter.
type StatePayload struct {
	View wall.View `json:"view"`
}

// JoinedPayload announces a flushed batch. GlobalIndexes are the slots
// the batch filled; a viewer whose page covers none of them can update
// just the counter.
type JoinedPayload struct {
	Handles       []string `json:"handles"`
	GlobalIndexes []int    `json:"global_indexes"`
	Placed        int      `json:"placed"`
	Capacity      int      `json:"capacity"`
}

type StatusPayload struct {
	Live bool `json:"live"`
}

// CelebratePayload fires at most once per wallet.
type CelebratePayload struct {
	Handle   string `json:"handle"`
	ShareURL string `json:"share_url"`
}

type DetailPayload struct {
	Detail *wall.TileDetail `json:"detail"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type PagePayload struct {
	Direction string `json:"direction"` // "prev" | "next"
}

type ViewportPayload struct {
	Viewport string `json:"viewport"` // "mobile" | "desktop"
}

type VisiblePayload struct {
	Indexes []int `json:"indexes"` // local tile indexes on the current page
}

type InspectPayload struct {
	Index int `json:"index"` // global slot index
}

type HandlePayload struct {
	Handle string `json:"handle"`
}

type AvailabilityPayload struct {
	Handle    string `json:"handle"`
	Available bool   `json:"available"`
	Reason    string `json:"reason,omitempty"`
}
