package http

import "github.com/monument-wall/wall-service/internal/wall"

type ErrorResponse struct {
	Error string `json:"error"`
}

type AvailabilityResponse struct {
	Handle    string `json:"handle"`
	Available bool   `json:"available"`
}

// SessionResponse is the routing decision for a connecting wallet:
// "wall" when the tile exists, "resume" when a confirmed join is waiting
// for its avatar or handle retry, "join" otherwise. State carries the
// saga stage on the resume route.
type SessionResponse struct {
	Route       string           `json:"route"`
	State       string           `json:"state,omitempty"`
	Participant *ParticipantItem `json:"participant,omitempty"`
	TxHash      string           `json:"tx_hash,omitempty"`
}

type ParticipantItem struct {
	ID        string `json:"id"`
	Handle    string `json:"handle"`
	Wallet    string `json:"wallet"`
	AvatarURL string `json:"avatar_url"`
	JoinedAt  int64  `json:"joined_at_unix"`
}

type StartJoinRequest struct {
	Handle string `json:"handle"`
}

type JoinStateResponse struct {
	State  string `json:"state"`
	TxHash string `json:"tx_hash,omitempty"`
}

type UpdateHandleRequest struct {
	Handle string `json:"handle"`
}

type WallResponse struct {
	View wall.View `json:"view"`
}

type ParticipantsResponse struct {
	Items    []ParticipantItem `json:"items"`
	Placed   int               `json:"placed"`
	Capacity int               `json:"capacity"`
}

type ProgressResponse struct {
	Placed   int    `json:"placed"`
	Capacity int    `json:"capacity"`
	OnChain  uint64 `json:"on_chain"`
}
