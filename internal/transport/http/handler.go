package http

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/monument-wall/wall-service/internal/domain"
	"github.com/monument-wall/wall-service/internal/join"
	"github.com/monument-wall/wall-service/internal/service"
	httpmw "github.com/monument-wall/wall-service/internal/transport/http/middleware"
	"github.com/monument-wall/wall-service/internal/wall"
	"github.com/monument-wall/wall-service/pkg/errs"
	"github.com/monument-wall/wall-service/pkg/httputil"
)

type Handler struct {
	participants *service.ParticipantService
	flows        *join.Coordinator
	list         *wall.List
	avatars      wall.AvatarURLFunc

	mu     sync.Mutex
	active map[string]*join.Flow // wallet -> in-flight saga
}

func NewHandler(participants *service.ParticipantService, flows *join.Coordinator, list *wall.List, avatars wall.AvatarURLFunc) *Handler {
	return &Handler{
		participants: participants,
		flows:        flows,
		list:         list,
		avatars:      avatars,
		active:       make(map[string]*join.Flow),
	}
}

func (h *Handler) flowFor(wallet string) *join.Flow {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.active[wallet]
}

func (h *Handler) setFlow(wallet string, f *join.Flow) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.active[wallet] = f
}

func (h *Handler) dropFlow(wallet string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.active, wallet)
}

func (h *Handler) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	status := errs.ToHTTP(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "err", err)
	}
	httputil.Error(r.Context(), w, status, err.Error(), nil)
}

// GET /wall?viewport=&page=
func (h *Handler) GetWall(w http.ResponseWriter, r *http.Request) {
	class := wall.ParseViewport(r.URL.Query().Get("viewport"))
	page := 0
	if s := r.URL.Query().Get("page"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			page = n
		}
	}

	pager := wall.NewPager(class)
	for i := 0; i < page; i++ {
		if !pager.GoToPage(wall.PageNext) {
			break
		}
	}

	// HTTP snapshots have no scroll session; every tile ships its URL
	loader := wall.NewTileLoader(pager.Config().TilesPerPage)
	for i := 0; i < pager.Config().TilesPerPage; i++ {
		loader.MarkVisible(i)
	}

	view := wall.Render(h.list.Snapshot(), nil, pager, loader, h.avatars)
	httputil.OK(w, WallResponse{View: view})
}

// GET /wall/tiles/{index}
func (h *Handler) GetTile(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		h.writeErr(w, r, errs.ErrValidation)
		return
	}
	d := wall.Detail(h.list.Snapshot(), idx, h.avatars)
	if d == nil {
		httputil.Error(r.Context(), w, http.StatusNotFound, "empty slot", nil)
		return
	}
	httputil.OK(w, d)
}

// GET /participants
func (h *Handler) GetParticipants(w http.ResponseWriter, r *http.Request) {
	snapshot := h.list.Snapshot()
	resp := ParticipantsResponse{
		Items:    make([]ParticipantItem, 0, len(snapshot)),
		Placed:   len(snapshot),
		Capacity: domain.WallCapacity,
	}
	for _, p := range snapshot {
		resp.Items = append(resp.Items, participantItem(p, h.avatars))
	}
	httputil.OK(w, resp)
}

// GET /progress
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	pr, err := h.participants.Progress(r.Context())
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httputil.OK(w, ProgressResponse{Placed: pr.Placed, Capacity: pr.Capacity, OnChain: pr.OnChain})
}

// GET /join/availability?handle=
func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	handle := r.URL.Query().Get("handle")
	free, err := h.participants.CheckAvailability(r.Context(), handle)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	httputil.OK(w, AvailabilityResponse{
		Handle:    domain.NormalizeHandle(handle),
		Available: free,
	})
}

// GET /session routes a returning wallet: straight to the wall, back to
// the avatar stage, or into a fresh join.
func (h *Handler) GetSession(w http.ResponseWriter, r *http.Request) {
	wallet := httpmw.WalletFromCtx(r.Context())

	m, err := h.participants.Lookup(r.Context(), wallet)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if m.Participant != nil {
		item := participantItem(*m.Participant, h.avatars)
		httputil.OK(w, SessionResponse{Route: "wall", Participant: &item})
		return
	}

	if f := h.flowFor(wallet); f != nil {
		switch f.State() {
		case join.StateAwaitingUpload, join.StateAwaitingPersist:
			httputil.OK(w, SessionResponse{Route: "resume", State: string(f.State()), TxHash: f.TxHash()})
			return
		}
	}

	f, err := h.flows.Resume(r.Context(), wallet)
	if err != nil {
		h.writeErr(w, r, err)
		return
	}
	if f != nil {
		h.setFlow(wallet, f)
		httputil.OK(w, SessionResponse{Route: "resume", State: string(f.State()), TxHash: f.TxHash()})
		return
	}

	httputil.OK(w, SessionResponse{Route: "join"})
}

// POST /join runs the on-chain half of the saga: handle check, join
// transaction, receipt. Blocks until confirmed or failed.
func (h *Handler) StartJoin(w http.ResponseWriter, r *http.Request) {
	wallet := httpmw.WalletFromCtx(r.Context())

	var req StartJoinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErr(w, r, errs.ErrValidation)
		return
	}

	if f := h.flowFor(wallet); f != nil {
		switch f.State() {
		case join.StateAwaitingUpload, join.StateAwaitingPersist:
			httputil.Error(r.Context(), w, http.StatusConflict, "join already in progress", map[string]any{
				"state": string(f.State()),
			})
			return
		default:
			h.dropFlow(wallet)
		}
	}

	f := h.flows.NewFlow(wallet)
	h.setFlow(wallet, f)

	if err := f.Begin(r.Context(), req.Handle); err != nil {
		h.dropFlow(wallet)
		h.writeErr(w, r, err)
		return
	}

	httputil.OK(w, JoinStateResponse{State: string(f.State()), TxHash: f.TxHash()})
}

// POST /join/avatar uploads the processed avatar and persists the row.
// A handle conflict answers 409 and keeps the saga open for a retry.
func (h *Handler) UploadAvatar(w http.ResponseWriter, r *http.Request) {
	wallet := httpmw.WalletFromCtx(r.Context())
	f := h.flowFor(wallet)
	if f == nil {
		httputil.Error(r.Context(), w, http.StatusConflict, "no join in progress", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, join.MaxAvatarBytes+1<<12)
	file, header, err := r.FormFile("avatar")
	if err != nil {
		h.writeErr(w, r, errs.ErrValidation)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		h.writeErr(w, r, errs.ErrValidation)
		return
	}

	if f.State() == join.StateAwaitingUpload {
		if err := f.ProvideAvatar(r.Context(), header.Header.Get("Content-Type"), data); err != nil {
			h.writeErr(w, r, err)
			return
		}
	}

	h.persist(w, r, wallet, f)
}

// PUT /join/handle swaps the handle after a persist conflict and retries.
func (h *Handler) RetryWithHandle(w http.ResponseWriter, r *http.Request) {
	wallet := httpmw.WalletFromCtx(r.Context())
	f := h.flowFor(wallet)
	if f == nil {
		httputil.Error(r.Context(), w, http.StatusConflict, "no join in progress", nil)
		return
	}

	var req UpdateHandleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeErr(w, r, errs.ErrValidation)
		return
	}
	if err := f.UpdateHandle(req.Handle); err != nil {
		h.writeErr(w, r, err)
		return
	}

	h.persist(w, r, wallet, f)
}

func (h *Handler) persist(w http.ResponseWriter, r *http.Request, wallet string, f *join.Flow) {
	p, err := f.Persist(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			httputil.Error(r.Context(), w, http.StatusConflict, "User already exists", map[string]any{
				"state": string(f.State()),
			})
			return
		}
		h.writeErr(w, r, err)
		return
	}

	h.dropFlow(wallet)
	item := participantItem(*p, h.avatars)
	httputil.OK(w, SessionResponse{Route: "wall", Participant: &item, TxHash: f.TxHash()})
}

func participantItem(p domain.Participant, avatars wall.AvatarURLFunc) ParticipantItem {
	item := ParticipantItem{
		ID:       p.ID,
		Handle:   p.XHandle,
		Wallet:   p.WalletAddress,
		JoinedAt: p.CreatedAt.Unix(),
	}
	if avatars != nil {
		item.AvatarURL = avatars(p.AvatarFilename)
	}
	return item
}
