package wall

import "github.com/monument-wall/wall-service/internal/domain"

// AvatarURLFunc resolves a stored avatar filename to its public URL.
type AvatarURLFunc func(filename string) string

// Tile is one rendered cell of the page grid.
type Tile struct {
	Index     int    `json:"index"` // global slot index
	Filled    bool   `json:"filled"`
	Handle    string `json:"handle,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Loaded    bool   `json:"loaded"` // image element materialized
	Mine      bool   `json:"mine,omitempty"`
}

// View is a fully rendered wall page.
type View struct {
	Viewport   ViewportClass `json:"viewport"`
	Page       int           `json:"page"`
	TotalPages int           `json:"total_pages"`
	Columns    int           `json:"columns"`
	Rows       int           `json:"rows"`
	Placed     int           `json:"placed"`
	Capacity   int           `json:"capacity"`
	Tiles      []Tile        `json:"tiles"`
}

// Render lays out one page. It is a pure function of its inputs: the
// same list, pager state, loader state and "my" reference always produce
// the same tiles.
func Render(list []domain.Participant, my *domain.Participant, pager *Pager, loader *TileLoader, avatarURL AvatarURLFunc) View {
	start, end := pager.Window()
	cfg := pager.Config()

	tiles := make([]Tile, 0, end-start)
	for global := start; global < end; global++ {
		local := global - start
		tile := Tile{Index: global}

		if global < len(list) {
			p := list[global]
			tile.Filled = true
			tile.Handle = p.XHandle
			tile.Loaded = loader.Materialized(local)
			if tile.Loaded && avatarURL != nil {
				tile.AvatarURL = avatarURL(p.AvatarFilename)
			}
			if my != nil && p.ID == my.ID {
				tile.Mine = true
			}
		}
		tiles = append(tiles, tile)
	}

	return View{
		Viewport:   pager.Class(),
		Page:       pager.Page(),
		TotalPages: pager.TotalPages(),
		Columns:    cfg.Columns,
		Rows:       cfg.Rows,
		Placed:     len(list),
		Capacity:   domain.WallCapacity,
		Tiles:      tiles,
	}
}

// TileDetail is the overlay payload for a selected filled tile. The
// fallback URL points at the handle's live avatar service image and is
// used for the larger overlay rendering.
type TileDetail struct {
	Index       int    `json:"index"`
	Handle      string `json:"handle"`
	Wallet      string `json:"wallet"`
	AvatarURL   string `json:"avatar_url"`
	FallbackURL string `json:"fallback_url"`
	JoinedAt    int64  `json:"joined_at_unix"`
}

// Detail renders the overlay for one global slot, or nil for an empty
// slot or out-of-range index.
func Detail(list []domain.Participant, global int, avatarURL AvatarURLFunc) *TileDetail {
	if global < 0 || global >= len(list) || global >= domain.WallCapacity {
		return nil
	}
	p := list[global]
	d := &TileDetail{
		Index:       global,
		Handle:      p.XHandle,
		Wallet:      p.WalletAddress,
		FallbackURL: FallbackAvatarURL(p.XHandle, 400),
		JoinedAt:    p.CreatedAt.Unix(),
	}
	if avatarURL != nil {
		d.AvatarURL = avatarURL(p.AvatarFilename)
	}
	return d
}
