package wall

// EagerTiles is how many tiles at the top of a page materialize their
// image immediately; it covers the always-visible fold.
const EagerTiles = 50

// TileState is the per-tile image lifecycle.
type TileState uint8

const (
	TileUnloaded TileState = iota
	TileLoading
	TileLoaded
)

// TileLoader tracks which tiles of the current page have materialized
// their avatar image. It is rebuilt on every page or viewport change:
// tile identities do not survive either.
type TileLoader struct {
	states []TileState
}

func NewTileLoader(tilesPerPage int) *TileLoader {
	l := &TileLoader{states: make([]TileState, tilesPerPage)}
	eager := EagerTiles
	if eager > tilesPerPage {
		eager = tilesPerPage
	}
	for i := 0; i < eager; i++ {
		l.states[i] = TileLoading
	}
	return l
}

// MarkVisible is the one-shot visibility trigger: the first sighting of
// an unloaded tile starts its image load; later sightings are ignored.
func (l *TileLoader) MarkVisible(local int) bool {
	if local < 0 || local >= len(l.states) {
		return false
	}
	if l.states[local] != TileUnloaded {
		return false
	}
	l.states[local] = TileLoading
	return true
}

// MarkLoaded records that the tile's image finished fetching.
func (l *TileLoader) MarkLoaded(local int) {
	if local < 0 || local >= len(l.states) {
		return
	}
	if l.states[local] == TileLoading {
		l.states[local] = TileLoaded
	}
}

// Materialized reports whether the tile should render a real image
// element (loading or loaded) rather than the placeholder gradient.
func (l *TileLoader) Materialized(local int) bool {
	if local < 0 || local >= len(l.states) {
		return false
	}
	return l.states[local] != TileUnloaded
}

func (l *TileLoader) State(local int) TileState {
	if local < 0 || local >= len(l.states) {
		return TileUnloaded
	}
	return l.states[local]
}

// MaterializedCount is used by tests and the debug snapshot.
func (l *TileLoader) MaterializedCount() int {
	n := 0
	for _, s := range l.states {
		if s != TileUnloaded {
			n++
		}
	}
	return n
}
