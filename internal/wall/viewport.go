package wall

import "github.com/monument-wall/wall-service/internal/domain"

// ViewportClass selects the grid geometry a viewer renders with.
type ViewportClass string

const (
	ViewportMobile  ViewportClass = "mobile"
	ViewportDesktop ViewportClass = "desktop"
)

// GridConfig is the per-class page geometry. TilesPerPage always equals
// Columns*Rows.
type GridConfig struct {
	TilesPerPage int
	Columns      int
	Rows         int
}

var gridConfigs = map[ViewportClass]GridConfig{
	ViewportMobile:  {TilesPerPage: 500, Columns: 10, Rows: 50},
	ViewportDesktop: {TilesPerPage: 1000, Columns: 40, Rows: 25},
}

// ConfigFor maps a viewport class to its grid; unknown classes fall back
// to desktop.
func ConfigFor(vc ViewportClass) GridConfig {
	if cfg, ok := gridConfigs[vc]; ok {
		return cfg
	}
	return gridConfigs[ViewportDesktop]
}

// ParseViewport normalizes a client-supplied class string.
func ParseViewport(s string) ViewportClass {
	if ViewportClass(s) == ViewportMobile {
		return ViewportMobile
	}
	return ViewportDesktop
}

// TotalPages is ceil(capacity / tilesPerPage) for the class.
func TotalPages(vc ViewportClass) int {
	per := ConfigFor(vc).TilesPerPage
	return (domain.WallCapacity + per - 1) / per
}
