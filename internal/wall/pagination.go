package wall

import "github.com/monument-wall/wall-service/internal/domain"

// Direction of a page-turn request.
type Direction string

const (
	PagePrev Direction = "prev"
	PageNext Direction = "next"
)

// Pager maps the flat participant list onto fixed-size grid pages for
// one viewport class. Page indices from one class mean nothing in the
// other, so a class switch snaps back to page zero.
type Pager struct {
	class ViewportClass
	cfg   GridConfig
	page  int
}

func NewPager(class ViewportClass) *Pager {
	return &Pager{class: class, cfg: ConfigFor(class)}
}

func (p *Pager) Class() ViewportClass { return p.class }
func (p *Pager) Config() GridConfig   { return p.cfg }
func (p *Pager) Page() int            { return p.page }

func (p *Pager) TotalPages() int {
	return (domain.WallCapacity + p.cfg.TilesPerPage - 1) / p.cfg.TilesPerPage
}

// GoToPage moves one page in the given direction. No-op at the bounds;
// reports whether the page changed.
func (p *Pager) GoToPage(dir Direction) bool {
	switch dir {
	case PagePrev:
		if p.page == 0 {
			return false
		}
		p.page--
	case PageNext:
		if p.page >= p.TotalPages()-1 {
			return false
		}
		p.page++
	default:
		return false
	}
	return true
}

// SetViewport switches the grid class, resetting to page zero when the
// class actually changes. Reports whether a reset happened.
func (p *Pager) SetViewport(class ViewportClass) bool {
	if class == p.class {
		return false
	}
	p.class = class
	p.cfg = ConfigFor(class)
	p.page = 0
	return true
}

// Window returns the half-open global slot range [start, end) of the
// current page. end never exceeds the wall capacity.
func (p *Pager) Window() (start, end int) {
	start = p.page * p.cfg.TilesPerPage
	end = start + p.cfg.TilesPerPage
	if end > domain.WallCapacity {
		end = domain.WallCapacity
	}
	return start, end
}

// GlobalIndex converts a local tile index on the current page to its
// global slot index.
func (p *Pager) GlobalIndex(local int) int {
	return p.page*p.cfg.TilesPerPage + local
}
