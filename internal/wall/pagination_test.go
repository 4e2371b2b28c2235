package wall

import (
	"testing"

	"github.com/monument-wall/wall-service/internal/domain"
)

func TestTotalPagesExact(t *testing.T) {
	if got := TotalPages(ViewportMobile); got != 20 {
		t.Fatalf("mobile pages = %d, want 20", got)
	}
	if got := TotalPages(ViewportDesktop); got != 10 {
		t.Fatalf("desktop pages = %d, want 10", got)
	}
}

func TestGridConfigGeometry(t *testing.T) {
	for _, vc := range []ViewportClass{ViewportMobile, ViewportDesktop} {
		cfg := ConfigFor(vc)
		if cfg.Columns*cfg.Rows != cfg.TilesPerPage {
			t.Fatalf("%s: %d*%d != %d", vc, cfg.Columns, cfg.Rows, cfg.TilesPerPage)
		}
	}
}

func TestGoToPageClampsAtBounds(t *testing.T) {
	p := NewPager(ViewportDesktop)

	if p.GoToPage(PagePrev) {
		t.Fatal("prev moved off page 0")
	}
	if p.Page() != 0 {
		t.Fatalf("page = %d", p.Page())
	}

	for i := 0; i < p.TotalPages()-1; i++ {
		if !p.GoToPage(PageNext) {
			t.Fatalf("next refused at page %d", p.Page())
		}
	}
	if p.Page() != p.TotalPages()-1 {
		t.Fatalf("page = %d", p.Page())
	}
	if p.GoToPage(PageNext) {
		t.Fatal("next moved past the last page")
	}
}

func TestWindowNeverExceedsCapacity(t *testing.T) {
	for _, vc := range []ViewportClass{ViewportMobile, ViewportDesktop} {
		p := NewPager(vc)
		for {
			start, end := p.Window()
			if start < 0 || end > domain.WallCapacity {
				t.Fatalf("%s page %d: window [%d,%d)", vc, p.Page(), start, end)
			}
			if end-start > p.Config().TilesPerPage {
				t.Fatalf("%s page %d: window wider than a page", vc, p.Page())
			}
			if !p.GoToPage(PageNext) {
				break
			}
		}
		// last page ends exactly at capacity
		if _, end := p.Window(); end != domain.WallCapacity {
			t.Fatalf("%s last window end = %d", vc, end)
		}
	}
}

func TestGlobalIndex(t *testing.T) {
	p := NewPager(ViewportMobile)
	p.GoToPage(PageNext)
	p.GoToPage(PageNext) // page 2, tilesPerPage 500

	if got := p.GlobalIndex(0); got != 1000 {
		t.Fatalf("global = %d", got)
	}
	if got := p.GlobalIndex(499); got != 1499 {
		t.Fatalf("global = %d", got)
	}
}

func TestViewportSwitchResetsPage(t *testing.T) {
	p := NewPager(ViewportDesktop)
	for i := 0; i < 7; i++ {
		p.GoToPage(PageNext)
	}
	if p.Page() != 7 {
		t.Fatalf("setup page = %d", p.Page())
	}

	if !p.SetViewport(ViewportMobile) {
		t.Fatal("switch not reported")
	}
	if p.Page() != 0 {
		t.Fatalf("page after switch = %d", p.Page())
	}
	if p.Config().TilesPerPage != 500 {
		t.Fatalf("config not switched: %+v", p.Config())
	}

	// same class, nothing resets
	p.GoToPage(PageNext)
	if p.SetViewport(ViewportMobile) {
		t.Fatal("no-op switch reported a reset")
	}
	if p.Page() != 1 {
		t.Fatalf("page = %d", p.Page())
	}
}
