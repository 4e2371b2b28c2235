package wall

import "github.com/monument-wall/wall-service/internal/domain"

// Session is one viewer's wall state: page position, per-page image
// loader and the "my tile" reference. It lives for the duration of one
// realtime connection and is only touched from that connection's loop.
type Session struct {
	pager   *Pager
	loader  *TileLoader
	address string // normalized; empty for a spectator
	my      *domain.Participant
}

func NewSession(class ViewportClass, address string) *Session {
	pager := NewPager(class)
	return &Session{
		pager:   pager,
		loader:  NewTileLoader(pager.Config().TilesPerPage),
		address: domain.NormalizeAddress(address),
		my:      nil,
	}
}

func (s *Session) Pager() *Pager       { return s.pager }
func (s *Session) Loader() *TileLoader { return s.loader }

func (s *Session) My() *domain.Participant { return s.my }

// SetMy seeds the "my tile" reference from the initial lookup.
func (s *Session) SetMy(p *domain.Participant) { s.my = p }

// GoToPage turns a page; a move resets the per-page loader since tile
// identities changed. Reports whether anything moved.
func (s *Session) GoToPage(dir Direction) bool {
	if !s.pager.GoToPage(dir) {
		return false
	}
	s.loader = NewTileLoader(s.pager.Config().TilesPerPage)
	return true
}

// SetViewport switches grid class; a real switch goes back to page zero
// with a fresh loader. Reports whether a switch happened.
func (s *Session) SetViewport(class ViewportClass) bool {
	if !s.pager.SetViewport(class) {
		return false
	}
	s.loader = NewTileLoader(s.pager.Config().TilesPerPage)
	return true
}

// MarkVisible forwards a visibility sighting for a local tile index.
func (s *Session) MarkVisible(local int) bool {
	return s.loader.MarkVisible(local)
}

// ObserveBatch scans a flushed batch for this session's own join.
// Returns the newly found participant once; nil afterwards.
func (s *Session) ObserveBatch(batch []domain.Participant) *domain.Participant {
	if s.my != nil || s.address == "" {
		return nil
	}
	for i := range batch {
		if domain.NormalizeAddress(batch[i].WalletAddress) == s.address {
			p := batch[i]
			s.my = &p
			return s.my
		}
	}
	return nil
}

// Render produces the page view for the given list snapshot.
func (s *Session) Render(list []domain.Participant, avatarURL AvatarURLFunc) View {
	return Render(list, s.my, s.pager, s.loader, avatarURL)
}
