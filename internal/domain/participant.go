package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

// WallCapacity is the total number of tile slots on the wall.
const WallCapacity = 10000

// MaxHandleLen is the longest X handle a participant may claim.
const MaxHandleLen = 20

type Participant struct {
	ID             string    `db:"id"`
	WalletAddress  string    `db:"wallet_address"`
	XHandle        string    `db:"x_handle"`
	AvatarFilename string    `db:"avatar_filename"`
	CreatedAt      time.Time `db:"created_at"`
}

// NormalizeHandle trims surrounding whitespace and a leading "@".
// Handle uniqueness is case-insensitive; comparisons happen lowered.
func NormalizeHandle(h string) string {
	h = strings.TrimSpace(h)
	return strings.TrimPrefix(h, "@")
}

// NormalizeAddress lowers a wallet address so lookups and "my tile"
// matching do not depend on checksum casing.
func NormalizeAddress(a string) string {
	return strings.ToLower(strings.TrimSpace(a))
}

// ValidHandle checks the normalized handle against the length limit.
// The limit counts characters, matching the char_length CHECK on the
// participants table.
func ValidHandle(h string) bool {
	h = NormalizeHandle(h)
	return h != "" && utf8.RuneCountInString(h) <= MaxHandleLen
}
