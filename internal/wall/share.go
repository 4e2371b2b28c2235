package wall

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/monument-wall/wall-service/internal/domain"
)

// FallbackAvatarURL builds the unavatar.io URL for a handle, used by the
// tile detail overlay when the stored 64x64 image is too small.
func FallbackAvatarURL(handle string, size int) string {
	clean := strings.TrimPrefix(domain.NormalizeHandle(handle), "@")
	return fmt.Sprintf("https://unavatar.io/x/%s?size=%d", url.PathEscape(clean), size)
}

// ShareURL builds the tweet-intent link shown with the one-time
// celebration.
func ShareURL(siteURL string) string {
	text := fmt.Sprintf("I just placed my tile in the Monument! 🎨 Join the celebration at %s", siteURL)
	return "https://twitter.com/intent/tweet?text=" + url.QueryEscape(text)
}
