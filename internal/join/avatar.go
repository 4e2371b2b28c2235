package join

import (
	"bytes"
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"time"

	"golang.org/x/image/draw"
	"golang.org/x/image/webp"

	"github.com/monument-wall/wall-service/internal/domain"
	"github.com/monument-wall/wall-service/internal/metrics"
	"github.com/monument-wall/wall-service/pkg/errs"
)

// MaxAvatarBytes is the upload ceiling enforced before decoding.
const MaxAvatarBytes = 10 << 20

// TileSize is the square edge every avatar is resampled to. Tiles are
// tiny, so uploads shrink by orders of magnitude before hitting storage.
const TileSize = 64

var allowedTypes = map[string]func(io.Reader) (image.Image, error){
	"image/jpeg": jpeg.Decode,
	"image/png":  png.Decode,
	"image/webp": webp.Decode,
	"image/gif":  decodeGIFFirstFrame,
}

func decodeGIFFirstFrame(r io.Reader) (image.Image, error) {
	g, err := gif.DecodeAll(r)
	if err != nil {
		return nil, err
	}
	if len(g.Image) == 0 {
		return nil, fmt.Errorf("gif has no frames")
	}
	return g.Image[0], nil
}

// Avatar is a processed upload ready for storage.
type Avatar struct {
	Filename string
	Data     []byte
}

// ProcessAvatar validates an upload and resamples it to a TileSize
// square PNG. The filename embeds the wallet address and a millisecond
// timestamp so retries never collide in the bucket.
func ProcessAvatar(address, contentType string, data []byte) (Avatar, error) {
	if len(data) == 0 {
		return Avatar{}, fmt.Errorf("%w: empty upload", errs.ErrValidation)
	}
	if len(data) > MaxAvatarBytes {
		return Avatar{}, fmt.Errorf("%w: avatar exceeds %d bytes", errs.ErrValidation, MaxAvatarBytes)
	}
	decode, ok := allowedTypes[contentType]
	if !ok {
		return Avatar{}, fmt.Errorf("%w: unsupported content type %q", errs.ErrValidation, contentType)
	}
	metrics.AvatarBytes.Observe(float64(len(data)))

	src, err := decode(bytes.NewReader(data))
	if err != nil {
		return Avatar{}, fmt.Errorf("%w: decode avatar: %v", errs.ErrValidation, err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, TileSize, TileSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Over, nil)

	var out bytes.Buffer
	if err := png.Encode(&out, dst); err != nil {
		return Avatar{}, fmt.Errorf("encode avatar: %w", err)
	}

	name := fmt.Sprintf("%s-%d.png", domain.NormalizeAddress(address), time.Now().UnixMilli())
	return Avatar{Filename: name, Data: out.Bytes()}, nil
}
