package retropal

import (
	"crypto/sha1"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	"github.com/bodgit/retropal/pixel"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// DecodeFile reads an image file and returns the SHA1 of its bytes along
// with the decoded pixels. The digest identifies the source in the palette
// cache.
func DecodeFile(file string) (string, *pixel.Buffer, error) {
	f, err := os.Open(file)
	if err != nil {
		return "", nil, err
	}
	defer f.Close()

	h := sha1.New()
	m, _, err := image.Decode(io.TeeReader(f, h))
	if err != nil {
		return "", nil, err
	}

	if _, err := io.Copy(h, f); err != nil {
		return "", nil, err
	}

	return fmt.Sprintf("%X", h.Sum(nil)), pixel.FromImage(m), nil
}
