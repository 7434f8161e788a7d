package preview

import (
	"image"
	_ "image/jpeg" // register decoder
	_ "image/png"  // register decoder
	"os"
)

// ImageSize reads the dimensions from the header of a PNG or JPEG file.
func ImageSize(path string) (width, height int, ok bool) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, false
	}
	defer func() { _ = f.Close() }()
	cfg, _, err := image.DecodeConfig(f)
	if err != nil {
		return 0, 0, false
	}
	return cfg.Width, cfg.Height, true
}
