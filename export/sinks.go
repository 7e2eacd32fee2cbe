package export

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"

	"github.com/NicholasCStanley/midiphoria/colors"
)

// FrameBytes repeats one RGB triple across a width by height frame, the
// rawvideo layout ffmpeg reads from stdin.
func FrameBytes(width, height int, rgb colors.RGB) []byte {
	return bytes.Repeat(rgb[:], width*height)
}

// FramePath names frame files so an image sequence demuxer picks them up
// in order.
func FramePath(dir, format string, idx int) string {
	return filepath.Join(dir, fmt.Sprintf("frame_%06d.%s", idx, format))
}

// WritePPM writes one binary PPM frame.
func WritePPM(path string, width, height int, raw []byte) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(f, "P6\n%d %d\n255\n", width, height); err != nil {
		f.Close()
		return err
	}
	if _, err := f.Write(raw); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WritePNG writes one solid-color PNG frame.
func WritePNG(path string, width, height int, rgb colors.RGB) error {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	fill := color.RGBA{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, fill)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
