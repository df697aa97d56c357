package film

import (
	"errors"
	"fmt"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/df07/go-spectral-film/pkg/color"
	"github.com/mdouchement/hdr/codec/rgbe"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

// ErrUnsupportedFormat is returned for output files with an unknown extension
var ErrUnsupportedFormat = errors.New("unsupported image format")

// Format is an LDR output encoding
type Format string

const (
	FormatPNG  Format = "png"
	FormatTIFF Format = "tiff"
	FormatBMP  Format = "bmp"
)

// FormatFromPath picks the encoding from a file extension
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return FormatPNG, nil
	case ".tif", ".tiff":
		return FormatTIFF, nil
	case ".bmp":
		return FormatBMP, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, path)
}

// EncodeLDR writes l to w in the given format
func EncodeLDR(w io.Writer, format Format, l *LDRImage) error {
	img := l.ToRGBA()
	switch format {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatTIFF:
		return tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate})
	case FormatBMP:
		return bmp.Encode(w, img)
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// WriteLDR saves l to path, choosing the encoding from the extension
func WriteLDR(path string, l *LDRImage) error {
	format, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	return writeFile(path, func(w io.Writer) error {
		return EncodeLDR(w, format, l)
	})
}

// EncodeRGBE writes h to w as a Radiance RGBE image in linear RGB of space
func EncodeRGBE(w io.Writer, h *HDRImage, space color.ColorSpace) error {
	return rgbe.Encode(w, h.ToHDR(space))
}

// WriteRGBE saves h to path as a Radiance .hdr file
func WriteRGBE(path string, h *HDRImage, space color.ColorSpace) error {
	return writeFile(path, func(w io.Writer) error {
		return EncodeRGBE(w, h, space)
	})
}

func writeFile(path string, encode func(w io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}

	if err := encode(file); err != nil {
		file.Close()
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("failed to write %s: %w", filepath.Base(path), err)
	}
	return nil
}
