// Package capture produces the raw image behind a new photo, either from a live camera or from an uploaded file.
package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/disintegration/imaging"
)

var (
	ErrNoFeed       = errors.New("no camera feed available")
	ErrInvalidImage = errors.New("invalid image")
)

// Frame is one encoded still.
type Frame struct {
	Data     []byte
	MIMEType string
}

// Source yields a single still image.
type Source interface {
	Frame(ctx context.Context) (Frame, error)
}

const jpegQuality = 92

// Imported is a Source backed by a file the user picked.
type Imported struct {
	data []byte
}

// NewImported reads an uploaded file. The content is validated when the frame is taken.
func NewImported(r io.Reader) (*Imported, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return &Imported{data: data}, nil
}

// Frame decodes the upload, applies its EXIF orientation and re-encodes it as JPEG.
func (i *Imported) Frame(ctx context.Context) (Frame, error) {
	return encodeFrame(i.data)
}

// encodeFrame turns any decodable still into the JPEG every photo is stored as.
func encodeFrame(data []byte) (Frame, error) {
	if len(data) == 0 {
		return Frame{}, ErrInvalidImage
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return Frame{}, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
		return Frame{}, fmt.Errorf("encode frame: %w", err)
	}

	return Frame{Data: buf.Bytes(), MIMEType: "image/jpeg"}, nil
}
