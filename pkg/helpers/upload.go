package helpers

import (
	"bytes"
	"errors"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

// ErrUnsupportedImage is returned for uploads that are not a supported image type.
var ErrUnsupportedImage = errors.New("unsupported image type")

var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

const sniffLen = 3072

// SniffImage detects the content type of an upload from its first bytes and
// returns a reader that still yields the whole body.
func SniffImage(r io.Reader) (contentType, ext string, body io.Reader, err error) {
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", "", nil, err
	}
	head = head[:n]
	mt := mimetype.Detect(head).String()
	ext, ok := allowedImageTypes[mt]
	if !ok {
		return "", "", nil, ErrUnsupportedImage
	}
	return mt, ext, io.MultiReader(bytes.NewReader(head), r), nil
}
