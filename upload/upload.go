// Package upload holds the image payload attached to multipart mutation
// requests (category images, item images, profile pictures).
package upload

import "path/filepath"

// Image is an in-memory file destined for a multipart form field.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// NewImage builds an Image, deriving a content type from the filename
// extension when none is given.
func NewImage(filename string, data []byte) *Image {
	return &Image{
		Filename:    filename,
		ContentType: contentTypeFor(filename),
		Data:        data,
	}
}

func contentTypeFor(filename string) string {
	switch filepath.Ext(filename) {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}
