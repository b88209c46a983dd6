package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"
)

// Multipart uploads are capped per file; signatures and site photos are
// small images.
const (
	maxUploadBytes   = 10 << 20
	maxRequestImages = 5
)

var (
	errNotAnImage     = errors.New("only image uploads are accepted")
	errUploadTooLarge = errors.New("uploaded file is too large")
)

func isImageFilename(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".gif", ".webp":
		return true
	}
	return false
}

// formImage reads one uploaded image from a parsed multipart form. The
// boolean reports whether the field was present at all.
func formImage(r *http.Request, field string) ([]byte, string, bool, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, err
	}
	defer file.Close()

	data, err := readImagePart(file, header.Filename)
	if err != nil {
		return nil, "", true, err
	}
	return data, header.Filename, true, nil
}

func readImagePart(file io.Reader, filename string) ([]byte, error) {
	if !isImageFilename(filename) {
		return nil, errNotAnImage
	}
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > maxUploadBytes {
		return nil, errUploadTooLarge
	}
	return data, nil
}
