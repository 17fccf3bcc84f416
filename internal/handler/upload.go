package handler

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"
)

const (
	// DefaultMaxUploadBytes applies when no limit is configured.
	DefaultMaxUploadBytes int64 = 10 << 20

	// multipartOverhead covers form fields sent next to the files.
	multipartOverhead int64 = 1 << 20

	sniffLen = 512
)

var (
	errFileTooLarge     = errors.New("file too large")
	errUnsupportedMedia = errors.New("unsupported media type")
)

// sniffContentType detects the media type of an uploaded part from its first
// bytes, falling back to the declared header when detection is inconclusive.
func sniffContentType(f multipart.File, fh *multipart.FileHeader) (string, error) {
	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read %s: %w", fh.Filename, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", fmt.Errorf("rewind %s: %w", fh.Filename, err)
	}

	detected := http.DetectContentType(buf[:n])
	if detected == "application/octet-stream" || strings.HasPrefix(detected, "text/plain") {
		if declared, _, err := mime.ParseMediaType(fh.Header.Get("Content-Type")); err == nil && declared != "" {
			return declared, nil
		}
	}
	if mt, _, err := mime.ParseMediaType(detected); err == nil {
		return mt, nil
	}
	return detected, nil
}

// checkUpload validates one uploaded file against the size limit and a media
// type prefix such as "image/". It returns the detected content type.
func checkUpload(fh *multipart.FileHeader, maxBytes int64, prefix string) (string, error) {
	if fh.Size > maxBytes {
		return "", fmt.Errorf("%s: %w", fh.Filename, errFileTooLarge)
	}

	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open %s: %w", fh.Filename, err)
	}
	defer f.Close()

	contentType, err := sniffContentType(f, fh)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(contentType, prefix) {
		return "", fmt.Errorf("%s is %s: %w", fh.Filename, contentType, errUnsupportedMedia)
	}
	return contentType, nil
}

// writeUploadError maps upload validation failures to HTTP responses.
func writeUploadError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errFileTooLarge):
		writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": err.Error()})
	case errors.Is(err, errUnsupportedMedia):
		writeJSON(w, http.StatusUnsupportedMediaType, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid upload"})
	}
}

// parseMultipart limits the request body and parses the form.
func parseMultipart(w http.ResponseWriter, r *http.Request, maxBody int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody+multipartOverhead)
	if err := r.ParseMultipartForm(multipartOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return errFileTooLarge
		}
		return err
	}
	return nil
}
