package handlers

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/kozaktomas/facelens/internal/constants"
	"github.com/kozaktomas/facelens/internal/logging"
)

// parseUploadForm parses a multipart request bounded by MaxUploadSize.
func parseUploadForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, constants.MaxUploadSize)
	if err := r.ParseMultipartForm(constants.MaxUploadSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("upload exceeds %d MB", constants.MaxUploadSize>>20)
		}
		return errors.New("failed to parse multipart form")
	}
	return nil
}

// readUpload returns the content of one file field. A missing field yields
// nil data so the controller can report its own precondition message.
func readUpload(r *http.Request, field string) ([]byte, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, constants.MaxUploadSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}

	logging.WithRequestID(r.Context()).WithFields(logging.Fields{
		"field":    field,
		"filename": sanitizeForLog(header.Filename),
		"size":     len(data),
	}).Debug("upload received")
	return data, nil
}

// readUploads reads the given fields, stopping at the first read failure.
func readUploads(w http.ResponseWriter, r *http.Request, fields ...string) ([][]byte, bool) {
	if err := parseUploadForm(w, r); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	out := make([][]byte, len(fields))
	for i, field := range fields {
		data, err := readUpload(r, field)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return nil, false
		}
		out[i] = data
	}
	return out, true
}

// pngDataURL embeds an encoded PNG in JSON responses.
func pngDataURL(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(data)
}
