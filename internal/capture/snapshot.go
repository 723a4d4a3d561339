package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kozaktomas/facelens/internal/constants"
)

var errSnapshotEmpty = errors.New("snapshot is empty")

// Snapshot fetches a still image from an HTTP endpoint on every Frame call,
// as exposed by most IP cameras.
type Snapshot struct {
	url    string
	client *http.Client
}

// NewSnapshot creates a snapshot source. A zero timeout uses 10 seconds.
func NewSnapshot(url string, timeout time.Duration) *Snapshot {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Snapshot{url: url, client: &http.Client{Timeout: timeout}}
}

// Frame downloads the current image.
func (s *Snapshot) Frame(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("snapshot request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("snapshot returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, constants.MaxUploadSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %w", err)
	}
	if len(data) == 0 {
		return nil, errSnapshotEmpty
	}
	return data, nil
}

// Close releases idle connections.
func (s *Snapshot) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
