package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/facelens/internal/face"
	"github.com/kozaktomas/facelens/internal/imaging"
)

const defaultDetectorURL = "http://localhost:8000"

// HTTPClient calls a face analysis service over HTTP.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a new detector client
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if baseURL == "" {
		baseURL = defaultDetectorURL
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Name returns the backend name.
func (c *HTTPClient) Name() string {
	return "http"
}

// wireFace is one face as returned by POST /detect.
type wireFace struct {
	Box               []float64          `json:"box"` // [x, y, width, height]
	Score             float64            `json:"score"`
	Landmarks         [][2]float64       `json:"landmarks"`
	Age               *float64           `json:"age"`
	Gender            *string            `json:"gender"`
	GenderProbability *float64           `json:"gender_probability"`
	Expressions       map[string]float64 `json:"expressions"`
	Descriptor        []float32          `json:"descriptor"`
}

type detectResponse struct {
	Faces []wireFace `json:"faces"`
	Model string     `json:"model"`
}

type modelsResponse struct {
	Models []ModelStatus `json:"models"`
}

// toResult converts a wire face, keeping only the attributes that were requested.
func (f wireFace) toResult(opts Options) face.DetectionResult {
	r := face.DetectionResult{Score: f.Score}
	if len(f.Box) == 4 {
		r.Box = face.Box{X: f.Box[0], Y: f.Box[1], Width: f.Box[2], Height: f.Box[3]}
	}
	if opts.Landmarks && len(f.Landmarks) > 0 {
		pts := make([]face.Point, len(f.Landmarks))
		for i, p := range f.Landmarks {
			pts[i] = face.Point{X: p[0], Y: p[1]}
		}
		r.Landmarks = face.Some(pts)
	}
	if opts.AgeGender {
		if f.Age != nil {
			r.Age = face.Some(*f.Age)
		}
		if f.Gender != nil {
			r.Gender = face.Some(*f.Gender)
		}
		if f.GenderProbability != nil {
			r.GenderProbability = face.Some(*f.GenderProbability)
		}
	}
	if opts.Expressions && len(f.Expressions) > 0 {
		r.Expressions = face.Some(face.Expressions(f.Expressions))
	}
	if opts.Descriptors && len(f.Descriptor) > 0 {
		r.Descriptor = face.Some(face.Descriptor(f.Descriptor))
	}
	return r
}

func (o Options) query() url.Values {
	q := url.Values{}
	q.Set("min_confidence", strconv.FormatFloat(o.MinConfidence, 'f', -1, 64))
	q.Set("landmarks", strconv.FormatBool(o.Landmarks))
	q.Set("age_gender", strconv.FormatBool(o.AgeGender))
	q.Set("expressions", strconv.FormatBool(o.Expressions))
	q.Set("descriptors", strconv.FormatBool(o.Descriptors))
	return q
}

// postMultipartImage constructs a multipart form with the image data and posts it to the given endpoint.
func (c *HTTPClient) postMultipartImage(ctx context.Context, endpoint string, imageData []byte) ([]byte, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="image"`)
	h.Set("Content-Type", imaging.DetectMIMEType(imageData))
	part, err := writer.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}

	if _, err := part.Write(imageData); err != nil {
		return nil, fmt.Errorf("failed to write image data: %w", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(req)
}

func (c *HTTPClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	return body, nil
}

// Detect runs detection with the requested variant.
func (c *HTTPClient) Detect(ctx context.Context, imageData []byte, opts Options) ([]face.DetectionResult, error) {
	if len(imageData) == 0 {
		return nil, errors.New("empty image")
	}

	body, err := c.postMultipartImage(ctx, "/detect?"+opts.query().Encode(), imageData)
	if err != nil {
		return nil, err
	}

	var resp detectResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	results := make([]face.DetectionResult, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		// The service may ignore min_confidence.
		if f.Score < opts.MinConfidence {
			continue
		}
		results = append(results, f.toResult(opts))
	}
	return results, nil
}

// Models lists the models the service has loaded.
func (c *HTTPClient) Models(ctx context.Context) ([]ModelStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}

	var resp modelsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return resp.Models, nil
}
