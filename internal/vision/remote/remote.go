// Package remote implements the vision engine against an external face
// service over HTTP. The service owns the actual detector and classifier;
// this client only moves grayscale PNG payloads and opaque model state.
package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/kozaktomas/face-attendance/internal/vision"
)

// Client talks to a face service exposing detect/train/predict endpoints.
type Client struct {
	baseURL    string
	parsedURL  *url.URL
	httpClient *http.Client

	mu      sync.RWMutex
	modelID string
}

// New creates a face service client for the given base URL.
func New(baseURL string) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid face service URL: %w", err)
	}
	return &Client{
		baseURL:   baseURL,
		parsedURL: parsed,
		httpClient: &http.Client{
			// Face processing can take a while, especially on CPU.
			Timeout: 120 * time.Second,
		},
	}, nil
}

// resolveURL builds a full URL from the base URL and path segments.
func (c *Client) resolveURL(pathSegments ...string) string {
	return c.parsedURL.JoinPath(pathSegments...).String()
}

// encodeGray encodes a grayscale image as base64 PNG.
func encodeGray(img *image.Gray) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encoding image: %w", err)
	}
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// readErrorBody reads the response body for error messages.
func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(r)
	if err != nil {
		return "(could not read error body)"
	}
	return string(body)
}

// post sends a JSON request and decodes a JSON response.
func (c *Client) post(path string, payload, result any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.httpClient.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolveURL("api", "v1", path), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call face service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("face service error (status %d): %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("parse response: %w", err)
	}
	return nil
}

type detectRequest struct {
	Image        string  `json:"image"`
	ScaleFactor  float64 `json:"scale_factor"`
	MinNeighbors int     `json:"min_neighbors"`
	MinSize      int     `json:"min_size"`
}

type detectResponse struct {
	Regions []vision.Region `json:"regions"`
}

// Detect asks the face service for face regions in a grayscale image.
func (c *Client) Detect(img *image.Gray, opts vision.DetectOptions) ([]vision.Region, error) {
	opts = opts.Defaults()
	encoded, err := encodeGray(img)
	if err != nil {
		return nil, err
	}

	var resp detectResponse
	if err := c.post("detect", detectRequest{
		Image:        encoded,
		ScaleFactor:  opts.ScaleFactor,
		MinNeighbors: opts.MinNeighbors,
		MinSize:      opts.MinSize,
	}, &resp); err != nil {
		return nil, err
	}
	return resp.Regions, nil
}

type trainSample struct {
	Image string `json:"image"`
	Label int    `json:"label"`
}

type trainRequest struct {
	Samples []trainSample `json:"samples"`
}

type trainResponse struct {
	Model string `json:"model"` // base64 opaque model state
}

// Train uploads labeled samples and returns the opaque model state produced
// by the service.
func (c *Client) Train(samples []vision.Sample) ([]byte, error) {
	req := trainRequest{Samples: make([]trainSample, 0, len(samples))}
	for _, s := range samples {
		encoded, err := encodeGray(s.Pixels)
		if err != nil {
			return nil, err
		}
		req.Samples = append(req.Samples, trainSample{Image: encoded, Label: s.Label})
	}

	var resp trainResponse
	if err := c.post("train", req, &resp); err != nil {
		return nil, err
	}

	state, err := base64.StdEncoding.DecodeString(resp.Model)
	if err != nil {
		return nil, fmt.Errorf("decode model state: %w", err)
	}

	// Trained state is immediately usable for Predict.
	if err := c.Load(state); err != nil {
		return nil, err
	}
	return state, nil
}

type loadRequest struct {
	Model string `json:"model"`
}

type loadResponse struct {
	ModelID string `json:"model_id"`
}

// Load uploads model state to the service and remembers the session model id
// used by subsequent Predict calls.
func (c *Client) Load(state []byte) error {
	var resp loadResponse
	if err := c.post("models", loadRequest{Model: base64.StdEncoding.EncodeToString(state)}, &resp); err != nil {
		return err
	}
	if resp.ModelID == "" {
		return fmt.Errorf("face service returned empty model id")
	}

	c.mu.Lock()
	c.modelID = resp.ModelID
	c.mu.Unlock()
	return nil
}

type predictRequest struct {
	ModelID string `json:"model_id"`
	Image   string `json:"image"`
}

type predictResponse struct {
	Label    int     `json:"label"`
	Distance float64 `json:"distance"`
}

// Predict matches a grayscale crop against the loaded model.
func (c *Client) Predict(crop *image.Gray) (int, float64, error) {
	c.mu.RLock()
	modelID := c.modelID
	c.mu.RUnlock()
	if modelID == "" {
		return 0, 0, vision.ErrNotLoaded
	}

	encoded, err := encodeGray(crop)
	if err != nil {
		return 0, 0, err
	}

	var resp predictResponse
	if err := c.post("predict", predictRequest{ModelID: modelID, Image: encoded}, &resp); err != nil {
		return 0, 0, err
	}
	return resp.Label, resp.Distance, nil
}
