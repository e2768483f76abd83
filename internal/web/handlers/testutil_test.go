package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/kozaktomas/face-attendance/internal/config"
	"github.com/kozaktomas/face-attendance/internal/mailer"
	"github.com/kozaktomas/face-attendance/internal/registry"
)

// testConfig creates a minimal config with model artifacts under a temp dir
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Model: config.ModelConfig{
			Dir:        filepath.Join(dir, "model"),
			DatasetDir: filepath.Join(dir, "dataset"),
			UnknownDir: filepath.Join(dir, "unknown"),
		},
		Detect: config.DetectConfig{
			ScaleFactor:  1.1,
			MinNeighbors: 5,
			MinSize:      30,
		},
		Recognize: config.RecognizeConfig{
			Threshold: 70,
		},
		Roster: config.RosterConfig{
			Path: filepath.Join(dir, "students.csv"),
		},
	}
}

// writeModelArtifacts persists a label map and model state into the config's model dir
func writeModelArtifacts(t *testing.T, cfg *config.Config, labels map[int]string) {
	t.Helper()
	if err := os.MkdirAll(cfg.Model.Dir, 0o750); err != nil {
		t.Fatalf("failed to create model dir: %v", err)
	}
	if err := registry.New(labels).Save(cfg.Model.Dir); err != nil {
		t.Fatalf("failed to save label map: %v", err)
	}
	if err := registry.SaveModelState(cfg.Model.Dir, []byte("mock-model")); err != nil {
		t.Fatalf("failed to save model state: %v", err)
	}
}

// writeRoster writes a CSV roster file at the config's roster path
func writeRoster(t *testing.T, cfg *config.Config, rows string) {
	t.Helper()
	content := "id,name,email\n" + rows
	if err := os.WriteFile(cfg.Roster.Path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write roster: %v", err)
	}
}

// grayPNG encodes a uniform grayscale image as PNG bytes
func grayPNG(t *testing.T, width, height int) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, width, height))
	for i := range img.Pix {
		img.Pix[i] = 128
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode PNG: %v", err)
	}
	return buf.Bytes()
}

// multipartImageRequest builds a multipart POST with the image under the given field name
func multipartImageRequest(t *testing.T, path, field string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile(field, "frame.png")
	if err != nil {
		t.Fatalf("failed to create form file: %v", err)
	}
	if _, err := part.Write(data); err != nil {
		t.Fatalf("failed to write form file: %v", err)
	}
	writer.Close()

	req := httptest.NewRequest("POST", path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

// requestWithChiParams creates a request with chi URL parameters
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// parseJSONResponse parses a JSON response body into the target type
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// recordSender is a mailer.Sender that records recipients instead of sending
type recordSender struct {
	sent []string
	err  error
}

func (s *recordSender) Send(cfg mailer.Config, to, subject, body string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, to)
	return nil
}

var _ mailer.Sender = (*recordSender)(nil)
