package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	DefaultSidecarURL     = "http://localhost:8387"
	DefaultSidecarTimeout = 10 * time.Minute

	healthTimeout = 5 * time.Second
)

// SidecarEngine sends audio to a faster-whisper HTTP sidecar.
type SidecarEngine struct {
	URL    string
	Client *http.Client
	Logger *zap.Logger
}

func NewSidecarEngine(ctx context.Context, opts Options) (*SidecarEngine, error) {
	url := strings.TrimRight(strings.TrimSpace(opts.SidecarURL), "/")
	if url == "" {
		url = DefaultSidecarURL
	}

	timeout := opts.SidecarTimeout
	if timeout <= 0 {
		timeout = DefaultSidecarTimeout
	}

	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	engine := &SidecarEngine{
		URL:    url,
		Client: &http.Client{Timeout: timeout},
		Logger: logger,
	}

	if !engine.IsAvailable(ctx) {
		return nil, fmt.Errorf("%w: faster-whisper sidecar not reachable at %s; start the sidecar or set WHISPERJSON_SIDECAR_URL", ErrEngineUnavailable, url)
	}
	return engine, nil
}

// IsAvailable reports whether the sidecar answers its health check.
func (s *SidecarEngine) IsAvailable(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := s.Client.Do(req)
	if err != nil {
		s.Logger.Debug("sidecar health check failed", zap.String("url", s.URL), zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (s *SidecarEngine) Transcribe(ctx context.Context, req TranscriptionRequest) (Transcription, error) {
	audioPath, err := checkAudioPath(req.AudioPath)
	if err != nil {
		return Transcription{}, err
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = DefaultModel
	}

	body, contentType, err := buildSidecarForm(audioPath, model, req)
	if err != nil {
		return Transcription{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL+"/transcribe", body)
	if err != nil {
		return Transcription{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	s.Logger.Debug("posting audio to sidecar", zap.String("url", s.URL), zap.String("model", model), zap.String("compute_type", computeType(req.FP16)))
	resp, err := s.Client.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Transcription{}, ctxErr
		}
		return Transcription{}, fmt.Errorf("whisper sidecar request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Transcription{}, fmt.Errorf("whisper sidecar error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out sidecarResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Transcription{}, fmt.Errorf("decode whisper sidecar response: %w", err)
	}

	return out.transcription(), nil
}

type sidecarResponse struct {
	Text     string           `json:"text"`
	Language string           `json:"language"`
	Segments []sidecarSegment `json:"segments"`
}

// The sidecar may omit segment ids.
type sidecarSegment struct {
	ID *int `json:"id"`
	Segment
}

func (r sidecarResponse) transcription() Transcription {
	segments := make([]Segment, 0, len(r.Segments))
	for i, s := range r.Segments {
		seg := s.Segment
		seg.ID = i
		if s.ID != nil {
			seg.ID = *s.ID
		}
		segments = append(segments, seg)
	}

	return Transcription{
		Text:     r.Text,
		Language: r.Language,
		Segments: segments,
	}
}

func buildSidecarForm(audioPath, model string, req TranscriptionRequest) (io.Reader, string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("audio", filepath.Base(audioPath))
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("write audio data: %w", err)
	}

	fields := map[string]string{
		"model":        model,
		"compute_type": computeType(req.FP16),
	}
	if lang := strings.TrimSpace(req.Language); lang != "" {
		fields["language"] = lang
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("write form field %s: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart body: %w", err)
	}

	return &buf, writer.FormDataContentType(), nil
}

func computeType(fp16 bool) string {
	if fp16 {
		return "float16"
	}
	return "float32"
}
