// Package inference talks to the model-serving service that answers
// assistant chat prompts and scores voice and image screenings.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"
)

// maxResponseBytes caps how much of an upstream body is read.
const maxResponseBytes = 1 << 20

// VoiceAnalysis is the result of a voice screening.
type VoiceAnalysis struct {
	Prediction  string          `json:"prediction"`
	Probability float64         `json:"probability"`
	Raw         json.RawMessage `json:"-"`
}

// ImageClassification is the result of an imaging screening.
type ImageClassification struct {
	PredictedClass string          `json:"predicted_class"`
	CalmingTips    []string        `json:"calming_tips"`
	Raw            json.RawMessage `json:"-"`
}

// UpstreamError is returned when the service answers with a non-2xx status.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("inference service returned %d", e.StatusCode)
	}
	return fmt.Sprintf("inference service returned %d: %s", e.StatusCode, e.Message)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// Client calls the inference service.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// NewClient creates a Client for the service at baseURL. Each call is
// bounded by timeout in addition to the caller's context.
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		timeout:    timeout,
		httpClient: &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Chat sends a prompt to /ai and returns the model's reply.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	payload, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return "", err
	}
	raw, err := c.do(ctx, "/ai", "application/json", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	var out struct {
		Response string `json:"response"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if out.Response == "" {
		return "", errors.New("inference service returned an empty reply")
	}
	return out.Response, nil
}

// AnalyzeVoice uploads a recording to /parkinson.
func (c *Client) AnalyzeVoice(ctx context.Context, filename string, audio io.Reader) (*VoiceAnalysis, error) {
	raw, err := c.upload(ctx, "/parkinson", "audio", filename, audio)
	if err != nil {
		return nil, err
	}
	var out VoiceAnalysis
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode voice analysis: %w", err)
	}
	out.Raw = raw
	return &out, nil
}

// ClassifyImage uploads a scan to /predict.
func (c *Client) ClassifyImage(ctx context.Context, filename string, image io.Reader) (*ImageClassification, error) {
	raw, err := c.upload(ctx, "/predict", "image", filename, image)
	if err != nil {
		return nil, err
	}
	var out ImageClassification
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("decode image classification: %w", err)
	}
	if out.PredictedClass == "" {
		return nil, errors.New("inference service returned no class")
	}
	out.Raw = raw
	return &out, nil
}

func (c *Client) upload(ctx context.Context, path, field, filename string, r io.Reader) ([]byte, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, r); err != nil {
		return nil, fmt.Errorf("read %s: %w", field, err)
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}
	return c.do(ctx, path, mw.FormDataContentType(), &body)
}

func (c *Client) do(ctx context.Context, path, contentType string, body io.Reader) ([]byte, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(raw, &e)
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Message: e.Error}
	}
	return raw, nil
}
