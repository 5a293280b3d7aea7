package gemini

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/complytics/memegen/internal/domain"
	"github.com/complytics/memegen/internal/logger"
	"github.com/go-resty/resty/v2"
)

// Client wraps the Gemini REST API behind the pipeline's generation
// contract: one-shot text generation and chunked image generation.
// All remote failure modes are mapped to the domain error taxonomy
// here; retries are a caller decision.
type Client struct {
	client       *resty.Client
	baseURL      string
	textModel    string
	imageModel   string
	textTimeout  time.Duration
	imageTimeout time.Duration
}

// Config holds configuration for the Gemini client.
type Config struct {
	APIKey       string
	BaseURL      string
	TextModel    string
	ImageModel   string
	TextTimeout  time.Duration
	ImageTimeout time.Duration
}

// New creates a new Gemini client.
// Parameters:
//   - cfg: client configuration including API key and model ids.
//
// Returns:
//   - *Client: initialized API wrapper.
func New(cfg *Config) *Client {
	client := resty.New()
	client.SetHeader("x-goog-api-key", cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	textTimeout := cfg.TextTimeout
	if textTimeout <= 0 {
		textTimeout = 60 * time.Second
	}
	imageTimeout := cfg.ImageTimeout
	if imageTimeout <= 0 {
		imageTimeout = 180 * time.Second
	}

	return &Client{
		client:       client,
		baseURL:      strings.TrimRight(baseURL, "/"),
		textModel:    cfg.TextModel,
		imageModel:   cfg.ImageModel,
		textTimeout:  textTimeout,
		imageTimeout: imageTimeout,
	}
}

// TextModel returns the text model identifier being used.
func (c *Client) TextModel() string {
	return c.textModel
}

// ImageModel returns the image model identifier being used.
func (c *Client) ImageModel() string {
	return c.imageModel
}

// Gemini generateContent API request/response structures
type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

// inlineData carries binary payloads; encoding/json handles the base64
// representation of Data on both directions.
type inlineData struct {
	MIMEType string `json:"mimeType,omitempty"`
	Data     []byte `json:"data,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type generateResponse struct {
	Candidates []candidate `json:"candidates"`
	Error      *apiError   `json:"error,omitempty"`
}

type candidate struct {
	Content      *content `json:"content"`
	FinishReason string   `json:"finishReason,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func userRequest(prompt string, modalities ...string) *generateRequest {
	req := &generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: prompt}}},
		},
	}
	if len(modalities) > 0 {
		req.GenerationConfig = &generationConfig{ResponseModalities: modalities}
	}
	return req
}

// remoteKind maps an HTTP status to the error taxonomy.
func remoteKind(status int) domain.RemoteErrorKind {
	if status == http.StatusTooManyRequests {
		return domain.RemoteQuota
	}
	return domain.RemoteInvalidResponse
}

// GenerateText sends a single prompt to the text model and returns the
// concatenated text parts of the first candidate.
// Parameters:
//   - ctx: context for cancellation; a per-call timeout is applied.
//   - prompt: instruction text for the model.
//
// Returns:
//   - string: generated text (never empty on success).
//   - error: *domain.RemoteError on transport failure, non-success
//     status, or empty body.
func (c *Client) GenerateText(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.textTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.textModel)

	var resp generateResponse
	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(userRequest(prompt)).
		SetResult(&resp).
		SetError(&resp).
		Post(url)

	if err != nil {
		return "", &domain.RemoteError{Kind: domain.RemoteNetwork, Op: "generate_text", Err: err}
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		return "", &domain.RemoteError{
			Kind: remoteKind(httpResp.StatusCode()),
			Op:   "generate_text",
			Err:  apiErrorFrom(httpResp.StatusCode(), resp.Error, httpResp.Body()),
		}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", &domain.RemoteError{
			Kind: domain.RemoteInvalidResponse,
			Op:   "generate_text",
			Err:  fmt.Errorf("no candidates in response"),
		}
	}

	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", &domain.RemoteError{
			Kind: domain.RemoteInvalidResponse,
			Op:   "generate_text",
			Err:  fmt.Errorf("candidate contained no text"),
		}
	}

	return text, nil
}

// GenerateImage sends a prompt to the image model over the streaming
// endpoint and assembles the inline-data chunks into one complete
// image. Partial images are never returned; the caller gets the whole
// blob or an error.
// Parameters:
//   - ctx: context for cancellation; a per-call timeout is applied.
//   - prompt: image-generation instruction.
//
// Returns:
//   - []byte: complete image bytes.
//   - string: MIME type reported by the model (defaults to image/png).
//   - error: *domain.RemoteError on transport/status failures,
//     *domain.EmptyResultError when the stream carried no image data
//     (the model's refusal path looks like success with no payload).
func (c *Client) GenerateImage(ctx context.Context, prompt string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.imageTimeout)
	defer cancel()

	url := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", c.baseURL, c.imageModel)

	httpResp, err := c.client.R().
		SetContext(ctx).
		SetBody(userRequest(prompt, "IMAGE", "TEXT")).
		SetDoNotParseResponse(true).
		Post(url)

	if err != nil {
		return nil, "", &domain.RemoteError{Kind: domain.RemoteNetwork, Op: "generate_image", Err: err}
	}

	body := httpResp.RawBody()
	defer body.Close()

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		raw := make([]byte, 8192)
		n, _ := body.Read(raw)
		var resp generateResponse
		_ = json.Unmarshal(raw[:n], &resp)
		return nil, "", &domain.RemoteError{
			Kind: remoteKind(httpResp.StatusCode()),
			Op:   "generate_image",
			Err:  apiErrorFrom(httpResp.StatusCode(), resp.Error, raw[:n]),
		}
	}

	image, mimeType, err := assembleImageStream(ctx, body)
	if err != nil {
		return nil, "", err
	}
	if len(image) == 0 {
		return nil, "", &domain.EmptyResultError{Op: "generate_image"}
	}
	if mimeType == "" {
		mimeType = "image/png"
	}

	logger.With(logger.Fields{logger.FieldSize: len(image)}).
		Debug(ctx, "Image stream assembled: model=%s", c.imageModel)

	return image, mimeType, nil
}

// maxSSELine bounds a single server-sent event line. Image chunks
// arrive base64-encoded inside one data line, so this must comfortably
// exceed the largest expected chunk.
const maxSSELine = 32 << 20

// assembleImageStream buffers and concatenates inline-data chunks from
// a server-sent-event stream until the stream terminates. Interleaved
// text parts are ignored.
func assembleImageStream(ctx context.Context, body io.Reader) ([]byte, string, error) {
	var (
		image    []byte
		mimeType string
	)

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 64*1024), maxSSELine)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" || payload == "[DONE]" {
			continue
		}

		var chunk generateResponse
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			return nil, "", &domain.RemoteError{
				Kind: domain.RemoteInvalidResponse,
				Op:   "generate_image",
				Err:  fmt.Errorf("malformed stream chunk: %w", err),
			}
		}
		if chunk.Error != nil {
			return nil, "", &domain.RemoteError{
				Kind: remoteKind(chunk.Error.Code),
				Op:   "generate_image",
				Err:  fmt.Errorf("%s: %s", chunk.Error.Status, chunk.Error.Message),
			}
		}

		for _, cand := range chunk.Candidates {
			if cand.Content == nil {
				continue
			}
			for _, p := range cand.Content.Parts {
				if p.InlineData == nil || len(p.InlineData.Data) == 0 {
					continue
				}
				image = append(image, p.InlineData.Data...)
				if p.InlineData.MIMEType != "" {
					mimeType = p.InlineData.MIMEType
				}
			}
		}
	}

	if err := scanner.Err(); err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return nil, "", &domain.RemoteError{Kind: domain.RemoteNetwork, Op: "generate_image", Err: err}
	}

	return image, mimeType, nil
}

func apiErrorFrom(status int, apiErr *apiError, body []byte) error {
	if apiErr != nil && apiErr.Message != "" {
		return fmt.Errorf("HTTP %d: %s", status, apiErr.Message)
	}
	if len(body) > 0 {
		return fmt.Errorf("HTTP %d: %s", status, string(body))
	}
	return fmt.Errorf("HTTP %d", status)
}
