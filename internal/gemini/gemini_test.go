package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/complytics/memegen/internal/domain"
)

func newTestClient(baseURL string) *Client {
	return New(&Config{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		TextModel:  "text-model",
		ImageModel: "image-model",
	})
}

func TestGenerateText(t *testing.T) {
	var gotPath, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-goog-api-key")
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"candidates":[{"content":{"parts":[{"text":"hello "},{"text":"world"}]}}]}`)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	text, err := client.GenerateText(context.Background(), "say hello")
	if err != nil {
		t.Fatalf("GenerateText: %v", err)
	}
	if text != "hello world" {
		t.Errorf("text = %q, want %q", text, "hello world")
	}
	if gotPath != "/v1beta/models/text-model:generateContent" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header = %q", gotKey)
	}
}

func TestGenerateTextErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind domain.RemoteErrorKind
	}{
		{
			name:     "quota exhausted",
			status:   http.StatusTooManyRequests,
			body:     `{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`,
			wantKind: domain.RemoteQuota,
		},
		{
			name:     "server error",
			status:   http.StatusInternalServerError,
			body:     `{"error":{"code":500,"message":"internal","status":"INTERNAL"}}`,
			wantKind: domain.RemoteInvalidResponse,
		},
		{
			name:     "no candidates",
			status:   http.StatusOK,
			body:     `{"candidates":[]}`,
			wantKind: domain.RemoteInvalidResponse,
		},
		{
			name:     "candidate without text",
			status:   http.StatusOK,
			body:     `{"candidates":[{"content":{"parts":[{"text":"   "}]}}]}`,
			wantKind: domain.RemoteInvalidResponse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			_, err := newTestClient(server.URL).GenerateText(context.Background(), "p")
			var remoteErr *domain.RemoteError
			if !errors.As(err, &remoteErr) {
				t.Fatalf("expected RemoteError, got %v", err)
			}
			if remoteErr.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", remoteErr.Kind, tt.wantKind)
			}
		})
	}
}

func TestGenerateTextNetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // refuse connections

	_, err := newTestClient(server.URL).GenerateText(context.Background(), "p")
	var remoteErr *domain.RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remoteErr.Kind != domain.RemoteNetwork {
		t.Errorf("kind = %s, want %s", remoteErr.Kind, domain.RemoteNetwork)
	}
}

func imageChunk(data []byte, mimeType string) string {
	return fmt.Sprintf(
		`data: {"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":%q,"data":%q}}]}}]}`,
		mimeType, base64.StdEncoding.EncodeToString(data),
	)
}

func TestGenerateImageAssemblesChunks(t *testing.T) {
	image := []byte("not-really-a-png-but-bytes-are-bytes")
	half := len(image) / 2

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "image-model:streamGenerateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("alt") != "sse" {
			t.Errorf("expected alt=sse, got %q", r.URL.RawQuery)
		}
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprintln(w, imageChunk(image[:half], "image/png"))
		fmt.Fprintln(w)
		// Interleaved text parts are ignored.
		fmt.Fprintln(w, `data: {"candidates":[{"content":{"parts":[{"text":"rendering"}]}}]}`)
		fmt.Fprintln(w)
		fmt.Fprintln(w, imageChunk(image[half:], ""))
		fmt.Fprintln(w)
	}))
	defer server.Close()

	data, mimeType, err := newTestClient(server.URL).GenerateImage(context.Background(), "make a meme")
	if err != nil {
		t.Fatalf("GenerateImage: %v", err)
	}
	if !bytes.Equal(data, image) {
		t.Errorf("assembled %d bytes, want %d; chunks not concatenated in order", len(data), len(image))
	}
	if mimeType != "image/png" {
		t.Errorf("mime type = %q, want image/png", mimeType)
	}
}

func TestGenerateImageEmptyStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		// Model answered with text only: the refusal path.
		fmt.Fprintln(w, `data: {"candidates":[{"content":{"parts":[{"text":"I cannot create that image."}]}}]}`)
		fmt.Fprintln(w)
	}))
	defer server.Close()

	_, _, err := newTestClient(server.URL).GenerateImage(context.Background(), "p")
	var emptyErr *domain.EmptyResultError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected EmptyResultError, got %v", err)
	}
}

func TestGenerateImageHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"code":429,"message":"quota exceeded","status":"RESOURCE_EXHAUSTED"}}`)
	}))
	defer server.Close()

	_, _, err := newTestClient(server.URL).GenerateImage(context.Background(), "p")
	var remoteErr *domain.RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remoteErr.Kind != domain.RemoteQuota {
		t.Errorf("kind = %s, want %s", remoteErr.Kind, domain.RemoteQuota)
	}
}

func TestAssembleImageStreamErrors(t *testing.T) {
	tests := []struct {
		name     string
		stream   string
		wantKind domain.RemoteErrorKind
	}{
		{
			name:     "malformed chunk",
			stream:   "data: {not json}\n\n",
			wantKind: domain.RemoteInvalidResponse,
		},
		{
			name:     "in-stream error",
			stream:   `data: {"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}` + "\n\n",
			wantKind: domain.RemoteQuota,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := assembleImageStream(context.Background(), strings.NewReader(tt.stream))
			var remoteErr *domain.RemoteError
			if !errors.As(err, &remoteErr) {
				t.Fatalf("expected RemoteError, got %v", err)
			}
			if remoteErr.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", remoteErr.Kind, tt.wantKind)
			}
		})
	}
}

func TestAssembleImageStreamIgnoresNoise(t *testing.T) {
	image := []byte{0x89, 0x50, 0x4e, 0x47}
	stream := ": keep-alive comment\n\n" +
		imageChunk(image, "image/png") + "\n\n" +
		"data: [DONE]\n\n"

	data, mimeType, err := assembleImageStream(context.Background(), strings.NewReader(stream))
	if err != nil {
		t.Fatalf("assembleImageStream: %v", err)
	}
	if !bytes.Equal(data, image) {
		t.Errorf("data = %v, want %v", data, image)
	}
	if mimeType != "image/png" {
		t.Errorf("mime type = %q", mimeType)
	}
}
