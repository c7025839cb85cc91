package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/KnuggetDeveloper/infograph/internal/config"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := config.Config{
		GeminiAPIKey:   "test-key",
		GeminiBaseURL:  srv.URL,
		GeminiModel:    "gemini-3-pro-image-preview",
		RequestTimeout: 5 * time.Second,
	}
	return NewClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGenerateImage(t *testing.T) {
	ctx := context.Background()

	t.Run("Success", func(t *testing.T) {
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("x-goog-api-key"); got != "test-key" {
				t.Errorf("api key header = %q", got)
			}
			if !strings.Contains(r.URL.Path, "models/gemini-3-pro-image-preview:generateContent") {
				t.Errorf("unexpected path %q", r.URL.Path)
			}

			var req generateRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Fatalf("decode request: %v", err)
			}
			if len(req.Contents) != 1 || len(req.Contents[0].Parts) != 1 {
				t.Fatalf("unexpected contents shape: %+v", req.Contents)
			}
			if req.Contents[0].Parts[0].Text != "draw a chart" {
				t.Errorf("prompt = %q", req.Contents[0].Parts[0].Text)
			}
			if req.GenerationConfig.ImageConfig.AspectRatio != "16:9" {
				t.Errorf("aspect ratio = %q", req.GenerationConfig.ImageConfig.AspectRatio)
			}

			_ = json.NewEncoder(w).Encode(map[string]any{
				"candidates": []any{
					map[string]any{
						"content": map[string]any{
							"parts": []any{
								map[string]any{"text": "here is your image"},
								map[string]any{"inlineData": map[string]any{"mimeType": "image/png", "data": "aW1n"}},
							},
						},
					},
				},
			})
		})

		img, err := client.GenerateImage(ctx, "draw a chart")
		if err != nil {
			t.Fatalf("GenerateImage failed: %v", err)
		}
		if img.Data != "aW1n" || img.MimeType != "image/png" {
			t.Errorf("got %+v", img)
		}
	})

	t.Run("NoImageShapes", func(t *testing.T) {
		bodies := map[string]string{
			"NoCandidates":  `{}`,
			"EmptyByList":   `{"candidates":[]}`,
			"NoContent":     `{"candidates":[{}]}`,
			"NoParts":       `{"candidates":[{"content":{}}]}`,
			"TextOnlyParts": `{"candidates":[{"content":{"parts":[{"text":"sorry"}]}}]}`,
		}
		for name, body := range bodies {
			t.Run(name, func(t *testing.T) {
				client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
					_, _ = w.Write([]byte(body))
				})
				_, err := client.GenerateImage(ctx, "x")
				if !errors.Is(err, ErrNoImage) {
					t.Errorf("expected ErrNoImage, got %v", err)
				}
			})
		}
	})

	t.Run("BackendError", func(t *testing.T) {
		client := testClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"quota exhausted"}}`))
		})
		_, err := client.GenerateImage(ctx, "x")
		if err == nil || errors.Is(err, ErrNoImage) {
			t.Fatalf("expected transport-level error, got %v", err)
		}
		if !strings.Contains(err.Error(), "quota exhausted") {
			t.Errorf("error should carry the backend body, got %v", err)
		}
	})
}

func TestFirstInlineImage(t *testing.T) {
	resp := &generateResponse{}
	if firstInlineImage(resp) != nil {
		t.Error("empty response should map to nil")
	}

	if err := json.Unmarshal([]byte(`{"candidates":[
		{"content":{"parts":[{"text":"first candidate, no image"}]}},
		{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"second"}}]}}
	]}`), resp); err != nil {
		t.Fatal(err)
	}
	img := firstInlineImage(resp)
	if img == nil || img.Data != "second" {
		t.Errorf("expected the first candidate carrying data, got %+v", img)
	}
}
