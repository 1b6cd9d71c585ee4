package sdapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestClient_Txt2Img(t *testing.T) {
	var got Txt2ImgRequest

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/sdapi/v1/txt2img", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "alice", user)
		assert.Equal(t, "secret", pass)

		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"images": []string{"aGVsbG8="},
			"info":   `{"infotexts":["a cat\nSteps: 20, Seed: 42"]}`,
		})
	}))
	defer srv.Close()

	c := New(discardLogger(), srv.URL+"/", "alice", "secret", time.Second)

	resp, err := c.Txt2Img(context.Background(), Txt2ImgRequest{
		Prompt: "a cat",
		Steps:  20,
		Seed:   42,
	})
	require.NoError(t, err)

	assert.Equal(t, "a cat", got.Prompt)
	assert.Equal(t, int64(42), got.Seed)
	assert.Equal(t, []string{"aGVsbG8="}, resp.Images)

	infotexts, err := resp.Infotexts()
	require.NoError(t, err)
	assert.Equal(t, []string{"a cat\nSteps: 20, Seed: 42"}, infotexts)
}

func TestClient_NoCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_ = json.NewEncoder(w).Encode(map[string]any{"images": []string{}, "info": ""})
	}))
	defer srv.Close()

	c := New(discardLogger(), srv.URL, "", "", time.Second)

	resp, err := c.Img2Img(context.Background(), Img2ImgRequest{
		Txt2ImgRequest: Txt2ImgRequest{Prompt: "a dog"},
		InitImages:     []string{"aGVsbG8="},
	})
	require.NoError(t, err)

	infotexts, err := resp.Infotexts()
	require.NoError(t, err)
	assert.Nil(t, infotexts)
}

func TestClient_Img2ImgPayload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/sdapi/v1/img2img", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		// встроенный запрос разворачивается в плоский объект
		assert.Equal(t, "a dog", body["prompt"])
		assert.Equal(t, []any{"aGVsbG8="}, body["init_images"])
		assert.Equal(t, float64(1), body["resize_mode"])

		_ = json.NewEncoder(w).Encode(map[string]any{"images": []string{"x"}})
	}))
	defer srv.Close()

	c := New(discardLogger(), srv.URL, "", "", time.Second)
	_, err := c.Img2Img(context.Background(), Img2ImgRequest{
		Txt2ImgRequest: Txt2ImgRequest{Prompt: "a dog"},
		InitImages:     []string{"aGVsbG8="},
		ResizeMode:     1,
	})
	require.NoError(t, err)
}

func TestClient_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"model not loaded"}`, http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(discardLogger(), srv.URL, "", "", time.Second)

	_, err := c.Txt2Img(context.Background(), Txt2ImgRequest{Prompt: "a cat"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, txt2imgPath, apiErr.Endpoint)
	assert.Contains(t, apiErr.Body, "model not loaded")
}

func TestClient_Options(t *testing.T) {
	stored := map[string]any{"sd_model_checkpoint": "foo.safetensors"}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, optionsPath, r.URL.Path)

		switch r.Method {
		case http.MethodGet:
			_ = json.NewEncoder(w).Encode(stored)
		case http.MethodPost:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&stored))
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	}))
	defer srv.Close()

	c := New(discardLogger(), srv.URL, "", "", time.Second)
	ctx := context.Background()

	opts, err := c.Options(ctx)
	require.NoError(t, err)
	assert.Equal(t, "foo.safetensors", opts["sd_model_checkpoint"])

	require.NoError(t, c.SetOptions(ctx, map[string]any{"sd_model_checkpoint": "bar.safetensors"}))

	opts, err = c.Options(ctx)
	require.NoError(t, err)
	assert.Equal(t, "bar.safetensors", opts["sd_model_checkpoint"])
}

func TestGenerationResponse_BadInfo(t *testing.T) {
	_, err := GenerationResponse{Info: "not json"}.Infotexts()
	assert.Error(t, err)
}

func TestClient_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	c := New(discardLogger(), srv.URL, "", "", 50*time.Millisecond)

	_, err := c.Options(context.Background())
	assert.Error(t, err)
}
