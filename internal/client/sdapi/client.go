// Пакет sdapi — HTTP-клиент удалённого API генерации изображений
// (/sdapi/v1). Повторы и backoff не выполняются: решение за вызывающим.
package sdapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"sdgallery/internal/metrics"
)

const (
	txt2imgPath = "/sdapi/v1/txt2img"
	img2imgPath = "/sdapi/v1/img2img"
	optionsPath = "/sdapi/v1/options"

	// сколько тела ответа с ошибкой сохранять в APIError
	maxErrorBody = 4 << 10
)

type Txt2ImgRequest struct {
	Prompt            string         `json:"prompt"`
	NegativePrompt    string         `json:"negative_prompt,omitempty"`
	Width             int            `json:"width,omitempty"`
	Height            int            `json:"height,omitempty"`
	Steps             int            `json:"steps,omitempty"`
	CFGScale          float64        `json:"cfg_scale,omitempty"`
	Seed              int64          `json:"seed"`
	SamplerName       string         `json:"sampler_name,omitempty"`
	BatchSize         int            `json:"batch_size,omitempty"`
	NIter             int            `json:"n_iter,omitempty"`
	RestoreFaces      bool           `json:"restore_faces,omitempty"`
	EnableHR          bool           `json:"enable_hr,omitempty"`
	HRScale           float64        `json:"hr_scale,omitempty"`
	HRSecondPassSteps int            `json:"hr_second_pass_steps,omitempty"`
	DenoisingStrength float64        `json:"denoising_strength,omitempty"`
	ScriptName        string         `json:"script_name,omitempty"`
	ScriptArgs        []interface{}  `json:"script_args,omitempty"`
	OverrideSettings  map[string]any `json:"override_settings,omitempty"`
}

type Img2ImgRequest struct {
	Txt2ImgRequest
	// base64 PNG
	InitImages []string `json:"init_images"`
	ResizeMode int      `json:"resize_mode"`
}

// GenerationResponse — ответ txt2img/img2img. Info содержит JSON-строку,
// в которой infotexts[i] — текст параметров для images[i].
type GenerationResponse struct {
	Images     []string        `json:"images"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
	Info       string          `json:"info"`
}

type generationInfo struct {
	Infotexts []string `json:"infotexts"`
}

// Infotexts разбирает Info. Пустой Info — не ошибка.
func (r GenerationResponse) Infotexts() ([]string, error) {
	if strings.TrimSpace(r.Info) == "" {
		return nil, nil
	}

	var info generationInfo
	if err := json.Unmarshal([]byte(r.Info), &info); err != nil {
		return nil, fmt.Errorf("decode info: %w", err)
	}

	return info.Infotexts, nil
}

type APIError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sdapi %s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
	log        *slog.Logger
}

// New создаёт клиент. Пустой username отключает basic-авторизацию.
func New(log *slog.Logger, baseURL, username, password string, timeout time.Duration) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		log: log.With(slog.String("component", "sdapi")),
	}
}

func (c *Client) Txt2Img(ctx context.Context, req Txt2ImgRequest) (*GenerationResponse, error) {
	const op = "sdapi.Client.Txt2Img"

	var resp GenerationResponse
	if err := c.do(ctx, http.MethodPost, txt2imgPath, req, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &resp, nil
}

func (c *Client) Img2Img(ctx context.Context, req Img2ImgRequest) (*GenerationResponse, error) {
	const op = "sdapi.Client.Img2Img"

	var resp GenerationResponse
	if err := c.do(ctx, http.MethodPost, img2imgPath, req, &resp); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &resp, nil
}

func (c *Client) Options(ctx context.Context) (map[string]any, error) {
	const op = "sdapi.Client.Options"

	opts := make(map[string]any)
	if err := c.do(ctx, http.MethodGet, optionsPath, nil, &opts); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return opts, nil
}

func (c *Client) SetOptions(ctx context.Context, opts map[string]any) error {
	const op = "sdapi.Client.SetOptions"

	if err := c.do(ctx, http.MethodPost, optionsPath, opts, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader = http.NoBody
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.BackendRequests.WithLabelValues(path, "error").Inc()
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	metrics.BackendRequests.WithLabelValues(path, strconv.Itoa(resp.StatusCode)).Inc()
	c.log.Debug("backend request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("took", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			Endpoint:   path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(msg)),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response %s: %w", path, err)
	}

	return nil
}
