// Package ocrspace calls the OCR.space cloud API. It is used on hosts where
// tesseract cannot be installed.
package ocrspace

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultAPIURL = "https://api.ocr.space/parse/image"

type response struct {
	ParsedResults []struct {
		ParsedText string `json:"ParsedText"`
	} `json:"ParsedResults"`
	IsErroredOnProcessing bool `json:"IsErroredOnProcessing"`
	// ErrorMessage is a string or a list of strings depending on the error.
	ErrorMessage json.RawMessage `json:"ErrorMessage"`
}

type Client struct {
	apiKey   string
	language string
	baseURL  string
	client   *http.Client
}

func New(apiKey, language, baseURL string) *Client {
	if language == "" {
		language = "ita"
	}
	if baseURL == "" {
		baseURL = defaultAPIURL
	}
	return &Client{
		apiKey:   apiKey,
		language: language,
		baseURL:  baseURL,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *Client) Name() string { return "ocrspace" }

// Available is true once an API key is configured.
func (c *Client) Available(context.Context) bool { return c.apiKey != "" }

func (c *Client) Recognize(ctx context.Context, png []byte) (string, error) {
	form := url.Values{}
	form.Set("apikey", c.apiKey)
	form.Set("language", c.language)
	form.Set("isOverlayRequired", "false")
	form.Set("base64Image", "data:image/png;base64,"+base64.StdEncoding.EncodeToString(png))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to call ocr.space: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			slog.Error("failed to close ocr.space response body", "error", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("ocr.space returned status %d: %s", resp.StatusCode, body)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if out.IsErroredOnProcessing {
		return "", fmt.Errorf("ocr.space processing error: %s", errorMessage(out.ErrorMessage))
	}
	if len(out.ParsedResults) == 0 {
		return "", fmt.Errorf("ocr.space returned no results")
	}

	texts := make([]string, 0, len(out.ParsedResults))
	for _, r := range out.ParsedResults {
		texts = append(texts, r.ParsedText)
	}
	return strings.Join(texts, "\n"), nil
}

func errorMessage(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; ")
	}
	if len(raw) == 0 {
		return "unknown error"
	}
	return string(raw)
}
