// Package claude transcribes menu images with the Anthropic Messages API. It
// is a cloud alternative to OCR.space for hosts without tesseract.
package claude

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"
)

// TranscribePrompt asks for a verbatim transcription so the menu parser sees
// the same line structure tesseract would produce.
const TranscribePrompt = `This image is an Italian university cafeteria menu.
Transcribe every line of text exactly as printed, top to bottom, one line per
output line. Do not translate, summarise or add commentary.`

type Transcriber struct {
	apiKey string
	model  string
	client *anthropic.Client
}

func New(apiKey, model string) *Transcriber {
	return newTranscriber(apiKey, model)
}

func newTranscriber(apiKey, model string, opts ...anthropic.ClientOption) *Transcriber {
	return &Transcriber{
		apiKey: apiKey,
		model:  model,
		client: anthropic.NewClient(apiKey, opts...),
	}
}

func (t *Transcriber) Name() string { return "claude" }

func (t *Transcriber) Available(context.Context) bool { return t.apiKey != "" }

func (t *Transcriber) Recognize(ctx context.Context, png []byte) (string, error) {
	resp, err := t.client.CreateMessages(ctx, anthropic.MessagesRequest{
		Model: anthropic.Model(t.model),
		// A dense menu board is a few hundred tokens.
		MaxTokens: 1024,
		Messages: []anthropic.Message{{
			Role: anthropic.RoleUser,
			Content: []anthropic.MessageContent{
				anthropic.NewImageMessageContent(anthropic.NewMessageContentSource(
					anthropic.MessagesContentSourceTypeBase64,
					"image/png",
					base64.StdEncoding.EncodeToString(png),
				)),
				anthropic.NewTextMessageContent(TranscribePrompt),
			},
		}},
	})
	if err != nil {
		return "", fmt.Errorf("failed to call claude: %w", err)
	}

	var b strings.Builder
	for _, c := range resp.Content {
		if c.Type == anthropic.MessagesContentTypeText {
			b.WriteString(c.GetText())
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("claude returned no text")
	}
	return b.String(), nil
}
