//go:build gosseract

package tesseract

import (
	"context"
	"fmt"

	"github.com/otiai10/gosseract/v2"
)

// InProcess links libtesseract through cgo instead of spawning the CLI.
type InProcess struct {
	language  string
	whitelist string
}

// NewInProcess is only functional in builds with the gosseract tag.
func NewInProcess(language, whitelist string) (*InProcess, error) {
	if language == "" {
		language = "ita"
	}
	if whitelist == "" {
		whitelist = DefaultWhitelist
	}
	return &InProcess{language: language, whitelist: whitelist}, nil
}

func (p *InProcess) Name() string { return "gosseract" }

func (p *InProcess) Available(context.Context) bool {
	return gosseract.Version() != ""
}

func (p *InProcess) Recognize(_ context.Context, png []byte) (string, error) {
	client := gosseract.NewClient()
	defer func() { _ = client.Close() }()

	if err := client.SetLanguage(p.language); err != nil {
		return "", fmt.Errorf("set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		return "", fmt.Errorf("set page seg mode: %w", err)
	}
	if err := client.SetWhitelist(p.whitelist); err != nil {
		return "", fmt.Errorf("set whitelist: %w", err)
	}
	if err := client.SetVariable("preserve_interword_spaces", "1"); err != nil {
		return "", fmt.Errorf("set variable: %w", err)
	}
	if err := client.SetImageFromBytes(png); err != nil {
		return "", fmt.Errorf("set image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("gosseract: %w", err)
	}
	return text, nil
}
