//go:build !gosseract

package tesseract

import (
	"context"
	"errors"
)

// InProcess is unavailable without the gosseract build tag.
type InProcess struct{}

// NewInProcess reports that this binary was built without cgo tesseract.
func NewInProcess(string, string) (*InProcess, error) {
	return nil, errors.New("built without the gosseract tag")
}

func (p *InProcess) Name() string { return "gosseract" }

func (p *InProcess) Available(context.Context) bool { return false }

func (p *InProcess) Recognize(context.Context, []byte) (string, error) {
	return "", errors.New("built without the gosseract tag")
}
