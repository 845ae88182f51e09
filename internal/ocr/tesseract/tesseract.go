// Package tesseract runs the tesseract command-line OCR engine.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultWhitelist restricts recognition to what appears on a printed menu.
const DefaultWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz" +
	"ÀÈÉÌÒÙàèéìòù0123456789 .,:;-'()/&!?%€+"

// runFunc executes name with args, feeding stdin, and returns stdout.
type runFunc func(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error)

type Engine struct {
	binary    string
	language  string
	whitelist string

	lookPath func(string) (string, error)
	run      runFunc
}

// New configures an engine. Empty arguments fall back to "tesseract", "ita"
// and DefaultWhitelist.
func New(binary, language, whitelist string) *Engine {
	if binary == "" {
		binary = "tesseract"
	}
	if language == "" {
		language = "ita"
	}
	if whitelist == "" {
		whitelist = DefaultWhitelist
	}
	return &Engine{
		binary:    binary,
		language:  language,
		whitelist: whitelist,
		lookPath:  exec.LookPath,
		run:       runCommand,
	}
}

func (e *Engine) Name() string { return "tesseract" }

// Available checks the binary is on PATH and answers --version.
func (e *Engine) Available(ctx context.Context) bool {
	path, err := e.lookPath(e.binary)
	if err != nil {
		return false
	}
	_, err = e.run(ctx, path, []string{"--version"}, nil)
	return err == nil
}

func (e *Engine) Recognize(ctx context.Context, png []byte) (string, error) {
	out, err := e.run(ctx, e.binary, e.args(), png)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w", err)
	}
	return string(out), nil
}

// args reads the image from stdin and treats it as one uniform block of
// text (psm 6) with the LSTM engine (oem 3).
func (e *Engine) args() []string {
	return []string{
		"stdin", "stdout",
		"-l", e.language,
		"--oem", "3",
		"--psm", "6",
		"-c", "tessedit_char_whitelist=" + e.whitelist,
		"-c", "preserve_interword_spaces=1",
	}
}

func runCommand(ctx context.Context, name string, args []string, stdin []byte) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}
