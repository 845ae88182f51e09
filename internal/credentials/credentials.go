// Package credentials looks up secrets in the OS keyring first and the
// environment second.
package credentials

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/zalando/go-keyring"
)

const (
	DefaultService = "PolitoMensa"

	keyTelegramToken     = "telegram_token"
	keyInstagramUsername = "instagram_username"

	envInstagramUsername = "INSTAGRAM_USERNAME"
	envInstagramPassword = "INSTAGRAM_PASSWORD"
	envTelegramToken     = "TELEGRAM_TOKEN"
)

var ErrNotFound = errors.New("credentials not found")

// LoadDotEnv loads .env files into the process environment. Missing files are
// skipped and variables already set are never overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

type Provider struct {
	service string
	getenv  func(string) string
	logger  *slog.Logger
}

func NewProvider(service string, logger *slog.Logger) *Provider {
	if service == "" {
		service = DefaultService
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{service: service, getenv: os.Getenv, logger: logger}
}

// InstagramCredentials returns the account username and password. The
// keyring stores the username under a fixed key and the password under the
// username itself.
func (p *Provider) InstagramCredentials() (string, string, error) {
	user, err := p.fromKeyring(keyInstagramUsername)
	if err == nil && user != "" {
		pass, perr := p.fromKeyring(user)
		if perr == nil && pass != "" {
			return user, pass, nil
		}
	}

	user = strings.TrimSpace(p.getenv(envInstagramUsername))
	pass := p.getenv(envInstagramPassword)
	if user == "" || pass == "" {
		return "", "", fmt.Errorf("instagram: %w", ErrNotFound)
	}
	return user, pass, nil
}

func (p *Provider) TelegramToken() (string, error) {
	if tok, err := p.fromKeyring(keyTelegramToken); err == nil && tok != "" {
		return tok, nil
	}
	if tok := strings.TrimSpace(p.getenv(envTelegramToken)); tok != "" {
		return tok, nil
	}
	return "", fmt.Errorf("telegram: %w", ErrNotFound)
}

func (p *Provider) SetInstagramCredentials(user, pass string) error {
	if user == "" || pass == "" {
		return fmt.Errorf("username and password are required")
	}
	if err := keyring.Set(p.service, keyInstagramUsername, user); err != nil {
		return fmt.Errorf("failed to store instagram username: %w", err)
	}
	if err := keyring.Set(p.service, user, pass); err != nil {
		return fmt.Errorf("failed to store instagram password: %w", err)
	}
	return nil
}

func (p *Provider) SetTelegramToken(token string) error {
	if token == "" {
		return fmt.Errorf("token is required")
	}
	if err := keyring.Set(p.service, keyTelegramToken, token); err != nil {
		return fmt.Errorf("failed to store telegram token: %w", err)
	}
	return nil
}

func (p *Provider) fromKeyring(key string) (string, error) {
	v, err := keyring.Get(p.service, key)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			// Headless hosts often have no secret service at all.
			p.logger.Debug("keyring lookup failed", "key", key, "error", err)
		}
		return "", err
	}
	return v, nil
}
