package local

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/vbonduro/mensabot/internal/instagram"
	"github.com/vbonduro/mensabot/internal/sessionstore"
)

// LocalSessionStore keeps one JSON file per account under basePath.
type LocalSessionStore struct {
	basePath string
}

func NewLocalSessionStore(basePath string) (*LocalSessionStore, error) {
	if err := os.MkdirAll(basePath, 0700); err != nil {
		return nil, fmt.Errorf("failed to create session directory: %w", err)
	}
	return &LocalSessionStore{basePath: basePath}, nil
}

func (s *LocalSessionStore) Load(ctx context.Context, username string) (*instagram.Session, error) {
	filePath, err := s.safeJoin(fileName(username))
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, sessionstore.ErrNotFound
		}
		return nil, fmt.Errorf("failed to read session: %w", err)
	}

	var sess instagram.Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return nil, fmt.Errorf("failed to decode session %s: %w", filePath, err)
	}
	return &sess, nil
}

// Save writes the session to a temp file and renames it into place, so a
// crash never leaves a truncated session behind.
func (s *LocalSessionStore) Save(ctx context.Context, sess *instagram.Session) error {
	if sess == nil || sess.Username == "" {
		return fmt.Errorf("session has no username")
	}
	filePath, err := s.safeJoin(fileName(sess.Username))
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}

	f, err := os.CreateTemp(s.basePath, ".session-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmpPath := f.Name()
	if err := f.Chmod(0600); err != nil {
		s.discard(f, tmpPath)
		return fmt.Errorf("failed to chmod file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		s.discard(f, tmpPath)
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		if rerr := os.Remove(tmpPath); rerr != nil {
			slog.Error("failed to remove file after close error", "error", rerr)
		}
		return fmt.Errorf("failed to close file: %w", err)
	}
	if err := os.Rename(tmpPath, filePath); err != nil {
		if rerr := os.Remove(tmpPath); rerr != nil {
			slog.Error("failed to remove file after rename error", "error", rerr)
		}
		return fmt.Errorf("failed to move session into place: %w", err)
	}
	return nil
}

func (s *LocalSessionStore) Delete(ctx context.Context, username string) error {
	filePath, err := s.safeJoin(fileName(username))
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return sessionstore.ErrNotFound
		}
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

func (s *LocalSessionStore) discard(f *os.File, path string) {
	if cerr := f.Close(); cerr != nil {
		slog.Error("failed to close file after write error", "error", cerr)
	}
	if rerr := os.Remove(path); rerr != nil {
		slog.Error("failed to remove file after write error", "error", rerr)
	}
}

// safeJoin resolves name relative to basePath and rejects directory traversal.
func (s *LocalSessionStore) safeJoin(name string) (string, error) {
	absBase, err := filepath.Abs(s.basePath)
	if err != nil {
		return "", fmt.Errorf("invalid base path: %w", err)
	}

	absPath, err := filepath.Abs(filepath.Join(s.basePath, name))
	if err != nil {
		return "", fmt.Errorf("invalid path: %w", err)
	}

	if !strings.HasPrefix(absPath, absBase+string(filepath.Separator)) {
		return "", fmt.Errorf("path traversal attempt")
	}
	return absPath, nil
}

func fileName(username string) string {
	return strings.ToLower(strings.TrimSpace(username)) + ".json"
}
