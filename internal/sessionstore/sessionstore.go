package sessionstore

import (
	"context"
	"errors"

	"github.com/vbonduro/mensabot/internal/instagram"
)

var ErrNotFound = errors.New("session not found")

// SessionStore persists photo-service sessions keyed by username.
type SessionStore interface {
	Load(ctx context.Context, username string) (*instagram.Session, error)
	Save(ctx context.Context, sess *instagram.Session) error
	Delete(ctx context.Context, username string) error
}
