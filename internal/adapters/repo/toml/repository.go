package toml

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/spf13/viper"

	"github.com/bnema/meeting-assistant-cli/internal/domain"
	"github.com/bnema/meeting-assistant-cli/internal/ports"
)

const (
	sessionsDirKey    = "sessions.dir"
	sessionFileMode   = 0o600
	sessionDirMode    = 0o700
	assistantDir      = ".meeting-assistant"
	sessionsSubdir    = "sessions"
	sessionFileSuffix = ".toml"
	tempFilePattern   = ".session-*.toml.tmp"
)

// SessionRepository stores one TOML file per session under a directory. Writers of the same file
// are serialized through a process-wide lock per path, so separate repository instances pointed at
// the same directory stay consistent.
type SessionRepository struct {
	dir string
}

var (
	lockRegistryMu sync.Mutex
	pathLockMap    = map[string]*sync.RWMutex{}
)

var _ ports.SessionStore = (*SessionRepository)(nil)

func NewSessionRepository(cfg *viper.Viper) (*SessionRepository, error) {
	if cfg == nil {
		cfg = viper.New()
	}

	dir := cfg.GetString(sessionsDirKey)
	if dir == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		dir = filepath.Join(homeDir, assistantDir, sessionsSubdir)
	}

	dir, err := normalizeDir(dir)
	if err != nil {
		return nil, err
	}

	return &SessionRepository{dir: dir}, nil
}

func (r *SessionRepository) Dir() string {
	return r.dir
}

func (r *SessionRepository) Get(ctx context.Context, id domain.SessionID) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	path, err := r.pathFor(id)
	if err != nil {
		return domain.Session{}, err
	}

	mu := lockForPath(path)
	mu.RLock()
	defer mu.RUnlock()

	session, found, err := readSession(path)
	if err != nil {
		return domain.Session{}, err
	}
	if !found {
		return domain.Session{}, domain.ErrSessionNotFound
	}

	return session, nil
}

func (r *SessionRepository) List(ctx context.Context) ([]domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []domain.Session{}, nil
		}
		return nil, fmt.Errorf("read sessions directory: %w", err)
	}

	sessions := make([]domain.Session, 0, len(entries))
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, sessionFileSuffix) || strings.HasPrefix(name, ".") {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := filepath.Join(r.dir, name)
		mu := lockForPath(path)
		mu.RLock()
		session, found, err := readSession(path)
		mu.RUnlock()
		if err != nil {
			return nil, err
		}
		if found {
			sessions = append(sessions, session)
		}
	}

	slices.SortFunc(sessions, func(a, b domain.Session) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})

	return sessions, nil
}

func (r *SessionRepository) Update(ctx context.Context, id domain.SessionID, fn ports.UpdateFunc) (domain.Session, error) {
	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	path, err := r.pathFor(id)
	if err != nil {
		return domain.Session{}, err
	}

	mu := lockForPath(path)
	mu.Lock()
	defer mu.Unlock()

	current, found, err := readSession(path)
	if err != nil {
		return domain.Session{}, err
	}

	next, err := fn(current, found)
	if err != nil {
		return domain.Session{}, err
	}
	if next.ID != id {
		return domain.Session{}, fmt.Errorf("update session %s: returned session has id %q", id, next.ID)
	}
	if err := next.Validate(); err != nil {
		return domain.Session{}, fmt.Errorf("update session %s: %w", id, err)
	}

	if err := ctx.Err(); err != nil {
		return domain.Session{}, err
	}

	if err := writeSession(path, next); err != nil {
		return domain.Session{}, err
	}

	return next.Clone(), nil
}

func (r *SessionRepository) Purge(ctx context.Context, id domain.SessionID) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	path, err := r.pathFor(id)
	if err != nil {
		return err
	}

	mu := lockForPath(path)
	mu.Lock()
	defer mu.Unlock()

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.ErrSessionNotFound
		}
		return fmt.Errorf("remove session file: %w", err)
	}

	return nil
}

func (r *SessionRepository) pathFor(id domain.SessionID) (string, error) {
	if !id.Valid() {
		return "", fmt.Errorf("invalid session id %q", id)
	}

	return filepath.Join(r.dir, string(id)+sessionFileSuffix), nil
}

func readSession(path string) (domain.Session, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.Session{}, false, nil
		}
		return domain.Session{}, false, fmt.Errorf("read session file: %w", err)
	}

	session, err := DecodeSession(data)
	if err != nil {
		return domain.Session{}, false, err
	}

	return session, true, nil
}

func normalizeDir(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve sessions directory: %w", err)
	}

	return filepath.Clean(absPath), nil
}

func lockForPath(path string) *sync.RWMutex {
	lockRegistryMu.Lock()
	defer lockRegistryMu.Unlock()

	if mu, ok := pathLockMap[path]; ok {
		return mu
	}

	mu := &sync.RWMutex{}
	pathLockMap[path] = mu
	return mu
}

func writeSession(path string, session domain.Session) error {
	if err := os.MkdirAll(filepath.Dir(path), sessionDirMode); err != nil {
		return fmt.Errorf("create sessions directory: %w", err)
	}

	data, err := EncodeSession(session)
	if err != nil {
		return err
	}

	tempFile, err := os.CreateTemp(filepath.Dir(path), tempFilePattern)
	if err != nil {
		return fmt.Errorf("create temp session file: %w", err)
	}

	tempName := tempFile.Name()
	cleanup := true
	defer func() {
		if cleanup {
			_ = os.Remove(tempName)
		}
	}()

	if _, err := tempFile.Write(data); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("write temp session file: %w", err)
	}

	if err := tempFile.Chmod(sessionFileMode); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("chmod temp session file: %w", err)
	}

	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp session file: %w", err)
	}

	if err := os.Rename(tempName, path); err != nil {
		return fmt.Errorf("replace session file: %w", err)
	}

	cleanup = false

	if err := os.Chmod(path, sessionFileMode); err != nil {
		return fmt.Errorf("chmod session file: %w", err)
	}

	return nil
}
