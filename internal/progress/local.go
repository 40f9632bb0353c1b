package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/ashureev/altar-plans/internal/domain"
)

var ownerPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,128}$`)

// Local keeps, per owner, a single JSON blob mapping plan ID to progress
// under StorageKey inside dir.
//
// When dir is unusable, reads return empty defaults and writes are dropped.
type Local struct {
	dir    string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewLocal creates a file-backed Opener rooted at dir. An empty dir yields a
// store that is permanently unavailable.
func NewLocal(dir string, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	return &Local{dir: dir, logger: logger}
}

// ForUser returns the Store for userID.
func (l *Local) ForUser(userID string) Store {
	return &localStore{parent: l, owner: userID}
}

// Available reports whether the backing directory can be used.
func (l *Local) Available() bool {
	if l.dir == "" {
		return false
	}
	return os.MkdirAll(l.dir, 0o755) == nil
}

func (l *Local) blobPath(owner string) (string, bool) {
	if l.dir == "" || !ownerPattern.MatchString(owner) {
		return "", false
	}
	return filepath.Join(l.dir, owner, StorageKey+".json"), true
}

// readBlob returns the owner's map. Any failure yields an empty map.
// writable is false when an existing blob could not be read, so saving the
// empty map would erase it.
func (l *Local) readBlob(owner string) (blob map[string]domain.PlanProgress, writable bool) {
	blob = make(map[string]domain.PlanProgress)
	path, ok := l.blobPath(owner)
	if !ok {
		return blob, true
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return blob, true
		}
		l.logger.Warn("Local progress store unreadable", "owner", owner, "error", err)
		return blob, false
	}
	if err := json.Unmarshal(data, &blob); err != nil {
		l.logger.Warn("Local progress blob is corrupt, starting empty", "owner", owner, "error", err)
		return make(map[string]domain.PlanProgress), true
	}
	return blob, true
}

func (l *Local) writeBlob(owner string, blob map[string]domain.PlanProgress) error {
	path, ok := l.blobPath(owner)
	if !ok {
		return fmt.Errorf("local store unavailable for owner %q", owner)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create owner directory: %w", err)
	}

	data, err := json.Marshal(blob)
	if err != nil {
		return fmt.Errorf("marshal progress blob: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write progress blob: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace progress blob: %w", err)
	}
	return nil
}

type localStore struct {
	parent *Local
	owner  string
}

func (s *localStore) Load(_ context.Context, planID string) (domain.PlanProgress, bool, error) {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()

	blob, _ := s.parent.readBlob(s.owner)
	p, ok := blob[planID]
	if !ok {
		return domain.PlanProgress{}, false, nil
	}
	p.PlanID = planID
	p.Normalize()
	return p, true, nil
}

func (s *localStore) Save(_ context.Context, p domain.PlanProgress) error {
	s.parent.mu.Lock()
	defer s.parent.mu.Unlock()

	blob, writable := s.parent.readBlob(s.owner)
	if !writable {
		s.parent.logger.Warn("Local progress blob unreadable, dropping write",
			"owner", s.owner, "plan_id", p.PlanID)
		return nil
	}
	blob[p.PlanID] = p.Clone()
	if err := s.parent.writeBlob(s.owner, blob); err != nil {
		s.parent.logger.Warn("Local progress store unavailable, dropping write",
			"owner", s.owner, "plan_id", p.PlanID, "error", err)
	}
	return nil
}
