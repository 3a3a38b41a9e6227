// SPDX-FileCopyrightText: Copyright 2026 vMCP Labs
// SPDX-License-Identifier: Apache-2.0

package draft

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/vmcp-labs/vmcp-console/pkg/vmcp"
)

const (
	// draftsDir is the directory name for draft records under the app's
	// data directory.
	draftsDir = "drafts"

	// draftExtension is the file extension for draft records.
	draftExtension = ".yaml"

	// lockTimeout is the maximum time to wait for a file lock.
	lockTimeout = 1 * time.Second

	// lockRetryInterval is the polling interval while waiting for a lock.
	lockRetryInterval = 100 * time.Millisecond
)

// safeNamePattern matches identities that can be used as file names directly.
var safeNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// localStore implements Store using one YAML file per identity on the local
// filesystem. Writes are serialized across processes with a sidecar lock
// file, so several console processes can edit different vMCPs concurrently.
type localStore struct {
	baseDir string
}

// NewLocalStore creates a draft store rooted at the user data directory for
// the given application name (e.g. "vmcp-console/drafts" under XDG data).
func NewLocalStore(appName string) (Store, error) {
	path, err := xdg.DataFile(filepath.Join(appName, draftsDir, ".keep"))
	if err != nil {
		return nil, fmt.Errorf("%w: unable to resolve draft directory: %w", vmcp.ErrStorageFailed, err)
	}
	return &localStore{baseDir: filepath.Dir(path)}, nil
}

// NewLocalStoreAt creates a draft store rooted at an explicit directory.
// Used by tests and by callers that manage their own storage location.
func NewLocalStoreAt(dir string) (Store, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("%w: unable to create draft directory: %w", vmcp.ErrStorageFailed, err)
	}
	return &localStore{baseDir: dir}, nil
}

func (s *localStore) Get(_ context.Context, identity string) (*Record, error) {
	if identity == "" {
		return nil, fmt.Errorf("%w: identity is required", vmcp.ErrStorageFailed)
	}

	path := s.recordPath(identity)
	data, err := os.ReadFile(path) // #nosec G304 -- path is derived from a sanitized identity
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: no draft for %s", vmcp.ErrNotFound, identity)
		}
		return nil, fmt.Errorf("%w: reading draft for %s: %w", vmcp.ErrStorageFailed, identity, err)
	}

	var record Record
	if err := yaml.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("%w: parsing draft for %s: %w", vmcp.ErrStorageFailed, identity, err)
	}

	// A record written under another identity's key must never surface here.
	if record.Identity != identity {
		return nil, fmt.Errorf("%w: draft record for %s carries identity %s",
			vmcp.ErrStorageFailed, identity, record.Identity)
	}

	return &record, nil
}

func (s *localStore) Put(ctx context.Context, identity string, record *Record) error {
	if identity == "" {
		return fmt.Errorf("%w: identity is required", vmcp.ErrStorageFailed)
	}
	if record == nil || record.Snapshot == nil {
		return fmt.Errorf("%w: record is required", vmcp.ErrStorageFailed)
	}
	if record.Identity != identity {
		return fmt.Errorf("%w: record identity %s does not match key %s",
			vmcp.ErrStorageFailed, record.Identity, identity)
	}

	stored := record.Clone()
	stored.SavedAt = time.Now().UTC()

	data, err := yaml.Marshal(stored)
	if err != nil {
		return fmt.Errorf("%w: encoding draft for %s: %w", vmcp.ErrStorageFailed, identity, err)
	}

	return s.withLock(ctx, identity, func(path string) error {
		if err := os.WriteFile(path, data, 0600); err != nil {
			return fmt.Errorf("%w: writing draft for %s: %w", vmcp.ErrStorageFailed, identity, err)
		}
		return nil
	})
}

func (s *localStore) Clear(ctx context.Context, identity string) error {
	if identity == "" {
		return fmt.Errorf("%w: identity is required", vmcp.ErrStorageFailed)
	}

	return s.withLock(ctx, identity, func(path string) error {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%w: removing draft for %s: %w", vmcp.ErrStorageFailed, identity, err)
		}
		return nil
	})
}

func (s *localStore) List(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: listing drafts: %w", vmcp.ErrStorageFailed, err)
	}

	var identities []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), draftExtension) {
			continue
		}
		// The file name is a derived key; the authoritative identity lives
		// inside the record.
		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name())) // #nosec G304 -- listing our own directory
		if err != nil {
			continue
		}
		var record Record
		if err := yaml.Unmarshal(data, &record); err != nil || record.Identity == "" {
			continue
		}
		identities = append(identities, record.Identity)
	}
	return identities, nil
}

// withLock runs fn against the record path while holding the sidecar file
// lock for the identity.
func (s *localStore) withLock(ctx context.Context, identity string, fn func(path string) error) error {
	path := s.recordPath(identity)

	fileLock := flock.New(path + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(lockCtx, lockRetryInterval)
	if err != nil {
		return fmt.Errorf("%w: acquiring lock for %s: %w", vmcp.ErrStorageFailed, identity, err)
	}
	if !locked {
		return fmt.Errorf("%w: lock timeout for %s after %v", vmcp.ErrStorageFailed, identity, lockTimeout)
	}
	defer fileLock.Unlock()

	return fn(path)
}

// recordPath maps an identity to its record file. Identities that are not
// filesystem-safe are hashed; safe ones keep their name for debuggability.
func (s *localStore) recordPath(identity string) string {
	name := identity
	if !safeNamePattern.MatchString(identity) {
		sum := sha256.Sum256([]byte(identity))
		name = hex.EncodeToString(sum[:8])
	}
	return filepath.Join(s.baseDir, name+draftExtension)
}
