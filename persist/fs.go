package persist

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/jmgilman/go/errors"
)

const tempPrefix = ".tmp-"

// FSStore keeps one file per key under dir on a billy filesystem.
// File names are the base64url encoding of the key, so any key is a valid
// name and Keys can recover the original text.
type FSStore struct {
	fs  billy.Filesystem
	dir string

	mu  sync.RWMutex
	seq atomic.Uint64
}

// NewFSStore creates dir if needed and returns a store rooted there.
func NewFSStore(bfs billy.Filesystem, dir string) (*FSStore, error) {
	if bfs == nil {
		return nil, errors.New(errors.CodeInvalidConfig, "persist: filesystem cannot be nil")
	}
	if dir == "" {
		dir = "."
	}
	if err := bfs.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, errors.CodeUnavailable, "persist: create directory %q", dir)
	}
	return &FSStore{fs: bfs, dir: dir}, nil
}

// Put writes the value to a temp file and renames it over the target, so a
// reader never sees a partial record.
func (s *FSStore) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := s.path(key)
	tmp := path.Join(s.dir, tempPrefix+strconv.FormatUint(s.seq.Add(1), 10))

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := util.WriteFile(s.fs, tmp, value, 0o644); err != nil {
		_ = s.fs.Remove(tmp)
		return errors.Wrap(err, errors.CodeUnavailable, "persist: write temp file")
	}
	if err := s.fs.Rename(tmp, name); err != nil {
		_ = s.fs.Remove(tmp)
		return errors.Wrap(err, errors.CodeUnavailable, "persist: rename temp file")
	}
	return nil
}

func (s *FSStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, err := util.ReadFile(s.fs, s.path(key))
	if err != nil {
		if stderrors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, errors.CodeUnavailable, "persist: read file")
	}
	return b, nil
}

func (s *FSStore) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.fs.Remove(s.path(key)); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, errors.CodeUnavailable, "persist: remove file")
	}
	return nil
}

func (s *FSStore) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	infos, err := s.fs.ReadDir(s.dir)
	s.mu.RUnlock()
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeUnavailable, "persist: list directory")
	}

	var out []string
	for _, fi := range infos {
		if fi.IsDir() || strings.HasPrefix(fi.Name(), tempPrefix) {
			continue
		}
		raw, err := base64.RawURLEncoding.DecodeString(fi.Name())
		if err != nil {
			continue // not ours
		}
		if k := string(raw); strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out, nil
}

func (s *FSStore) path(key string) string {
	return path.Join(s.dir, base64.RawURLEncoding.EncodeToString([]byte(key)))
}

var _ Store = (*FSStore)(nil)
