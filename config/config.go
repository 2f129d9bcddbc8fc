// Package config reads cache profiles from YAML.
//
//	sweep_interval_ms: 300000
//	caches:
//	  - name: api
//	    ttl_ms: 300000
//	    max_size_mb: 50
//	    strategy: lru
//	    compress: true
//	    persist: false
package config

import (
	"bytes"
	stderrors "errors"
	"io"
	"os"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/jmgilman/go/errors"
	"gopkg.in/yaml.v3"

	"github.com/IvanBrykalov/respcache/cache"
)

// File is the parsed form of a profiles file.
type File struct {
	// SweepIntervalMS applies to every cache; 0 keeps cache.DefaultSweepInterval,
	// a negative value disables sweeping.
	SweepIntervalMS int64     `yaml:"sweep_interval_ms"`
	Caches          []Profile `yaml:"caches"`
}

// Profile describes one cache.
type Profile struct {
	Name      string `yaml:"name"`
	TTLMS     int64  `yaml:"ttl_ms"`
	MaxSizeMB int    `yaml:"max_size_mb"`
	Strategy  string `yaml:"strategy"`
	Compress  bool   `yaml:"compress"`
	Persist   bool   `yaml:"persist"`
}

// Load reads and parses the file at path.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeInvalidConfig, "config: read %s", path)
	}
	return Parse(data)
}

// LoadFS reads and parses path from fs.
func LoadFS(fs billy.Filesystem, path string) (*File, error) {
	data, err := util.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CodeInvalidConfig, "config: read %s", path)
	}
	return Parse(data)
}

// Parse decodes YAML. Unknown fields are rejected.
func Parse(data []byte) (*File, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil && !stderrors.Is(err, io.EOF) {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "config: invalid yaml")
	}
	return &f, nil
}

// Configs converts every profile to a validated cache.Config. Store, Logger
// and Metrics are left for the caller. Errors carry the profile name.
func (f *File) Configs() ([]cache.Config, error) {
	seen := make(map[string]bool, len(f.Caches))
	out := make([]cache.Config, 0, len(f.Caches))
	for i, p := range f.Caches {
		if p.Name == "" {
			return nil, errors.WithContext(
				errors.Newf(errors.CodeInvalidConfig, "config: cache #%d has no name", i), "index", i)
		}
		if seen[p.Name] {
			return nil, invalid(p.Name, "config: duplicate cache name")
		}
		seen[p.Name] = true

		strategy, err := cache.ParseStrategy(p.Strategy)
		if err != nil {
			return nil, errors.WithContext(err, "cache", p.Name)
		}
		cfg := cache.Config{
			Name:          p.Name,
			TTL:           time.Duration(p.TTLMS) * time.Millisecond,
			MaxSizeMB:     p.MaxSizeMB,
			Strategy:      strategy,
			Compress:      p.Compress,
			Persist:       p.Persist,
			SweepInterval: time.Duration(f.SweepIntervalMS) * time.Millisecond,
		}
		if cfg.TTL <= 0 {
			return nil, invalid(p.Name, "config: ttl_ms must be > 0")
		}
		if cfg.MaxSizeMB <= 0 {
			return nil, invalid(p.Name, "config: max_size_mb must be > 0")
		}
		out = append(out, cfg)
	}
	return out, nil
}

// Profile returns the named profile.
func (f *File) Profile(name string) (Profile, bool) {
	for _, p := range f.Caches {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

func invalid(name, msg string) error {
	return errors.WithContext(errors.New(errors.CodeInvalidConfig, msg), "cache", name)
}
