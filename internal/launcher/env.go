package launcher

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/xyproto/env/v2"
)

// Environment resolves launcher variables.
type Environment interface {
	Lookup(key string) (string, bool)
}

// MapEnvironment is a fixed set of variables.
type MapEnvironment map[string]string

func (m MapEnvironment) Lookup(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// processEnvironment reads the process environment.
type processEnvironment struct{}

func (processEnvironment) Lookup(key string) (string, bool) {
	if !env.Has(key) {
		return "", false
	}
	return env.Str(key), true
}

// layered consults overrides before falling back to base.
type layered struct {
	overrides map[string]string
	base      Environment
}

func (l layered) Lookup(key string) (string, bool) {
	if v, ok := l.overrides[key]; ok {
		return v, true
	}
	return l.base.Lookup(key)
}

// DefaultConfigFiles lists the conf files Ant's unix launcher reads, in
// increasing precedence.
func DefaultConfigFiles(home string) []string {
	files := []string{"/etc/ant.conf"}
	if home != "" {
		files = append(files, filepath.Join(home, ".antrc"))
	}
	return files
}

// ProcessEnvironment returns the process environment overlaid with the
// given conf files. Missing files are ignored; later files win.
func ProcessEnvironment(confFiles []string) (Environment, error) {
	return loadLayered(processEnvironment{}, confFiles)
}

func loadLayered(base Environment, confFiles []string) (Environment, error) {
	overrides := make(map[string]string)
	for _, file := range confFiles {
		if _, err := os.Stat(file); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		values, err := godotenv.Read(file)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", file, err)
		}
		for k, v := range values {
			overrides[k] = v
		}
	}
	if len(overrides) == 0 {
		return base, nil
	}
	return layered{overrides: overrides, base: base}, nil
}
