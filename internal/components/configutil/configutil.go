package configutil

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"dario.cat/mergo"
	"github.com/titanous/json5"
)

// Validator is implemented by configs that can check themselves once every
// layer has been merged.
type Validator interface {
	Validate() error
}

func splitExt(f string) (string, string) {
	for i := len(f) - 1; i >= 0; i-- {
		if f[i] == '.' {
			return f[0:i], f[i+1:]
		}
	}
	return f, ""
}

// Layers lists the files a config at `name` is read from, later files override
// earlier ones.
//  1. <name>.<ext>
//  2. <name>.local.<ext>
func Layers(name string) []string {
	dirname := filepath.Dir(name)
	prefixname, ext := splitExt(filepath.Base(name))
	local := fmt.Sprintf("%s.local", prefixname)
	if ext != "" {
		local = fmt.Sprintf("%s.%s", local, ext)
	}
	return []string{name, filepath.Join(dirname, local)}
}

// readLayer parses `path` into `out`, found is false when the file does not exist.
func readLayer[T any](path string, out *T) (found bool, err error) {
	contents, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if len(contents) == 0 {
		return true, nil
	}
	err = json5.Unmarshal(contents, out)
	if err != nil {
		return true, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

// ReadConfig merges every layer of `name` (see Layers) into a T, `name` should
// come with a file extension. It returns os.ErrNotExist when no layer exists and
// runs Validate when T implements Validator.
func ReadConfig[T any](name string) (T, error) {
	var out T
	found := false

	for _, path := range Layers(name) {
		var layer T
		ok, err := readLayer(path, &layer)
		if err != nil {
			return out, err
		}
		if !ok {
			continue
		}
		err = mergo.Merge(&out, layer, mergo.WithOverride)
		if err != nil {
			return out, fmt.Errorf("merge %s: %w", path, err)
		}
		if found {
			slog.Debug("merged config with local overrides", "local", path)
		}
		found = true
	}

	if !found {
		return out, os.ErrNotExist
	}

	if validator, ok := any(&out).(Validator); ok {
		err := validator.Validate()
		if err != nil {
			return out, fmt.Errorf("invalid config %s: %w", name, err)
		}
	}
	return out, nil
}

// Find walks up from `dir` to the filesystem root and returns the first
// `<dir>/<name>` that has any layer on disk.
func Find(dir, name string) (string, error) {
	current, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		candidate := filepath.Join(current, name)
		for _, layer := range Layers(candidate) {
			if _, err := os.Stat(layer); err == nil {
				return candidate, nil
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			return "", os.ErrNotExist
		}
		current = parent
	}
}

// ReadRecursively is ReadConfig on the first `name` found walking up from the
// working directory, it also returns the path that was read.
func ReadRecursively[T any](name string) (T, string, error) {
	var out T
	wd, err := os.Getwd()
	if err != nil {
		return out, "", err
	}
	path, err := Find(wd, name)
	if err != nil {
		return out, "", err
	}
	out, err = ReadConfig[T](path)
	return out, path, err
}
