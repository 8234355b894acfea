package devenv

import (
	"fmt"
	"moodlefetch/internal/components/configutil"
	"os"
	"path/filepath"
	"regexp"
	"strings"
)

const MODULE_NAME = "moodlefetch"

var modName = regexp.MustCompile(`(?m)^module *([\w\-_]+)$`)

func isWorkspaceRoot(currentdir string) bool {
	mod, err := os.ReadFile(filepath.Join(currentdir, "go.mod"))
	if err != nil {
		return false
	}
	matches := modName.FindSubmatch(mod)
	return len(matches) >= 2 && string(matches[1]) == MODULE_NAME
}

// GetWorkspaceRoot walks up from the working directory until it finds this
// module's go.mod.
func GetWorkspaceRoot() (string, error) {
	currentdir, err := filepath.Abs(".")
	if err != nil {
		return "", err
	}

	for {
		if isWorkspaceRoot(currentdir) {
			return currentdir, nil
		}
		parent := filepath.Dir(currentdir)
		if parent == currentdir {
			return "", os.ErrNotExist
		}
		currentdir = parent
	}
}

func GetStateFilePath(path string) (string, error) {
	root, err := GetWorkspaceRoot()
	if err != nil {
		return "", err
	}
	return filepath.Join(root, "dev", ".state", path), nil
}

// GetStateConfig reads `<root>/dev/.state/<path>` the same way any other
// config is read, so a `.local` override next to it is merged in.
func GetStateConfig[T any](path string) (T, error) {
	configPath, err := GetStateFilePath(path)
	if err != nil {
		var out T
		return out, err
	}
	out, err := configutil.ReadConfig[T](configPath)
	if err != nil {
		return out, fmt.Errorf("read state config %s: %w", configPath, err)
	}
	return out, nil
}

// ResolvePath expands a `<dev_state>` prefix to the dev state directory,
// creating the directory if needed. Other paths are returned as is.
func ResolvePath(path string) (string, error) {
	if !strings.HasPrefix(path, "<dev_state>") {
		return path, nil
	}

	root, err := GetWorkspaceRoot()
	if err != nil {
		return "", err
	}

	err = os.MkdirAll(filepath.Join(root, "dev", ".state"), 0777)
	if err != nil {
		return "", err
	}

	subpath := filepath.Join(strings.Split(filepath.ToSlash(path), "/")[1:]...)
	return filepath.Join(root, "dev", ".state", subpath), nil
}
