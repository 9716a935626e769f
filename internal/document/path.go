package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const homeMarker = "~"

// NormalizePath expands a leading ~ (alone or followed by a separator) to
// $HOME. Every other path is returned unchanged.
func NormalizePath(raw string) (string, error) {
	return normalizePath(raw, os.LookupEnv)
}

func normalizePath(raw string, lookupEnv func(string) (string, bool)) (string, error) {
	if raw != homeMarker && !strings.HasPrefix(raw, homeMarker+"/") {
		return raw, nil
	}
	home, ok := lookupEnv("HOME")
	if !ok || home == "" {
		return "", fmt.Errorf("%w: HOME is not set, cannot expand %q", ErrConfiguration, raw)
	}
	rest := strings.TrimPrefix(strings.TrimPrefix(raw, homeMarker), "/")
	return filepath.Join(home, rest), nil
}
