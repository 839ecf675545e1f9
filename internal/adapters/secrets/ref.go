// Package secrets holds the secret store backends and the reference format they share.
package secrets

import (
	"errors"
	"fmt"
	"strings"
)

// EntryPath turns a reference such as "meeting-assistant://openai/api_key" into the slash path
// "meeting-assistant/openai/api_key" that file and pass backends store it under.
func EntryPath(ref string) string {
	ref = strings.TrimSpace(ref)
	if scheme, rest, ok := strings.Cut(ref, "://"); ok {
		return strings.Trim(scheme, "/") + "/" + strings.TrimLeft(rest, "/")
	}

	return ref
}

var ErrInvalidRef = errors.New("invalid secret ref")

// ValidateRef accepts "scheme://path" refs whose path stays inside the scheme's namespace.
func ValidateRef(ref string) error {
	scheme, rest, ok := strings.Cut(strings.TrimSpace(ref), "://")
	if !ok || scheme == "" || strings.Trim(rest, "/") == "" {
		return fmt.Errorf("%w %q: want scheme://path", ErrInvalidRef, ref)
	}
	for _, part := range strings.Split(rest, "/") {
		if part == "." || part == ".." {
			return fmt.Errorf("%w %q: path escapes its namespace", ErrInvalidRef, ref)
		}
	}

	return nil
}
