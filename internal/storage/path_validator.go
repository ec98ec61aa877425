package storage

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"unicode"

	"go-timetable-admin/pkg/apierror"
)

// PathValidator confines flat file names to a single root directory.
type PathValidator struct {
	rootAbs string
}

func NewPathValidator(root string) (*PathValidator, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("root path cannot be empty")
	}

	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}

	return &PathValidator{rootAbs: rootAbs}, nil
}

func (v *PathValidator) RootAbs() string {
	return v.rootAbs
}

// ResolveName joins a bare file name onto the root. Names carrying
// separators, parent references or control characters are rejected.
func (v *PathValidator) ResolveName(name string) (string, error) {
	if name == "" || name == "." || name == ".." {
		return "", apierror.New("INVALID_NAME", "file name is invalid", name, http.StatusBadRequest)
	}

	if strings.ContainsAny(name, `/\`) {
		return "", apierror.New("PATH_TRAVERSAL", "file name must not contain path separators", name, http.StatusForbidden)
	}

	if hasControlCharacters(name) {
		return "", apierror.New("INVALID_NAME", "file name contains invalid characters", name, http.StatusBadRequest)
	}

	resolved := filepath.Join(v.rootAbs, name)
	if !isWithinRoot(v.rootAbs, resolved) {
		return "", apierror.New("PATH_TRAVERSAL", "resolved path is outside storage root", name, http.StatusForbidden)
	}

	return resolved, nil
}

func hasControlCharacters(value string) bool {
	for _, char := range value {
		if unicode.IsControl(char) {
			return true
		}
	}

	return false
}

func isWithinRoot(rootAbs string, candidateAbs string) bool {
	if candidateAbs == rootAbs {
		return false
	}

	rootWithSeparator := rootAbs + string(filepath.Separator)
	return strings.HasPrefix(candidateAbs, rootWithSeparator)
}
