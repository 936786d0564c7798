// Package pathutil keeps artifact writes inside their output root.
package pathutil

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Redact shortens a path to .../<parent>/<base> for error messages.
func Redact(p string) string {
	if p == "" {
		return ""
	}
	cleaned := filepath.Clean(p)
	parent := filepath.Base(filepath.Dir(cleaned))
	if parent == "." || parent == string(filepath.Separator) {
		return filepath.Base(cleaned)
	}
	return ".../" + parent + "/" + filepath.Base(cleaned)
}

// Within reports an error unless target resolves to root or a path below it.
// Symlinks on the existing part of either path are resolved first, so a
// linked directory under root cannot redirect a write elsewhere.
func Within(root, target string) error {
	if root == "" || target == "" {
		return fmt.Errorf("containment check: empty path")
	}
	if strings.ContainsRune(target, '\x00') {
		return fmt.Errorf("containment check: path contains null byte")
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return err
	}
	targetAbs, err := filepath.Abs(target)
	if err != nil {
		return err
	}
	rootResolved, err := resolve(rootAbs)
	if err != nil {
		return err
	}
	dir, err := resolve(filepath.Dir(targetAbs))
	if err != nil {
		return err
	}
	resolved := filepath.Join(dir, filepath.Base(targetAbs))
	if resolved == rootResolved || strings.HasPrefix(resolved, rootResolved+string(os.PathSeparator)) {
		return nil
	}
	return fmt.Errorf("%s is outside %s", Redact(targetAbs), Redact(rootAbs))
}

// resolve evaluates symlinks on the deepest existing ancestor of p and
// re-appends the missing tail.
func resolve(p string) (string, error) {
	if r, err := filepath.EvalSymlinks(p); err == nil {
		return r, nil
	}
	parent := filepath.Dir(p)
	if parent == p {
		return "", fmt.Errorf("cannot resolve %s", Redact(p))
	}
	r, err := resolve(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(r, filepath.Base(p)), nil
}
