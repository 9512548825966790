package module

import (
	"os"
	"path/filepath"
	"strings"
)

// Resolve translates a dotted import path into a .mic source file (spec.md
// §4.6 and §6's "dots become directory separators" convention), searching
// Roots in argument order and falling back to the importing module's own
// directory. Grounded on mods/find.go's ResolveModulePath/searchPath
// priority chain, trimmed to this spec's scope: no same-name-as-current-
// module shortcut (M has no notion of "importing from yourself by name"),
// no global lib/pub or lib/std install paths (spec.md's CLI has no
// installation directory concept), just -I roots then the importer's own
// directory.
func (m *Manager) Resolve(path string, fromDir string) (string, bool) {
	rel := strings.ReplaceAll(path, ".", string(filepath.Separator)) + FileExtension

	for _, root := range m.Roots {
		candidate := filepath.Join(root, rel)
		if isFile(candidate) {
			return candidate, true
		}
	}

	candidate := filepath.Join(fromDir, rel)
	if isFile(candidate) {
		return candidate, true
	}

	return "", false
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}
