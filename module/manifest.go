package module

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml"
)

// ManifestFileName is the optional workspace manifest (SPEC_FULL.md §1.3),
// M's counterpart to chai's "chai-mod.toml" (mods/load.go's ModuleFileName).
const ManifestFileName = "micc.toml"

// manifest is the trimmed TOML schema SPEC_FULL.md's DOMAIN STACK table
// describes: a module name, additional import roots, and a default main
// module -- not the teacher's full build-profile/OS/arch/static-libs
// machinery in mods/load.go's tomlModuleFile, which has no home in a
// single-artifact batch compiler with no linker stage of its own.
type manifest struct {
	Name        string   `toml:"name"`
	ImportRoots []string `toml:"import-roots,omitempty"`
	MainModule  string   `toml:"main-module,omitempty"`
}

// LoadManifest reads an optional micc.toml from dir. A missing manifest is
// not an error -- the CLI's -I flags are sufficient on their own. When
// present, its import roots are appended after m.Roots so that -I flags
// always take priority and are searched first (SPEC_FULL.md §1.3, mirroring
// mods/load.go's profile-merge precedence: explicit selection beats
// manifest default).
func (m *Manager) LoadManifest(dir string) error {
	path := filepath.Join(dir, ManifestFileName)
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()

	buf, err := ioutil.ReadAll(f)
	if err != nil {
		return err
	}

	mf := &manifest{}
	if err := toml.Unmarshal(buf, mf); err != nil {
		return err
	}

	m.manifest = mf
	m.Roots = append(m.Roots, mf.ImportRoots...)
	return nil
}

// DefaultMainModule returns the manifest's declared main module, if a
// manifest was loaded and named one (SPEC_FULL.md §1.3's "default main
// module"). The CLI does not call it: a missing positional argument is a
// usage error in cmd/execute.go.
func (m *Manager) DefaultMainModule() (string, bool) {
	if m.manifest == nil || m.manifest.MainModule == "" {
		return "", false
	}
	return m.manifest.MainModule, true
}
