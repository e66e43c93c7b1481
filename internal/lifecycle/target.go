package lifecycle

import (
	"os"
	"path/filepath"

	"git.home.luguber.info/inful/mcm/internal/descriptor"
)

// resolveTarget picks the first listed target that is an existing directory
// after environment expansion. Packages without targets use the default.
func (e *Engine) resolveTarget(meta string, pkg descriptor.Package) (string, error) {
	if len(pkg.Targets) == 0 {
		return e.settings.TargetDir, nil
	}
	tried := make([]string, 0, len(pkg.Targets))
	for _, t := range pkg.Targets {
		dir, err := filepath.Abs(os.ExpandEnv(t))
		if err != nil {
			continue
		}
		tried = append(tried, dir)
		if info, err := os.Stat(dir); err == nil && info.IsDir() {
			return dir, nil
		}
	}
	return "", &NoValidTargetError{Meta: meta, Package: pkg.Name, Candidates: tried}
}
