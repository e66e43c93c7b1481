package metrics

import (
	"os"
	"path/filepath"

	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/mcm/internal/foundation/errors"
)

// WriteTextfile writes every metric in g to path in the text exposition
// format, replacing the file atomically.
func WriteTextfile(path string, g prom.Gatherer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.FileSystemError("cannot create metrics directory").WithCause(err).WithContext("path", path).Build()
	}
	if err := prom.WriteToTextfile(path, g); err != nil {
		return errors.FileSystemError("cannot write metrics textfile").WithCause(err).WithContext("path", path).Build()
	}
	return nil
}
