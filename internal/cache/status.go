package cache

// Status is the lifecycle state of one package.
type Status string

const (
	NotLoaded  Status = "notloaded"  // no content dir, no record required
	Loaded     Status = "loaded"     // content acquired, not materialized
	MidInstall Status = "midinstall" // materialization in progress
	Installed  Status = "installed"  // materialized into target_dir
	MidRemove  Status = "midremove"  // de-materialization in progress
)

// Statuses lists the enum in lifecycle order.
var Statuses = []Status{NotLoaded, Loaded, MidInstall, Installed, MidRemove}

// Valid reports whether s is one of the enum values.
func (s Status) Valid() bool {
	switch s {
	case NotLoaded, Loaded, MidInstall, Installed, MidRemove:
		return true
	}
	return false
}

// InProgress reports the states that mean an earlier run was interrupted.
func (s Status) InProgress() bool { return s == MidInstall || s == MidRemove }

// Materialized reports states whose records carry install attributes.
func (s Status) Materialized() bool { return s == MidInstall || s == Installed || s == MidRemove }

// requiredKeys lists the keys a stored record must carry for its status.
func requiredKeys(s Status) []string {
	if s.Materialized() {
		return []string{"package_dir", "packages_dir", "target_dir", "tags"}
	}
	return nil
}
