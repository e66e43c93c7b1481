package acquire

import (
	mapset "github.com/deckarep/golang-set/v2"

	"git.home.luguber.info/inful/mcm/internal/descriptor"
)

// Capabilities declares which acquisition mechanisms this process can run.
// It is passed explicitly instead of being probed at import time.
type Capabilities struct {
	Archive bool
	VCS     bool
}

// AllCapabilities enables every mechanism.
func AllCapabilities() Capabilities { return Capabilities{Archive: true, VCS: true} }

// Supports reports whether kind can be executed.
func (c Capabilities) Supports(kind descriptor.MechanismKind) bool {
	switch kind {
	case descriptor.MechanismTar:
		return c.Archive
	case descriptor.MechanismGit:
		return c.VCS
	default:
		return false
	}
}

// Available returns the enabled kinds in a stable order.
func (c Capabilities) Available() []descriptor.MechanismKind {
	set := mapset.NewThreadUnsafeSet[descriptor.MechanismKind]()
	if c.Archive {
		set.Add(descriptor.MechanismTar)
	}
	if c.VCS {
		set.Add(descriptor.MechanismGit)
	}
	out := make([]descriptor.MechanismKind, 0, set.Cardinality())
	for _, k := range []descriptor.MechanismKind{descriptor.MechanismTar, descriptor.MechanismGit} {
		if set.Contains(k) {
			out = append(out, k)
		}
	}
	return out
}
