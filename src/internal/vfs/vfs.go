// Package vfs implements the bidirectional mapping between virtual paths
// (exposed across the public query surface) and real, absolute OS paths
// (the only path shape ever persisted in the catalog).
package vfs

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrUnknownMount is returned by VirtualToReal when a virtual path's first
// component does not match any configured mount.
var ErrUnknownMount = errors.New("unknown mount point")

// ErrNotUnderMount is returned by RealToVirtual when a real path is not a
// descendant of any configured mount's real root.
var ErrNotUnderMount = errors.New("path is not under any mount point")

// MountPoint is a (virtual name, real root path) pair: the exclusive entry
// point from the virtual namespace into the real one.
type MountPoint struct {
	Name string
	Real string
}

// Mapper owns an ordered set of mount points. A Mapper is immutable once
// built and may be shared across goroutines without synchronization.
type Mapper struct {
	mounts []MountPoint
}

// New builds a Mapper from the given mount points. Mount names and real
// roots are used as given; trailing separators are stripped from real roots
// so prefix comparisons in RealToVirtual behave consistently.
func New(mounts []MountPoint) *Mapper {
	m := &Mapper{mounts: make([]MountPoint, len(mounts))}
	for i, mp := range mounts {
		m.mounts[i] = MountPoint{Name: mp.Name, Real: strings.TrimRight(mp.Real, "/")}
	}
	return m
}

// MountPoints returns the configured mount points in their configured order.
func (m *Mapper) MountPoints() []MountPoint {
	out := make([]MountPoint, len(m.mounts))
	copy(out, m.mounts)
	return out
}

// VirtualToReal splits vp at its first path component and resolves that
// component against the configured mounts, appending the remainder onto the
// matching real root. It fails with ErrUnknownMount if the first component
// matches no mount.
func (m *Mapper) VirtualToReal(vp string) (string, error) {
	vp = strings.Trim(vp, "/")
	if vp == "" {
		return "", errors.Wrap(ErrUnknownMount, "empty virtual path has no mount component")
	}

	head, rest := splitFirst(vp)
	for _, mp := range m.mounts {
		if mp.Name == head {
			if rest == "" {
				return mp.Real, nil
			}
			return mp.Real + "/" + rest, nil
		}
	}
	return "", errors.Wrapf(ErrUnknownMount, "no mount named %q", head)
}

// RealToVirtual scans the configured mounts and returns "name/rp.strip_prefix(real)"
// for the first mount whose real root is a prefix of rp. It fails with
// ErrNotUnderMount if no mount contains rp.
func (m *Mapper) RealToVirtual(rp string) (string, error) {
	for _, mp := range m.mounts {
		if rp == mp.Real {
			return mp.Name, nil
		}
		if strings.HasPrefix(rp, mp.Real+"/") {
			suffix := strings.TrimPrefix(rp, mp.Real+"/")
			return mp.Name + "/" + suffix, nil
		}
	}
	return "", errors.Wrapf(ErrNotUnderMount, "%q is not under any mount", rp)
}

// splitFirst splits a trimmed, slash-separated path into its first component
// and the remainder (which may be empty).
func splitFirst(p string) (head, rest string) {
	i := strings.IndexByte(p, '/')
	if i < 0 {
		return p, ""
	}
	return p[:i], p[i+1:]
}
