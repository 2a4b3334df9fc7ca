package vpcstore

import (
	"strconv"

	"github.com/mulgadc/fabricd/fabric/apierrors"
	"github.com/mulgadc/fabricd/fabric/store"
)

func isReservedVNI(vni int64) bool {
	return vni < VNIReservedBelow || vni == ServicesVNI
}

func vniKey(vni int64) string {
	return strconv.FormatInt(vni, 10)
}

// vniWindow is one [lo, hi) slice of the legal VNI domain.
type vniWindow struct {
	lo, hi int64
}

// vniWindows returns the sequence of windows AllocateVNI will search,
// starting at the window containing seed and stepping forward through the
// legal domain for at most maxWindows windows; the whole slice is built
// before the search starts rather than produced one window at a time. This
// generalizes the teacher's flat nextVNI counter into the restartable scan
// spec.md §4.1 describes: a caller that remembers where it left off (via
// seed) resumes mid-scan instead of starting over.
func vniWindows(seed int64, step int64, maxWindows int) []vniWindow {
	if step <= 0 {
		step = DefaultVNIStep
	}
	start := (seed / step) * step
	windows := make([]vniWindow, 0, maxWindows)
	for i := 0; i < maxWindows; i++ {
		lo := start + int64(i)*step
		if lo >= VNIMax {
			break
		}
		hi := lo + step
		if hi > VNIMax {
			hi = VNIMax
		}
		windows = append(windows, vniWindow{lo: lo, hi: hi})
	}
	return windows
}

// createVPCRawInWindow finds the least free VNI in [w.lo, w.hi), claims it
// in the uniqueness index, and returns it. It returns (0, false, nil) if the
// window holds no free value — a normal outcome, not an error, matching
// spec.md §4.1's "raw" single-window primitive returning None rather than
// failing.
func (s *Store) createVPCRawInWindow(w vniWindow, vpcID string) (int64, bool, error) {
	keys, err := store.Keys(s.vniIndex)
	if err != nil {
		return 0, false, err
	}
	used := make(map[int64]bool, len(keys))
	for _, k := range keys {
		v, err := strconv.ParseInt(k, 10, 64)
		if err != nil || v < w.lo || v >= w.hi {
			continue
		}
		used[v] = true
	}

	for v := w.lo; v < w.hi; v++ {
		if isReservedVNI(v) || used[v] {
			continue
		}
		if _, err := store.TryCreateUnique(s.vniIndex, vniKey(v), []byte(vpcID)); err != nil {
			// Another allocator won the race for this exact value; try the
			// next candidate in the same window rather than abandoning it.
			continue
		}
		return v, true, nil
	}
	return 0, false, nil
}

// AllocateVNI runs the windowed scan of spec.md §4.1: try up to
// MaxVNISearchWindows windows starting at seed, returning the first free
// value found. Returns apierrors.InsufficientCapacity if every window in
// range is exhausted.
func (s *Store) AllocateVNI(seed int64, vpcID string) (int64, error) {
	for _, w := range vniWindows(seed, s.VNIStep, s.MaxVNISearchWindows) {
		vni, ok, err := s.createVPCRawInWindow(w, vpcID)
		if err != nil {
			return 0, err
		}
		if ok {
			return vni, nil
		}
	}
	return 0, apierrors.InsufficientCapacity("no free VNI in search range")
}

// releaseVNI removes vni from the uniqueness index. Used to compensate a
// VPC create that fails after the VNI claim but before the VPC row is
// durably written, and by DeleteVPC, which frees a VPC's VNI as soon as the
// VPC is soft-deleted (see DESIGN.md, "VNI reclamation").
func (s *Store) releaseVNI(vni int64) error {
	return store.Delete(s.vniIndex, vniKey(vni))
}
