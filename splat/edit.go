package splat

// Merge appends other's splats to s. Both stores must share the same K (SH coefficient
// count); the antialiased flag becomes the OR of both operands.
func (s *Store) Merge(other *Store) error {
	if other.k != s.k {
		return ErrConfiguration
	}
	s.means = append(s.means, other.means...)
	s.rotations = append(s.rotations, other.rotations...)
	s.logScales = append(s.logScales, other.logScales...)
	s.opacities = append(s.opacities, other.opacities...)
	s.sh = append(s.sh, other.sh...)
	s.state = append(s.state, other.state...)
	s.antialiased = s.antialiased || other.antialiased
	s.capacity = len(s.means)
	s.recount()
	s.dirty = true
	return nil
}

// Clear empties the store in place, preserving capacity and the antialiased flag.
func (s *Store) Clear() {
	s.means = s.means[:0]
	s.rotations = s.rotations[:0]
	s.logScales = s.logScales[:0]
	s.opacities = s.opacities[:0]
	s.sh = s.sh[:0]
	s.state = s.state[:0]
	s.numSelected, s.numLocked, s.numDeleted = 0, 0, 0
	s.dirty = true
}

// WithCapacity grows the backing slices' capacity to n without changing length, preserving
// the contents and the antialiased flag. A no-op if n <= current capacity.
func (s *Store) WithCapacity(n int) {
	if n <= s.capacity {
		return
	}
	means := make([][3]float32, len(s.means), n)
	copy(means, s.means)
	s.means = means

	rotations := make([][4]float32, len(s.rotations), n)
	copy(rotations, s.rotations)
	s.rotations = rotations

	logScales := make([][3]float32, len(s.logScales), n)
	copy(logScales, s.logScales)
	s.logScales = logScales

	opacities := make([]float32, len(s.opacities), n)
	copy(opacities, s.opacities)
	s.opacities = opacities

	sh := make([][]float32, len(s.sh), n)
	copy(sh, s.sh)
	s.sh = sh

	state := make([]uint8, len(s.state), n)
	copy(state, s.state)
	s.state = state

	s.capacity = n
}

// DuplicateSelected appends a clone of every currently-selected splat, offsetting each
// clone's mean by offset if non-nil. Clones are appended unselected and unlocked. Returns
// the index of the first appended clone (or len(s.means) if nothing was selected).
func (s *Store) DuplicateSelected(offset *[3]float32) int {
	start := len(s.means)
	for i := 0; i < start; i++ {
		if s.state[i]&StateSelected == 0 {
			continue
		}
		mean := s.means[i]
		if offset != nil {
			mean[0] += offset[0]
			mean[1] += offset[1]
			mean[2] += offset[2]
		}
		s.means = append(s.means, mean)
		s.rotations = append(s.rotations, s.rotations[i])
		s.logScales = append(s.logScales, s.logScales[i])
		s.opacities = append(s.opacities, s.opacities[i])
		shCopy := append([]float32(nil), s.sh[i]...)
		s.sh = append(s.sh, shCopy)
		s.state = append(s.state, 0)
	}
	s.capacity = len(s.means)
	s.recount()
	s.dirty = true
	return start
}

// ExtractSubset returns a new Store containing the splats at the given indices, in the
// given order. The new store's state bits are carried over from the source.
func (s *Store) ExtractSubset(indices []int) *Store {
	out := &Store{
		means:     make([][3]float32, 0, len(indices)),
		rotations: make([][4]float32, 0, len(indices)),
		logScales: make([][3]float32, 0, len(indices)),
		opacities: make([]float32, 0, len(indices)),
		sh:        make([][]float32, 0, len(indices)),
		state:     make([]uint8, 0, len(indices)),
		k:         s.k,
		antialiased: s.antialiased,
		dirty:     true,
	}
	for _, idx := range indices {
		out.means = append(out.means, s.means[idx])
		out.rotations = append(out.rotations, s.rotations[idx])
		out.logScales = append(out.logScales, s.logScales[idx])
		out.opacities = append(out.opacities, s.opacities[idx])
		out.sh = append(out.sh, append([]float32(nil), s.sh[idx]...))
		out.state = append(out.state, s.state[idx])
	}
	out.capacity = len(out.means)
	out.recount()
	return out
}
