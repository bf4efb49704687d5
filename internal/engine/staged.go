package engine

import "sync"

// Patch is an uncommitted diff against a row's last known persisted state.
type Patch struct {
	TargetID  string
	Fields    Fields
	Changed   map[string]struct{}
	IsNew     bool
	IsRemoved bool
}

func newPatch(id string) *Patch {
	return &Patch{
		TargetID: id,
		Fields:   Fields{},
		Changed:  map[string]struct{}{},
	}
}

func (p *Patch) clone() *Patch {
	c := &Patch{
		TargetID:  p.TargetID,
		Fields:    make(Fields, len(p.Fields)),
		Changed:   make(map[string]struct{}, len(p.Changed)),
		IsNew:     p.IsNew,
		IsRemoved: p.IsRemoved,
	}
	for k, v := range p.Fields {
		c.Fields[k] = v
	}
	for k := range p.Changed {
		c.Changed[k] = struct{}{}
	}
	return c
}

// counts reports whether the patch contributes to the change count.
// A dirty row with no semantic field change does not.
func (p *Patch) counts() bool {
	return p.IsNew || p.IsRemoved || len(p.Changed) > 0
}

// Staged holds the uncommitted patches for one collection, keyed by row id.
// Edits to the same row merge into the existing patch; a field edited back
// to its original value stays in the changed set (touched stays touched).
type Staged struct {
	mu      sync.Mutex
	patches map[string]*Patch
	order   []string // row ids in first-staged order
}

func NewStaged() *Staged {
	return &Staged{patches: map[string]*Patch{}}
}

// StageEdit merges fields into the patch for rowID, creating it if needed.
// Latest value wins per field; the changed set is the union across edits.
func (s *Staged) StageEdit(rowID string, fields Fields, isNew bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.patches[rowID]
	if p == nil {
		p = newPatch(rowID)
		s.patches[rowID] = p
		s.order = append(s.order, rowID)
	}
	if isNew {
		p.IsNew = true
	}
	if p.IsRemoved {
		// Removal supersedes edits; ignore field changes on a removed row.
		return
	}
	for k, v := range fields {
		p.Fields[k] = v
		p.Changed[k] = struct{}{}
	}
}

// StageRemoval marks rowID for deletion, discarding any prior field patch.
func (s *Staged) StageRemoval(rowID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.patches[rowID]
	if p == nil {
		p = newPatch(rowID)
		s.patches[rowID] = p
		s.order = append(s.order, rowID)
	}
	p.Fields = Fields{}
	p.Changed = map[string]struct{}{}
	p.IsRemoved = true
}

// Unstage discards the patch for rowID entirely. Used by undo.
func (s *Staged) Unstage(rowID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(rowID)
}

// Take removes and returns the patch for rowID, or nil.
func (s *Staged) Take(rowID string) *Patch {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.patches[rowID]
	if p == nil {
		return nil
	}
	s.remove(rowID)
	return p
}

// Get returns a copy of the patch for rowID, or nil.
func (s *Staged) Get(rowID string) *Patch {
	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.patches[rowID]
	if p == nil {
		return nil
	}
	return p.clone()
}

// Snapshot returns copies of all patches in first-staged order, plus the
// change count: new rows and removals count one each, other patches count
// one if at least one field changed.
func (s *Staged) Snapshot() ([]*Patch, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []*Patch
	count := 0
	for _, id := range s.order {
		p := s.patches[id]
		out = append(out, p.clone())
		if p.counts() {
			count++
		}
	}
	return out, count
}

// ChangeCount is Snapshot without the copies.
func (s *Staged) ChangeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, p := range s.patches {
		if p.counts() {
			count++
		}
	}
	return count
}

// Clear discards every patch. Used after a bulk commit or cancel-all.
func (s *Staged) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.patches = map[string]*Patch{}
	s.order = nil
}

// Empty reports whether no patches are held.
func (s *Staged) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.patches) == 0
}

// remove must be called with the mutex held.
func (s *Staged) remove(rowID string) bool {
	if _, ok := s.patches[rowID]; !ok {
		return false
	}
	delete(s.patches, rowID)
	for i, id := range s.order {
		if id == rowID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}
