package dictionary

import "sync/atomic"

// Snapshot holds the currently served dictionary. Rebuilds swap the whole
// dictionary in one step, so readers always see a consistent version.
type Snapshot struct {
	current atomic.Pointer[Dictionary]
}

func NewSnapshot(dict Dictionary) *Snapshot {
	s := &Snapshot{}
	s.Replace(dict)
	return s
}

func (s *Snapshot) Current() Dictionary {
	dict := s.current.Load()
	if dict == nil {
		return nil
	}
	return *dict
}

func (s *Snapshot) Replace(dict Dictionary) {
	s.current.Store(&dict)
}
