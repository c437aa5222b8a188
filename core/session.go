package core

import "sort"

// PathStructure describes where a session's files live on disk.
type PathStructure struct {
	// Root is the session directory.
	Root string
	// Wav, Textgrid and Ultrasound are subdirectories for the respective
	// file kinds; empty means they live directly under Root.
	Wav        string
	Textgrid   string
	Ultrasound string
}

// Session is an ordered collection of Recordings sharing one run
// configuration. There are no cross-recording invariants beyond the
// ordering by recording timestamp.
type Session struct {
	// Name of the session, usually the containing directory.
	Name string
	// Paths is the on-disk layout of the session.
	Paths PathStructure
	// Config is the run configuration the session was built with. Opaque
	// to core; see the config package for the concrete type.
	Config any
	// Recordings in ascending order of recording time once
	// SortRecordings has run.
	Recordings []*Recording
}

// NewSession builds a Session and sorts its recordings by timestamp.
func NewSession(name string, paths PathStructure, config any, recordings []*Recording) *Session {
	s := &Session{
		Name:       name,
		Paths:      paths,
		Config:     config,
		Recordings: recordings,
	}
	s.SortRecordings()
	return s
}

// SortRecordings orders the recordings by ascending time of recording.
// The sort is stable so same-timestamp recordings keep insertion order.
func (s *Session) SortRecordings() {
	sort.SliceStable(s.Recordings, func(i, j int) bool {
		return s.Recordings[i].Meta.TimeOfRecording.Before(
			s.Recordings[j].Meta.TimeOfRecording)
	})
}

// Len returns the number of recordings.
func (s *Session) Len() int { return len(s.Recordings) }
