package entity

import (
	"time"
)

type OutcomeKind int

const (
	OutcomeSkipped OutcomeKind = iota
	OutcomeDownloaded
	OutcomeMissingURL
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	return [...]string{"skipped", "downloaded", "missing_url", "failed"}[k]
}

// Outcome is the terminal result of processing one entry.
type Outcome struct {
	Kind  OutcomeKind
	Key   string
	Name  string // Display name
	Path  string // Destination path, empty for missing url
	Bytes int64  // Written bytes, downloaded only
	Err   error  // Failed only
}

type Summary struct {
	RunID      string
	Started    time.Time
	Finished   time.Time
	Downloaded int
	Skipped    int
	Missing    int
	Failed     int
	Bytes      int64
	Outcomes   []*Outcome
}

func (s *Summary) Add(o *Outcome) {
	switch o.Kind {
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeDownloaded:
		s.Downloaded++
		s.Bytes += o.Bytes
	case OutcomeMissingURL:
		s.Missing++
	case OutcomeFailed:
		s.Failed++
	}

	s.Outcomes = append(s.Outcomes, o)
}

func (s *Summary) Total() int {
	return len(s.Outcomes)
}
