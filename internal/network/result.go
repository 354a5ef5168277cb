package network

import "time"

// MatchEndReason describes why a match ended.
type MatchEndReason int

const (
	MatchEndCompleted MatchEndReason = iota // At most one player left standing
	MatchEndAbandoned                       // Every human left
	MatchEndShutdown                        // Server stopped mid-match
)

func (r MatchEndReason) String() string {
	switch r {
	case MatchEndCompleted:
		return "completed"
	case MatchEndAbandoned:
		return "abandoned"
	case MatchEndShutdown:
		return "shutdown"
	default:
		return "unknown"
	}
}

// MatchResult contains the outcome of a finished match.
type MatchResult struct {
	MatchID  string
	Players  int
	Winner   string // Unique name; empty if nobody survived
	Reason   MatchEndReason
	Ticks    uint64
	Duration time.Duration
}

// MatchResultSaver is an interface for saving match results.
// This allows the server to save results without depending on the storage package.
type MatchResultSaver interface {
	SaveMatchResult(result MatchResult) error
}
