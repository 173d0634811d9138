package task

import "time"

// AppendHistory returns a new history with one trailing entry. The input is
// never modified, so snapshots sharing it stay intact.
func AppendHistory(history []HistoryEntry, status Status, now time.Time) []HistoryEntry {
	out := make([]HistoryEntry, len(history), len(history)+1)
	copy(out, history)
	return append(out, HistoryEntry{Status: status, Timestamp: now})
}

// LastStatus returns the status of the newest history entry.
func LastStatus(history []HistoryEntry) (Status, bool) {
	if len(history) == 0 {
		return "", false
	}
	return history[len(history)-1].Status, true
}
