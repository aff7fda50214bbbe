package docsentinel

import "github.com/docsentinel/docsentinel/internal/store"

// Events returns events with the given status, severity descending then id
// ascending. Pass "" to list events of every status.
func (s *Session) Events(status store.EventStatus) ([]store.EventRow, error) {
	return s.store.ListEvents(status)
}

// WorstPendingSeverity returns the highest-severity status among pending
// events, or "" if none are pending. A CLI driver maps this to its exit
// code (critical/high/medium/low/none).
func (s *Session) WorstPendingSeverity() (string, error) {
	events, err := s.store.ListEvents(store.EventPending)
	if err != nil {
		return "", err
	}
	if len(events) == 0 {
		return "", nil
	}
	// ListEvents already orders severity-descending first.
	return events[0].Severity, nil
}
