package docsentinel

import "github.com/docsentinel/docsentinel/internal/store"

// IgnoreEvent marks an event Ignored. A permanent ignore suppresses the
// event's dedup key across every future scan; a scoped ignore suppresses it
// only for scans that land back on the exact revision it was ignored at
// (see suppresses in internal/driftengine for why a scoped ignore cannot be
// resolved by true ancestry here).
func (s *Session) IgnoreEvent(eventID, reason string, permanent bool) error {
	revision, err := s.lastScanRevision()
	if err != nil {
		return err
	}
	return s.store.SetEventStatus(eventID, store.EventIgnored, reason, permanent, revision)
}

func (s *Session) lastScanRevision() (string, error) {
	rev, err := s.store.Setting("last_scan_to")
	if err != nil {
		return "", err
	}
	if rev != "" {
		return rev, nil
	}
	return s.currentRevision()
}
