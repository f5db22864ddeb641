// Package merge reconciles the local event collection with a remote
// snapshot into one consistent set.
package merge

import "github.com/mikecinchan/calendar/internal/domain"

// Merge combines local and remote event sequences. Remote wins on
// identity conflicts: the result starts with every remote event, and a
// local event is appended only if neither its id nor its remoteId
// matches any remote event's id or remoteId. Merging a set with itself
// returns the same content, so repeated remote snapshots are safe.
//
// Precedence is deliberately not timestamp-aware: a local edit made
// after the last sync is shadowed by the remote copy, matching the
// system this store mirrors.
func Merge(local, remote []domain.Event) []domain.Event {
	if len(remote) == 0 {
		return local
	}
	if len(local) == 0 {
		return remote
	}

	merged := make([]domain.Event, 0, len(remote)+len(local))
	seen := make(map[string]struct{}, len(remote)*2)

	for _, ev := range remote {
		merged = append(merged, ev)
		seen[ev.ID] = struct{}{}
		if ev.RemoteID != "" {
			seen[ev.RemoteID] = struct{}{}
		}
	}

	for _, ev := range local {
		if _, dup := seen[ev.ID]; dup {
			continue
		}
		if ev.RemoteID != "" {
			if _, dup := seen[ev.RemoteID]; dup {
				continue
			}
		}
		merged = append(merged, ev)
	}

	return merged
}
