// Package permission computes what a viewer may do with events they do not
// own. The upstream enforces permissions authoritatively; these filters only
// shape what the dashboard offers.
package permission

import "eventgate/internal/model"

// ScanTargets returns the events an operator may select for scanning: events
// they own that are active and not terminated, plus events granted to them
// where the grant is active, canScan is set and the event itself is active.
// Pure function, no side effects.
func ScanTargets(owned []model.Event, granted []model.GrantedEvent) []model.Event {
	targets := make([]model.Event, 0, len(owned)+len(granted))
	seen := make(map[string]bool, len(owned)+len(granted))

	for _, e := range owned {
		if !e.IsActive || e.Status == model.StatusTerminated {
			continue
		}
		targets = append(targets, e)
		seen[e.ID] = true
	}

	for _, g := range granted {
		if g.Event == nil || !g.IsActive || !g.Permissions.CanScan || !g.Event.IsActive {
			continue
		}
		if seen[g.Event.ID] {
			continue
		}
		targets = append(targets, *g.Event)
		seen[g.Event.ID] = true
	}

	return targets
}
