package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/market-intel/internal/model"
	"github.com/sells-group/market-intel/internal/store"
)

// ActivitySnapshot is a point-in-time view of the dataset and recent edits.
type ActivitySnapshot struct {
	Records       int            `json:"records"`
	ByPointType   map[string]int `json:"by_point_type"`
	ByCountry     map[string]int `json:"by_country"`
	ByTag         map[string]int `json:"by_tag"`
	AuditEntries  int            `json:"audit_entries"`
	RecentActions map[string]int `json:"recent_actions"`
	ActiveUsers   []string       `json:"active_users"`
	LastActivity  *time.Time     `json:"last_activity,omitempty"`
	LookbackHours int            `json:"lookback_hours"`
	CollectedAt   time.Time      `json:"collected_at"`
}

// Collector builds activity snapshots from the stores.
type Collector struct {
	records store.RecordStore
	audit   store.AuditStore
	nowFunc func() time.Time
}

// NewCollector creates a Collector.
func NewCollector(records store.RecordStore, audit store.AuditStore) *Collector {
	return &Collector{records: records, audit: audit, nowFunc: time.Now}
}

// Collect counts the live set and the audit entries inside the lookback window.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*ActivitySnapshot, error) {
	now := c.nowFunc().UTC()
	snap := &ActivitySnapshot{
		ByPointType:   map[string]int{},
		ByCountry:     map[string]int{},
		ByTag:         map[string]int{},
		RecentActions: map[string]int{},
		ActiveUsers:   []string{},
		LookbackHours: lookbackHours,
		CollectedAt:   now,
	}

	live, err := c.records.LoadAll(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: load records")
	}
	snap.Records = len(live.Records)
	for _, r := range live.Records {
		snap.ByPointType[string(r.PointType)]++
		snap.ByCountry[r.Country]++
		for _, t := range r.Tags {
			snap.ByTag[t]++
		}
	}

	entries, err := c.audit.ListAudit(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: list audit")
	}
	snap.AuditEntries = len(entries)

	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)
	users := map[string]bool{}
	for _, e := range entries {
		if snap.LastActivity == nil || e.Timestamp.After(*snap.LastActivity) {
			ts := e.Timestamp
			snap.LastActivity = &ts
		}
		if lookbackHours > 0 && e.Timestamp.Before(cutoff) {
			continue
		}
		snap.RecentActions[string(e.Action)]++
		if e.User != "" && !users[e.User] {
			users[e.User] = true
			snap.ActiveUsers = append(snap.ActiveUsers, e.User)
		}
	}
	return snap, nil
}

// ByAction orders the recent action counts the way model.Actions lists them.
func (s *ActivitySnapshot) ByAction() []ActionCount {
	out := make([]ActionCount, 0, len(model.Actions))
	for _, a := range model.Actions {
		out = append(out, ActionCount{Action: a, Count: s.RecentActions[string(a)]})
	}
	return out
}

// ActionCount pairs an action with its count.
type ActionCount struct {
	Action model.Action `json:"action"`
	Count  int          `json:"count"`
}
