package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters for the metrics endpoint.
type Metrics struct {
	startedAt time.Time

	activeRooms      atomic.Int64
	activeBattles    atomic.Int64
	battlesCompleted atomic.Int64
}

// Snapshot is the point-in-time view served by the metrics endpoint.
type Snapshot struct {
	ActiveRooms      int64 `json:"activeRooms"`
	ActiveBattles    int64 `json:"activeBattles"`
	BattlesCompleted int64 `json:"battlesCompleted"`
	UptimeSeconds    int64 `json:"uptimeSeconds"`
}

// New creates a Metrics instance anchored at the current time.
func New() *Metrics {
	return &Metrics{startedAt: time.Now()}
}

// RoomOpened increments the active room count.
func (m *Metrics) RoomOpened() {
	m.activeRooms.Add(1)
}

// RoomClosed decrements the active room count.
func (m *Metrics) RoomClosed() {
	m.activeRooms.Add(-1)
}

// BattleStarted increments the active battle count.
func (m *Metrics) BattleStarted() {
	m.activeBattles.Add(1)
}

// BattleCompleted moves one battle from active to completed.
func (m *Metrics) BattleCompleted() {
	m.activeBattles.Add(-1)
	m.battlesCompleted.Add(1)
}

// Get returns the current snapshot.
func (m *Metrics) Get() Snapshot {
	return Snapshot{
		ActiveRooms:      m.activeRooms.Load(),
		ActiveBattles:    m.activeBattles.Load(),
		BattlesCompleted: m.battlesCompleted.Load(),
		UptimeSeconds:    int64(time.Since(m.startedAt).Seconds()),
	}
}
