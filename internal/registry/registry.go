package registry

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/StrawberryMilk21/tetrichain-sub001/internal/dependencies/clock"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/model"
	"github.com/StrawberryMilk21/tetrichain-sub001/internal/protocol"
)

// Sender is the narrow transport handle the registry holds per player.
// Send must be non-blocking and best-effort.
type Sender interface {
	Send(event protocol.EventType, payload any) error
	Close() error
}

// Listener is notified with the affected player's identity.
type Listener func(identity model.PlayerIdentity)

// entry maps an identity to its single live transport handle.
type entry struct {
	identity    model.PlayerIdentity
	displayName string
	sender      Sender
	lastActive  time.Time
}

// Registry tracks one live connection per authenticated identity and
// owns the disconnect grace-period timers.
type Registry struct {
	gracePeriod time.Duration
	clock       clock.Clock
	logger      *slog.Logger

	mu          sync.RWMutex
	entries     map[model.PlayerIdentity]*entry
	graceTimers map[model.PlayerIdentity]*time.Timer

	onDisconnect []Listener
	onReconnect  []Listener
	onFinal      []Listener
}

// New creates a connection registry with the given grace period.
func New(gracePeriod time.Duration, clk clock.Clock, logger *slog.Logger) *Registry {
	return &Registry{
		gracePeriod: gracePeriod,
		clock:       clk,
		logger:      logger.With(slog.String("component", "registry")),
		entries:     make(map[model.PlayerIdentity]*entry),
		graceTimers: make(map[model.PlayerIdentity]*time.Timer),
	}
}

// GracePeriod returns the configured disconnect grace period.
func (r *Registry) GracePeriod() time.Duration {
	return r.gracePeriod
}

// OnDisconnect registers a listener for grace-period starts.
// Listener registration is not synchronized; wire listeners before
// serving connections.
func (r *Registry) OnDisconnect(fn Listener) {
	r.onDisconnect = append(r.onDisconnect, fn)
}

// OnReconnect registers a listener for reconnections within grace.
func (r *Registry) OnReconnect(fn Listener) {
	r.onReconnect = append(r.onReconnect, fn)
}

// OnFinalDisconnect registers a listener for grace-period expiries.
func (r *Registry) OnFinalDisconnect(fn Listener) {
	r.onFinal = append(r.onFinal, fn)
}

// Authenticate validates the supplied identity and binds the transport
// handle to it. A new authentication for an identity replaces any prior
// entry; if a grace timer is pending for the identity this counts as a
// reconnection and the timer is cancelled.
func (r *Registry) Authenticate(identity model.PlayerIdentity, displayName string, sender Sender) error {
	if strings.TrimSpace(string(identity)) == "" {
		return model.ErrInvalidIdentity
	}
	if strings.TrimSpace(displayName) == "" {
		return model.ErrInvalidDisplayName
	}

	r.mu.Lock()
	reconnected := false
	if timer, ok := r.graceTimers[identity]; ok {
		timer.Stop()
		delete(r.graceTimers, identity)
		reconnected = true
	}
	if prev, ok := r.entries[identity]; ok && prev.sender != sender {
		_ = prev.sender.Close()
	}
	r.entries[identity] = &entry{
		identity:    identity,
		displayName: displayName,
		sender:      sender,
		lastActive:  r.clock.Now(),
	}
	r.mu.Unlock()

	if reconnected {
		r.logger.Info("player reconnected within grace period",
			slog.String("identity", string(identity)))
		for _, fn := range r.onReconnect {
			fn(identity)
		}
	} else {
		r.logger.Info("player authenticated",
			slog.String("identity", string(identity)),
			slog.String("display_name", displayName))
	}
	return nil
}

// Lookup returns the display name bound to an identity, if connected.
func (r *Registry) Lookup(identity model.PlayerIdentity) (displayName string, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[identity]
	if !ok {
		return "", false
	}
	return e.displayName, true
}

// Touch updates the identity's last-activity timestamp.
func (r *Registry) Touch(identity model.PlayerIdentity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[identity]; ok {
		e.lastActive = r.clock.Now()
	}
}

// Send delivers an event to the identity if it has a live connection.
// Absence of a connection is not an error, only a false return.
func (r *Registry) Send(identity model.PlayerIdentity, event protocol.EventType, payload any) bool {
	r.mu.RLock()
	e, ok := r.entries[identity]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if err := e.sender.Send(event, payload); err != nil {
		r.logger.Warn("send failed",
			slog.String("identity", string(identity)),
			slog.String("event", string(event)),
			slog.Any("error", err))
		return false
	}
	return true
}

// SendToAll delivers an event to every listed identity, best-effort.
func (r *Registry) SendToAll(identities []model.PlayerIdentity, event protocol.EventType, payload any) {
	for _, id := range identities {
		r.Send(id, event, payload)
	}
}

// Disconnect starts the grace-period timer for the identity. The sender
// is checked against the live entry so a stale transport closing after
// a reconnection does not restart the timer.
func (r *Registry) Disconnect(identity model.PlayerIdentity, sender Sender, reason string) {
	r.mu.Lock()
	e, ok := r.entries[identity]
	if !ok || e.sender != sender {
		r.mu.Unlock()
		return
	}
	if _, pending := r.graceTimers[identity]; pending {
		r.mu.Unlock()
		return
	}
	r.graceTimers[identity] = time.AfterFunc(r.gracePeriod, func() {
		r.finalize(identity, sender)
	})
	r.mu.Unlock()

	r.logger.Info("player disconnected, grace period started",
		slog.String("identity", string(identity)),
		slog.String("reason", reason),
		slog.Duration("grace_period", r.gracePeriod))
	for _, fn := range r.onDisconnect {
		fn(identity)
	}
}

// finalize removes the entry once the grace period expires without a
// reconnection. Guarded against the timer firing after the identity
// re-authenticated or logged out.
func (r *Registry) finalize(identity model.PlayerIdentity, sender Sender) {
	r.mu.Lock()
	if _, pending := r.graceTimers[identity]; !pending {
		r.mu.Unlock()
		return
	}
	e, ok := r.entries[identity]
	if !ok || e.sender != sender {
		delete(r.graceTimers, identity)
		r.mu.Unlock()
		return
	}
	delete(r.graceTimers, identity)
	delete(r.entries, identity)
	r.mu.Unlock()

	r.logger.Info("player finalized-disconnected",
		slog.String("identity", string(identity)))
	for _, fn := range r.onFinal {
		fn(identity)
	}
}

// Logout removes the identity immediately, skipping the grace period.
func (r *Registry) Logout(identity model.PlayerIdentity) {
	r.mu.Lock()
	if timer, ok := r.graceTimers[identity]; ok {
		timer.Stop()
		delete(r.graceTimers, identity)
	}
	delete(r.entries, identity)
	r.mu.Unlock()
}

// ConnectedCount returns the number of live connection entries.
func (r *Registry) ConnectedCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
