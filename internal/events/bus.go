// Package events implements the outbound SystemEvent bus: a bounded,
// drop-oldest queue feeding subscribers (the notification
// collaborator, the dashboard websocket, the audit log) without ever
// blocking the supervisor tick that publishes into it.
package events

import (
	"sync"
	"time"
)

// Kind categorizes a SystemEvent.
type Kind string

const (
	KindTrade     Kind = "TRADE"
	KindSignal    Kind = "SIGNAL"
	KindError     Kind = "ERROR"
	KindWarning   Kind = "WARNING"
	KindInfo      Kind = "INFO"
	KindLifecycle Kind = "LIFECYCLE"
)

// Severity grades how urgent a SystemEvent is.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityHigh     Severity = "HIGH"
	SeverityCritical Severity = "CRITICAL"
)

// Payload kinds for the outbound event record.
const (
	PayloadTradeOpened         = "TradeOpened"
	PayloadTradeClosed         = "TradeClosed"
	PayloadSignalRejected      = "SignalRejected"
	PayloadDaemonStarted       = "DaemonStarted"
	PayloadDaemonStopped       = "DaemonStopped"
	PayloadRiskBreach          = "RiskBreach"
	PayloadConnectivityLost    = "ConnectivityLost"
	PayloadConnectivityRestored = "ConnectivityRestored"
	PayloadStateReconciliation = "StateReconciliation"
)

// Event is the outbound SystemEvent record.
type Event struct {
	At       time.Time              `json:"at"`
	Kind     Kind                   `json:"kind"`
	Severity Severity               `json:"severity"`
	Message  string                 `json:"message"`
	Payload  string                 `json:"payload_kind,omitempty"`
	Details  map[string]interface{} `json:"details,omitempty"`
}

// Subscriber receives published events; it must not block.
type Subscriber func(Event)

// Bus is a bounded, single-producer-friendly fan-out: Publish never
// blocks the caller. When the queue is full the two oldest queued
// events are dropped to make room for the new event and a WARNING
// describing the drop, and the drop is counted so it stays
// observable.
type Bus struct {
	mu          sync.Mutex
	subscribers []Subscriber

	queue    chan Event
	dropped  int
	wg       sync.WaitGroup
	stopOnce sync.Once
	stop     chan struct{}
}

// NewBus creates a Bus with a bounded queue of the given capacity and
// starts its delivery loop.
func NewBus(capacity int) *Bus {
	if capacity <= 0 {
		capacity = 256
	}
	b := &Bus{
		queue: make(chan Event, capacity),
		stop:  make(chan struct{}),
	}
	b.wg.Add(1)
	go b.deliverLoop()
	return b
}

// Subscribe registers a subscriber for every published event.
func (b *Bus) Subscribe(sub Subscriber) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers = append(b.subscribers, sub)
}

// Publish enqueues ev for delivery, stamping At if unset. If the
// queue is full, the oldest queued events are dropped to make room
// and a WARNING event describing the drop is delivered in their
// place, so subscribers see the drop itself, not just a quieter
// stream.
func (b *Bus) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}

	select {
	case b.queue <- ev:
		return
	default:
	}

	// Full: free two slots, one for ev and one for the drop warning.
	var oldest Event
	droppedNow := 0
	for i := 0; i < 2; i++ {
		select {
		case old := <-b.queue:
			if droppedNow == 0 {
				oldest = old
			}
			droppedNow++
			b.dropped++
		default:
		}
	}

	select {
	case b.queue <- ev:
	default:
		// Queue refilled concurrently; give up on this one rather than block.
		b.dropped++
	}

	if droppedNow > 0 {
		warn := Event{
			Kind:     KindWarning,
			Severity: SeverityMedium,
			At:       time.Now().UTC(),
			Message:  "event queue full, oldest events dropped",
			Details: map[string]interface{}{
				"dropped_now":    droppedNow,
				"dropped_total":  b.dropped,
				"oldest_kind":    string(oldest.Kind),
				"oldest_message": oldest.Message,
			},
		}
		select {
		case b.queue <- warn:
		default:
			// No room even for the warning; the counter still records it.
		}
	}
}

func (b *Bus) deliverLoop() {
	defer b.wg.Done()
	for {
		select {
		case ev := <-b.queue:
			b.mu.Lock()
			subs := append([]Subscriber(nil), b.subscribers...)
			b.mu.Unlock()
			for _, sub := range subs {
				sub(ev)
			}
		case <-b.stop:
			return
		}
	}
}

// Close stops the delivery loop.
func (b *Bus) Close() {
	b.stopOnce.Do(func() { close(b.stop) })
	b.wg.Wait()
}

// Dropped returns the count of events dropped for queue overflow,
// for diagnostics/status reporting.
func (b *Bus) Dropped() int {
	return b.dropped
}

func lifecycleEvent(message string, details map[string]interface{}) Event {
	return Event{Kind: KindLifecycle, Severity: SeverityLow, Message: message, Details: details}
}

// TradeOpened builds the TradeOpened outbound event.
func TradeOpened(ticket uint64, symbol, side string, entry, lot float64) Event {
	return Event{
		Kind: KindTrade, Severity: SeverityLow, Payload: PayloadTradeOpened,
		Message: "position opened",
		Details: map[string]interface{}{"ticket": ticket, "symbol": symbol, "side": side, "entry": entry, "lot": lot},
	}
}

// TradeClosed builds the TradeClosed outbound event.
func TradeClosed(ticket uint64, status string, exit, pnl float64) Event {
	return Event{
		Kind: KindTrade, Severity: SeverityLow, Payload: PayloadTradeClosed,
		Message: "position closed: " + status,
		Details: map[string]interface{}{"ticket": ticket, "status": status, "exit": exit, "pnl": pnl},
	}
}

// SignalRejected builds the SignalRejected outbound event for a
// RiskGate veto or a demoted-to-HOLD signal.
func SignalRejected(reasons []string) Event {
	return Event{
		Kind: KindSignal, Severity: SeverityLow, Payload: PayloadSignalRejected,
		Message: "signal rejected", Details: map[string]interface{}{"reasons": reasons},
	}
}

// RiskBreach builds the RiskBreach outbound event at HIGH severity.
func RiskBreach(reasons []string) Event {
	return Event{
		Kind: KindWarning, Severity: SeverityHigh, Payload: PayloadRiskBreach,
		Message: "risk gate blocked new entry", Details: map[string]interface{}{"reasons": reasons},
	}
}

// DaemonStarted/DaemonStopped build LIFECYCLE events for start/stop.
func DaemonStarted(sessionID string) Event {
	return lifecycleEventWithPayload(PayloadDaemonStarted, "daemon started", map[string]interface{}{"session_id": sessionID})
}

func DaemonStopped(sessionID string) Event {
	return lifecycleEventWithPayload(PayloadDaemonStopped, "daemon stopped", map[string]interface{}{"session_id": sessionID})
}

func lifecycleEventWithPayload(payload, message string, details map[string]interface{}) Event {
	ev := lifecycleEvent(message, details)
	ev.Payload = payload
	return ev
}

// ConnectivityLost/ConnectivityRestored mark an external dependency
// (market data, AI, broker) as unreachable/recovered.
func ConnectivityLost(dependency string, err error) Event {
	return Event{
		Kind: KindError, Severity: SeverityHigh, Payload: PayloadConnectivityLost,
		Message: "connectivity lost: " + dependency,
		Details: map[string]interface{}{"dependency": dependency, "error": errString(err)},
	}
}

func ConnectivityRestored(dependency string) Event {
	return Event{
		Kind: KindInfo, Severity: SeverityLow, Payload: PayloadConnectivityRestored,
		Message: "connectivity restored: " + dependency,
		Details: map[string]interface{}{"dependency": dependency},
	}
}

// StateReconciliation marks a CRITICAL reconciliation of a position
// the broker no longer reports.
func StateReconciliation(ticket uint64, exitPrice float64) Event {
	return Event{
		Kind: KindLifecycle, Severity: SeverityCritical, Payload: PayloadStateReconciliation,
		Message: "position force-closed on reconciliation",
		Details: map[string]interface{}{"ticket": ticket, "exit_price": exitPrice},
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
