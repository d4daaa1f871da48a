// Package metrics exposes the Prometheus surface of the platform:
// builder command counters, conversation gauges, child bot traffic
// and broadcast delivery tallies.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bekzod-dev/botforge/internal/state"
)

var (
	botCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Builder bot commands received, by command and status",
		},
		[]string{"command", "status"},
	)
	commandDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "command_duration_seconds",
			Help:    "Builder bot handler latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	stateTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "state_transitions_total",
			Help: "Owner conversation transitions",
		},
		[]string{"from", "to"},
	)
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "errors_total",
			Help: "Errors by type and severity",
		},
		[]string{"type", "severity"},
	)
	activeConversations = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_conversations",
			Help: "Owners currently inside a builder flow",
		},
	)
	conversationsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "conversations_by_state",
			Help: "Owner conversations per flow step",
		},
		[]string{"state"},
	)
	runningChildBots = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "running_child_bots",
			Help: "Child bots currently polling",
		},
	)
	childUpdatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "child_updates_total",
			Help: "Updates handled by child bots, by kind",
		},
		[]string{"kind"},
	)
	broadcastMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_messages_total",
			Help: "Broadcast delivery attempts, by result",
		},
		[]string{"result"},
	)
)

// States the gauge always reports, even at zero, so dashboards keep a
// stable series set.
var trackedStates = []state.State{
	state.StateIdle,
	state.StateAwaitingToken,
	state.StateAwaitingName,
	state.StateAwaitingBroadcast,
	state.StateAwaitingBroadcastConfirm,
	state.StateAwaitingChannel,
	state.StateAwaitingContest,
	state.StateAwaitingSetting,
	state.StateAwaitingAdmin,
	state.StateAwaitingRename,
	state.StateError,
}

func init() {
	state.RegisterTransitionRecorder(RecordStateTransition)
}

func RecordCommand(command, status string, took time.Duration) {
	botCommandsTotal.WithLabelValues(orUnknown(command), orUnknown(status)).Inc()
	commandDurationSeconds.WithLabelValues(orUnknown(command)).Observe(took.Seconds())
}

func RecordStateTransition(from, to string) {
	stateTransitionsTotal.WithLabelValues(orUnknown(from), orUnknown(to)).Inc()
}

func RecordError(errType, severity string) {
	errorsTotal.WithLabelValues(orUnknown(errType), orUnknown(severity)).Inc()
}

func SetRunningChildBots(count int) {
	runningChildBots.Set(float64(count))
}

func RecordChildUpdate(kind string) {
	childUpdatesTotal.WithLabelValues(orUnknown(kind)).Inc()
}

func RecordBroadcastMessage(ok bool) {
	result := "failed"
	if ok {
		result = "sent"
	}
	broadcastMessagesTotal.WithLabelValues(result).Inc()
}

func orUnknown(label string) string {
	if label == "" {
		return "unknown"
	}
	return label
}

// StateCollector refreshes the conversation gauges from the state
// machine every ten seconds.
type StateCollector struct {
	fsm state.StateMachine
}

func NewStateCollector(fsm state.StateMachine) *StateCollector {
	return &StateCollector{fsm: fsm}
}

func (c *StateCollector) Run(ctx context.Context) {
	if c == nil || c.fsm == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	tick := time.NewTicker(10 * time.Second)
	defer tick.Stop()

	for {
		c.collect(ctx)

		select {
		case <-ctx.Done():
			return
		case <-tick.C:
		}
	}
}

func (c *StateCollector) collect(ctx context.Context) {
	states, err := c.fsm.GetAllStates(ctx)
	if err != nil {
		return
	}

	activeConversations.Set(float64(len(states)))

	counts := make(map[string]int, len(states))
	for _, st := range states {
		label := "unknown"
		if st != nil && st.CurrentState != "" {
			label = string(st.CurrentState)
		}
		counts[label]++
	}

	conversationsByState.Reset()
	for _, s := range trackedStates {
		conversationsByState.WithLabelValues(string(s)).Set(float64(counts[string(s)]))
		delete(counts, string(s))
	}
	for label, n := range counts {
		conversationsByState.WithLabelValues(label).Set(float64(n))
	}
}
