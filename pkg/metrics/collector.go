// Package metrics exposes the Prometheus instrumentation for the bot:
// command counters, wizard session gauges, and gate denial counters.
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/maks-ard/film-bot/internal/gate"
	"github.com/maks-ard/film-bot/internal/state"
)

var (
	botCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_commands_total",
			Help: "Total number of bot updates handled labeled by command and status",
		},
		[]string{"command", "status"},
	)
	commandDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "command_duration_seconds",
			Help:    "Duration of bot update handling in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"command"},
	)
	wizardTransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_transitions_total",
			Help: "Total number of add-film wizard step transitions",
		},
		[]string{"from", "to"},
	)
	gateDenialsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gate_denials_total",
			Help: "Total number of access gate denials by gate name",
		},
		[]string{"gate"},
	)
	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "active_wizard_sessions",
			Help: "Current number of open add-film wizard sessions",
		},
	)
	sessionsByState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "wizard_sessions_by_state",
			Help: "Number of open wizard sessions per step",
		},
		[]string{"state"},
	)
)

var trackedStates = []state.State{
	state.StateAddCode,
	state.StateAddTitle,
	state.StateDescriptionChoice,
	state.StateAddDescription,
	state.StateSourceURLChoice,
	state.StateAddSourceURL,
	state.StateLinksChoice,
	state.StateAddLinks,
}

func init() {
	state.RegisterTransitionRecorder(RecordWizardTransition)
	gate.RegisterDenialRecorder(RecordGateDenial)
}

// RecordCommand increments command counters and records duration.
func RecordCommand(command, status string, duration time.Duration) {
	if command == "" {
		command = "unknown"
	}
	if status == "" {
		status = "unknown"
	}

	botCommandsTotal.WithLabelValues(command, status).Inc()
	commandDurationSeconds.WithLabelValues(command).Observe(duration.Seconds())
}

// RecordWizardTransition tracks wizard step transitions.
func RecordWizardTransition(from, to string) {
	if from == "" {
		from = "unknown"
	}
	if to == "" {
		to = "unknown"
	}

	wizardTransitionsTotal.WithLabelValues(from, to).Inc()
}

// RecordGateDenial counts a denial from the named access gate.
func RecordGateDenial(gateName string) {
	if gateName == "" {
		gateName = "unknown"
	}

	gateDenialsTotal.WithLabelValues(gateName).Inc()
}

// SessionCollector periodically gathers wizard session counts and emits gauges.
type SessionCollector struct {
	fsm state.StateMachine
}

// NewSessionCollector builds a collector bound to the provided session store.
func NewSessionCollector(fsm state.StateMachine) *SessionCollector {
	return &SessionCollector{fsm: fsm}
}

// Run polls the session store every 10 seconds until ctx is cancelled.
func (c *SessionCollector) Run(ctx context.Context) {
	if c == nil || c.fsm == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	for {
		_ = c.collect(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(10 * time.Second):
		}
	}
}

func (c *SessionCollector) collect(ctx context.Context) error {
	states, err := c.fsm.GetAllStates(ctx)
	if err != nil {
		return err
	}

	stateCounts := make(map[string]int, len(states))
	open := 0
	for _, st := range states {
		if st == nil || st.CurrentState == "" || st.CurrentState == state.StateIdle {
			continue
		}
		stateCounts[string(st.CurrentState)]++
		open++
	}

	activeSessions.Set(float64(open))

	sessionsByState.Reset()

	for _, tracked := range trackedStates {
		label := string(tracked)
		sessionsByState.WithLabelValues(label).Set(float64(stateCounts[label]))
		delete(stateCounts, label)
	}

	for label, count := range stateCounts {
		sessionsByState.WithLabelValues(label).Set(float64(count))
	}

	return nil
}
