package app

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/pesterhq/pester/internal/command"
)

// runtimeMetrics owns the process registry. Only pester's own collectors are
// registered; the ops endpoint stays small and stable.
type runtimeMetrics struct {
	registry *prometheus.Registry

	commands            *prometheus.CounterVec
	saves               *prometheus.CounterVec
	saveAttemptFailures prometheus.Counter
	reloads             *prometheus.CounterVec
	autoReplies         prometheus.Counter
	autoReplyFailures   prometheus.Counter
}

func newRuntimeMetrics(pendingConfirmations func() int) *runtimeMetrics {
	m := &runtimeMetrics{
		registry: prometheus.NewRegistry(),
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pester_commands_total",
			Help: "Handled configuration commands by command and outcome.",
		}, []string{"command", "outcome"}),
		saves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pester_state_saves_total",
			Help: "State save results.",
		}, []string{"result"}),
		saveAttemptFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pester_state_save_attempt_failures_total",
			Help: "Individual failed write attempts, including retried ones.",
		}),
		reloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pester_state_reloads_total",
			Help: "State reloads by trigger and result.",
		}, []string{"trigger", "result"}),
		autoReplies: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pester_autoreplies_total",
			Help: "Auto-replies delivered.",
		}),
		autoReplyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pester_autoreply_failures_total",
			Help: "Auto-replies that failed to send.",
		}),
	}
	m.registry.MustRegister(
		m.commands,
		m.saves,
		m.saveAttemptFailures,
		m.reloads,
		m.autoReplies,
		m.autoReplyFailures,
	)
	if pendingConfirmations != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "pester_pending_confirmations",
			Help: "Self-demotion confirmations currently awaiting a second invocation.",
		}, func() float64 {
			return float64(pendingConfirmations())
		}))
	}
	return m
}

func (m *runtimeMetrics) observeCommand(name string, outcome command.Outcome) {
	m.commands.WithLabelValues(name, string(outcome)).Inc()
}

func (m *runtimeMetrics) observeSave(ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.saves.WithLabelValues(result).Inc()
}

func (m *runtimeMetrics) observeSaveAttemptFailure() {
	m.saveAttemptFailures.Inc()
}

func (m *runtimeMetrics) observeReload(trigger string, ok bool) {
	result := "ok"
	if !ok {
		result = "error"
	}
	m.reloads.WithLabelValues(trigger, result).Inc()
}

func (m *runtimeMetrics) observeAutoReply(sent bool) {
	if sent {
		m.autoReplies.Inc()
		return
	}
	m.autoReplyFailures.Inc()
}
