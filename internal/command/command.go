// Package command implements the decision logic behind the configuration
// commands: authorize, validate, mutate, persist, report. It owns no
// transport; the Discord adapter feeds it requests and delivers its
// responses.
package command

import (
	"log/slog"
	"sync"

	"github.com/pesterhq/pester/internal/confirm"
	"github.com/pesterhq/pester/internal/state"
)

// Outcome classifies how a command ended, for metrics and logs.
type Outcome string

const (
	OutcomeOK             Outcome = "ok"
	OutcomeDenied         Outcome = "denied"
	OutcomeRejected       Outcome = "rejected"
	OutcomeConfirmPending Outcome = "confirm_pending"
	OutcomeSaveFailed     Outcome = "save_failed"
)

// Request carries one inbound configuration command.
type Request struct {
	Guild state.GuildID
	Actor state.UserID
	// Owner is the guild owner as reported by the platform, or zero when it
	// could not be resolved.
	Owner state.UserID

	// TargetUser is the user argument of admin and target commands.
	TargetUser  state.UserID
	TargetIsBot bool

	// Text is the setmessage argument.
	Text string
}

// Response is the actor-facing result. Private responses map to ephemeral
// replies, visible only to the invoker.
type Response struct {
	Text    string
	Private bool
}

// Saver persists the live document after a mutation.
type Saver interface {
	Save(doc state.Document) error
}

// Handler orchestrates all configuration commands against the shared state.
// The gateway dispatches events on separate goroutines, so every entry point
// serializes behind one mutex around the full authorize-mutate-persist
// sequence.
type Handler struct {
	mu       sync.Mutex
	accessor *state.Accessor
	saver    Saver
	confirms *confirm.Tracker
	logger   *slog.Logger
	observe  func(command string, outcome Outcome)
}

type HandlerOption func(*Handler)

// WithObserve installs a callback invoked once per handled command.
func WithObserve(observe func(command string, outcome Outcome)) HandlerOption {
	return func(h *Handler) {
		h.observe = observe
	}
}

func NewHandler(accessor *state.Accessor, saver Saver, confirms *confirm.Tracker, logger *slog.Logger, opts ...HandlerOption) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Handler{
		accessor: accessor,
		saver:    saver,
		confirms: confirms,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ReloadDocument swaps in a freshly loaded document, for SIGHUP and watch
// driven reloads.
func (h *Handler) ReloadDocument(doc state.Document) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.accessor.ReplaceDocument(doc)
}

func (h *Handler) done(command string, guild state.GuildID, outcome Outcome, resp Response) Response {
	if h.observe != nil {
		h.observe(command, outcome)
	}
	h.logger.Debug("command_handled",
		slog.String("command", command),
		slog.String("guild", guild.Key()),
		slog.String("outcome", string(outcome)),
	)
	return resp
}

// save persists the live document and logs a failure with its cause. The
// in-memory mutation is deliberately left applied: the divergence is
// surfaced to the actor and converges on the next successful save.
func (h *Handler) save(command string, guild state.GuildID) error {
	err := h.saver.Save(h.accessor.Document())
	if err != nil {
		h.logger.Error("command_save_failed",
			slog.String("command", command),
			slog.String("guild", guild.Key()),
			slog.Any("err", err),
		)
	}
	return err
}

func private(text string) Response {
	return Response{Text: text, Private: true}
}
