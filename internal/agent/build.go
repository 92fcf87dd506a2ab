package agent

import (
	"github.com/soyeahso/mrbooky/internal/dialog"
	"github.com/soyeahso/mrbooky/internal/hooks"
	"github.com/soyeahso/mrbooky/internal/llm"
	"github.com/soyeahso/mrbooky/internal/logging"
	"github.com/soyeahso/mrbooky/internal/nlp"
	"github.com/soyeahso/mrbooky/internal/session"
	"github.com/soyeahso/mrbooky/internal/store"
	"github.com/soyeahso/mrbooky/internal/tools"
)

// Options assembles a Runner with the built-in dialogue components.
type Options struct {
	Store        store.SessionStore
	Policy       dialog.Policy
	ContextTurns int
	// Areas defaults to nlp.DefaultAreas.
	Areas      []nlp.Area
	Classifier nlp.Classifier
	Tools      *tools.Dispatcher
	Booking    dialog.BookingFlowOptions
	LLM        llm.Client
	Hooks      *hooks.Manager
	Runner     RunnerConfig
}

// New wires the trigger matcher, slot store, resumer, follow-up router,
// booking flow and session lifecycle into a Runner.
func New(opts Options, log *logging.Logger) *Runner {
	if opts.Areas == nil {
		opts.Areas = nlp.DefaultAreas
	}
	if opts.Policy.Budget <= 0 {
		opts.Policy.Budget = dialog.DefaultPolicy().Budget
	}
	if opts.Booking.Now == nil {
		opts.Booking.Now = opts.Runner.Now
	}

	triggers := dialog.NewTriggerMatcher()
	slots := dialog.NewSlotStore(nlp.NewRegexExtractor(opts.Areas, opts.Runner.Now))
	lc := session.NewLifecycle(opts.Store, session.Options{
		Budget:       opts.Policy.Budget,
		ContextTurns: opts.ContextTurns,
		Now:          opts.Runner.Now,
	}, log)

	router := dialog.NewFollowUpRouter(triggers, slots)
	if opts.LLM != nil {
		router.UseLLM(opts.LLM, opts.Runner.Model, log)
	}

	return NewRunner(opts.Runner, Deps{
		Lifecycle:  lc,
		Triggers:   triggers,
		Slots:      slots,
		Resumer:    dialog.NewResumer(triggers, slots, opts.Policy),
		Router:     router,
		Booking:    dialog.NewBookingFlow(opts.Booking, log),
		Classifier: opts.Classifier,
		Tools:      opts.Tools,
		LLM:        opts.LLM,
		Hooks:      opts.Hooks,
	}, log)
}
