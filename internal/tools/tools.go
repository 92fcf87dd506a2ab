// Package tools holds the backends the bot answers with once the dialogue
// has settled on an intent: fare estimates, on-duty pharmacies and
// hospitals, services and tours, city information and the contact card.
package tools

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/soyeahso/mrbooky/internal/domain"
	"github.com/soyeahso/mrbooky/internal/logging"
)

// DefaultTimeout bounds a single tool invocation.
const DefaultTimeout = 25 * time.Second

// Request is what a tool gets to work with.
type Request struct {
	SessionID string
	Text      string
	Slots     map[string]string
	Context   []string
	// Extra is a surcharge in euros the fare tool adds to its estimate.
	Extra float64
}

// Slot returns a slot value, "" when absent.
func (r Request) Slot(name string) string {
	if r.Slots == nil {
		return ""
	}
	return r.Slots[name]
}

// Result is a successful tool answer. An empty lookup is still a Result.
type Result struct {
	Reply  string
	MapURL string
	// Slots are values the caller should write back into the session.
	Slots map[string]string
	// Offer tags what the reply proposes to the user.
	Offer domain.Offer
}

// Tool answers one intent.
type Tool interface {
	// Name returns the tool's identifier.
	Name() string

	// Invoke produces the answer. A returned error means the backend could
	// not be used; "nothing found" is a Result, not an error.
	Invoke(ctx context.Context, req Request) (Result, error)
}

// ToolError is a tool failure, as opposed to an empty result.
type ToolError struct {
	Tool string
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("tool %s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error { return e.Err }

// IsTimeout reports whether the tool ran out of time.
func (e *ToolError) IsTimeout() bool {
	return errors.Is(e.Err, context.DeadlineExceeded)
}

// ErrNoTool is returned when no tool serves an intent.
var ErrNoTool = errors.New("no tool registered")

// Dispatcher maps intents to tools and runs them with a deadline.
type Dispatcher struct {
	mu      sync.RWMutex
	tools   map[domain.Intent]Tool
	timeout time.Duration
	log     *logging.Logger
}

// NewDispatcher creates an empty dispatcher. A non-positive timeout means
// DefaultTimeout.
func NewDispatcher(timeout time.Duration, log *logging.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Dispatcher{
		tools:   make(map[domain.Intent]Tool),
		timeout: timeout,
		log:     log.Sub("tools"),
	}
}

// Register binds a tool to an intent.
func (d *Dispatcher) Register(intent domain.Intent, t Tool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tools[intent] = t
}

// Get returns the tool bound to intent.
func (d *Dispatcher) Get(intent domain.Intent) (Tool, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	t, ok := d.tools[intent]
	return t, ok
}

// Names lists "intent=tool" pairs, sorted.
func (d *Dispatcher) Names() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]string, 0, len(d.tools))
	for intent, t := range d.tools {
		out = append(out, intent.Short()+"="+t.Name())
	}
	sort.Strings(out)
	return out
}

// Invoke runs the tool for intent. Any failure comes back as *ToolError.
func (d *Dispatcher) Invoke(ctx context.Context, intent domain.Intent, req Request) (Result, error) {
	t, ok := d.Get(intent)
	if !ok {
		return Result{}, &ToolError{Tool: intent.Short(), Err: ErrNoTool}
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	res, err := t.Invoke(ctx, req)
	ev := d.log.Debug()
	if err != nil {
		ev = d.log.Warn().Err(err)
	}
	ev.Str("tool", t.Name()).Str("session", req.SessionID).Dur("took", time.Since(start)).Msg("tool invoked")

	if err != nil {
		var te *ToolError
		if errors.As(err, &te) {
			return Result{}, te
		}
		return Result{}, &ToolError{Tool: t.Name(), Err: err}
	}
	return res, nil
}

// Func adapts a function to the Tool interface.
type Func struct {
	ToolName string
	Fn       func(ctx context.Context, req Request) (Result, error)
}

func (f Func) Name() string { return f.ToolName }

func (f Func) Invoke(ctx context.Context, req Request) (Result, error) {
	return f.Fn(ctx, req)
}
