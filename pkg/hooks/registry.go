package hooks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sync"
)

// Registry holds the hooks registered by host modules.
type Registry struct {
	logger *slog.Logger

	mu      sync.RWMutex
	startup []registeredHook
	command []registeredHook
}

type registeredHook struct {
	hook    Hook
	pattern *regexp.Regexp
}

// matches checks if a command name matches the hook's matcher
func (rh *registeredHook) matches(command string) bool {
	if rh.pattern == nil {
		return true
	}
	return rh.pattern.MatchString(command)
}

func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// OnStartup registers fn to run once at host startup.
func (r *Registry) OnStartup(name string, fn StartupFunc, opts ...Option) error {
	return r.Register(newHook(name, EventStartup, opts, func(h *Hook) { h.Startup = fn }))
}

// OnCommandPostprocess registers fn to run after each matching command.
func (r *Registry) OnCommandPostprocess(name string, fn CommandFunc, opts ...Option) error {
	return r.Register(newHook(name, EventCommandPostprocess, opts, func(h *Hook) { h.Command = fn }))
}

func newHook(name string, event EventType, opts []Option, set func(*Hook)) Hook {
	h := Hook{Name: name, Event: event}
	for _, opt := range opts {
		opt(&h)
	}
	set(&h)
	return h
}

// Register validates and adds a hook.
func (r *Registry) Register(h Hook) error {
	if h.Name == "" {
		return errors.New("hook name cannot be empty")
	}

	rh := registeredHook{hook: h}

	switch h.Event {
	case EventStartup:
		if h.Startup == nil {
			return fmt.Errorf("startup hook %q has no function", h.Name)
		}
	case EventCommandPostprocess:
		if h.Command == nil {
			return fmt.Errorf("command hook %q has no function", h.Name)
		}
		if h.Matcher != "" && h.Matcher != "*" {
			// Compile as regex, case-sensitive
			p, err := regexp.Compile("^(?:" + h.Matcher + ")$")
			if err != nil {
				return fmt.Errorf("invalid matcher for hook %q: %w", h.Name, err)
			}
			rh.pattern = p
		}
	default:
		return fmt.Errorf("unsupported hook event: %s", h.Event)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if h.Event == EventStartup {
		r.startup = append(r.startup, rh)
	} else {
		r.command = append(r.command, rh)
	}
	return nil
}

// RunStartup runs every startup hook. The returned error joins all hook
// failures; it is informational and must not stop the host.
func (r *Registry) RunStartup(ctx context.Context) error {
	r.mu.RLock()
	hooks := append([]registeredHook(nil), r.startup...)
	r.mu.RUnlock()

	return r.run(ctx, EventStartup, hooks, func(ctx context.Context, h Hook) error {
		return h.Startup(ctx)
	})
}

// RunCommandPostprocess runs the command hooks matching inv.Command.
func (r *Registry) RunCommandPostprocess(ctx context.Context, inv Invocation) error {
	r.mu.RLock()
	var hooks []registeredHook
	for _, rh := range r.command {
		if rh.matches(inv.Command) {
			hooks = append(hooks, rh)
		}
	}
	r.mu.RUnlock()

	return r.run(ctx, EventCommandPostprocess, hooks, func(ctx context.Context, h Hook) error {
		return h.Command(ctx, inv)
	})
}

// run executes hooks in parallel, each under its own timeout, and
// aggregates their errors in registration order.
func (r *Registry) run(ctx context.Context, event EventType, hooks []registeredHook, call func(context.Context, Hook) error) error {
	if len(hooks) == 0 {
		return nil
	}

	errs := make([]error, len(hooks))
	var wg sync.WaitGroup

	for i, rh := range hooks {
		wg.Go(func() {
			errs[i] = r.runOne(ctx, rh.hook, call)
		})
	}

	wg.Wait()

	for i, err := range errs {
		if err != nil {
			r.logger.Warn("Hook failed", "event", event, "hook", hooks[i].hook.Name, "error", err)
		}
	}

	return errors.Join(errs...)
}

func (r *Registry) runOne(ctx context.Context, h Hook, call func(context.Context, Hook) error) (err error) {
	timeoutCtx, cancel := context.WithTimeout(ctx, h.GetTimeout())
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("hook %q panicked: %v", h.Name, p)
		}
	}()

	if err := call(timeoutCtx, h); err != nil {
		return fmt.Errorf("hook %q: %w", h.Name, err)
	}
	return nil
}
