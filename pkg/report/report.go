// Package report connects the analytics client to the bot host: it sends
// the host identity once at startup and tracks every user command.
package report

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/pagermaid/analytics/pkg/hooks"
	"github.com/pagermaid/analytics/pkg/userconfig"
)

// Identity is the account the host runs as.
type Identity struct {
	ID        int64
	FirstName string
	// Username is optional.
	Username string
}

// IdentityProvider looks up the host account.
type IdentityProvider interface {
	Me(ctx context.Context) (Identity, error)
}

// IdentityFunc adapts a function to IdentityProvider.
type IdentityFunc func(ctx context.Context) (Identity, error)

func (f IdentityFunc) Me(ctx context.Context) (Identity, error) {
	return f(ctx)
}

// Emitter is the part of the analytics client the reporter drives.
type Emitter interface {
	Track(ctx context.Context, distinctID, eventName string, properties map[string]any) error
	PeopleSet(ctx context.Context, distinctID string, properties map[string]any, forceUpdate bool) error
	ProfileSet() bool
}

// Reporter emits the host's analytics. When the configuration is not
// active every method returns immediately and the emitter is never used.
type Reporter struct {
	settings userconfig.Analytics
	emitter  Emitter
	identity IdentityProvider
	logger   *slog.Logger

	mu   sync.Mutex
	self *Identity
}

func New(settings userconfig.Analytics, emitter Emitter, identity IdentityProvider, logger *slog.Logger) *Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Reporter{
		settings: settings,
		emitter:  emitter,
		identity: identity,
		logger:   logger,
	}
}

// Active reports whether the reporter will emit anything.
func (r *Reporter) Active() bool {
	return r.settings.Active() && r.emitter != nil && r.identity != nil
}

// Register installs the startup and command hooks on reg.
func (r *Reporter) Register(reg *hooks.Registry) error {
	if err := reg.OnStartup("analytics.identify", r.OnStartup); err != nil {
		return err
	}
	return reg.OnCommandPostprocess("analytics.report", r.OnCommand)
}

// OnStartup sends the initial profile update.
func (r *Reporter) OnStartup(ctx context.Context) error {
	return r.SetPeople(ctx, false)
}

// OnCommand makes sure the profile is sent, then tracks the command.
func (r *Reporter) OnCommand(ctx context.Context, inv hooks.Invocation) error {
	if !r.Active() {
		return nil
	}

	if err := r.SetPeople(ctx, false); err != nil {
		return err
	}

	me, err := r.me(ctx)
	if err != nil {
		return err
	}

	senderID := SenderID(inv.Message, me.ID)
	properties := map[string]any{
		"command": inv.Command,
		"bot_id":  me.ID,
	}

	return r.emitter.Track(ctx, strconv.FormatInt(senderID, 10), "Function "+inv.Command, properties)
}

// SetPeople sends the host identity as a profile update. Unless force is
// set, it does nothing once a profile update has been attempted.
func (r *Reporter) SetPeople(ctx context.Context, force bool) error {
	if !r.Active() {
		return nil
	}
	if r.emitter.ProfileSet() && !force {
		return nil
	}

	me, err := r.me(ctx)
	if err != nil {
		return err
	}

	properties := map[string]any{"$first_name": me.FirstName}
	if me.Username != "" {
		properties["username"] = me.Username
	}

	return r.emitter.PeopleSet(ctx, strconv.FormatInt(me.ID, 10), properties, force)
}

// me returns the cached host identity, looking it up on first use. Failed
// lookups are not cached.
func (r *Reporter) me(ctx context.Context) (Identity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.self != nil {
		return *r.self, nil
	}

	identity, err := r.identity.Me(ctx)
	if err != nil {
		return Identity{}, fmt.Errorf("looking up host identity: %w", err)
	}
	if identity.ID == 0 {
		return Identity{}, errors.New("host identity has no id")
	}

	r.self = &identity
	r.logger.Debug("Host identity resolved", "id", identity.ID, "has_username", identity.Username != "")
	return identity, nil
}

// SenderID picks the distinct id a command is attributed to. A sender chat
// overrides the sending user; anonymous or channel senders (negative ids)
// on outgoing messages, and messages without any sender, are attributed to
// the host account.
func SenderID(msg hooks.Message, hostID int64) int64 {
	var sender *int64
	if msg.FromUserID != nil {
		sender = msg.FromUserID
	}
	if msg.SenderChatID != nil {
		sender = msg.SenderChatID
	}

	switch {
	case sender == nil:
		return hostID
	case *sender < 0 && msg.Outgoing:
		return hostID
	default:
		return *sender
	}
}
