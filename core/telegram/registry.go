package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/m3rciful/loginbot/core/logger"

	tele "gopkg.in/telebot.v4"
)

// DefaultNotFoundAck answers callbacks that match no registered prefix.
const DefaultNotFoundAck = "Unsupported action"

// Command describes a slash command.
type Command struct {
	Handler     HandlerFunc
	Description string
	Hidden      bool
	Aliases     []string
}

// Callback binds callback data starting with Prefix to Handler.
// Ack is the short text shown to the user once the handler returns.
type Callback struct {
	Prefix  string
	Handler HandlerFunc
	Ack     string
}

// Registry holds commands, callback routes and the message fallbacks.
type Registry struct {
	mu          sync.RWMutex
	commands    map[string]Command
	callbacks   []Callback
	onContact   HandlerFunc
	onText      HandlerFunc
	notFoundAck string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		commands:    make(map[string]Command),
		notFoundAck: DefaultNotFoundAck,
	}
}

// RegisterCommand adds cmd under name, which must start with a slash.
func (r *Registry) RegisterCommand(name string, cmd Command) error {
	if name == "" || cmd.Handler == nil || cmd.Description == "" {
		logger.Warn(context.Background(), logger.CompWire, "register.command.skip",
			slog.String("name", name), slog.String("reason", "invalid"))
		return errors.New("invalid command registration")
	}
	if !strings.HasPrefix(name, "/") {
		logger.Warn(context.Background(), logger.CompWire, "register.command.skip",
			slog.String("name", name), slog.String("reason", "no_slash_prefix"))
		return fmt.Errorf("command %q must start with /", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.commands[name]; exists {
		logger.Warn(context.Background(), logger.CompWire, "register.command.duplicate", slog.String("name", name))
		return fmt.Errorf("command already registered: %s", name)
	}
	r.commands[name] = cmd
	return nil
}

// LookupCommand resolves name or one of its aliases to the canonical key.
func (r *Registry) LookupCommand(name string) (string, Command, bool) {
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	if cmd, ok := r.commands[name]; ok {
		return name, cmd, true
	}
	for key, cmd := range r.commands {
		for _, alias := range cmd.Aliases {
			if alias == name || "/"+alias == name {
				return key, cmd, true
			}
		}
	}
	return "", Command{}, false
}

// ListCommands returns commands sorted by name, skipping hidden ones when visibleOnly is set.
func (r *Registry) ListCommands(visibleOnly bool) []tele.Command {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]tele.Command, 0, len(r.commands))
	for name, cmd := range r.commands {
		if visibleOnly && cmd.Hidden {
			continue
		}
		list = append(list, tele.Command{Text: strings.TrimPrefix(name, "/"), Description: cmd.Description})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Text < list[j].Text })
	return list
}

// RegisterCallback adds a callback route. Prefixes must be unique.
func (r *Registry) RegisterCallback(cb Callback) error {
	if cb.Prefix == "" || cb.Handler == nil {
		logger.Warn(context.Background(), logger.CompWire, "register.callback.skip",
			slog.String("key", cb.Prefix), slog.Bool("handler_nil", cb.Handler == nil))
		return errors.New("invalid callback registration")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.callbacks {
		if existing.Prefix == cb.Prefix {
			logger.Warn(context.Background(), logger.CompWire, "register.callback.duplicate", slog.String("key", cb.Prefix))
			return fmt.Errorf("callback already registered: %s", cb.Prefix)
		}
	}
	r.callbacks = append(r.callbacks, cb)
	// Longest prefix first so "approve_login_" wins over "approve_".
	sort.SliceStable(r.callbacks, func(i, j int) bool {
		return len(r.callbacks[i].Prefix) > len(r.callbacks[j].Prefix)
	})
	return nil
}

// LookupCallback finds the route whose prefix matches data and returns the remainder.
func (r *Registry) LookupCallback(data string) (Callback, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, cb := range r.callbacks {
		if rest, ok := strings.CutPrefix(data, cb.Prefix); ok {
			return cb, rest, true
		}
	}
	return Callback{}, "", false
}

// ListCallbacks returns registered prefixes sorted alphabetically.
func (r *Registry) ListCallbacks() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.callbacks))
	for _, cb := range r.callbacks {
		out = append(out, cb.Prefix)
	}
	sort.Strings(out)
	return out
}

// SetNotFoundAck replaces the answer for unmatched callbacks.
func (r *Registry) SetNotFoundAck(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notFoundAck = text
}

// NotFoundAck returns the answer for unmatched callbacks.
func (r *Registry) NotFoundAck() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.notFoundAck
}

// SetContactHandler sets the handler for shared contacts.
func (r *Registry) SetContactHandler(h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onContact = h
}

// ContactHandler returns the shared contact handler.
func (r *Registry) ContactHandler() HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.onContact
}

// SetTextHandler sets the handler for free text that is not a command.
func (r *Registry) SetTextHandler(h HandlerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onText = h
}

// TextHandler returns the free text handler.
func (r *Registry) TextHandler() HandlerFunc {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.onText
}

// CommandSetter publishes the command menu. *tele.Bot implements it.
type CommandSetter interface {
	SetCommands(opts ...interface{}) error
}

// InitBotCommands publishes the visible commands to the Telegram command menu.
func InitBotCommands(ctx context.Context, bot CommandSetter, reg *Registry) error {
	cmds := reg.ListCommands(true)
	if len(cmds) == 0 {
		return nil
	}
	if err := bot.SetCommands(cmds); err != nil {
		logger.Error(ctx, logger.CompWire, "register.commands.set_failed", slog.String("err", RedactToken(err.Error())))
		return fmt.Errorf("set commands: %w", err)
	}
	logger.Info(ctx, logger.CompWire, "register.commands",
		slog.Int("count", len(cmds)),
		slog.Int("callbacks", len(reg.ListCallbacks())),
	)
	return nil
}
