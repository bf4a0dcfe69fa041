package appcmd

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog"
)

// HandlerFunc runs a resolved command.
type HandlerFunc func(ic *InteractionContext) error

// Middleware wraps a handler (logging, access checks, recovery).
type Middleware func(next HandlerFunc) HandlerFunc

// Chain applies middlewares around h; the first in the list is the outermost.
func Chain(h HandlerFunc, mws ...Middleware) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

// WithGuildOnly refuses guild-only commands invoked from DMs.
func WithGuildOnly() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ic *InteractionContext) error {
			if ic.Command().GuildOnly() && ic.GuildID() == "" {
				return ic.ReplyEphemeral("This command can only be used in a server.")
			}
			return next(ic)
		}
	}
}

// InvocationRecorder stores a line of command history.
type InvocationRecorder interface {
	RecordInvocation(guildID, channelID, userID, username, command string) error
}

// WithCommandLog logs every invocation and, when rec is non-nil, stores it.
func WithCommandLog(log zerolog.Logger, rec InvocationRecorder) Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ic *InteractionContext) error {
			start := time.Now()
			err := next(ic)

			var userID, username string
			if u := ic.User(); u != nil {
				userID, username = u.ID, u.Username
			}
			name := ic.Command().FullName()

			evt := log.Info()
			if err != nil {
				evt = log.Warn().Err(err)
			}
			evt.Str("command", name).
				Str("guild", ic.GuildID()).
				Str("user", username).
				Dur("took", time.Since(start)).
				Msg("command invoked")

			if rec != nil {
				if e := rec.RecordInvocation(ic.GuildID(), ic.ChannelID(), userID, username, name); e != nil {
					log.Warn().Err(e).Str("command", name).Msg("failed to record command")
				}
			}
			return err
		}
	}
}

// WithRecover turns a panicking handler into an error.
func WithRecover() Middleware {
	return func(next HandlerFunc) HandlerFunc {
		return func(ic *InteractionContext) (err error) {
			defer func() {
				if r := recover(); r != nil {
					ic.log.Error().Bytes("stack", debug.Stack()).Msgf("handler panic: %v", r)
					err = fmt.Errorf("%s panicked: %v", ic.Command(), r)
				}
			}()
			return next(ic)
		}
	}
}
