package middleware

import (
	"github.com/keshon/appcmd/pkg/appcmd"
	"github.com/rs/zerolog"
)

// ToggleCommand is never disabled so that commands can be turned back on.
const ToggleCommand = "commands"

// WithDisabledCheck refuses commands that were disabled for the guild.
// Storage errors let the command through.
func WithDisabledCheck(store DisabledChecker, log zerolog.Logger) appcmd.Middleware {
	return func(next appcmd.HandlerFunc) appcmd.HandlerFunc {
		return func(ic *appcmd.InteractionContext) error {
			guildID := ic.GuildID()
			name := ic.Command().Root().Name()
			if guildID == "" || name == ToggleCommand {
				return next(ic)
			}

			disabled, err := store.IsCommandDisabled(guildID, name)
			if err != nil {
				log.Warn().Err(err).Str("guild", guildID).Str("command", name).Msg("failed to check disabled commands")
				return next(ic)
			}
			if disabled {
				return ic.ReplyEmbed(deny("This command is disabled on this server.\nUse `/commands status` to check which commands are disabled."), true)
			}
			return next(ic)
		}
	}
}
