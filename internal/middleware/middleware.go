// Package middleware holds access checks that need the bot's storage or
// configuration. Generic middlewares live in appcmd.
package middleware

import "github.com/bwmarrin/discordgo"

// DisabledChecker reports whether a top-level command is turned off in a
// guild.
type DisabledChecker interface {
	IsCommandDisabled(guildID, name string) (bool, error)
}

func deny(msg string) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{Description: msg}
}
