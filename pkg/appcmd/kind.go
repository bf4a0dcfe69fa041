package appcmd

import "github.com/bwmarrin/discordgo"

// Kind is the type of an application command.
type Kind int

const (
	KindSlash   = Kind(discordgo.ChatApplicationCommand)
	KindUser    = Kind(discordgo.UserApplicationCommand)
	KindMessage = Kind(discordgo.MessageApplicationCommand)
)

func (k Kind) String() string {
	switch k {
	case KindSlash:
		return "slash"
	case KindUser:
		return "user"
	case KindMessage:
		return "message"
	}
	return "unknown"
}

// ApplicationCommandType returns the discordgo wire value for k.
func (k Kind) ApplicationCommandType() discordgo.ApplicationCommandType {
	return discordgo.ApplicationCommandType(k)
}

// OptionType mirrors discordgo's option types.
type OptionType = discordgo.ApplicationCommandOptionType

const (
	OptionSubCommand      = discordgo.ApplicationCommandOptionSubCommand
	OptionSubCommandGroup = discordgo.ApplicationCommandOptionSubCommandGroup
	OptionString          = discordgo.ApplicationCommandOptionString
	OptionInteger         = discordgo.ApplicationCommandOptionInteger
	OptionBoolean         = discordgo.ApplicationCommandOptionBoolean
	OptionUser            = discordgo.ApplicationCommandOptionUser
	OptionChannel         = discordgo.ApplicationCommandOptionChannel
	OptionRole            = discordgo.ApplicationCommandOptionRole
	OptionMentionable     = discordgo.ApplicationCommandOptionMentionable
	OptionNumber          = discordgo.ApplicationCommandOptionNumber
	OptionAttachment      = discordgo.ApplicationCommandOptionAttachment
)
