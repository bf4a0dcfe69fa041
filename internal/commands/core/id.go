package core

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/keshon/appcmd/pkg/appcmd"
)

type idArgs struct {
	User *discordgo.User `description:"User to inspect"`
}

func (c *Core) UserID(ic *appcmd.InteractionContext, args idArgs) error {
	return ic.ReplyEphemeral(fmt.Sprintf("%s: `%s`", args.User.Username, args.User.ID))
}

func (c *Core) TargetID(ic *appcmd.InteractionContext, target *appcmd.UserTarget) error {
	name := target.User.Username
	if target.Member != nil && target.Member.Nick != "" {
		name = target.Member.Nick
	}
	return ic.ReplyEphemeral(fmt.Sprintf("%s: `%s`", name, target.ID()))
}

func (c *Core) MessageID(ic *appcmd.InteractionContext, msg *discordgo.Message) error {
	return ic.ReplyEphemeral(fmt.Sprintf("Message `%s` in channel `%s`", msg.ID, msg.ChannelID))
}
