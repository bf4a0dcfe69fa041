package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/keshon/appcmd/internal/middleware"
	"github.com/keshon/appcmd/pkg/appcmd"
)

const (
	discordMaxMessageLength = 2000
	codeLeftBlockWrapper    = "```md"
	codeRightBlockWrapper   = "```"
)

var maxContentLength = discordMaxMessageLength - len(codeLeftBlockWrapper) - len(codeRightBlockWrapper) - 2

func (c *Core) Status(ic *appcmd.InteractionContext) error {
	disabled, err := c.storage.GetDisabledCommands(ic.GuildID())
	if err != nil {
		return fmt.Errorf("fetch disabled commands: %w", err)
	}
	if len(disabled) == 0 {
		return ic.ReplyEmbed(embed("Commands", "All commands are enabled."), true)
	}
	sort.Strings(disabled)
	return ic.ReplyEmbed(embed("Disabled commands", "`/"+strings.Join(disabled, "`\n`/")+"`"), true)
}

type toggleArgs struct {
	Command string `description:"Top-level command name"`
	Enabled bool   `description:"Whether the command can be used"`
}

func (c *Core) Toggle(ic *appcmd.InteractionContext, args toggleArgs) error {
	name := strings.TrimPrefix(strings.TrimSpace(args.Command), "/")
	if name == middleware.ToggleCommand {
		return ic.ReplyEmbed(embed("", "This command cannot be disabled."), true)
	}
	if _, ok := c.catalog.Lookup(name); !ok {
		return ic.ReplyEmbed(embed("", fmt.Sprintf("No command called `/%s`.", name)), true)
	}

	state, toggle := "disabled", c.storage.DisableCommand
	if args.Enabled {
		state, toggle = "enabled", c.storage.EnableCommand
	}
	if err := toggle(ic.GuildID(), name); err != nil {
		return fmt.Errorf("toggle %s: %w", name, err)
	}
	ic.Logger().Info().Str("target", name).Str("state", state).Msg("command toggled")
	return ic.ReplyEmbed(embed("", fmt.Sprintf("`/%s` is now %s on this server.", name, state)), true)
}

func (c *Core) Log(ic *appcmd.InteractionContext) error {
	records, err := c.storage.FetchCommandHistory(ic.GuildID())
	if err != nil {
		return fmt.Errorf("fetch command history: %w", err)
	}
	if len(records) == 0 {
		return ic.ReplyEmbed(embed("", "No command logs found."), true)
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("%-19s\t%-15s\t%s\n", "# Datetime", "# Username", "# Command"))

	// Latest first.
	for i := len(records) - 1; i >= 0; i-- {
		r := records[i]
		line := fmt.Sprintf("%-19s\t%-15s\t/%s\n",
			r.Datetime.Format("2006-01-02 15:04:05"),
			r.Username,
			r.Command,
		)
		if builder.Len()+len(line) > maxContentLength {
			break
		}
		builder.WriteString(line)
	}

	return ic.ReplyEphemeral(codeLeftBlockWrapper + "\n" + builder.String() + codeRightBlockWrapper)
}
