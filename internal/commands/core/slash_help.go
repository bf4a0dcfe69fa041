package core

import (
	"fmt"
	"sort"
	"strings"

	"github.com/keshon/appcmd/pkg/appcmd"
)

type helpArgs struct {
	Command appcmd.Optional[string] `description:"Command to describe, e.g. docs search"`
}

func (c *Core) Help(ic *appcmd.InteractionContext, args helpArgs) error {
	if name, ok := args.Command.Get(); ok {
		name = strings.TrimSpace(strings.TrimPrefix(name, "/"))
		cmd, found := c.catalog.Lookup(name)
		if !found {
			return ic.ReplyEmbed(embed("", fmt.Sprintf("No command called `/%s`.", name)), true)
		}
		return ic.ReplyEmbed(embed("/"+cmd.FullName(), describe(cmd)), true)
	}
	return ic.ReplyEmbed(embed("Help", buildHelp(c.catalog.Registry().Roots())), true)
}

// buildHelp lists slash commands by full name, then context-menu commands.
func buildHelp(roots []*appcmd.Command) string {
	var slash, menus []string
	for _, root := range roots {
		switch root.Kind() {
		case appcmd.KindSlash:
			for _, cmd := range flatten(root) {
				slash = append(slash, fmt.Sprintf("`/%s` - %s", cmd.FullName(), cmd.Description()))
			}
		case appcmd.KindUser:
			menus = append(menus, fmt.Sprintf("`%s` - user menu", root.Name()))
		case appcmd.KindMessage:
			menus = append(menus, fmt.Sprintf("`%s` - message menu", root.Name()))
		}
	}
	sort.Strings(slash)
	sort.Strings(menus)

	var sb strings.Builder
	sb.WriteString("**Slash commands**\n")
	sb.WriteString(strings.Join(slash, "\n"))
	if len(menus) > 0 {
		sb.WriteString("\n\n**Context menus**\n")
		sb.WriteString(strings.Join(menus, "\n"))
	}
	return sb.String()
}

func flatten(cmd *appcmd.Command) []*appcmd.Command {
	if !cmd.IsGroup() {
		return []*appcmd.Command{cmd}
	}
	var out []*appcmd.Command
	for _, child := range cmd.Children() {
		out = append(out, flatten(child)...)
	}
	return out
}

func describe(cmd *appcmd.Command) string {
	var sb strings.Builder
	sb.WriteString(cmd.Description())
	if cmd.IsGroup() {
		sb.WriteString("\n\n**Subcommands**\n")
		for _, leaf := range flatten(cmd) {
			fmt.Fprintf(&sb, "`/%s` - %s\n", leaf.FullName(), leaf.Description())
		}
		return sb.String()
	}
	if opts := cmd.Options(); len(opts) > 0 {
		sb.WriteString("\n\n**Options**\n")
		for _, o := range opts {
			req := "optional"
			if o.Required {
				req = "required"
			}
			fmt.Fprintf(&sb, "`%s` (%s) - %s\n", o.Name, req, o.Description)
		}
	}
	return sb.String()
}
