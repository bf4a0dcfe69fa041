package appcmd

import (
	"context"
	"fmt"
	"reflect"

	"github.com/bwmarrin/discordgo"
)

// EntityResolver fetches users, members, channels and roles that an
// interaction references but does not carry in its resolved data.
type EntityResolver interface {
	User(ctx context.Context, userID string) (*discordgo.User, error)
	Member(ctx context.Context, guildID, userID string) (*discordgo.Member, error)
	Channel(ctx context.Context, channelID string) (*discordgo.Channel, error)
	Role(ctx context.Context, guildID, roleID string) (*discordgo.Role, error)
	DMChannel(ctx context.Context, userID string) (*discordgo.Channel, error)
}

// leafOptions unwraps subcommand and subcommand group nodes and returns the
// options of the invoked leaf.
func leafOptions(opts []*discordgo.ApplicationCommandInteractionDataOption) []*discordgo.ApplicationCommandInteractionDataOption {
	for len(opts) > 0 {
		t := opts[0].Type
		if t != OptionSubCommand && t != OptionSubCommandGroup {
			break
		}
		opts = opts[0].Options
	}
	return opts
}

// decodeArgs builds the handler's argument struct from the interaction.
func (ic *InteractionContext) decodeArgs(spec *argSpec) (reflect.Value, error) {
	data := ic.Interaction.ApplicationCommandData()

	given := make(map[string]*discordgo.ApplicationCommandInteractionDataOption)
	for _, o := range leafOptions(data.Options) {
		given[o.Name] = o
	}

	ptr := reflect.New(spec.typ)
	dst := ptr.Elem()
	for _, f := range spec.fields {
		field := dst.FieldByIndex(f.index)

		var (
			v   reflect.Value
			err error
		)
		if o, ok := given[f.option.Name]; ok {
			v, err = ic.decodeValue(o, f.elem, data.Resolved)
		} else if f.hasDefault {
			v, err = convertScalar(f.def, f.elem)
		} else {
			continue
		}
		if err != nil {
			return reflect.Value{}, fmt.Errorf("option %q: %w", f.option.Name, err)
		}

		switch f.mode {
		case modePointer:
			p := reflect.New(f.elem)
			p.Elem().Set(v)
			field.Set(p)
		case modeOptional:
			field.Addr().Interface().(optionalField).assign(v)
		default:
			field.Set(v)
		}
	}

	if spec.ptr {
		return ptr, nil
	}
	return dst, nil
}

func (ic *InteractionContext) decodeValue(
	o *discordgo.ApplicationCommandInteractionDataOption,
	t reflect.Type,
	res *discordgo.ApplicationCommandInteractionDataResolved,
) (reflect.Value, error) {
	if res == nil {
		res = &discordgo.ApplicationCommandInteractionDataResolved{}
	}

	var (
		entity any
		err    error
	)
	switch t {
	case userPtrType:
		entity, err = ic.resolveUser(idOf(o), res)
	case memberPtrType:
		entity, err = ic.resolveMember(idOf(o), res)
	case channelPtrType:
		entity, err = ic.resolveChannel(idOf(o), res)
	case rolePtrType:
		entity, err = ic.resolveRole(idOf(o), res)
	case mentionablePtrType:
		entity, err = ic.resolveMentionable(idOf(o), res)
	case attachmentPtrType:
		a, ok := res.Attachments[idOf(o)]
		if !ok {
			return reflect.Value{}, fmt.Errorf("attachment %s not resolved", idOf(o))
		}
		entity = a
	default:
		return convertScalar(o.Value, t)
	}
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(entity), nil
}

func idOf(o *discordgo.ApplicationCommandInteractionDataOption) string {
	s, _ := o.Value.(string)
	return s
}

func (ic *InteractionContext) resolveUser(id string, res *discordgo.ApplicationCommandInteractionDataResolved) (*discordgo.User, error) {
	if u, ok := res.Users[id]; ok {
		return u, nil
	}
	if m, ok := res.Members[id]; ok && m.User != nil {
		return m.User, nil
	}
	return ic.resolver.User(ic.ctx, id)
}

func (ic *InteractionContext) resolveMember(id string, res *discordgo.ApplicationCommandInteractionDataResolved) (*discordgo.Member, error) {
	if m, ok := res.Members[id]; ok {
		// Resolved members come without their user object.
		if m.User == nil {
			m.User = res.Users[id]
		}
		if m.GuildID == "" {
			m.GuildID = ic.GuildID()
		}
		return m, nil
	}
	if ic.GuildID() == "" {
		u, err := ic.resolveUser(id, res)
		if err != nil {
			return nil, err
		}
		return &discordgo.Member{User: u}, nil
	}
	return ic.resolver.Member(ic.ctx, ic.GuildID(), id)
}

func (ic *InteractionContext) resolveChannel(id string, res *discordgo.ApplicationCommandInteractionDataResolved) (*discordgo.Channel, error) {
	if ch, ok := res.Channels[id]; ok {
		return ch, nil
	}
	return ic.resolver.Channel(ic.ctx, id)
}

func (ic *InteractionContext) resolveRole(id string, res *discordgo.ApplicationCommandInteractionDataResolved) (*discordgo.Role, error) {
	if r, ok := res.Roles[id]; ok {
		return r, nil
	}
	return ic.resolver.Role(ic.ctx, ic.GuildID(), id)
}

func (ic *InteractionContext) resolveMentionable(id string, res *discordgo.ApplicationCommandInteractionDataResolved) (*Mentionable, error) {
	if r, ok := res.Roles[id]; ok {
		return &Mentionable{Role: r}, nil
	}
	if m, ok := res.Members[id]; ok {
		if m.User == nil {
			m.User = res.Users[id]
		}
		return &Mentionable{Member: m, User: m.User}, nil
	}
	if u, ok := res.Users[id]; ok {
		return &Mentionable{User: u}, nil
	}
	if ic.GuildID() != "" {
		if r, err := ic.resolver.Role(ic.ctx, ic.GuildID(), id); err == nil {
			return &Mentionable{Role: r}, nil
		}
	}
	u, err := ic.resolver.User(ic.ctx, id)
	if err != nil {
		return nil, err
	}
	return &Mentionable{User: u}, nil
}

// userTarget builds the argument of a user command. A resolved member wins
// over the bare user.
func (ic *InteractionContext) userTarget() (*UserTarget, error) {
	data := ic.Interaction.ApplicationCommandData()
	res := data.Resolved
	if res == nil {
		res = &discordgo.ApplicationCommandInteractionDataResolved{}
	}
	id := data.TargetID

	if m, ok := res.Members[id]; ok {
		if m.User == nil {
			m.User = res.Users[id]
		}
		if m.GuildID == "" {
			m.GuildID = ic.GuildID()
		}
		return &UserTarget{User: m.User, Member: m}, nil
	}
	u, err := ic.resolveUser(id, res)
	if err != nil {
		return nil, fmt.Errorf("resolve target user %s: %w", id, err)
	}
	return &UserTarget{User: u}, nil
}

// messageTarget builds the argument of a message command. When the message's
// channel cannot be found it is re-homed to the author's DM channel.
func (ic *InteractionContext) messageTarget() (*discordgo.Message, error) {
	data := ic.Interaction.ApplicationCommandData()
	var msg *discordgo.Message
	if data.Resolved != nil {
		msg = data.Resolved.Messages[data.TargetID]
	}
	if msg == nil {
		return nil, fmt.Errorf("target message %s not resolved", data.TargetID)
	}
	if msg.GuildID == "" {
		msg.GuildID = ic.GuildID()
	}

	if msg.ChannelID != "" {
		if _, err := ic.resolver.Channel(ic.ctx, msg.ChannelID); err == nil {
			return msg, nil
		}
	}
	if msg.Author == nil {
		return msg, nil
	}
	dm, err := ic.resolver.DMChannel(ic.ctx, msg.Author.ID)
	if err != nil {
		return nil, fmt.Errorf("open dm channel with %s: %w", msg.Author.ID, err)
	}
	msg.ChannelID = dm.ID
	return msg, nil
}
