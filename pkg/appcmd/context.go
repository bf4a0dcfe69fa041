package appcmd

import (
	"context"
	"fmt"
	"reflect"
	"sync/atomic"

	"github.com/bwmarrin/discordgo"
	"github.com/rs/zerolog"
)

// Responder sends interaction responses and channel messages.
type Responder interface {
	Respond(ctx context.Context, i *discordgo.Interaction, resp *discordgo.InteractionResponse) error
	EditResponse(ctx context.Context, i *discordgo.Interaction, edit *discordgo.WebhookEdit) (*discordgo.Message, error)
	Followup(ctx context.Context, i *discordgo.Interaction, params *discordgo.WebhookParams) (*discordgo.Message, error)
	SendMessage(ctx context.Context, channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error)
}

// InteractionContext is handed to every handler. A context belongs to one
// interaction and runs at most one command.
type InteractionContext struct {
	Interaction *discordgo.Interaction

	ctx         context.Context
	responder   Responder
	resolver    EntityResolver
	middlewares []Middleware
	log         zerolog.Logger

	command   atomic.Pointer[Command]
	invoked   atomic.Bool
	responded atomic.Bool
}

func newInteractionContext(ctx context.Context, i *discordgo.Interaction, d *Dispatcher) *InteractionContext {
	return &InteractionContext{
		Interaction: i,
		ctx:         ctx,
		responder:   d.responder,
		resolver:    d.resolver,
		middlewares: d.chain(),
		log:         d.log,
	}
}

// Context returns the context the interaction is handled under.
func (ic *InteractionContext) Context() context.Context { return ic.ctx }

// Command returns the invoked command, or nil before Invoke.
func (ic *InteractionContext) Command() *Command { return ic.command.Load() }

// Logger returns a logger annotated with the interaction.
func (ic *InteractionContext) Logger() *zerolog.Logger { return &ic.log }

func (ic *InteractionContext) ID() string        { return ic.Interaction.ID }
func (ic *InteractionContext) Token() string     { return ic.Interaction.Token }
func (ic *InteractionContext) GuildID() string   { return ic.Interaction.GuildID }
func (ic *InteractionContext) ChannelID() string { return ic.Interaction.ChannelID }
func (ic *InteractionContext) Locale() string    { return string(ic.Interaction.Locale) }

// Member is nil outside guilds.
func (ic *InteractionContext) Member() *discordgo.Member { return ic.Interaction.Member }

// User returns the invoking user in guilds and DMs alike.
func (ic *InteractionContext) User() *discordgo.User {
	if m := ic.Interaction.Member; m != nil && m.User != nil {
		return m.User
	}
	return ic.Interaction.User
}

// Responded reports whether the interaction has been answered or deferred.
func (ic *InteractionContext) Responded() bool { return ic.responded.Load() }

// Invoke runs cmd with arguments decoded from the interaction. A second call
// returns ErrAlreadyInvoked without running anything.
func (ic *InteractionContext) Invoke(cmd *Command) error {
	if !ic.invoked.CompareAndSwap(false, true) {
		return ErrAlreadyInvoked
	}
	ic.command.Store(cmd)
	ic.log = ic.log.With().Str("command", cmd.FullName()).Logger()

	h := Chain(func(ic *InteractionContext) error {
		return ic.call(cmd)
	}, ic.middlewares...)
	return h(ic)
}

func (ic *InteractionContext) call(cmd *Command) error {
	if cmd.handler == nil {
		return fmt.Errorf("%s has no handler", cmd)
	}
	fn, recv, err := ic.callable(cmd)
	if err != nil {
		return err
	}

	in := make([]reflect.Value, 0, 3)
	if recv.IsValid() {
		in = append(in, recv)
	}
	in = append(in, reflect.ValueOf(ic))

	if cmd.handler.arg != nil {
		var arg reflect.Value
		switch cmd.kind {
		case KindSlash:
			arg, err = ic.decodeArgs(cmd.args)
		case KindUser:
			var t *UserTarget
			t, err = ic.userTarget()
			arg = reflect.ValueOf(t)
		case KindMessage:
			var m *discordgo.Message
			m, err = ic.messageTarget()
			arg = reflect.ValueOf(m)
		}
		if err != nil {
			return fmt.Errorf("%s: %w", cmd, err)
		}
		in = append(in, arg)
	}

	out := fn.Call(in)
	if err, _ := out[0].Interface().(error); err != nil {
		return err
	}
	return nil
}

// callable returns the function to call and, for method expressions, the
// receiver to pass. Extension handlers are looked up by name on the live
// extension so that an outer type's method wins over an embedded one.
func (ic *InteractionContext) callable(cmd *Command) (reflect.Value, reflect.Value, error) {
	h := cmd.handler
	if h.recv == nil {
		return h.fn, reflect.Value{}, nil
	}

	ext := cmd.Extension()
	if ext == nil {
		return reflect.Value{}, reflect.Value{}, fmt.Errorf("%s: method handler without an extension", cmd)
	}
	ev := reflect.ValueOf(ext)
	if h.method != "" {
		if m := ev.MethodByName(h.method); m.IsValid() && m.Type().NumIn() == h.fn.Type().NumIn()-1 {
			return m, reflect.Value{}, nil
		}
	}
	if !ev.Type().AssignableTo(h.recv) {
		return reflect.Value{}, reflect.Value{}, fmt.Errorf("%s: extension %T is not a %s", cmd, ext, h.recv)
	}
	return h.fn, ev, nil
}

// Respond answers the interaction.
func (ic *InteractionContext) Respond(data *discordgo.InteractionResponseData) error {
	err := ic.responder.Respond(ic.ctx, ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: data,
	})
	if err != nil {
		return err
	}
	ic.responded.Store(true)
	return nil
}

// Reply answers the interaction with a text message.
func (ic *InteractionContext) Reply(content string) error {
	return ic.Respond(&discordgo.InteractionResponseData{Content: content})
}

// ReplyEphemeral answers with a message only the invoking user sees.
func (ic *InteractionContext) ReplyEphemeral(content string) error {
	return ic.Respond(&discordgo.InteractionResponseData{
		Content: content,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
}

// ReplyEmbed answers with a single embed.
func (ic *InteractionContext) ReplyEmbed(embed *discordgo.MessageEmbed, ephemeral bool) error {
	data := &discordgo.InteractionResponseData{Embeds: []*discordgo.MessageEmbed{embed}}
	if ephemeral {
		data.Flags = discordgo.MessageFlagsEphemeral
	}
	return ic.Respond(data)
}

// Defer acknowledges the interaction; the answer follows via Edit or Followup.
func (ic *InteractionContext) Defer(ephemeral bool) error {
	resp := &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
	}
	if ephemeral {
		resp.Data = &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral}
	}
	if err := ic.responder.Respond(ic.ctx, ic.Interaction, resp); err != nil {
		return err
	}
	ic.responded.Store(true)
	return nil
}

// Send answers the interaction if it has not been answered yet and posts a
// plain channel message otherwise.
func (ic *InteractionContext) Send(content string) error {
	if !ic.Responded() {
		return ic.Reply(content)
	}
	_, err := ic.responder.SendMessage(ic.ctx, ic.ChannelID(), &discordgo.MessageSend{Content: content})
	return err
}

// Followup posts an additional message after the interaction was answered.
func (ic *InteractionContext) Followup(params *discordgo.WebhookParams) (*discordgo.Message, error) {
	return ic.responder.Followup(ic.ctx, ic.Interaction, params)
}

// Edit changes the original response.
func (ic *InteractionContext) Edit(edit *discordgo.WebhookEdit) (*discordgo.Message, error) {
	return ic.responder.EditResponse(ic.ctx, ic.Interaction, edit)
}

// EditContent replaces the text of the original response.
func (ic *InteractionContext) EditContent(content string) error {
	_, err := ic.Edit(&discordgo.WebhookEdit{Content: &content})
	return err
}
