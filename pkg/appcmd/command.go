package appcmd

import (
	"fmt"
	"reflect"
	"regexp"
	"runtime"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
)

const defaultDescription = "No description."

var slashNamePattern = regexp.MustCompile(`^[-_\p{L}\p{N}]{1,32}$`)

// Command is an application command: a slash command, a subcommand group, a
// subcommand or a context-menu command.
//
// Commands are built once and are immutable afterwards except for the id the
// synchronizer assigns and the permission overlays added before registration.
type Command struct {
	name        string
	description string
	kind        Kind
	scope       Scope
	group       bool
	guildOnly   bool
	memberPerms int64

	parent   *Command
	children []*Command
	ext      Extension

	handler   *handlerInfo
	args      *argSpec
	options   []Option
	explicit  bool
	overrides map[string]Option

	mu    sync.RWMutex
	id    string
	perms []Permission
}

// CommandOption configures a command at construction time.
type CommandOption func(*Command) error

// WithGuilds limits the command to the given guilds.
func WithGuilds(ids ...string) CommandOption {
	return func(c *Command) error {
		c.scope = GuildScope(ids...)
		return nil
	}
}

// WithAllGuilds registers the command in every guild the bot is in.
func WithAllGuilds() CommandOption {
	return func(c *Command) error {
		c.scope = AllGuildsScope()
		return nil
	}
}

// WithScope sets the registration scope.
func WithScope(s Scope) CommandOption {
	return func(c *Command) error {
		c.scope = s
		return nil
	}
}

// WithOptions replaces option inference with an explicit list.
func WithOptions(opts ...Option) CommandOption {
	return func(c *Command) error {
		if c.kind != KindSlash {
			return ErrContextOptions
		}
		c.options = append([]Option(nil), opts...)
		c.explicit = true
		return nil
	}
}

// WithOptionOverride supplies the metadata of the option inferred for field.
// field may be the Go field name or the option name; the option keeps the
// inferred name either way.
func WithOptionOverride(field string, o Option) CommandOption {
	return func(c *Command) error {
		if c.kind != KindSlash {
			return ErrContextOptions
		}
		if c.overrides == nil {
			c.overrides = make(map[string]Option)
		}
		c.overrides[field] = o
		return nil
	}
}

// GuildOnly hides the command in DMs.
func GuildOnly() CommandOption {
	return func(c *Command) error {
		c.guildOnly = true
		return nil
	}
}

// WithMemberPermissions restricts the command to members holding any of the
// given permission bits. The platform hides it from everyone else; the bits
// are also available to access-check middlewares.
func WithMemberPermissions(perms int64) CommandOption {
	return func(c *Command) error {
		c.memberPerms = perms
		return nil
	}
}

// NewSlash declares a slash command. handler is one of
//
//	func(*InteractionContext) error
//	func(*InteractionContext, Args) error
//	func(*Ext, *InteractionContext, Args) error   // method expression, see Extension
//
// where Args is a struct (or pointer to one) whose exported fields become the
// command options.
func NewSlash(name, description string, handler any, opts ...CommandOption) (*Command, error) {
	c, err := newCommand(KindSlash, name, description, handler, opts)
	if err != nil {
		return nil, fmt.Errorf("slash command %q: %w", name, err)
	}
	return c, nil
}

// NewUserCommand declares a user context-menu command. handler takes the
// context and optionally a *UserTarget.
func NewUserCommand(name string, handler any, opts ...CommandOption) (*Command, error) {
	c, err := newCommand(KindUser, name, "", handler, opts)
	if err != nil {
		return nil, fmt.Errorf("user command %q: %w", name, err)
	}
	return c, nil
}

// NewMessageCommand declares a message context-menu command. handler takes
// the context and optionally the target *discordgo.Message.
func NewMessageCommand(name string, handler any, opts ...CommandOption) (*Command, error) {
	c, err := newCommand(KindMessage, name, "", handler, opts)
	if err != nil {
		return nil, fmt.Errorf("message command %q: %w", name, err)
	}
	return c, nil
}

// NewGroup declares a top-level slash command that only holds subcommands.
func NewGroup(name, description string, opts ...CommandOption) (*Command, error) {
	c := &Command{name: name, description: description, kind: KindSlash, group: true}
	if err := c.validate(); err != nil {
		return nil, fmt.Errorf("group %q: %w", name, err)
	}
	if err := c.apply(opts); err != nil {
		return nil, fmt.Errorf("group %q: %w", name, err)
	}
	if c.explicit {
		return nil, fmt.Errorf("group %q: %w", name, ErrContextOptions)
	}
	return c, nil
}

// Subcommand declares a leaf command under the group g.
func (g *Command) Subcommand(name, description string, handler any, opts ...CommandOption) (*Command, error) {
	if !g.group {
		return nil, fmt.Errorf("subcommand %q: %s is not a group", name, g.FullName())
	}
	c, err := newCommand(KindSlash, name, description, handler, opts)
	if err != nil {
		return nil, fmt.Errorf("subcommand %q: %w", name, err)
	}
	c.parent = g
	g.children = append(g.children, c)
	return c, nil
}

// Group declares a nested subcommand group under g. Groups nest two levels
// deep at most.
func (g *Command) Group(name, description string) (*Command, error) {
	if !g.group {
		return nil, fmt.Errorf("group %q: %s is not a group", name, g.FullName())
	}
	if g.parent != nil {
		return nil, fmt.Errorf("group %q: %w", name, ErrGroupDepth)
	}
	c, err := NewGroup(name, description)
	if err != nil {
		return nil, err
	}
	c.parent = g
	g.children = append(g.children, c)
	return c, nil
}

// Must panics if err is non-nil. It is meant for package-level declarations.
func Must(c *Command, err error) *Command {
	if err != nil {
		panic(err)
	}
	return c
}

func newCommand(kind Kind, name, description string, handler any, opts []CommandOption) (*Command, error) {
	h, err := inspectHandler(handler)
	if err != nil {
		return nil, err
	}
	c := &Command{name: name, description: description, kind: kind, handler: h}
	if err := c.validate(); err != nil {
		return nil, err
	}
	if err := c.apply(opts); err != nil {
		return nil, err
	}
	if err := c.bindArgs(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Command) apply(opts []CommandOption) error {
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return err
		}
	}
	return nil
}

func (c *Command) validate() error {
	if c.name == "" {
		return ErrMissingName
	}
	if c.kind != KindSlash {
		if n := utf8.RuneCountInString(c.name); n > 32 {
			return fmt.Errorf("%w: %q is longer than 32 characters", ErrInvalidName, c.name)
		}
		return nil
	}
	if !slashNamePattern.MatchString(c.name) || strings.ToLower(c.name) != c.name {
		return fmt.Errorf("%w: %q", ErrInvalidName, c.name)
	}
	if c.description == "" {
		return ErrMissingDescription
	}
	if utf8.RuneCountInString(c.description) > 100 {
		return fmt.Errorf("%w: description is longer than 100 characters", ErrInvalidDescription)
	}
	return nil
}

// bindArgs checks the handler's argument against the command kind and infers
// the option list for slash commands.
func (c *Command) bindArgs() error {
	arg := c.handler.arg
	switch c.kind {
	case KindUser:
		if arg != nil && arg != userTargetType {
			return fmt.Errorf("%w: user commands receive *appcmd.UserTarget, got %s", ErrHandlerSignature, arg)
		}
	case KindMessage:
		if arg != nil && arg != messageType {
			return fmt.Errorf("%w: message commands receive *discordgo.Message, got %s", ErrHandlerSignature, arg)
		}
	case KindSlash:
		if arg == nil {
			if len(c.overrides) > 0 {
				return fmt.Errorf("%w: option overrides need an argument struct", ErrHandlerSignature)
			}
			return nil
		}
		spec, err := inferArgs(arg, c.overrides)
		if err != nil {
			return err
		}
		c.args = spec
		if !c.explicit {
			c.options = spec.options()
		}
	}
	return nil
}

var (
	contextType    = reflect.TypeOf((*InteractionContext)(nil))
	errorType      = reflect.TypeOf((*error)(nil)).Elem()
	userTargetType = reflect.TypeOf((*UserTarget)(nil))
	messageType    = reflect.TypeOf((*discordgo.Message)(nil))
)

type handlerInfo struct {
	fn     reflect.Value
	recv   reflect.Type
	method string
	arg    reflect.Type
}

func inspectHandler(handler any) (*handlerInfo, error) {
	if handler == nil {
		return nil, ErrHandlerSignature
	}
	if _, ok := handler.(*Command); ok {
		return nil, ErrAlreadyCommand
	}

	v := reflect.ValueOf(handler)
	t := v.Type()
	if t.Kind() != reflect.Func || t.IsVariadic() {
		return nil, ErrHandlerSignature
	}
	if t.NumOut() != 1 || t.Out(0) != errorType {
		return nil, ErrHandlerSignature
	}

	h := &handlerInfo{fn: v}
	in := 0
	if t.NumIn() > 0 && t.In(0) != contextType {
		h.recv = t.In(0)
		h.method = methodName(v)
		in = 1
	}
	if t.NumIn() <= in || t.In(in) != contextType {
		return nil, ErrHandlerSignature
	}
	switch t.NumIn() - in {
	case 1:
	case 2:
		h.arg = t.In(in + 1)
	default:
		return nil, ErrHandlerSignature
	}
	return h, nil
}

// methodName extracts "Hello" from the runtime name of a method expression
// such as "example.com/bot.(*Greeter).Hello".
func methodName(fn reflect.Value) string {
	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return ""
	}
	name := strings.TrimSuffix(f.Name(), "-fm")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}

// Name returns the command's own name, without its parents.
func (c *Command) Name() string { return c.name }

// Description returns the slash command description; it is empty for
// context menu commands.
func (c *Command) Description() string { return c.description }

// Kind reports whether c is a slash, user or message command.
func (c *Command) Kind() Kind { return c.kind }

// IsGroup reports whether c only holds subcommands and cannot be invoked.
func (c *Command) IsGroup() bool { return c.group }

// GuildOnly reports whether the root command refuses DM invocations.
func (c *Command) GuildOnly() bool { return c.Root().guildOnly }

// MemberPermissions returns the permission bits set on the root command.
func (c *Command) MemberPermissions() int64 { return c.Root().memberPerms }

// Parent returns the group c was declared in, or nil for top-level commands.
func (c *Command) Parent() *Command { return c.parent }

// Scope returns the registration scope of the root command.
func (c *Command) Scope() Scope { return c.Root().scope }

// Extension returns the extension that declared the command, if any.
func (c *Command) Extension() Extension { return c.Root().ext }

// Method returns the extension method name the handler resolves to, or "".
func (c *Command) Method() string {
	if c.handler == nil {
		return ""
	}
	return c.handler.method
}

// Root returns the top-level command c belongs to.
func (c *Command) Root() *Command {
	for c.parent != nil {
		c = c.parent
	}
	return c
}

// Children returns the direct subcommands and groups of a group.
func (c *Command) Children() []*Command {
	return append([]*Command(nil), c.children...)
}

// Options returns the slash command options.
func (c *Command) Options() []Option {
	return append([]Option(nil), c.options...)
}

// FullName is the space separated path as users type it, e.g. "docs tags search".
func (c *Command) FullName() string {
	if c.parent == nil {
		return c.name
	}
	return c.parent.FullName() + " " + c.name
}

// ID returns the platform id, or "" before the first registration.
func (c *Command) ID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

// setID stores id unless the command already has one.
func (c *Command) setID(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.id != "" {
		return false
	}
	c.id = id
	return true
}

func (c *Command) clearID() {
	c.mu.Lock()
	c.id = ""
	c.mu.Unlock()
}

// Equal reports whether c and other have the same name and description.
func (c *Command) Equal(other *Command) bool {
	if c == nil || other == nil {
		return c == other
	}
	return c.name == other.name && c.description == other.description
}

func (c *Command) String() string {
	return fmt.Sprintf("%s command %q", c.kind, c.FullName())
}

// leaves walks a group and returns its subcommands keyed by their path
// relative to the group, e.g. "search" or "tags search".
func (c *Command) leaves() map[string]*Command {
	out := make(map[string]*Command)
	for _, child := range c.children {
		if !child.group {
			out[child.name] = child
			continue
		}
		for _, leaf := range child.children {
			out[child.name+" "+leaf.name] = leaf
		}
	}
	return out
}

// ApplicationCommand returns the bulk upsert payload for c. The id is left
// empty; the synchronizer fills it in.
func (c *Command) ApplicationCommand() *discordgo.ApplicationCommand {
	ac := &discordgo.ApplicationCommand{
		Name: c.name,
		Type: c.kind.ApplicationCommandType(),
	}
	if c.kind == KindSlash {
		ac.Description = c.description
		ac.Options = c.wireOptions()
	}
	if c.guildOnly && c.scope.IsGlobal() {
		dm := false
		ac.DMPermission = &dm
	}
	if c.memberPerms != 0 {
		perms := c.memberPerms
		ac.DefaultMemberPermissions = &perms
	}
	return ac
}

func (c *Command) wireOptions() []*discordgo.ApplicationCommandOption {
	if !c.group {
		if len(c.options) == 0 {
			return nil
		}
		out := make([]*discordgo.ApplicationCommandOption, len(c.options))
		for i, o := range c.options {
			out[i] = o.ApplicationCommandOption()
		}
		return out
	}

	out := make([]*discordgo.ApplicationCommandOption, 0, len(c.children))
	for _, child := range c.children {
		t := OptionSubCommand
		if child.group {
			t = OptionSubCommandGroup
		}
		out = append(out, &discordgo.ApplicationCommandOption{
			Type:        t,
			Name:        child.name,
			Description: child.description,
			Options:     child.wireOptions(),
		})
	}
	return out
}
