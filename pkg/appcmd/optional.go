package appcmd

import (
	"reflect"

	"github.com/bwmarrin/discordgo"
)

// Optional marks a slash command argument as not required. Set reports
// whether the user supplied it.
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some returns a set Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// Get returns the value and whether it was supplied.
func (o Optional[T]) Get() (T, bool) {
	return o.Value, o.Set
}

// Or returns the value when set and def otherwise.
func (o Optional[T]) Or(def T) T {
	if o.Set {
		return o.Value
	}
	return def
}

func (o *Optional[T]) elemType() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

func (o *Optional[T]) assign(v reflect.Value) {
	o.Value = v.Interface().(T)
	o.Set = true
}

type optionalField interface {
	elemType() reflect.Type
	assign(v reflect.Value)
}

var optionalFieldType = reflect.TypeOf((*optionalField)(nil)).Elem()

// Mentionable is the argument type for MENTIONABLE options: exactly one of
// the fields is set.
type Mentionable struct {
	User   *discordgo.User
	Member *discordgo.Member
	Role   *discordgo.Role
}

// ID returns the id of whatever was mentioned.
func (m *Mentionable) ID() string {
	switch {
	case m == nil:
		return ""
	case m.Role != nil:
		return m.Role.ID
	case m.User != nil:
		return m.User.ID
	case m.Member != nil && m.Member.User != nil:
		return m.Member.User.ID
	}
	return ""
}

// UserTarget is the argument of a user context-menu handler. Member is set
// when the command ran inside a guild.
type UserTarget struct {
	User   *discordgo.User
	Member *discordgo.Member
}

// ID returns the target user's id.
func (t *UserTarget) ID() string {
	if t.Member != nil && t.Member.User != nil {
		return t.Member.User.ID
	}
	if t.User != nil {
		return t.User.ID
	}
	return ""
}
