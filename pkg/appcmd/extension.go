package appcmd

import (
	"fmt"
	"reflect"
)

// Extension groups related commands, usually with shared state. Handlers can
// be method expressions on the extension type:
//
//	func (g *Greeter) AppCommands() []*appcmd.Command {
//	    return []*appcmd.Command{
//	        appcmd.Must(appcmd.NewSlash("hi", "Say hi", (*Greeter).Hi)),
//	    }
//	}
//
// The method is looked up by name on the live extension when the command
// runs, so a type embedding Greeter and defining its own Hi overrides it.
// An embedding type returns the embedded commands first and its own after.
type Extension interface {
	Name() string
	AppCommands() []*Command
}

type commandKey struct {
	kind Kind
	name string
}

// Collect gathers an extension's commands and binds them to it. When two
// commands share a kind and name the later one wins and takes the later
// position.
func Collect(ext Extension) ([]*Command, error) {
	var out []*Command
	for _, c := range ext.AppCommands() {
		if c == nil {
			continue
		}
		if c.parent != nil {
			return nil, fmt.Errorf("extension %s: %s is a subcommand, add its group instead", ext.Name(), c)
		}
		key := commandKey{c.kind, c.name}
		for i, prev := range out {
			if (commandKey{prev.kind, prev.name}) == key {
				out = append(out[:i], out[i+1:]...)
				break
			}
		}
		if err := checkReceivers(ext, c); err != nil {
			return nil, fmt.Errorf("extension %s: %w", ext.Name(), err)
		}
		c.ext = ext
		out = append(out, c)
	}
	return out, nil
}

// checkReceivers verifies that every method handler in c's tree can be
// called on ext.
func checkReceivers(ext Extension, c *Command) error {
	if h := c.handler; h != nil && h.recv != nil {
		ev := reflect.ValueOf(ext)
		m := ev.MethodByName(h.method)
		if !m.IsValid() && !ev.Type().AssignableTo(h.recv) {
			return fmt.Errorf("%s: handler receiver %s does not match %T", c, h.recv, ext)
		}
	}
	for _, child := range c.children {
		if err := checkReceivers(ext, child); err != nil {
			return err
		}
	}
	return nil
}
