package appcmd

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

// Choice is a fixed value an option may take. A choice without a value uses
// its name.
type Choice struct {
	Name  string
	Value any
}

func (c Choice) value() any {
	if c.Value == nil {
		return c.Name
	}
	return c.Value
}

// Option describes one parameter of a slash command.
type Option struct {
	Name        string
	Description string
	Type        OptionType
	Required    bool
	Choices     []Choice
	Value       any
}

// ToDict returns the plain map form of o.
func (o Option) ToDict() map[string]any {
	d := map[string]any{
		"name":        o.Name,
		"description": o.Description,
		"type":        int(o.Type),
		"required":    o.Required,
	}
	if len(o.Choices) > 0 {
		choices := make([]map[string]any, len(o.Choices))
		for i, c := range o.Choices {
			choices[i] = map[string]any{"name": c.Name, "value": c.value()}
		}
		d["choices"] = choices
	}
	if o.Value != nil {
		d["value"] = o.Value
	}
	return d
}

// OptionFromDict is the inverse of Option.ToDict. It also accepts maps decoded
// from JSON, where numbers arrive as float64 and lists as []any.
func OptionFromDict(d map[string]any) (Option, error) {
	var o Option

	name, ok := d["name"].(string)
	if !ok || name == "" {
		return o, fmt.Errorf("option: missing name")
	}
	o.Name = name
	o.Description, _ = d["description"].(string)

	switch t := d["type"].(type) {
	case int:
		o.Type = OptionType(t)
	case float64:
		o.Type = OptionType(int(t))
	case OptionType:
		o.Type = t
	default:
		return o, fmt.Errorf("option %q: invalid type %v", name, d["type"])
	}

	o.Required, _ = d["required"].(bool)
	o.Value = d["value"]

	switch raw := d["choices"].(type) {
	case nil:
	case []map[string]any:
		for _, c := range raw {
			o.Choices = append(o.Choices, choiceFromDict(c))
		}
	case []any:
		for _, item := range raw {
			c, ok := item.(map[string]any)
			if !ok {
				return o, fmt.Errorf("option %q: invalid choice %v", name, item)
			}
			o.Choices = append(o.Choices, choiceFromDict(c))
		}
	default:
		return o, fmt.Errorf("option %q: invalid choices %T", name, raw)
	}

	return o, nil
}

func choiceFromDict(d map[string]any) Choice {
	name, _ := d["name"].(string)
	return Choice{Name: name, Value: d["value"]}
}

// ApplicationCommandOption returns the discordgo wire form of o.
func (o Option) ApplicationCommandOption() *discordgo.ApplicationCommandOption {
	opt := &discordgo.ApplicationCommandOption{
		Type:        o.Type,
		Name:        o.Name,
		Description: o.Description,
		Required:    o.Required,
	}
	for _, c := range o.Choices {
		opt.Choices = append(opt.Choices, &discordgo.ApplicationCommandOptionChoice{
			Name:  c.Name,
			Value: c.value(),
		})
	}
	return opt
}
