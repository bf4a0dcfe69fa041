package appcmd

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/bwmarrin/discordgo"
)

// Struct tags read from argument fields.
const (
	tagName        = "name"
	tagDescription = "description"
	tagChoices     = "choices"
	tagDefault     = "default"
)

type fieldMode int

const (
	modePlain fieldMode = iota
	modePointer
	modeOptional
)

type argField struct {
	index  []int
	goName string
	mode   fieldMode
	elem   reflect.Type
	option Option

	hasDefault bool
	def        string
}

type argSpec struct {
	typ    reflect.Type
	ptr    bool
	fields []argField
}

func (s *argSpec) options() []Option {
	out := make([]Option, len(s.fields))
	for i, f := range s.fields {
		out[i] = f.option
	}
	return out
}

var (
	userPtrType        = reflect.TypeOf((*discordgo.User)(nil))
	memberPtrType      = reflect.TypeOf((*discordgo.Member)(nil))
	channelPtrType     = reflect.TypeOf((*discordgo.Channel)(nil))
	rolePtrType        = reflect.TypeOf((*discordgo.Role)(nil))
	attachmentPtrType  = reflect.TypeOf((*discordgo.MessageAttachment)(nil))
	mentionablePtrType = reflect.TypeOf((*Mentionable)(nil))
	textUnmarshalType  = reflect.TypeOf((*encoding.TextUnmarshaler)(nil)).Elem()
)

// optionTypeOf maps a Go type to an option type. Types decoded through
// encoding.TextUnmarshaler are sent as strings.
func optionTypeOf(t reflect.Type) OptionType {
	switch t {
	case userPtrType, memberPtrType:
		return OptionUser
	case channelPtrType:
		return OptionChannel
	case rolePtrType:
		return OptionRole
	case mentionablePtrType:
		return OptionMentionable
	case attachmentPtrType:
		return OptionAttachment
	}
	switch t.Kind() {
	case reflect.String:
		return OptionString
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return OptionInteger
	case reflect.Bool:
		return OptionBoolean
	case reflect.Float32, reflect.Float64:
		return OptionNumber
	}
	return OptionString
}

func isScalar(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.String, reflect.Bool, reflect.Float32, reflect.Float64,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	}
	return false
}

// decodable reports whether an option value can be decoded into t.
func decodable(t reflect.Type) bool {
	switch t {
	case userPtrType, memberPtrType, channelPtrType, rolePtrType, mentionablePtrType, attachmentPtrType:
		return true
	}
	return isScalar(t) || reflect.PointerTo(t).Implements(textUnmarshalType)
}

// inferArgs builds the option list from the exported fields of the handler's
// argument struct, in declaration order.
func inferArgs(t reflect.Type, overrides map[string]Option) (*argSpec, error) {
	spec := &argSpec{typ: t}
	if t.Kind() == reflect.Pointer {
		spec.ptr = true
		t = t.Elem()
		spec.typ = t
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("%w: argument must be a struct, got %s", ErrHandlerSignature, t)
	}

	seen := make(map[string]bool)
	for _, sf := range reflect.VisibleFields(t) {
		if !sf.IsExported() || sf.Anonymous {
			continue
		}
		name := sf.Tag.Get(tagName)
		if name == "-" {
			continue
		}
		if name == "" {
			name = snakeCase(sf.Name)
		}
		if seen[name] {
			return nil, fmt.Errorf("%w: duplicate option %q", ErrInvalidName, name)
		}
		seen[name] = true

		f := argField{index: sf.Index, goName: sf.Name, elem: sf.Type}
		required := true
		switch {
		case reflect.PointerTo(sf.Type).Implements(optionalFieldType):
			f.mode = modeOptional
			f.elem = reflect.New(sf.Type).Interface().(optionalField).elemType()
			required = false
		case sf.Type.Kind() == reflect.Pointer && isScalar(sf.Type.Elem()):
			f.mode = modePointer
			f.elem = sf.Type.Elem()
			required = false
		}
		if !decodable(f.elem) {
			return nil, fmt.Errorf("%w: field %s has unsupported type %s", ErrHandlerSignature, sf.Name, f.elem)
		}
		f.def, f.hasDefault = sf.Tag.Lookup(tagDefault)
		if f.hasDefault {
			required = false
		}

		o := Option{
			Name:        name,
			Description: sf.Tag.Get(tagDescription),
			Type:        optionTypeOf(f.elem),
			Required:    required,
		}
		if o.Description == "" {
			o.Description = defaultDescription
		}
		if raw := sf.Tag.Get(tagChoices); raw != "" {
			choices, err := parseChoices(raw, o.Type)
			if err != nil {
				return nil, fmt.Errorf("option %q: %w", name, err)
			}
			o.Choices = choices
		}
		if ov, ok := overrides[sf.Name]; ok {
			o = ov
		} else if ov, ok := overrides[name]; ok {
			o = ov
		}
		o.Name = name
		f.option = o

		spec.fields = append(spec.fields, f)
	}
	return spec, nil
}

// parseChoices reads "a,b" or "Small=1,Large=10" style choice lists.
func parseChoices(raw string, t OptionType) ([]Choice, error) {
	var out []Choice
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, value, found := strings.Cut(part, "=")
		if !found {
			value = name
		}
		v, err := parseChoiceValue(value, t)
		if err != nil {
			return nil, err
		}
		out = append(out, Choice{Name: name, Value: v})
	}
	return out, nil
}

func parseChoiceValue(s string, t OptionType) (any, error) {
	switch t {
	case OptionInteger:
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("choice %q: %w", s, err)
		}
		return n, nil
	case OptionNumber:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("choice %q: %w", s, err)
		}
		return n, nil
	}
	return s, nil
}

// snakeCase turns "TargetUserID" into "target_user_id".
func snakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			if i > 0 {
				prev := runes[i-1]
				nextLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
				if unicode.IsLower(prev) || unicode.IsDigit(prev) || (unicode.IsUpper(prev) && nextLower) {
					b.WriteByte('_')
				}
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// convertScalar converts a decoded option value or a default tag into t.
func convertScalar(raw any, t reflect.Type) (reflect.Value, error) {
	v := reflect.New(t).Elem()

	if s, ok := raw.(string); ok {
		if reflect.PointerTo(t).Implements(textUnmarshalType) {
			err := v.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s))
			return v, err
		}
		if t.Kind() != reflect.String {
			return parseScalar(s, t)
		}
	}

	switch t.Kind() {
	case reflect.String:
		s, ok := raw.(string)
		if !ok {
			s = fmt.Sprint(raw)
		}
		v.SetString(s)
	case reflect.Bool:
		b, ok := raw.(bool)
		if !ok {
			return v, fmt.Errorf("expected bool, got %T", raw)
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toFloat(raw)
		if err != nil {
			return v, err
		}
		v.SetInt(int64(n))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := toFloat(raw)
		if err != nil {
			return v, err
		}
		if n < 0 {
			return v, fmt.Errorf("negative value %v for %s", n, t)
		}
		v.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		n, err := toFloat(raw)
		if err != nil {
			return v, err
		}
		v.SetFloat(n)
	default:
		rv := reflect.ValueOf(raw)
		if !rv.IsValid() || !rv.Type().AssignableTo(t) {
			return v, fmt.Errorf("cannot use %T as %s", raw, t)
		}
		v.Set(rv)
	}
	return v, nil
}

func parseScalar(s string, t reflect.Type) (reflect.Value, error) {
	v := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Bool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return v, err
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(s, 10, t.Bits())
		if err != nil {
			return v, err
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(s, 10, t.Bits())
		if err != nil {
			return v, err
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		n, err := strconv.ParseFloat(s, t.Bits())
		if err != nil {
			return v, err
		}
		v.SetFloat(n)
	default:
		return v, fmt.Errorf("cannot parse %q as %s", s, t)
	}
	return v, nil
}

func toFloat(raw any) (float64, error) {
	switch n := raw.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int32:
		return float64(n), nil
	}
	return 0, fmt.Errorf("expected number, got %T", raw)
}
