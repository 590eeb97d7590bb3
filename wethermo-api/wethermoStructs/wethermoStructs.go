package wethermoStructs

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/exp/slices"
)

// HiddenField is reported by the thermostat but never displayed.
const HiddenField = "crono"

// InfoPath is the resource path of the status report.
const InfoPath = "wethermo/info"

type Field struct {
	Name  string
	Value any
}

// StatusReport is the decoded body of GET /wethermo/info.
// Fields keep the order of the JSON document. A repeated key keeps its
// first position and takes the last value.
type StatusReport struct {
	Fields []Field
}

func (r StatusReport) Get(name string) (any, bool) {
	idx := slices.IndexFunc(r.Fields, func(f Field) bool { return f.Name == name })
	if idx == -1 {
		return nil, false
	}
	return r.Fields[idx].Value, true
}

func (r *StatusReport) Set(name string, value any) {
	idx := slices.IndexFunc(r.Fields, func(f Field) bool { return f.Name == name })
	if idx != -1 {
		r.Fields[idx].Value = value
		return
	}
	r.Fields = append(r.Fields, Field{Name: name, Value: value})
}

func (r *StatusReport) UnmarshalJSON(data []byte) error {
	r.Fields = []Field{}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch tok {
	case nil:
		// null body: nothing to show
		return nil
	case json.Delim('{'):
		for dec.More() {
			key, err := dec.Token()
			if err != nil {
				return err
			}
			var value any
			if err := dec.Decode(&value); err != nil {
				return err
			}
			r.Set(key.(string), value)
		}
	case json.Delim('['):
		// arrays are listed by index
		for i := 0; dec.More(); i++ {
			var value any
			if err := dec.Decode(&value); err != nil {
				return err
			}
			r.Set(strconv.Itoa(i), value)
		}
	default:
		return fmt.Errorf("status report must be a json object, got %v", tok)
	}
	_, err = dec.Token()
	return err
}

func (r StatusReport) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.Fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// FormatValue renders a decoded JSON value the way a browser turns it into
// text: 21 -> "21", null -> "null", [1,2] -> "1,2", {} -> "[object Object]".
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return t
	case bool:
		return strconv.FormatBool(t)
	case float64:
		return formatNumber(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return t.String()
		}
		return formatNumber(f)
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			if e != nil {
				parts[i] = FormatValue(e)
			}
		}
		return strings.Join(parts, ",")
	case map[string]any:
		return "[object Object]"
	default:
		return fmt.Sprint(t)
	}
}

func formatNumber(f float64) string {
	if f == 0 {
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e21 || abs < 1e-6 {
		s := strconv.FormatFloat(f, 'e', -1, 64)
		s = strings.Replace(s, "e+0", "e+", 1)
		s = strings.Replace(s, "e-0", "e-", 1)
		return s
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Command is a control request understood by the thermostat.
type Command string

const (
	CommandOff     Command = "off"
	CommandAuto    Command = "auto"
	CommandHeat    Command = "heat"
	CommandDisplay Command = "display"
)

var Commands = []Command{CommandOff, CommandAuto, CommandHeat, CommandDisplay}

var ErrUnknownCommand = errors.New("unknown command")

// ParseCommand accepts the command names exactly as the thermostat spells them.
func ParseCommand(s string) (Command, error) {
	c := Command(s)
	if !slices.Contains(Commands, c) {
		return "", fmt.Errorf("%w: %q", ErrUnknownCommand, s)
	}
	return c, nil
}

func (c Command) Path() string {
	return "wethermo/" + string(c)
}

// ControlAck is the plain text answer of a control endpoint. It is never parsed.
type ControlAck string
