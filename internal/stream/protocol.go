package stream

import (
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/Faultbox/terrasync/internal/control"
	"github.com/Faultbox/terrasync/internal/edit"
	"github.com/Faultbox/terrasync/internal/heightfield"
	"github.com/Faultbox/terrasync/internal/terrain"
)

// Message types.
const (
	TypeHello   = "hello"
	TypePatches = "patches"
	TypeAck     = "ack"
	TypeError   = "error"

	TypeBrush  = "brush"
	TypeCommit = "commit"
	TypeUndo   = "undo"
	TypeRedo   = "redo"
)

// HelloMsg is the first message sent on a new connection.
type HelloMsg struct {
	Type       string `json:"type"`
	SessionID  string `json:"session_id"`
	Rows       int    `json:"rows"`
	Cols       int    `json:"cols"`
	Generation uint64 `json:"generation"`
}

// PatchesMsg carries one patch set.
type PatchesMsg struct {
	Type       string             `json:"type"`
	SessionID  string             `json:"session_id"`
	Generation uint64             `json:"generation"`
	Patches    []*terrain.Patch   `json:"patches"`
	Failed     []heightfield.Rect `json:"failed,omitempty"`
}

// AckMsg confirms a command. Rect is the area the command touched.
type AckMsg struct {
	Type    string            `json:"type"`
	Command string            `json:"command"`
	Rect    *heightfield.Rect `json:"rect,omitempty"`
}

// ErrorMsg reports a rejected command.
type ErrorMsg struct {
	Type    string `json:"type"`
	Command string `json:"command,omitempty"`
	Message string `json:"message"`
}

// CommandMsg is any inbound command. Brush fields are only read for
// TypeBrush.
type CommandMsg struct {
	Type      string            `json:"type"`
	Kind      string            `json:"kind,omitempty"`
	Row       int               `json:"row,omitempty"`
	Col       int               `json:"col,omitempty"`
	Radius    float64           `json:"radius,omitempty"`
	Strength  float64           `json:"strength,omitempty"`
	Mode      string            `json:"mode,omitempty"`
	Falloff   string            `json:"falloff,omitempty"`
	Area      *heightfield.Rect `json:"area,omitempty"`
	Frequency float64           `json:"frequency,omitempty"`
	Seed      uint32            `json:"seed,omitempty"`
}

//go:embed command.schema.json
var commandSchemaJSON string

var commandSchema = jsonschema.MustCompileString("command.schema.json", commandSchemaJSON)

// DecodeCommand validates raw against the command schema and decodes it.
func DecodeCommand(raw []byte) (CommandMsg, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return CommandMsg{}, fmt.Errorf("decoding command: %w", err)
	}
	if err := commandSchema.Validate(doc); err != nil {
		return CommandMsg{}, fmt.Errorf("invalid command: %w", err)
	}
	var cmd CommandMsg
	if err := json.Unmarshal(raw, &cmd); err != nil {
		return CommandMsg{}, fmt.Errorf("decoding command: %w", err)
	}
	return cmd, nil
}

// Brush converts a brush command to an edit.Brush.
func (c CommandMsg) Brush() (edit.Brush, error) {
	if c.Type != TypeBrush {
		return edit.Brush{}, fmt.Errorf("%w: %q is not a brush command", edit.ErrInvalidBrush, c.Type)
	}
	kind, err := edit.ParseKind(c.Kind)
	if err != nil {
		return edit.Brush{}, err
	}
	mode, err := edit.ParseMode(c.Mode)
	if err != nil {
		return edit.Brush{}, err
	}
	falloff, err := edit.ParseFalloff(c.Falloff)
	if err != nil {
		return edit.Brush{}, err
	}

	switch kind {
	case edit.KindFill:
		if c.Area == nil {
			return edit.Brush{}, fmt.Errorf("%w: fill without area", edit.ErrInvalidBrush)
		}
		return edit.Fill(*c.Area, c.Strength, mode), nil
	case edit.KindStamp:
		return edit.Stamp(c.Row, c.Col, c.Radius, c.Strength, c.Frequency, c.Seed), nil
	default:
		return edit.Radial(c.Row, c.Col, c.Radius, c.Strength, mode, falloff), nil
	}
}

func patchesMsg(set control.PatchSet) PatchesMsg {
	return PatchesMsg{
		Type:       TypePatches,
		SessionID:  set.SessionID,
		Generation: set.Generation,
		Patches:    set.Patches,
		Failed:     set.Failed,
	}
}
