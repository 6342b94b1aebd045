package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/matzehuels/ghostcanvas/pkg/source"
)

// Message types.
const (
	TypeInspectionMode       = "inspection-mode"
	TypeFlowModeState        = "flow-mode-state"
	TypeInspectorReady       = "inspector-ready"
	TypeSandboxIdle          = "sandbox-idle"
	TypeElementSelected      = "element-selected"
	TypeSelectionRevalidated = "selection-revalidated"
	TypeFindDropTarget       = "find-drop-target"
	TypeDropTargetFound      = "drop-target-found"
	TypeInsertPlaceholder    = "insert-placeholder"
	TypeRemovePlaceholder    = "remove-placeholder"
	TypeKeyboardEvent        = "keyboard-event"
	TypeNavigationIntent     = "navigation-intent"
	TypeSyncFiles            = "sync-files"
)

// Message is one envelope on a frame channel.
type Message struct {
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage encodes payload into an envelope. A nil payload encodes as {}.
func NewMessage(typ string, payload any) (Message, error) {
	if payload == nil {
		return Message{Type: typ, Payload: json.RawMessage("{}")}, nil
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	return Message{Type: typ, Payload: b}, nil
}

// Decode unmarshals the payload into v.
func (m Message) Decode(v any) error {
	if len(m.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(m.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", m.Type, err)
	}
	return nil
}

// Toggle is the payload of inspection-mode and flow-mode-state.
type Toggle struct {
	Enabled bool `json:"enabled"`
}

// Point is a canvas coordinate, the payload of find-drop-target.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DropTarget answers find-drop-target. The zero value is the negative
// answer.
type DropTarget struct {
	IsContainer bool             `json:"isContainer"`
	Source      *source.Location `json:"source,omitempty"`
}

// Usable reports whether markup can be inserted into the target.
func (d DropTarget) Usable() bool {
	return d.IsContainer && d.Source != nil
}

// Placeholder is the payload of insert-placeholder.
type Placeholder struct {
	X             float64 `json:"x"`
	Y             float64 `json:"y"`
	ComponentName string  `json:"componentName"`
}

// ParentLayout describes how the selected element's parent lays it out.
type ParentLayout struct {
	Display   string `json:"display"` // "flex" or "block"
	Direction string `json:"direction,omitempty"`
	Reversed  bool   `json:"reversed,omitempty"`
}

// SelectedElement is the payload of element-selected and
// selection-revalidated.
type SelectedElement struct {
	Selector      string           `json:"selector"`
	TagName       string           `json:"tagName"`
	Source        *source.Location `json:"source,omitempty"`
	ParentLayout  ParentLayout     `json:"parentLayout"`
	PageID        string           `json:"pageId,omitempty"`
	CorrelationID string           `json:"correlationId"`
}

// KeyboardEvent is a key forwarded from a frame.
type KeyboardEvent struct {
	Key          string       `json:"key"`
	ParentLayout ParentLayout `json:"parentLayout"`
	SelectionID  string       `json:"selectionId"`
	PageID       string       `json:"pageId,omitempty"`
}

// NavigationIntent asks the editor to move to another route.
type NavigationIntent struct {
	TargetRoute string `json:"targetRoute"`
	PageID      string `json:"pageId,omitempty"`
}

// SyncKind selects how a frame applies a file batch.
type SyncKind string

const (
	SyncIncremental SyncKind = "incremental"
	SyncFullReset   SyncKind = "full-reset"
)

// SyncFiles pushes a coalesced file batch to a frame.
type SyncFiles struct {
	Kind    SyncKind          `json:"kind"`
	Updates map[string]string `json:"updates,omitempty"`
	Deletes []string          `json:"deletes,omitempty"`
}

// Step maps an arrow key to a sibling step along the parent's layout
// axis: -1 for previous, +1 for next. Keys across the axis report false.
func (k KeyboardEvent) Step() (int, bool) {
	horizontal := k.ParentLayout.Display == "flex" &&
		(k.ParentLayout.Direction == "row" || k.ParentLayout.Direction == "")
	var step int
	switch k.Key {
	case "ArrowUp":
		if horizontal {
			return 0, false
		}
		step = -1
	case "ArrowDown":
		if horizontal {
			return 0, false
		}
		step = 1
	case "ArrowLeft":
		if !horizontal {
			return 0, false
		}
		step = -1
	case "ArrowRight":
		if !horizontal {
			return 0, false
		}
		step = 1
	default:
		return 0, false
	}
	if k.ParentLayout.Reversed {
		step = -step
	}
	return step, true
}
