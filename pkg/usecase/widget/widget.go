// Package widget wires the launcher icon to the chat panel: tapping the icon
// toggles the panel, dragging it moves the icon between viewport edges.
package widget

import (
	"context"

	"github.com/m-mizutani/chatwidget/pkg/model"
	"github.com/m-mizutani/chatwidget/pkg/usecase/anchor"
	"github.com/m-mizutani/chatwidget/pkg/usecase/chat"
	"github.com/m-mizutani/chatwidget/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

type EventType string

const (
	EventDown   EventType = "down"
	EventMove   EventType = "move"
	EventUp     EventType = "up"
	EventClick  EventType = "click"
	EventResize EventType = "resize"
	EventHide   EventType = "hide"
)

var ErrUnknownEvent = goerr.New("unknown event type")

// Event is a host UI event. X and Y are used by pointer events, Width and
// Height by resize.
type Event struct {
	Type   EventType `yaml:"type" json:"type"`
	X      float64   `yaml:"x,omitempty" json:"x,omitempty"`
	Y      float64   `yaml:"y,omitempty" json:"y,omitempty"`
	Width  float64   `yaml:"width,omitempty" json:"width,omitempty"`
	Height float64   `yaml:"height,omitempty" json:"height,omitempty"`
}

// Snapshot is the widget state after an event
type Snapshot struct {
	Position  model.Point
	State     anchor.State
	PanelOpen bool
	Activated bool
}

// Widget owns the launcher positioner and the chat panel
type Widget struct {
	frame      model.Frame
	positioner *anchor.Positioner
	panel      *chat.Panel
	pointer    *pointerRelay
}

// New creates a widget laid out in frame. Positioner options such as
// anchor.WithMargin are passed through.
func New(frame model.Frame, panel *chat.Panel, opts ...anchor.Option) *Widget {
	relay := &pointerRelay{}
	opts = append(opts, anchor.WithPointerSource(relay))

	return &Widget{
		frame:      frame,
		positioner: anchor.New(frame, opts...),
		panel:      panel,
		pointer:    relay,
	}
}

// Positioner returns the launcher positioner
func (w *Widget) Positioner() *anchor.Positioner {
	return w.positioner
}

// Panel returns the chat panel
func (w *Widget) Panel() *chat.Panel {
	return w.panel
}

// ListenersAttached reports whether pointer moves and releases are currently
// being forwarded to the positioner
func (w *Widget) ListenersAttached() bool {
	return w.pointer.attached()
}

// HandleEvent applies one host event and returns the resulting state
func (w *Widget) HandleEvent(ctx context.Context, ev Event) (*Snapshot, error) {
	pointer := model.Point{X: ev.X, Y: ev.Y}
	var activated bool

	switch ev.Type {
	case EventDown:
		icon := w.iconRect()
		if icon.Contains(pointer) {
			w.positioner.DragStart(pointer, icon)
		} else {
			logging.From(ctx).Debug("pointer down outside launcher", "pointer", pointer, "icon", icon.Min)
		}

	case EventMove:
		w.pointer.move(pointer, w.frame)

	case EventUp:
		w.pointer.up()

	case EventClick:
		if w.positioner.Click() {
			activated = true
			open := w.panel.Toggle(ctx)
			logging.From(ctx).Debug("launcher activated", "panel_open", open)
		}

	case EventResize:
		if ev.Width < 0 || ev.Height < 0 {
			return nil, goerr.New("negative viewport size", goerr.V("width", ev.Width), goerr.V("height", ev.Height))
		}
		w.frame.Viewport = model.Size{Width: ev.Width, Height: ev.Height}
		w.positioner.Resize(w.frame)

	case EventHide:
		w.positioner.Abort()

	default:
		return nil, goerr.Wrap(ErrUnknownEvent, "cannot handle event", goerr.V("type", ev.Type))
	}

	return &Snapshot{
		Position:  w.positioner.Position(),
		State:     w.positioner.State(),
		PanelOpen: w.panel.IsOpen(),
		Activated: activated,
	}, nil
}

func (w *Widget) iconRect() model.Rect {
	return model.Rect{
		Min:  w.positioner.Position(),
		Size: model.Size{Width: w.frame.IconSize, Height: w.frame.IconSize},
	}
}

// pointerRelay stands in for document-level listeners: it forwards pointer
// moves and releases only while the positioner has handlers attached.
type pointerRelay struct {
	onMove    anchor.MoveFunc
	onRelease anchor.ReleaseFunc
}

func (r *pointerRelay) Attach(onMove anchor.MoveFunc, onRelease anchor.ReleaseFunc) func() {
	r.onMove = onMove
	r.onRelease = onRelease
	return func() {
		r.onMove = nil
		r.onRelease = nil
	}
}

func (r *pointerRelay) move(p model.Point, frame model.Frame) {
	if r.onMove != nil {
		r.onMove(p, frame)
	}
}

func (r *pointerRelay) up() {
	if r.onRelease != nil {
		r.onRelease()
	}
}

func (r *pointerRelay) attached() bool {
	return r.onMove != nil
}
