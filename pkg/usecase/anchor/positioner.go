// Package anchor positions the chat launcher icon. The icon is dragged with the
// pointer and always rests against a viewport edge, or in a corner when it is
// close enough to two edges.
package anchor

import (
	"github.com/m-mizutani/chatwidget/pkg/model"
)

const (
	// CornerThreshold is the distance below which the secondary axis is also
	// pulled onto its edge, putting the icon in a corner.
	CornerThreshold = 50.0

	// DefaultIconSize is the edge length of the launcher icon
	DefaultIconSize = 60.0

	// DefaultMargin is the gap between the initial icon position and the
	// bottom-right viewport corner
	DefaultMargin = 20.0
)

// State is the drag state of a Positioner
type State int

const (
	Idle State = iota
	Dragging
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// MoveFunc receives a pointer position together with the frame in effect at
// the time of the move.
type MoveFunc func(pointer model.Point, frame model.Frame)

// ReleaseFunc receives a pointer release
type ReleaseFunc func()

// PointerSource is the host side of a drag. Attach starts delivering pointer
// moves and releases and returns the function that stops delivery.
type PointerSource interface {
	Attach(onMove MoveFunc, onRelease ReleaseFunc) (detach func())
}

// Positioner tracks where the launcher icon rests. Handlers are only attached
// to the PointerSource while a drag is in progress.
//
// A Positioner is driven from a single event loop and is not safe for
// concurrent use.
type Positioner struct {
	frame    model.Frame
	position model.Point
	state    State

	// offset between the pointer and the icon's top-left corner, captured at
	// drag start and meaningful only while Dragging
	offset model.Point
	moved  bool

	source   PointerSource
	detach   func()
	activate func()
	margin   float64
	initial  *model.Point
}

// Option is a functional option for Positioner
type Option func(*Positioner)

// WithPointerSource sets the host that delivers moves and releases during a drag
func WithPointerSource(src PointerSource) Option {
	return func(p *Positioner) {
		p.source = src
	}
}

// WithActivate sets the callback fired by a click that was not a drag
func WithActivate(fn func()) Option {
	return func(p *Positioner) {
		p.activate = fn
	}
}

// WithMargin sets the gap used for the initial bottom-right placement
func WithMargin(margin float64) Option {
	return func(p *Positioner) {
		p.margin = margin
	}
}

// WithPosition overrides the initial placement. The point is clamped into the
// frame but not snapped.
func WithPosition(pos model.Point) Option {
	return func(p *Positioner) {
		p.initial = &pos
	}
}

// New creates a Positioner resting near the bottom-right corner of frame
func New(frame model.Frame, opts ...Option) *Positioner {
	p := &Positioner{
		frame:  frame,
		state:  Idle,
		margin: DefaultMargin,
	}

	for _, opt := range opts {
		opt(p)
	}

	if p.initial != nil {
		p.position = frame.Clamp(*p.initial)
	} else {
		p.position = frame.Clamp(model.Point{
			X: frame.Viewport.Width - frame.IconSize - p.margin,
			Y: frame.Viewport.Height - frame.IconSize - p.margin,
		})
	}

	return p
}

// Position returns the icon's current top-left corner
func (p *Positioner) Position() model.Point {
	return p.position
}

// Frame returns the most recently seen frame
func (p *Positioner) Frame() model.Frame {
	return p.frame
}

// State returns Idle or Dragging
func (p *Positioner) State() State {
	return p.state
}

// Moved reports whether the pointer moved since the last drag start
func (p *Positioner) Moved() bool {
	return p.moved
}

// DragStart begins a drag. icon is the icon's currently rendered rectangle.
func (p *Positioner) DragStart(pointer model.Point, icon model.Rect) {
	p.offset = pointer.Sub(icon.Min)
	p.moved = false

	if p.state == Dragging {
		return
	}
	p.state = Dragging

	if p.source != nil {
		p.detach = p.source.Attach(p.DragMove, p.DragEnd)
	}
}

// DragMove moves the icon with the pointer and snaps it onto the nearest edge.
// It does nothing unless a drag is in progress.
func (p *Positioner) DragMove(pointer model.Point, frame model.Frame) {
	if p.state != Dragging {
		return
	}

	p.moved = true
	p.frame = frame
	p.position = Snap(pointer.Sub(p.offset), frame)
}

// DragEnd finishes the drag. The icon stays where the last move put it.
func (p *Positioner) DragEnd() {
	if p.state != Dragging {
		return
	}
	p.state = Idle
	p.release()
}

// Abort ends a drag that will never see its release, e.g. when the page is
// hidden mid-gesture. The icon keeps its current position.
func (p *Positioner) Abort() {
	p.DragEnd()
}

func (p *Positioner) release() {
	if p.detach != nil {
		detach := p.detach
		p.detach = nil
		detach()
	}
}

// Click fires the activate callback if the gesture was a tap rather than a
// drag, and reports whether it did.
func (p *Positioner) Click() bool {
	if p.moved || p.state == Dragging {
		return false
	}
	if p.activate != nil {
		p.activate()
	}
	return true
}

// Resize adopts a new frame and pulls the icon back inside it. It does not
// snap, so the icon never changes edge because of a resize.
func (p *Positioner) Resize(frame model.Frame) {
	p.frame = frame
	p.position = frame.Clamp(p.position)
}

// Snap clamps raw into frame and moves it onto the nearest edge. The axis
// whose nearer edge is closer snaps first, with ties going to the horizontal
// axis. The other axis snaps only when it is within CornerThreshold of an edge.
func Snap(raw model.Point, frame model.Frame) model.Point {
	pos := frame.Clamp(raw)
	maxX, maxY := frame.MaxX(), frame.MaxY()

	left := pos.X
	right := maxX - pos.X
	top := pos.Y
	bottom := maxY - pos.Y

	if min(left, right) <= min(top, bottom) {
		if left < right {
			pos.X = 0
		} else {
			pos.X = maxX
		}

		if top < CornerThreshold {
			pos.Y = 0
		} else if bottom < CornerThreshold {
			pos.Y = maxY
		}
	} else {
		if top < bottom {
			pos.Y = 0
		} else {
			pos.Y = maxY
		}

		if left < CornerThreshold {
			pos.X = 0
		} else if right < CornerThreshold {
			pos.X = maxX
		}
	}

	return pos
}
