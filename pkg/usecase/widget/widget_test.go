package widget_test

import (
	"context"
	"errors"
	"testing"

	"github.com/m-mizutani/chatwidget/pkg/adapter"
	"github.com/m-mizutani/chatwidget/pkg/model"
	"github.com/m-mizutani/chatwidget/pkg/usecase/anchor"
	"github.com/m-mizutani/chatwidget/pkg/usecase/cache"
	"github.com/m-mizutani/chatwidget/pkg/usecase/chat"
	"github.com/m-mizutani/chatwidget/pkg/usecase/widget"
	"github.com/m-mizutani/chatwidget/pkg/utils/logging"
	"github.com/m-mizutani/gt"
)

var testFrame = model.Frame{
	Viewport: model.Size{Width: 1000, Height: 800},
	IconSize: 60,
}

func newWidget(t *testing.T) (*widget.Widget, context.Context) {
	t.Helper()
	ctx := logging.With(context.Background(), logging.Nop())
	panel := chat.NewPanel(cache.New(adapter.NewMemoryStore()), chat.NewMockResponder(chat.WithDelay(0)))
	return widget.New(testFrame, panel), ctx
}

func apply(t *testing.T, ctx context.Context, w *widget.Widget, events ...widget.Event) *widget.Snapshot {
	t.Helper()
	var snap *widget.Snapshot
	for _, ev := range events {
		var err error
		snap, err = w.HandleEvent(ctx, ev)
		gt.NoError(t, err)
	}
	return snap
}

func TestTapTogglesPanel(t *testing.T) {
	w, ctx := newWidget(t)

	// icon starts at (920, 720)
	snap := apply(t, ctx, w,
		widget.Event{Type: widget.EventDown, X: 950, Y: 750},
		widget.Event{Type: widget.EventUp},
		widget.Event{Type: widget.EventClick},
	)
	gt.True(t, snap.Activated)
	gt.True(t, snap.PanelOpen)
	gt.Equal(t, snap.Position, model.Point{X: 920, Y: 720})

	snap = apply(t, ctx, w,
		widget.Event{Type: widget.EventDown, X: 950, Y: 750},
		widget.Event{Type: widget.EventUp},
		widget.Event{Type: widget.EventClick},
	)
	gt.False(t, snap.PanelOpen)
}

func TestDragDoesNotToggle(t *testing.T) {
	w, ctx := newWidget(t)

	snap := apply(t, ctx, w,
		widget.Event{Type: widget.EventDown, X: 930, Y: 730},
		widget.Event{Type: widget.EventMove, X: 110, Y: 410},
	)
	gt.Equal(t, snap.State, anchor.Dragging)
	gt.True(t, w.ListenersAttached())
	gt.Equal(t, snap.Position, model.Point{X: 0, Y: 400})

	snap = apply(t, ctx, w,
		widget.Event{Type: widget.EventUp},
		widget.Event{Type: widget.EventClick},
	)
	gt.Equal(t, snap.State, anchor.Idle)
	gt.False(t, w.ListenersAttached())
	gt.False(t, snap.Activated)
	gt.False(t, snap.PanelOpen)
	gt.Equal(t, snap.Position, model.Point{X: 0, Y: 400})
}

func TestMovesOutsideDragAreIgnored(t *testing.T) {
	w, ctx := newWidget(t)

	snap := apply(t, ctx, w,
		widget.Event{Type: widget.EventMove, X: 10, Y: 10},
		widget.Event{Type: widget.EventUp},
	)
	gt.Equal(t, snap.Position, model.Point{X: 920, Y: 720})
	gt.False(t, w.ListenersAttached())
}

func TestPressOutsideIconDoesNotDrag(t *testing.T) {
	w, ctx := newWidget(t)

	snap := apply(t, ctx, w,
		widget.Event{Type: widget.EventDown, X: 100, Y: 100},
		widget.Event{Type: widget.EventMove, X: 200, Y: 200},
	)
	gt.Equal(t, snap.State, anchor.Idle)
	gt.Equal(t, snap.Position, model.Point{X: 920, Y: 720})
}

func TestHideAbortsDrag(t *testing.T) {
	w, ctx := newWidget(t)

	snap := apply(t, ctx, w,
		widget.Event{Type: widget.EventDown, X: 930, Y: 730},
		widget.Event{Type: widget.EventMove, X: 40, Y: 30},
		widget.Event{Type: widget.EventHide},
	)
	gt.Equal(t, snap.State, anchor.Idle)
	gt.False(t, w.ListenersAttached())
	gt.Equal(t, snap.Position, model.Point{X: 0, Y: 0})

	// a late move after the page came back does nothing
	snap = apply(t, ctx, w, widget.Event{Type: widget.EventMove, X: 500, Y: 500})
	gt.Equal(t, snap.Position, model.Point{X: 0, Y: 0})
}

func TestResize(t *testing.T) {
	w, ctx := newWidget(t)

	snap := apply(t, ctx, w, widget.Event{Type: widget.EventResize, Width: 400, Height: 300})
	gt.Equal(t, snap.Position, model.Point{X: 340, Y: 240})

	// the next drag uses the new frame
	snap = apply(t, ctx, w,
		widget.Event{Type: widget.EventDown, X: 350, Y: 250},
		widget.Event{Type: widget.EventMove, X: 900, Y: 900},
		widget.Event{Type: widget.EventUp},
	)
	gt.Equal(t, snap.Position, model.Point{X: 340, Y: 240})

	_, err := w.HandleEvent(ctx, widget.Event{Type: widget.EventResize, Width: -1, Height: 10})
	gt.Error(t, err)
}

func TestUnknownEvent(t *testing.T) {
	w, ctx := newWidget(t)

	_, err := w.HandleEvent(ctx, widget.Event{Type: "scroll"})
	gt.True(t, errors.Is(err, widget.ErrUnknownEvent))
}
