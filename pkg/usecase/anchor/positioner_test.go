package anchor_test

import (
	"testing"

	"github.com/m-mizutani/chatwidget/pkg/model"
	"github.com/m-mizutani/chatwidget/pkg/usecase/anchor"
	"github.com/m-mizutani/gt"
)

// 1000x800 viewport with a 60px icon: maxX = 940, maxY = 740
var testFrame = model.Frame{
	Viewport: model.Size{Width: 1000, Height: 800},
	IconSize: 60,
}

// mockPointerSource records attach/detach calls and lets the test drive the
// attached handlers
type mockPointerSource struct {
	attached  int
	detached  int
	onMove    anchor.MoveFunc
	onRelease anchor.ReleaseFunc
}

func (m *mockPointerSource) Attach(onMove anchor.MoveFunc, onRelease anchor.ReleaseFunc) func() {
	m.attached++
	m.onMove = onMove
	m.onRelease = onRelease
	return func() {
		m.detached++
		m.onMove = nil
		m.onRelease = nil
	}
}

func (m *mockPointerSource) live() bool {
	return m.onMove != nil
}

// iconRect returns the rendered rectangle of the icon at p's current position
func iconRect(p *anchor.Positioner) model.Rect {
	return model.Rect{
		Min:  p.Position(),
		Size: model.Size{Width: 60, Height: 60},
	}
}

// dragTo grabs the icon at its top-left corner and moves it so that the raw
// (unsnapped) position is raw
func dragTo(p *anchor.Positioner, raw model.Point) {
	grab := p.Position()
	p.DragStart(grab, iconRect(p))
	p.DragMove(raw, testFrame)
	p.DragEnd()
}

func TestNewInitialPosition(t *testing.T) {
	p := anchor.New(testFrame)
	gt.Equal(t, p.Position(), model.Point{X: 920, Y: 720})
	gt.Equal(t, p.State(), anchor.Idle)

	t.Run("tiny viewport clamps to origin", func(t *testing.T) {
		p := anchor.New(model.Frame{Viewport: model.Size{Width: 40, Height: 40}, IconSize: 60})
		gt.Equal(t, p.Position(), model.Point{X: 0, Y: 0})
	})

	t.Run("explicit position is clamped", func(t *testing.T) {
		p := anchor.New(testFrame, anchor.WithPosition(model.Point{X: 5000, Y: -3}))
		gt.Equal(t, p.Position(), model.Point{X: 940, Y: 0})
	})
}

func TestDragKeepsOffset(t *testing.T) {
	p := anchor.New(testFrame)

	// grab the icon 10px right and 15px below its corner
	p.DragStart(model.Point{X: 930, Y: 735}, iconRect(p))
	p.DragMove(model.Point{X: 110, Y: 415}, testFrame)

	// raw = (100, 400): left edge wins, y stays raw
	gt.Equal(t, p.Position(), model.Point{X: 0, Y: 400})
}

func TestSnapNonDominantAxisStaysRaw(t *testing.T) {
	testCases := []struct {
		name string
		raw  model.Point
		want model.Point
	}{
		{"left edge", model.Point{X: 100, Y: 400}, model.Point{X: 0, Y: 400}},
		{"right edge", model.Point{X: 900, Y: 300}, model.Point{X: 940, Y: 300}},
		{"top edge", model.Point{X: 500, Y: 60}, model.Point{X: 500, Y: 0}},
		{"bottom edge", model.Point{X: 400, Y: 700}, model.Point{X: 400, Y: 740}},
		{"exactly at threshold", model.Point{X: 10, Y: 50}, model.Point{X: 0, Y: 50}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p := anchor.New(testFrame)
			dragTo(p, tc.raw)
			gt.Equal(t, p.Position(), tc.want)
		})
	}
}

func TestSnapTieGoesHorizontal(t *testing.T) {
	square := model.Frame{
		Viewport: model.Size{Width: 1060, Height: 1060},
		IconSize: 60,
	}

	// dead center: every edge is 500 away
	got := anchor.Snap(model.Point{X: 500, Y: 500}, square)
	gt.Equal(t, got, model.Point{X: 1000, Y: 500})

	// left and top tie at 200
	got = anchor.Snap(model.Point{X: 200, Y: 200}, square)
	gt.Equal(t, got, model.Point{X: 0, Y: 200})
}

func TestSnapCorners(t *testing.T) {
	testCases := []struct {
		name string
		raw  model.Point
		want model.Point
	}{
		{"top-left", model.Point{X: 10, Y: 20}, model.Point{X: 0, Y: 0}},
		{"top-right", model.Point{X: 930, Y: 20}, model.Point{X: 940, Y: 0}},
		{"bottom-left", model.Point{X: 20, Y: 730}, model.Point{X: 0, Y: 740}},
		{"bottom-right", model.Point{X: 935, Y: 735}, model.Point{X: 940, Y: 740}},
		{"vertical first then left corner", model.Point{X: 40, Y: 5}, model.Point{X: 0, Y: 0}},
		{"outside viewport", model.Point{X: -80, Y: 2000}, model.Point{X: 0, Y: 740}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gt.Equal(t, anchor.Snap(tc.raw, testFrame), tc.want)
		})
	}
}

func TestSnapInvariant(t *testing.T) {
	for x := -100.0; x <= 1100; x += 37 {
		for y := -100.0; y <= 900; y += 41 {
			got := anchor.Snap(model.Point{X: x, Y: y}, testFrame)
			gt.True(t, got.X >= 0 && got.X <= testFrame.MaxX())
			gt.True(t, got.Y >= 0 && got.Y <= testFrame.MaxY())
			// at least one axis rests on an edge
			onEdge := got.X == 0 || got.X == testFrame.MaxX() || got.Y == 0 || got.Y == testFrame.MaxY()
			gt.True(t, onEdge)
		}
	}
}

func TestDragMoveIsIdempotent(t *testing.T) {
	p := anchor.New(testFrame)
	p.DragStart(model.Point{X: 940, Y: 740}, iconRect(p))

	p.DragMove(model.Point{X: 320, Y: 420}, testFrame)
	first := p.Position()
	for range 100 {
		p.DragMove(model.Point{X: 320, Y: 420}, testFrame)
	}
	gt.Equal(t, p.Position(), first)
}

func TestDragMoveWhileIdle(t *testing.T) {
	p := anchor.New(testFrame)
	before := p.Position()

	p.DragMove(model.Point{X: 10, Y: 10}, testFrame)
	gt.Equal(t, p.Position(), before)
	gt.False(t, p.Moved())
}

func TestDragMoveUsesFrameAtCallTime(t *testing.T) {
	p := anchor.New(testFrame)
	p.DragStart(p.Position(), iconRect(p))

	smaller := model.Frame{Viewport: model.Size{Width: 500, Height: 400}, IconSize: 60}
	p.DragMove(model.Point{X: 900, Y: 200}, smaller)

	gt.Equal(t, p.Position(), model.Point{X: 440, Y: 200})
	gt.Equal(t, p.Frame(), smaller)
}

func TestClickActivation(t *testing.T) {
	t.Run("tap fires once", func(t *testing.T) {
		var fired int
		p := anchor.New(testFrame, anchor.WithActivate(func() { fired++ }))

		p.DragStart(model.Point{X: 930, Y: 730}, iconRect(p))
		p.DragEnd()
		gt.True(t, p.Click())
		gt.Equal(t, fired, 1)
	})

	t.Run("one unit of movement suppresses activation", func(t *testing.T) {
		var fired int
		p := anchor.New(testFrame, anchor.WithActivate(func() { fired++ }))

		p.DragStart(model.Point{X: 930, Y: 730}, iconRect(p))
		p.DragMove(model.Point{X: 931, Y: 730}, testFrame)
		p.DragEnd()
		gt.False(t, p.Click())
		gt.Equal(t, fired, 0)
	})

	t.Run("click while dragging is ignored", func(t *testing.T) {
		var fired int
		p := anchor.New(testFrame, anchor.WithActivate(func() { fired++ }))

		p.DragStart(model.Point{X: 930, Y: 730}, iconRect(p))
		gt.False(t, p.Click())
		gt.Equal(t, fired, 0)
	})

	t.Run("next tap after a drag fires again", func(t *testing.T) {
		var fired int
		p := anchor.New(testFrame, anchor.WithActivate(func() { fired++ }))

		dragTo(p, model.Point{X: 100, Y: 100})
		gt.False(t, p.Click())

		p.DragStart(p.Position(), iconRect(p))
		p.DragEnd()
		gt.True(t, p.Click())
		gt.Equal(t, fired, 1)
	})
}

func TestResizeOnlyClamps(t *testing.T) {
	p := anchor.New(testFrame)
	dragTo(p, model.Point{X: 900, Y: 300})
	gt.Equal(t, p.Position(), model.Point{X: 940, Y: 300})

	// shrink: icon follows the right edge inward and is pulled up
	p.Resize(model.Frame{Viewport: model.Size{Width: 500, Height: 200}, IconSize: 60})
	gt.Equal(t, p.Position(), model.Point{X: 440, Y: 140})

	// grow: no snapping back out to the new right edge
	p.Resize(testFrame)
	gt.Equal(t, p.Position(), model.Point{X: 440, Y: 140})

	t.Run("left edge stays left", func(t *testing.T) {
		p := anchor.New(testFrame)
		dragTo(p, model.Point{X: 30, Y: 400})
		gt.Equal(t, p.Position().X, 0.0)

		p.Resize(model.Frame{Viewport: model.Size{Width: 300, Height: 300}, IconSize: 60})
		gt.Equal(t, p.Position(), model.Point{X: 0, Y: 240})
	})
}

func TestPointerSourceSubscriptions(t *testing.T) {
	src := &mockPointerSource{}
	p := anchor.New(testFrame, anchor.WithPointerSource(src))

	gt.False(t, src.live())

	p.DragStart(model.Point{X: 930, Y: 730}, iconRect(p))
	gt.Equal(t, p.State(), anchor.Dragging)
	gt.True(t, src.live())
	gt.Equal(t, src.attached, 1)

	// a second press while dragging does not attach twice
	p.DragStart(model.Point{X: 930, Y: 730}, iconRect(p))
	gt.Equal(t, src.attached, 1)

	// the host drives the positioner through the attached handlers
	src.onMove(model.Point{X: 120, Y: 410}, testFrame)
	gt.Equal(t, p.Position(), model.Point{X: 0, Y: 400})

	src.onRelease()
	gt.Equal(t, p.State(), anchor.Idle)
	gt.False(t, src.live())
	gt.Equal(t, src.detached, 1)

	p.DragEnd()
	gt.Equal(t, src.detached, 1)
}

func TestAbortReleasesSubscriptions(t *testing.T) {
	src := &mockPointerSource{}
	p := anchor.New(testFrame, anchor.WithPointerSource(src))

	p.DragStart(model.Point{X: 930, Y: 730}, iconRect(p))
	p.DragMove(model.Point{X: 500, Y: 60}, testFrame)
	pos := p.Position()

	p.Abort()
	gt.Equal(t, p.State(), anchor.Idle)
	gt.Equal(t, src.detached, 1)
	gt.Equal(t, p.Position(), pos)

	// idle abort is a no-op
	p.Abort()
	gt.Equal(t, src.detached, 1)
}

func TestStateString(t *testing.T) {
	gt.Equal(t, anchor.Idle.String(), "idle")
	gt.Equal(t, anchor.Dragging.String(), "dragging")
}
