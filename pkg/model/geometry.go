package model

// Point is a viewport-relative coordinate with an upper-left origin.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Sub returns p - q
func (p Point) Sub(q Point) Point {
	return Point{X: p.X - q.X, Y: p.Y - q.Y}
}

// Size is a width and height in viewport units
type Size struct {
	Width  float64 `json:"width" yaml:"width"`
	Height float64 `json:"height" yaml:"height"`
}

// Rect is a rendered rectangle, e.g. the launcher icon's bounding box
type Rect struct {
	Min  Point
	Size Size
}

// Frame is the geometry the launcher is laid out in: the current viewport and
// the edge length of the square icon.
type Frame struct {
	Viewport Size
	IconSize float64
}

// MaxX returns the largest x the icon may take without leaving the viewport.
// It never goes below zero, even when the viewport is narrower than the icon.
func (f Frame) MaxX() float64 {
	return max(0, f.Viewport.Width-f.IconSize)
}

// MaxY returns the largest y the icon may take without leaving the viewport.
func (f Frame) MaxY() float64 {
	return max(0, f.Viewport.Height-f.IconSize)
}

// Clamp pulls p into [0, MaxX] x [0, MaxY]
func (f Frame) Clamp(p Point) Point {
	return Point{
		X: max(0, min(p.X, f.MaxX())),
		Y: max(0, min(p.Y, f.MaxY())),
	}
}

// Contains reports whether p lies inside r, edges included
func (r Rect) Contains(p Point) bool {
	return p.X >= r.Min.X && p.X <= r.Min.X+r.Size.Width &&
		p.Y >= r.Min.Y && p.Y <= r.Min.Y+r.Size.Height
}
