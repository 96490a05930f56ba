// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package preview renders quick orthographic wireframes of subdivision
// levels. It exists for eyeballing refinement output, not for production
// rendering: the projection drops the Z axis and edges are drawn with a
// single flat color via golang.org/x/image/vector.
package preview

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"

	"golang.org/x/image/vector"

	"github.com/gogpu/subdiv"
)

// Option configures a render.
type Option func(*options)

type options struct {
	width, height int
	lineWidth     float32
	margin        float32
	background    color.Color
	line          color.Color
}

// WithSize sets the output image size in pixels. The default is 512x512.
func WithSize(width, height int) Option {
	return func(o *options) {
		o.width = width
		o.height = height
	}
}

// WithLineWidth sets the wireframe stroke width in pixels.
func WithLineWidth(w float32) Option {
	return func(o *options) {
		o.lineWidth = w
	}
}

// WithColors sets the background and line colors.
func WithColors(background, line color.Color) Option {
	return func(o *options) {
		o.background = background
		o.line = line
	}
}

func buildOptions(opts []Option) options {
	o := options{
		width:      512,
		height:     512,
		lineWidth:  1,
		margin:     0.05,
		background: color.White,
		line:       color.Black,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Render draws the mesh wireframe into a new RGBA image. The mesh is
// projected orthographically along -Z and uniformly scaled to fit.
// Each undirected edge is drawn once.
func Render(m *subdiv.Mesh, opts ...Option) *image.RGBA {
	o := buildOptions(opts)

	img := image.NewRGBA(image.Rect(0, 0, o.width, o.height))
	draw.Draw(img, img.Bounds(), image.NewUniform(o.background), image.Point{}, draw.Src)
	if m.NumVerts() == 0 {
		return img
	}

	sx, sy, scale := fitTransform(m, o)
	half := o.lineWidth / 2

	r := vector.NewRasterizer(o.width, o.height)
	hd := m.NumHalfEdges()
	for h := int32(0); h < int32(hd); h++ {
		t := m.Twin(h)
		if t >= 0 && t < h {
			continue // drawn from the twin side
		}
		v0, v1 := m.Vert(h), m.Vert(subdiv.Next(h))
		x0 := sx + scale*m.X()[v0]
		y0 := sy - scale*m.Y()[v0]
		x1 := sx + scale*m.X()[v1]
		y1 := sy - scale*m.Y()[v1]
		addSegment(r, x0, y0, x1, y1, half)
	}
	r.Draw(img, img.Bounds(), image.NewUniform(o.line), image.Point{})
	return img
}

// SavePNG renders the mesh and writes it to path as PNG.
func SavePNG(path string, m *subdiv.Mesh, opts ...Option) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("preview: %w", err)
	}
	defer f.Close()
	if err := png.Encode(f, Render(m, opts...)); err != nil {
		return fmt.Errorf("preview: encode: %w", err)
	}
	return f.Close()
}

// fitTransform returns the screen-space offset and scale that map the XY
// bounding box into the image with a relative margin.
func fitTransform(m *subdiv.Mesh, o options) (sx, sy, scale float32) {
	x, y := m.X(), m.Y()
	minX, maxX := x[0], x[0]
	minY, maxY := y[0], y[0]
	for i := 1; i < len(x); i++ {
		minX = min(minX, x[i])
		maxX = max(maxX, x[i])
		minY = min(minY, y[i])
		maxY = max(maxY, y[i])
	}

	w := float32(o.width) * (1 - 2*o.margin)
	h := float32(o.height) * (1 - 2*o.margin)
	spanX := maxX - minX
	spanY := maxY - minY
	scale = float32(1)
	if spanX > 0 || spanY > 0 {
		scale = float32(math.Min(
			float64(w)/math.Max(float64(spanX), 1e-20),
			float64(h)/math.Max(float64(spanY), 1e-20),
		))
	}

	// Center the projected box; Y is flipped, so offset from the bottom.
	sx = (float32(o.width) - scale*spanX) / 2 - scale*minX
	sy = float32(o.height) - (float32(o.height)-scale*spanY)/2 + scale*minY
	return sx, sy, scale
}

// addSegment adds a stroked line segment to the rasterizer as a thin quad.
func addSegment(r *vector.Rasterizer, x0, y0, x1, y1, half float32) {
	dx, dy := x1-x0, y1-y0
	length := float32(math.Hypot(float64(dx), float64(dy)))
	if length == 0 {
		return
	}
	// Perpendicular unit vector scaled to half the stroke width.
	px := -dy / length * half
	py := dx / length * half

	r.MoveTo(x0+px, y0+py)
	r.LineTo(x1+px, y1+py)
	r.LineTo(x1-px, y1-py)
	r.LineTo(x0-px, y0-py)
	r.ClosePath()
}
