// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package objfile

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/gogpu/subdiv"
)

const twoQuadOBJ = `# two quads sharing edge 2-5
v 0 0 0
v 1 0 0
v 2 0 0
v 2 1 0
v 1 1 0
v 0 1 0
f 1 2 5 6
f 2 3 4 5
`

func TestDecode(t *testing.T) {
	m, err := Decode(strings.NewReader(twoQuadOBJ))
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}

	if m.NumVerts() != 6 || m.NumFaces() != 2 || m.NumEdges() != 7 {
		t.Fatalf("counts = (%d,%d,%d), want (6,2,7)",
			m.NumVerts(), m.NumFaces(), m.NumEdges())
	}
	if got := m.Point(2); !got.Approx(subdiv.V3(2, 0, 0), 0) {
		t.Errorf("point 2 = %v, want (2,0,0)", got)
	}
}

func TestDecode_IndexForms(t *testing.T) {
	tests := []struct {
		name string
		face string
	}{
		{"plain", "f 1 2 3 4"},
		{"texture refs", "f 1/7 2/8 3/9 4/10"},
		{"normal refs", "f 1//1 2//1 3//1 4//1"},
		{"negative", "f -4 -3 -2 -1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\n" + tt.face + "\n"
			m, err := Decode(strings.NewReader(src))
			if err != nil {
				t.Fatalf("Decode() failed: %v", err)
			}
			if q := m.Quads()[0]; q != [4]int{0, 1, 2, 3} {
				t.Errorf("quad = %v, want [0 1 2 3]", q)
			}
		})
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
	}{
		{"triangle", "v 0 0 0\nv 1 0 0\nv 1 1 0\nf 1 2 3\n", ErrNotQuad},
		{"pentagon", "v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nv 2 2 0\nf 1 2 3 4 5\n", ErrNotQuad},
		{"short vertex", "v 0 0\n", ErrBadRecord},
		{"bad coordinate", "v 0 zero 0\n", ErrBadRecord},
		{"zero index", "v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nf 0 1 2 3\n", ErrBadRecord},
		{"out of range", "v 0 0 0\nv 1 0 0\nv 1 1 0\nv 0 1 0\nf 1 2 3 9\n", subdiv.ErrInvalidIndex},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.src))
			if !errors.Is(err, tt.want) {
				t.Errorf("Decode() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestEncode_RoundTrip(t *testing.T) {
	m, err := Decode(strings.NewReader(twoQuadOBJ))
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, m); err != nil {
		t.Fatalf("Encode() failed: %v", err)
	}

	back, err := Decode(&buf)
	if err != nil {
		t.Fatalf("Decode(Encode()) failed: %v", err)
	}

	if back.NumVerts() != m.NumVerts() || back.NumFaces() != m.NumFaces() {
		t.Fatalf("round trip counts (%d,%d), want (%d,%d)",
			back.NumVerts(), back.NumFaces(), m.NumVerts(), m.NumFaces())
	}
	for i := int32(0); i < int32(m.NumVerts()); i++ {
		if !back.Point(i).Approx(m.Point(i), 0) {
			t.Errorf("point %d = %v, want %v", i, back.Point(i), m.Point(i))
		}
	}
	for f, q := range m.Quads() {
		if back.Quads()[f] != q {
			t.Errorf("face %d = %v, want %v", f, back.Quads()[f], q)
		}
	}
}

// TestDecode_RefineLoop runs a decoded mesh through the refiner, making sure
// the I/O layer produces levels the core accepts.
func TestDecode_RefineLoop(t *testing.T) {
	m, err := Decode(strings.NewReader(twoQuadOBJ))
	if err != nil {
		t.Fatalf("Decode() failed: %v", err)
	}

	r := subdiv.NewRefiner()
	defer r.Close()

	refined := r.RefineTo(m, 2)
	if refined.NumFaces() != 32 {
		t.Errorf("NumFaces after 2 levels = %d, want 32", refined.NumFaces())
	}

	var buf bytes.Buffer
	if err := Encode(&buf, refined); err != nil {
		t.Fatalf("Encode(refined) failed: %v", err)
	}
}
