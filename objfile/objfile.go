// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package objfile reads and writes quad meshes in the Wavefront OBJ format.
//
// Only the subset needed for subdivision surfaces is supported: vertex
// positions and quadrilateral faces. Texture/normal references inside face
// records are accepted and ignored; any face that is not a quadrilateral is
// rejected, matching the core's quads-only contract.
package objfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/gogpu/subdiv"
)

// Package errors.
var (
	// ErrNotQuad is returned when a face record does not have exactly four vertices.
	ErrNotQuad = errors.New("objfile: face is not a quadrilateral")

	// ErrBadRecord is returned when a v or f record cannot be parsed.
	ErrBadRecord = errors.New("objfile: malformed record")
)

// Decode parses an OBJ stream and builds the half-edge mesh.
// Construction errors from the face-vertex data (out-of-range indices,
// non-manifold connectivity) are returned unwrapped from subdiv.FromQuads.
func Decode(r io.Reader) (*subdiv.Mesh, error) {
	points, quads, err := decodeFaceVertex(r)
	if err != nil {
		return nil, err
	}
	return subdiv.FromQuads(points, quads)
}

// decodeFaceVertex parses v and f records into face-vertex form.
func decodeFaceVertex(r io.Reader) ([]subdiv.Vec3, [][4]int, error) {
	var (
		points []subdiv.Vec3
		quads  [][4]int
	)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineno := 0

	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			if len(fields) < 4 {
				return nil, nil, fmt.Errorf("%w: line %d: %q", ErrBadRecord, lineno, line)
			}
			var coords [3]float32
			for i := 0; i < 3; i++ {
				f, err := strconv.ParseFloat(fields[i+1], 32)
				if err != nil {
					return nil, nil, fmt.Errorf("%w: line %d: %v", ErrBadRecord, lineno, err)
				}
				coords[i] = float32(f)
			}
			points = append(points, subdiv.V3(coords[0], coords[1], coords[2]))

		case "f":
			if len(fields) != 5 {
				return nil, nil, fmt.Errorf("%w: line %d has %d vertices",
					ErrNotQuad, lineno, len(fields)-1)
			}
			var quad [4]int
			for i := 0; i < 4; i++ {
				idx, err := parseFaceIndex(fields[i+1], len(points))
				if err != nil {
					return nil, nil, fmt.Errorf("%w: line %d: %v", ErrBadRecord, lineno, err)
				}
				quad[i] = idx
			}
			quads = append(quads, quad)

		default:
			// Normals, texcoords, groups, materials: irrelevant here.
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("objfile: read: %w", err)
	}

	return points, quads, nil
}

// parseFaceIndex converts one face-record vertex reference to a zero-based
// vertex index. OBJ indices are one-based; negative values count back from
// the most recently declared vertex. Texture and normal references after a
// slash are ignored.
func parseFaceIndex(field string, numPoints int) (int, error) {
	if i := strings.IndexByte(field, '/'); i >= 0 {
		field = field[:i]
	}
	idx, err := strconv.Atoi(field)
	if err != nil {
		return 0, err
	}
	switch {
	case idx > 0:
		return idx - 1, nil
	case idx < 0:
		return numPoints + idx, nil
	default:
		return 0, fmt.Errorf("vertex index 0 is not valid")
	}
}

// Encode writes the mesh as OBJ: its points as v records and its faces as
// quad f records with one-based indices.
func Encode(w io.Writer, m *subdiv.Mesh) error {
	bw := bufio.NewWriter(w)

	x, y, z := m.X(), m.Y(), m.Z()
	for i := 0; i < m.NumVerts(); i++ {
		fmt.Fprintf(bw, "v %g %g %g\n", x[i], y[i], z[i])
	}
	for _, q := range m.Quads() {
		fmt.Fprintf(bw, "f %d %d %d %d\n", q[0]+1, q[1]+1, q[2]+1, q[3]+1)
	}

	if err := bw.Flush(); err != nil {
		return fmt.Errorf("objfile: write: %w", err)
	}
	return nil
}

// Load reads a mesh from an OBJ file.
func Load(path string) (*subdiv.Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("objfile: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Save writes a mesh to an OBJ file.
func Save(path string, m *subdiv.Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("objfile: %w", err)
	}
	if err := Encode(f, m); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
