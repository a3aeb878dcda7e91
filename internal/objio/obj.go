// Package objio reads and writes triangle meshes in the Wavefront OBJ
// format — just enough of it to round-trip a position/index buffer pair
// through the CLI, not a general-purpose OBJ toolkit.
package objio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// Mesh is a flat vertex/triangle buffer pair, the same shape the core's
// MeshHandle exposes.
type Mesh struct {
	Positions []float32 // 3 per vertex
	Indices   []uint32  // 3 per triangle
}

// Read parses an OBJ file at path into a Mesh. Only "v" and "f" records
// are recognised; texture/normal indices on face records
// (the "/" separated forms) are accepted and ignored. Faces with more
// than three vertices are fan-triangulated around their first vertex.
func Read(path string) (*Mesh, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode parses OBJ records from r.
func Decode(r io.Reader) (*Mesh, error) {
	mesh := &Mesh{}
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)
		switch fields[0] {
		case "v":
			if err := decodeVertex(mesh, fields); err != nil {
				return nil, fmt.Errorf("objio: line %d: %w", line, err)
			}
		case "f":
			if err := decodeFace(mesh, fields); err != nil {
				return nil, fmt.Errorf("objio: line %d: %w", line, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return mesh, nil
}

func decodeVertex(mesh *Mesh, fields []string) error {
	if len(fields) < 4 {
		return fmt.Errorf("vertex record needs 3 coordinates, got %d", len(fields)-1)
	}
	for _, s := range fields[1:4] {
		v, err := strconv.ParseFloat(s, 32)
		if err != nil {
			return fmt.Errorf("bad coordinate %q: %w", s, err)
		}
		mesh.Positions = append(mesh.Positions, float32(v))
	}
	return nil
}

func decodeFace(mesh *Mesh, fields []string) error {
	verts := fields[1:]
	if len(verts) < 3 {
		return fmt.Errorf("face record needs at least 3 vertices, got %d", len(verts))
	}
	vertexCount := len(mesh.Positions) / 3
	first, err := faceVertexIndex(verts[0], vertexCount)
	if err != nil {
		return err
	}
	for i := 1; i < len(verts)-1; i++ {
		a, err := faceVertexIndex(verts[i], vertexCount)
		if err != nil {
			return err
		}
		b, err := faceVertexIndex(verts[i+1], vertexCount)
		if err != nil {
			return err
		}
		mesh.Indices = append(mesh.Indices, first, a, b)
	}
	return nil
}

// faceVertexIndex parses one "v", "v/vt" or "v/vt/vn" face token and
// resolves it to a zero-based vertex index, honoring OBJ's 1-based and
// negative-relative indexing conventions.
func faceVertexIndex(token string, vertexCount int) (uint32, error) {
	raw := strings.SplitN(token, "/", 2)[0]
	i, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("bad face index %q: %w", token, err)
	}
	switch {
	case i > 0:
		return uint32(i - 1), nil
	case i < 0:
		return uint32(vertexCount + i), nil
	default:
		return 0, fmt.Errorf("face index cannot be 0")
	}
}

// Write serializes mesh to path in OBJ format (vertices followed by
// 1-based triangular faces).
func Write(path string, mesh *Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Encode(f, mesh)
}

// Encode writes mesh to w in OBJ format.
func Encode(w io.Writer, mesh *Mesh) error {
	bw := bufio.NewWriter(w)
	vertexCount := len(mesh.Positions) / 3
	for i := 0; i < vertexCount; i++ {
		if _, err := fmt.Fprintf(bw, "v %g %g %g\n", mesh.Positions[3*i], mesh.Positions[3*i+1], mesh.Positions[3*i+2]); err != nil {
			return err
		}
	}
	triangleCount := len(mesh.Indices) / 3
	for i := 0; i < triangleCount; i++ {
		a, b, c := mesh.Indices[3*i]+1, mesh.Indices[3*i+1]+1, mesh.Indices[3*i+2]+1
		if _, err := fmt.Fprintf(bw, "f %d %d %d\n", a, b, c); err != nil {
			return err
		}
	}
	return bw.Flush()
}
