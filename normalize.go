package simplify

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// normalizeResult is the deduplicated, normal-annotated mesh handed to
// the half-edge builder.
type normalizeResult struct {
	positions   []mgl64.Vec3
	indices     []uint32
	faceNormals []mgl64.Vec3
}

// normalize implements component A: merge vertices that share a position
// into one index, rewrite the index buffer, and compute a unit normal
// per triangle. It fails with ErrDegenerateFace if any triangle's two
// edge vectors are parallel (zero cross-product magnitude).
//
// When weldEpsilon > 0, vertices within that Euclidean distance of
// an earlier vertex are merged before the mandatory exact-match pass,
// via weldGrid — a spatial hash over cubical cells sized to the
// tolerance, so the pass stays near-linear instead of the naive O(n²)
// all-pairs comparison (spec_full 4.A).
func normalize(mesh MeshHandle, weldEpsilon float32) (*normalizeResult, error) {
	rawPositions := mesh.Positions()
	rawIndices := mesh.Indices()
	vertexCount := int(mesh.VertexCount())

	src := make([]mgl64.Vec3, vertexCount)
	for i := 0; i < vertexCount; i++ {
		src[i] = mgl64.Vec3{
			float64(rawPositions[3*i]),
			float64(rawPositions[3*i+1]),
			float64(rawPositions[3*i+2]),
		}
	}

	remap := dedupVertices(src, float64(weldEpsilon))

	newIndex := make([]uint32, vertexCount)
	var dedupPositions []mgl64.Vec3
	assigned := make([]bool, vertexCount)
	for v := 0; v < vertexCount; v++ {
		canon := remap[v]
		if !assigned[canon] {
			assigned[canon] = true
			newIndex[canon] = uint32(len(dedupPositions))
			dedupPositions = append(dedupPositions, src[canon])
		}
	}
	finalIndex := make([]uint32, vertexCount)
	for v := 0; v < vertexCount; v++ {
		finalIndex[v] = newIndex[remap[v]]
	}

	triangleCount := len(rawIndices) / 3
	indices := make([]uint32, len(rawIndices))
	normals := make([]mgl64.Vec3, triangleCount)
	for f := 0; f < triangleCount; f++ {
		a := finalIndex[rawIndices[3*f]]
		b := finalIndex[rawIndices[3*f+1]]
		c := finalIndex[rawIndices[3*f+2]]
		indices[3*f], indices[3*f+1], indices[3*f+2] = a, b, c

		pa, pb, pc := dedupPositions[a], dedupPositions[b], dedupPositions[c]
		e1 := pb.Sub(pa)
		e2 := pc.Sub(pa)
		n := e1.Cross(e2)
		length := n.Len()
		if length < 1e-12 {
			return nil, fmt.Errorf("%w: face %d", ErrDegenerateFace, f)
		}
		normals[f] = n.Mul(1 / length)
	}

	return &normalizeResult{
		positions:   dedupPositions,
		indices:     indices,
		faceNormals: normals,
	}, nil
}

// dedupVertices returns, for every input vertex, the index of its
// canonical representative. Bit-identical positions always collapse to
// the same representative (spec 4.A); when weldEpsilon > 0, positions
// within that distance of an earlier, already-canonical vertex collapse
// too.
func dedupVertices(positions []mgl64.Vec3, weldEpsilon float64) []uint32 {
	remap := make([]uint32, len(positions))
	exact := make(map[mgl64.Vec3]uint32, len(positions))

	var grid *weldGrid
	if weldEpsilon > 0 {
		grid = newWeldGrid(weldEpsilon)
	}

	for i, p := range positions {
		if canon, ok := exact[p]; ok {
			remap[i] = canon
			continue
		}

		canon := uint32(i)
		if grid != nil {
			if found, ok := grid.nearest(positions, p, weldEpsilon); ok {
				canon = found
			}
		}

		remap[i] = canon
		exact[p] = canon
		if grid != nil && canon == uint32(i) {
			grid.insert(uint32(i), p)
		}
	}
	return remap
}
