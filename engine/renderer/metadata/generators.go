package metadata

import "github.com/go-gl/mathgl/mgl32"

// GeneratePlane builds a flat XZ grid of size x size centered on the origin
// with subdivisions quads per side.
func GeneratePlane(subdivisions int, size float32) ([]Vertex, []uint32) {
	if subdivisions < 1 {
		subdivisions = 1
	}
	rows := subdivisions + 1
	vertices := make([]Vertex, 0, rows*rows)
	for z := 0; z < rows; z++ {
		for x := 0; x < rows; x++ {
			u := float32(x) / float32(subdivisions)
			v := float32(z) / float32(subdivisions)
			vertices = append(vertices, Vertex{
				Position: mgl32.Vec3{(u - 0.5) * size, 0, (v - 0.5) * size},
				Normal:   mgl32.Vec3{0, 1, 0},
				Color:    mgl32.Vec3{0.2, 0.8, 0.2},
				TexCoord: mgl32.Vec2{u, v},
			})
		}
	}

	indices := make([]uint32, 0, subdivisions*subdivisions*6)
	for z := 0; z < subdivisions; z++ {
		for x := 0; x < subdivisions; x++ {
			bottomLeft := uint32(z*rows + x)
			bottomRight := bottomLeft + 1
			topLeft := bottomLeft + uint32(rows)
			topRight := topLeft + 1
			indices = append(indices, bottomLeft, topLeft, bottomRight, bottomRight, topLeft, topRight)
		}
	}
	return vertices, indices
}

type cubeFace struct {
	normal  mgl32.Vec3
	corners [4]mgl32.Vec3
}

var cubeFaces = [6]cubeFace{
	{mgl32.Vec3{0, 0, -1}, [4]mgl32.Vec3{{-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}, {0.5, 0.5, -0.5}, {-0.5, 0.5, -0.5}}},
	{mgl32.Vec3{0, 0, 1}, [4]mgl32.Vec3{{-0.5, -0.5, 0.5}, {0.5, -0.5, 0.5}, {0.5, 0.5, 0.5}, {-0.5, 0.5, 0.5}}},
	{mgl32.Vec3{-1, 0, 0}, [4]mgl32.Vec3{{-0.5, -0.5, 0.5}, {-0.5, -0.5, -0.5}, {-0.5, 0.5, -0.5}, {-0.5, 0.5, 0.5}}},
	{mgl32.Vec3{1, 0, 0}, [4]mgl32.Vec3{{0.5, -0.5, -0.5}, {0.5, -0.5, 0.5}, {0.5, 0.5, 0.5}, {0.5, 0.5, -0.5}}},
	{mgl32.Vec3{0, -1, 0}, [4]mgl32.Vec3{{-0.5, -0.5, -0.5}, {0.5, -0.5, -0.5}, {0.5, -0.5, 0.5}, {-0.5, -0.5, 0.5}}},
	{mgl32.Vec3{0, 1, 0}, [4]mgl32.Vec3{{-0.5, 0.5, 0.5}, {0.5, 0.5, 0.5}, {0.5, 0.5, -0.5}, {-0.5, 0.5, -0.5}}},
}

var cubeCornerColors = [4]mgl32.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}, {1, 1, 0}}
var cubeCornerUVs = [4]mgl32.Vec2{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

// GenerateUnitCube returns 24 vertices (4 per face so every face keeps its
// own normal) and 36 indices wound clockwise seen from outside.
func GenerateUnitCube() ([]Vertex, []uint32) {
	vertices := make([]Vertex, 0, 24)
	indices := make([]uint32, 0, 36)
	for f, face := range cubeFaces {
		base := uint32(f * 4)
		for c, corner := range face.corners {
			vertices = append(vertices, Vertex{
				Position: corner,
				Normal:   face.normal,
				Color:    cubeCornerColors[c],
				TexCoord: cubeCornerUVs[c],
			})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return vertices, indices
}
