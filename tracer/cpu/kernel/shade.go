package kernel

import (
	"github.com/berylllium/industria/asset/scene"
	"github.com/berylllium/industria/types"
)

// Resolve the color for a traversal result. Hits return the flat voxel
// color; misses and out-of-range voxel indices return the background.
func Shade(res Result, voxels []scene.Voxel, background types.Vec4) types.Vec4 {
	if res.Outcome != Hit || int64(res.Voxel) >= int64(len(voxels)) {
		return background
	}
	return voxels[res.Voxel].Color
}

// Write a color to an RGBA8 frame buffer. Color components are clamped to
// [0, 1]; writes outside the buffer are ignored.
func WritePixel(frameBuffer []uint8, frameW, x, y uint32, color types.Vec4) {
	offset := (int(y)*int(frameW) + int(x)) * 4
	if x >= frameW || offset < 0 || offset+4 > len(frameBuffer) {
		return
	}

	color = color.Clamp(0, 1)
	frameBuffer[offset+0] = uint8(color[0]*255 + 0.5)
	frameBuffer[offset+1] = uint8(color[1]*255 + 0.5)
	frameBuffer[offset+2] = uint8(color[2]*255 + 0.5)
	frameBuffer[offset+3] = uint8(color[3]*255 + 0.5)
}
