package cmd

import (
	"strconv"
	"strings"

	"github.com/berylllium/industria/types"
	"github.com/pkg/errors"
)

// Parse a comma separated list of n floats.
func parseFloats(value string, n int) ([]float32, error) {
	parts := strings.Split(value, ",")
	if len(parts) != n {
		return nil, errors.Errorf("expected %d comma separated values; got %q", n, value)
	}

	out := make([]float32, n)
	for idx, part := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(part), 32)
		if err != nil {
			return nil, errors.Wrapf(err, "could not parse %q", part)
		}
		out[idx] = float32(f)
	}
	return out, nil
}

// Parse an "x,y,z" value.
func parseVec3(value string) (types.Vec3, error) {
	f, err := parseFloats(value, 3)
	if err != nil {
		return types.Vec3{}, err
	}
	return types.XYZ(f[0], f[1], f[2]), nil
}

// Parse an "r,g,b,a" value.
func parseVec4(value string) (types.Vec4, error) {
	f, err := parseFloats(value, 4)
	if err != nil {
		return types.Vec4{}, err
	}
	return types.XYZW(f[0], f[1], f[2], f[3]), nil
}

// The largest supported frame width or height.
const maxFrameDim = 1 << 15

// Validate frame dimensions supplied on the command line.
func parseFrameSize(width, height int) (uint32, uint32, error) {
	if width <= 0 || height <= 0 {
		return 0, 0, errors.Errorf("frame dimensions must be positive; got %dx%d", width, height)
	}
	if width > maxFrameDim || height > maxFrameDim {
		return 0, 0, errors.Errorf("frame dimensions %dx%d exceed the %d pixel limit", width, height, maxFrameDim)
	}
	return uint32(width), uint32(height), nil
}
