package writer

import (
	"io"

	"github.com/berylllium/industria/asset/scene"
)

// The Writer interface is implemented by all scene writers.
type Writer interface {
	// Write scene definition
	Write(*scene.Scene) error
}

// Write scene to binary format.
func WriteScene(sc *scene.Scene, filename string) error {
	writer := newZipSceneWriter(filename)
	return writer.Write(sc)
}

// Write scene in binary format to an arbitrary stream.
func WriteSceneTo(sc *scene.Scene, w io.Writer) error {
	writer := newZipSceneWriter("stream")
	return writer.writeTo(sc, w)
}
