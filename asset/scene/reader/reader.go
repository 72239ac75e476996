package reader

import (
	"github.com/berylllium/industria/asset"
	"github.com/berylllium/industria/asset/scene"
	"github.com/pkg/errors"
)

// The Reader interface is implemented by all scene readers.
type Reader interface {
	// Read scene definition from a resource.
	Read(*asset.Resource) (*scene.Scene, error)
}

// Read scene from a file or URL. Voxel scene definitions (.json) are compiled
// on the fly; compiled scenes (.zip) are loaded as-is.
func ReadScene(filename string) (*scene.Scene, error) {
	res, err := asset.NewResource(filename, nil)
	if err != nil {
		return nil, err
	}
	defer res.Close()

	reader, err := readerFor(res)
	if err != nil {
		return nil, err
	}
	return reader.Read(res)
}

// Select reader based on the resource extension.
func readerFor(res *asset.Resource) (Reader, error) {
	switch res.Ext() {
	case ".json":
		return newJSONSceneReader(), nil
	case ".zip":
		return newZipSceneReader(), nil
	}
	return nil, errors.Errorf("readScene: unsupported file format %q", res.Ext())
}
