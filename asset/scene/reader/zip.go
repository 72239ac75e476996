package reader

import (
	"archive/zip"
	"bytes"
	"encoding/gob"
	"io"
	"time"

	"github.com/berylllium/industria/asset"
	"github.com/berylllium/industria/asset/scene"
	"github.com/berylllium/industria/log"
	"github.com/pkg/errors"
)

const (
	dataFile = "scene.bin"
)

type zipSceneReader struct {
	logger log.Logger
}

// Create a new zip scene reader
func newZipSceneReader() *zipSceneReader {
	return &zipSceneReader{
		logger: log.New("zip reader"),
	}
}

// Read compiled scene from zip file.
func (p *zipSceneReader) Read(sceneRes *asset.Resource) (*scene.Scene, error) {
	p.logger.Noticef(`loading compiled scene from "%s"`, sceneRes.Path())
	start := time.Now()

	// zip package requires a reader implementing ReaderAt. To work around
	// this requirement we read the entire zip file into memory and create
	// a reader from the bytes package that implements ReaderAt
	data, err := io.ReadAll(sceneRes)
	if err != nil {
		return nil, errors.Wrap(err, "zipSceneReader")
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, errors.Wrapf(err, "zipSceneReader: %s", sceneRes.Path())
	}

	var sc *scene.Scene
	for _, f := range zr.File {
		switch f.Name {
		case dataFile:
		default:
			p.logger.Warningf("unknown file %s in scene zip file; skipping", f.Name)
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "zipSceneReader: failed to open %s", f.Name)
		}
		decoder := gob.NewDecoder(rc)
		err = decoder.Decode(&sc)
		rc.Close()
		if err != nil {
			return nil, errors.Wrapf(err, "zipSceneReader: failed to load %s", f.Name)
		}
	}

	if sc == nil {
		return nil, errors.Errorf("zipSceneReader: %s does not contain %s", sceneRes.Path(), dataFile)
	}
	if err = sc.Validate(); err != nil {
		return nil, errors.Wrap(err, "zipSceneReader")
	}

	p.logger.Noticef("loaded scene in %d ms", time.Since(start).Nanoseconds()/1000000)
	return sc, nil
}
