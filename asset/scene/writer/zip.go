package writer

import (
	"archive/zip"
	"encoding/gob"
	"io"
	"os"
	"time"

	"github.com/berylllium/industria/asset/scene"
	"github.com/berylllium/industria/log"
	"github.com/pkg/errors"
)

const (
	dataFile = "scene.bin"
)

type zipSceneWriter struct {
	logger    log.Logger
	sceneFile string
}

// Create a new zip scene writer
func newZipSceneWriter(sceneFile string) *zipSceneWriter {
	return &zipSceneWriter{
		logger:    log.New("zip writer"),
		sceneFile: sceneFile,
	}
}

// Write scene definition to zip file.
func (w *zipSceneWriter) Write(sc *scene.Scene) error {
	zipFile, err := os.Create(w.sceneFile)
	if err != nil {
		return errors.Wrap(err, "zipSceneWriter")
	}

	err = w.writeTo(sc, zipFile)
	if closeErr := zipFile.Close(); err == nil && closeErr != nil {
		err = errors.Wrap(closeErr, "zipSceneWriter")
	}
	return err
}

func (w *zipSceneWriter) writeTo(sc *scene.Scene, out io.Writer) error {
	w.logger.Noticef("writing compressed scene to %s", w.sceneFile)
	start := time.Now()

	if err := sc.Validate(); err != nil {
		return errors.Wrap(err, "zipSceneWriter")
	}

	zw := zip.NewWriter(out)
	cw, err := zw.Create(dataFile)
	if err != nil {
		return errors.Wrapf(err, "zipSceneWriter: could not create %s", dataFile)
	}

	encoder := gob.NewEncoder(cw)
	if err = encoder.Encode(sc); err != nil {
		return errors.Wrapf(err, "zipSceneWriter: could not encode %s", dataFile)
	}
	if err = zw.Close(); err != nil {
		return errors.Wrap(err, "zipSceneWriter")
	}

	w.logger.Noticef("compressed scene in %d ms", time.Since(start).Nanoseconds()/1000000)
	return nil
}
