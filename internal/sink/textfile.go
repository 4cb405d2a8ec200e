package sink

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"go.uber.org/zap"
)

// Textfile renders the current snapshot into a node-exporter textfile
// collector file. Writes go through a temp file plus rename under a flock,
// so a concurrently scraping agent never sees a partial file.
type Textfile struct {
	path string
	src  Snapshotter
	log  *zap.Logger
}

func NewTextfile(dir, fileName string, src Snapshotter, log *zap.Logger) *Textfile {
	if log == nil {
		log = zap.NewNop()
	}
	return &Textfile{
		path: filepath.Join(dir, fileName),
		src:  src,
		log:  log,
	}
}

// Write gathers the snapshot and replaces the textfile atomically.
func (t *Textfile) Write() error {
	reg := prometheus.NewRegistry()
	if err := reg.Register(NewCollector(t.src, t.log, false)); err != nil {
		return fmt.Errorf("registering snapshot collector: %w", err)
	}
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gathering snapshot: %w", err)
	}

	lock := flock.New(t.path + ".lock")
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking %s: %w", t.path, err)
	}
	defer lock.Unlock()

	tmp, err := os.CreateTemp(filepath.Dir(t.path), filepath.Base(t.path)+".tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := expfmt.NewEncoder(tmp, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			tmp.Close()
			return fmt.Errorf("encoding %s: %w", mf.GetName(), err)
		}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	return os.Rename(tmp.Name(), t.path)
}
