package sink

import (
	"go.uber.org/zap"
)

// Flusher fans a cache change out to the enabled push-style sinks. The
// scrape endpoint reads the cache directly and needs no flushing. Sink
// failures are logged and swallowed: output is best-effort, ingestion never
// depends on it.
type Flusher struct {
	textfile *Textfile
	push     *Pushgateway
	log      *zap.Logger
}

func NewFlusher(textfile *Textfile, push *Pushgateway, log *zap.Logger) *Flusher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Flusher{textfile: textfile, push: push, log: log}
}

// Flush writes the textfile and pushes to the gateway, whichever are
// configured.
func (f *Flusher) Flush() {
	if f.textfile != nil {
		if err := f.textfile.Write(); err != nil {
			f.log.Error("textfile write failed", zap.Error(err))
		}
	}
	if f.push != nil {
		if err := f.push.Push(); err != nil {
			f.log.Error("pushgateway push failed", zap.Error(err))
		}
	}
}
