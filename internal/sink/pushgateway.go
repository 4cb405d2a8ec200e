package sink

import (
	"github.com/prometheus/client_golang/prometheus/push"
	"go.uber.org/zap"
)

// Pushgateway pushes the current snapshot to a pushgateway job, for
// deployments where the exporter itself cannot be scraped.
type Pushgateway struct {
	pusher *push.Pusher
}

func NewPushgateway(url, job string, src Snapshotter, log *zap.Logger) *Pushgateway {
	return &Pushgateway{
		pusher: push.New(url, job).Collector(NewCollector(src, log, false)),
	}
}

// Push replaces the job's metrics on the gateway with the current snapshot.
func (p *Pushgateway) Push() error {
	return p.pusher.Push()
}
