package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/hooksink/hooksink/config"
	"github.com/hooksink/hooksink/internal/cache"
	"github.com/hooksink/hooksink/internal/extract"
	"github.com/hooksink/hooksink/internal/handler"
	"github.com/hooksink/hooksink/internal/metric"
	"github.com/hooksink/hooksink/internal/metrics"
	"github.com/hooksink/hooksink/internal/sink"
)

const maxBodyBytes = 10 << 20

// Server is the HTTP face of the exporter: webhook ingestion routes, the
// scrape endpoint and a small config summary index.
type Server struct {
	cfg     *config.Config
	log     *zap.Logger
	matcher *handler.Matcher
	eval    *extract.Evaluator
	builder *metric.Builder
	cache   *cache.SeriesCache
	flusher *sink.Flusher
	stats   *metrics.Set

	registry *prometheus.Registry
}

func New(cfg *config.Config, store *cache.SeriesCache, flusher *sink.Flusher, log *zap.Logger) (*Server, error) {
	matcher, err := handler.NewMatcher(cfg.EventHandlers)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:      cfg,
		log:      log,
		matcher:  matcher,
		eval:     extract.NewEvaluator(),
		builder:  metric.NewBuilder(),
		cache:    store,
		flusher:  flusher,
		stats:    metrics.NewSet(),
		registry: prometheus.NewRegistry(),
	}

	if err := s.registry.Register(sink.NewCollector(store, log, true)); err != nil {
		return nil, err
	}
	if cfg.ExporterMetrics {
		s.stats.Register(s.registry, store)
		s.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return s, nil
}

// Handler builds the route table.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc(s.cfg.Server.WebhookBasepath+"/{event}", s.handleWebhook).
		Methods(http.MethodPost, http.MethodPut, http.MethodDelete)
	if s.cfg.Outputs.Scrapeable {
		r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	return r
}

// handleWebhook receives one webhook event. Once a handler matches, the
// sender always gets a success response no matter how extraction turns out;
// failed extraction must not trigger sender-side retry storms.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	event := mux.Vars(r)["event"]

	if r.Method == http.MethodDelete {
		s.handleDelete(w, event)
		return
	}

	s.stats.EventsReceived.Inc()

	def, ok := s.matcher.Match(event)
	if !ok {
		s.log.Info("no event handler matched", zap.String("event", event))
		s.writeNoMatch(w)
		return
	}
	s.stats.EventsMatched.Inc()

	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		s.log.Warn("reading webhook body failed", zap.String("event", event), zap.Error(err))
	}

	evalCtx, err := buildContext(r, body)
	if err != nil {
		s.log.Error("building evaluation context failed", zap.String("event", event), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}

	s.processEvent(event, def, evalCtx)
	writeJSON(w, http.StatusOK, map[string]string{})
}

// processEvent runs the extractor pipelines, builds the record and upserts
// it. All failures are local: a failed field is left unset, a failed record
// is discarded, and neither aborts anything else.
func (s *Server) processEvent(event string, def *handler.Definition, evalCtx string) {
	ex := def.Extractors
	res := metric.Resolved{
		Name:      s.evalField(event, "name", ex.Name, evalCtx),
		Help:      s.evalField(event, "help", ex.Help, evalCtx),
		Type:      s.evalField(event, "type", ex.Type, evalCtx),
		Timestamp: s.evalField(event, "timestamp", ex.Timestamp, evalCtx),
		Value:     s.evalField(event, "value", ex.Value, evalCtx),
	}

	if len(ex.Labels) > 0 {
		labels, err := s.eval.EvaluateLabels(ex.Labels, evalCtx)
		if err != nil {
			s.stats.ExtractionFailures.Inc()
			s.log.Warn("label extraction failed", zap.String("event", event), zap.Error(err))
		} else {
			res.Labels = labels
		}
	}

	rec, err := s.builder.Build(event, res)
	if err != nil {
		s.stats.ValidationFailures.Inc()
		s.log.Warn("metric record discarded", zap.String("event", event), zap.Error(err))
		return
	}

	s.cache.Upsert(rec)
	s.log.Debug("cached metric",
		zap.String("name", rec.Name),
		zap.String("type", string(rec.Type)),
		zap.Float64("value", rec.Value))
	s.flusher.Flush()
}

func (s *Server) evalField(event, field string, node *extract.Node, evalCtx string) string {
	if node == nil {
		return ""
	}
	raw, err := s.eval.Evaluate(node, evalCtx)
	if err != nil {
		s.stats.ExtractionFailures.Inc()
		s.log.Warn("field extraction failed",
			zap.String("event", event),
			zap.String("field", field),
			zap.Error(err))
		return ""
	}
	return raw
}

func (s *Server) handleDelete(w http.ResponseWriter, event string) {
	name := metric.SanitizeName(event)
	removed := s.cache.Delete(name)
	if removed == 0 {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	s.flusher.Flush()
	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"removed_metric": name,
		"series":         removed,
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"webhook_basepath":  s.cfg.Server.WebhookBasepath,
		"configured_events": s.configuredEvents(),
	})
}

func (s *Server) writeNoMatch(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]interface{}{
		"error":             "not found",
		"webhook_basepath":  s.cfg.Server.WebhookBasepath,
		"configured_events": s.configuredEvents(),
	})
}

func (s *Server) configuredEvents() []string {
	patterns := s.matcher.Patterns()
	events := make([]string, len(patterns))
	for i, p := range patterns {
		events[i] = s.cfg.Server.WebhookBasepath + "/ + /" + p + "/"
	}
	return events
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
