// Package metrics exposes Prometheus counters for updates, deliveries and backups.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/m3rciful/notifybot/core/logger"
	"github.com/m3rciful/notifybot/core/telegram/middleware"

	tele "gopkg.in/telebot.v4"
)

var (
	UpdatesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifybot_updates_total",
		Help: "Inbound updates by kind and handler status.",
	}, []string{"kind", "status"})

	DeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifybot_broadcast_deliveries_total",
		Help: "Broadcast deliveries by audience and status.",
	}, []string{"audience", "status"})

	RepliesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifybot_replies_total",
		Help: "Queued replies by action and status.",
	}, []string{"action", "status"})

	BackupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "notifybot_backups_total",
		Help: "Backup runs by status.",
	}, []string{"status"})

	HandlerSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "notifybot_handler_seconds",
		Help:    "Update handling latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
)

// MustRegister registers every collector with registerer.
func MustRegister(registerer prometheus.Registerer) {
	registerer.MustRegister(UpdatesTotal, DeliveriesTotal, RepliesTotal, BackupsTotal, HandlerSeconds)
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// ObserveDelivery counts one broadcast send.
func ObserveDelivery(audience string, err error) {
	DeliveriesTotal.WithLabelValues(audience, status(err)).Inc()
}

// ObserveReply counts one dispatcher job.
func ObserveReply(action string, err error) {
	RepliesTotal.WithLabelValues(action, status(err)).Inc()
}

// ObserveBackup counts one backup run.
func ObserveBackup(err error) {
	BackupsTotal.WithLabelValues(status(err)).Inc()
}

// UpdateKind refines the middleware update class, splitting commands and
// photos out of plain messages.
func UpdateKind(c tele.Context) string {
	kind := middleware.UpdateKind(c)
	if kind != "message" {
		return kind
	}
	m := c.Update().Message
	switch {
	case m.Photo != nil:
		return "photo"
	case strings.HasPrefix(m.Text, "/"):
		return "command"
	}
	return kind
}

// Middleware counts updates and measures handler latency.
func Middleware(next tele.HandlerFunc) tele.HandlerFunc {
	return func(c tele.Context) error {
		kind := UpdateKind(c)
		start := time.Now()
		err := next(c)
		HandlerSeconds.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		UpdatesTotal.WithLabelValues(kind, status(err)).Inc()
		return err
	}
}

// Server serves /metrics until Shutdown.
type Server struct {
	srv *http.Server
}

// Start listens on addr in the background. An empty addr disables the server.
func Start(addr string, gatherer prometheus.Gatherer) *Server {
	if addr == "" {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	s := &Server{srv: &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}}
	go func() {
		logger.Info(logger.Background(), "metrics", "metrics.start", slog.String("listen", addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(logger.Background(), "metrics", "metrics.stop", slog.String("err", err.Error()))
		}
	}()
	return s
}

// Shutdown stops the server; nil receivers are ignored.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
