// Package events publishes dashboard session transitions to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"chainscope.io/dashboard/internal/dashboard"
	"chainscope.io/dashboard/internal/logging"
	"chainscope.io/dashboard/internal/metrics"
)

const DefaultSubjectPrefix = "chainscope.dashboard"

// Conn is the part of *nats.Conn the publisher uses.
type Conn interface {
	Publish(subject string, data []byte) error
	Drain() error
	Close()
}

type NATSPublisher struct {
	nc      Conn
	prefix  string
	logger  *slog.Logger
	metrics *metrics.Collector
}

// Connect dials url and returns a publisher on the default subject prefix.
func Connect(url string, logger *slog.Logger, m *metrics.Collector) (*NATSPublisher, error) {
	log := logging.Component(logger, "nats_publisher")
	nc, err := nats.Connect(url,
		nats.Name("chainscope-dashboard"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("nats disconnected", slog.String("error", err.Error()))
				return
			}
			log.Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("nats reconnected", slog.String("url", c.ConnectedUrl()))
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info("nats closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connecting to nats: %w", err)
	}
	return NewNATSPublisher(nc, DefaultSubjectPrefix, logger, m), nil
}

func NewNATSPublisher(nc Conn, prefix string, logger *slog.Logger, m *metrics.Collector) *NATSPublisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATSPublisher{
		nc:      nc,
		prefix:  prefix,
		logger:  logging.Component(logger, "nats_publisher"),
		metrics: m,
	}
}

// Subject is <prefix>.<session>.<phase>.
func (p *NATSPublisher) Subject(ev dashboard.Event) string {
	return fmt.Sprintf("%s.%s.%s", p.prefix, subjectToken(ev.SessionID), subjectToken(string(ev.Phase)))
}

// Notify publishes ev as JSON.
func (p *NATSPublisher) Notify(ctx context.Context, ev dashboard.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encoding event: %w", err)
	}

	subject := p.Subject(ev)
	err = p.nc.Publish(subject, b)
	p.metrics.EventPublished(err)
	if err != nil {
		return fmt.Errorf("publishing %s: %w", subject, err)
	}
	p.logger.Debug("published dashboard event", slog.String("subject", subject))
	return nil
}

func (p *NATSPublisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		logging.LogError(p.logger, "nats drain failed", err)
	}
	p.nc.Close()
}

// subjectToken makes s usable as a single NATS subject token.
func subjectToken(s string) string {
	s = strings.TrimSpace(s)
	repl := strings.NewReplacer(" ", "_", ".", "_", ">", "_", "*", "_", "/", "_", "\t", "_")
	s = repl.Replace(s)
	if s == "" {
		s = "_"
	}
	return s
}
