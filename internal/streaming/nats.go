package streaming

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	"grchub/internal/config"
	"grchub/internal/domain/models"
	"grchub/pkg/logger"
)

// Publisher publishes domain events to NATS. All publishing is best-effort:
// a broker problem is logged, never propagated to the request that raised
// the event. A nil *Publisher is safe to call.
type Publisher struct {
	conn   *nats.Conn
	config config.NATSConfig
	logger *logger.Logger

	mu        sync.RWMutex
	connected bool
}

// NewPublisher connects to NATS and returns a publisher
func NewPublisher(cfg config.NATSConfig, log *logger.Logger) (*Publisher, error) {
	log = log.WithComponent("nats")

	if cfg.URL == "" {
		cfg.URL = nats.DefaultURL
	}

	log.Info().Str("url", cfg.URL).Msg("connecting to NATS")

	conn, err := nats.Connect(cfg.URL,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			log.Info().Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			log.Info().Msg("NATS connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	return &Publisher{
		conn:      conn,
		config:    cfg,
		logger:    log,
		connected: true,
	}, nil
}

// Close closes the NATS connection
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		p.conn.Close()
		p.connected = false
	}
}

// IsConnected reports whether the publisher holds a live connection
func (p *Publisher) IsConnected() bool {
	if p == nil {
		return false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.connected && p.conn != nil && p.conn.IsConnected()
}

// PublishRiskCreated publishes a risk-created event
func (p *Publisher) PublishRiskCreated(ctx context.Context, risk *models.Risk) {
	if p == nil {
		return
	}
	p.publish(p.config.Subjects.RiskCreated, NewRiskEvent(EventTypeRiskCreated, risk))
}

// PublishRiskUpdated publishes a risk-updated event
func (p *Publisher) PublishRiskUpdated(ctx context.Context, risk *models.Risk) {
	if p == nil {
		return
	}
	p.publish(p.config.Subjects.RiskUpdated, NewRiskEvent(EventTypeRiskUpdated, risk))
}

// PublishTreatmentUpdated publishes a treatment-updated event
func (p *Publisher) PublishTreatmentUpdated(ctx context.Context, plan *models.TreatmentPlan) {
	if p == nil {
		return
	}
	p.publish(p.config.Subjects.TreatmentUpdated, &TreatmentEvent{
		ID:        uuid.New().String(),
		Type:      EventTypeTreatmentUpdated,
		Timestamp: time.Now(),
		PlanID:    plan.ID.String(),
		RiskID:    plan.RiskID.String(),
		Status:    plan.Status,
	})
}

// PublishEPSSRefreshed publishes an EPSS refresh report
func (p *Publisher) PublishEPSSRefreshed(ctx context.Context, report models.RefreshReport) {
	if p == nil {
		return
	}
	p.publish(p.config.Subjects.EPSSRefreshed, &RefreshEvent{
		ID:        uuid.New().String(),
		Type:      EventTypeEPSSRefreshed,
		Timestamp: time.Now(),
		Report:    report,
	})
}

// publish is a no-op on a nil or disconnected publisher, so callers can
// fire events unconditionally
func (p *Publisher) publish(subject string, event any) {
	if p == nil || !p.IsConnected() || subject == "" {
		return
	}

	data, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Str("subject", subject).Msg("failed to marshal event")
		return
	}

	if err := p.conn.Publish(subject, data); err != nil {
		p.logger.Warn().Err(err).Str("subject", subject).Msg("failed to publish event")
	}
}
