package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"

	"safesite-worker-go/internal/config"
	"safesite-worker-go/internal/models"
)

type Service struct {
	conn *nats.Conn
	cfg  *config.Config
}

func NewService(cfg *config.Config) (*Service, error) {
	opts := []nats.Option{
		nats.Name("safesite-worker"),
		nats.Timeout(cfg.NatsConnectTimeout),
		nats.ReconnectWait(cfg.NatsReconnectWait),
		nats.MaxReconnects(cfg.NatsMaxReconnects),
	}

	conn, err := nats.Connect(cfg.NatsURL, opts...)
	if err != nil {
		return nil, err
	}

	log.Info().Str("url", cfg.NatsURL).Msg("NATS connection established")

	return &Service{
		conn: conn,
		cfg:  cfg,
	}, nil
}

func (s *Service) Publish(subject string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return err
	}

	return s.conn.Publish(subject, payload)
}

// PublishViolationOpened announces a newly opened violation event.
func (s *Service) PublishViolationOpened(event models.ViolationEvent) error {
	return s.Publish(s.cfg.ViolationOpenedSubject, models.ViolationEventPayload{
		WorkerID:  s.cfg.WorkerID,
		Phase:     models.ViolationPhaseOpened,
		Event:     event,
		Label:     models.ViolationLabel(event.ViolationType),
		Timestamp: time.Now().UTC(),
	})
}

// PublishViolationClosed announces a resolved violation event.
func (s *Service) PublishViolationClosed(event models.ViolationEvent) error {
	return s.Publish(s.cfg.ViolationClosedSubject, models.ViolationEventPayload{
		WorkerID:  s.cfg.WorkerID,
		Phase:     models.ViolationPhaseClosed,
		Event:     event,
		Label:     models.ViolationLabel(event.ViolationType),
		Timestamp: time.Now().UTC(),
	})
}

func (s *Service) Subscribe(subject string, handler func([]byte)) (*nats.Subscription, error) {
	return s.conn.Subscribe(subject, func(msg *nats.Msg) {
		handler(msg.Data)
	})
}

func (s *Service) QueueSubscribe(subject, queue string, handler func([]byte)) (*nats.Subscription, error) {
	return s.conn.QueueSubscribe(subject, queue, func(msg *nats.Msg) {
		handler(msg.Data)
	})
}

func (s *Service) IsConnected() bool {
	return s.conn != nil && s.conn.IsConnected()
}

func (s *Service) Shutdown(ctx context.Context) error {
	if s.conn != nil {
		// Try graceful drain with timeout, fallback to immediate close
		if err := s.conn.Drain(); err != nil {
			log.Warn().Err(err).Msg("Failed to drain NATS connection gracefully, closing immediately")
			s.conn.Close()
		}
	}
	return nil
}
