package stream

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"safesite-worker-go/internal/config"
	"safesite-worker-go/internal/logging"
	"safesite-worker-go/internal/metrics"
	"safesite-worker-go/internal/models"
)

// Consumer receives the detection-cadence frame feed from the Manager. Calls
// must not block: the Manager invokes them from capture loops.
type Consumer interface {
	// HandleFrame is called with every Kth decoded frame of a channel.
	HandleFrame(channelID string, frame *models.Frame)
	// HandleChannelDown is called once when a channel's capture loop exits,
	// whether by stop request or exhausted reconnection.
	HandleChannelDown(channelID string)
}

// Manager owns one connection per camera channel: URL discovery, capture
// loops, reconnection and the per-channel frame buffers. A single Manager is
// constructed at process start and injected into its callers.
type Manager struct {
	cfg  *config.Config
	open OpenFunc

	mu       sync.RWMutex
	sessions map[string]*channelSession
	consumer Consumer
}

// NewManager creates a stream manager using the given source opener.
func NewManager(cfg *config.Config, open OpenFunc) *Manager {
	log.Info().
		Int("max_channels", cfg.MaxChannels).
		Int("frame_buffer_capacity", cfg.FrameBufferCapacity).
		Int("detection_interval", cfg.DetectionInterval).
		Msg("Stream manager initialized")

	return &Manager{
		cfg:      cfg,
		open:     open,
		sessions: make(map[string]*channelSession),
	}
}

// SetConsumer registers the detection-cadence consumer. Must be called before
// the first Start.
func (m *Manager) SetConsumer(c Consumer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.consumer = c
}

// Start runs URL discovery for the channel and, on success, launches its
// capture loop. Discovery failure is a hard start failure: the channel stays
// stopped and is not retried automatically.
func (m *Manager) Start(channel *models.CameraChannel) error {
	m.mu.Lock()
	if existing, ok := m.sessions[channel.CameraID]; ok {
		status := existing.Snapshot().Status
		if status == models.StreamStarting || status == models.StreamActive {
			m.mu.Unlock()
			return fmt.Errorf("camera %s: %w", channel.CameraID, ErrAlreadyActive)
		}
	} else if len(m.sessions) >= m.cfg.MaxChannels {
		m.mu.Unlock()
		return fmt.Errorf("%w (%d)", ErrMaxChannels, m.cfg.MaxChannels)
	}

	sess := newChannelSession(channel, m.cfg.FrameBufferCapacity)
	m.sessions[channel.CameraID] = sess
	m.mu.Unlock()

	log.Info().
		Str("camera_id", channel.CameraID).
		Str("address", channel.Address).
		Str("brand_hint", channel.BrandHint).
		Msg("Starting channel discovery")

	src, err := m.discover(sess)
	if err != nil {
		sess.setStatus(models.StreamStopped, err.Error())
		close(sess.doneCh)
		return fmt.Errorf("discovery for camera %s: %w", channel.CameraID, err)
	}

	go m.captureLoop(sess, src)
	return nil
}

// Stop requests a cooperative shutdown of the channel's capture loop and
// waits briefly for it to exit. Idempotent for known channels.
func (m *Manager) Stop(channelID string) error {
	m.mu.RLock()
	sess := m.sessions[channelID]
	m.mu.RUnlock()

	if sess == nil {
		return fmt.Errorf("camera %s: %w", channelID, ErrChannelNotFound)
	}

	sess.stop()
	select {
	case <-sess.doneCh:
	case <-time.After(m.cfg.StopJoinTimeout):
		log.Warn().Str("camera_id", channelID).Msg("Capture loop did not exit within join timeout")
	}
	return nil
}

// Remove stops a channel and deletes it from the registry.
func (m *Manager) Remove(channelID string) error {
	if err := m.Stop(channelID); err != nil {
		return err
	}
	m.mu.Lock()
	delete(m.sessions, channelID)
	m.mu.Unlock()
	return nil
}

// Status returns a snapshot of the channel's session.
func (m *Manager) Status(channelID string) (models.StreamSession, error) {
	m.mu.RLock()
	sess := m.sessions[channelID]
	m.mu.RUnlock()

	if sess == nil {
		return models.StreamSession{}, fmt.Errorf("camera %s: %w", channelID, ErrChannelNotFound)
	}
	return sess.Snapshot(), nil
}

// LatestFrame returns a copy of the most recent buffered frame, or nil when
// the channel is unknown or has not produced a frame. Never blocks.
func (m *Manager) LatestFrame(channelID string) *models.Frame {
	m.mu.RLock()
	sess := m.sessions[channelID]
	m.mu.RUnlock()

	if sess == nil {
		return nil
	}
	return sess.buffer.Latest()
}

// Channels lists all registered channels with their session snapshots.
func (m *Manager) Channels() []models.ChannelResponse {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.ChannelResponse, 0, len(m.sessions))
	for _, sess := range m.sessions {
		out = append(out, models.ChannelResponse{
			CameraID:  sess.channel.CameraID,
			CompanyID: sess.channel.CompanyID,
			Address:   sess.channel.Address,
			Sector:    sess.channel.Sector,
			Session:   sess.Snapshot(),
		})
	}
	return out
}

// ActiveCount returns the number of channels currently active.
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	active := 0
	for _, sess := range m.sessions {
		if sess.Snapshot().Status == models.StreamActive {
			active++
		}
	}
	return active
}

// Shutdown stops all channels, bounded by ctx.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.RLock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.mu.RUnlock()

	for _, id := range ids {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := m.Stop(id); err != nil && !errors.Is(err, ErrChannelNotFound) {
			log.Warn().Err(err).Str("camera_id", id).Msg("Error stopping channel during shutdown")
		}
	}
	return nil
}

// discover probes the candidate ladder until one URL yields an open
// connection and a decoded frame. The winning URL is cached on the channel
// and the first frame seeds the buffer.
func (m *Manager) discover(sess *channelSession) (Source, error) {
	channel := sess.channel

	for _, cand := range CandidateURLs(channel) {
		if sess.stopped() {
			return nil, ErrStopRequested
		}

		src, data, w, h, err := m.probe(cand.URL, m.cfg.ProbeTimeout)
		if err != nil {
			log.Debug().
				Str("camera_id", channel.CameraID).
				Str("brand", cand.Brand).
				Err(err).
				Msg("Candidate URL rejected")
			continue
		}

		channel.WorkingURL = cand.URL
		channel.WorkingBrand = cand.Brand
		sess.buffer.Push(sess.recordFrame(data, w, h))
		sess.setStatus(models.StreamActive, "")
		metrics.DiscoverySuccesses.WithLabelValues(cand.Brand).Inc()

		log.Info().
			Str("camera_id", channel.CameraID).
			Str("brand", cand.Brand).
			Msg("Adopted working stream URL")
		return src, nil
	}

	metrics.DiscoveryFailures.Inc()
	return nil, ErrDiscoveryFailed
}

// probe opens a candidate and requires one decoded frame, all within timeout.
func (m *Manager) probe(rawURL string, timeout time.Duration) (Source, []byte, int, int, error) {
	deadline := time.Now().Add(timeout)

	src, err := m.open(rawURL, timeout)
	if err != nil {
		return nil, nil, 0, 0, err
	}

	type readResult struct {
		data []byte
		w, h int
		err  error
	}
	done := make(chan readResult, 1)
	go func() {
		data, w, h, rerr := src.ReadFrame()
		done <- readResult{data: data, w: w, h: h, err: rerr}
	}()

	remaining := time.Until(deadline)
	if remaining < 100*time.Millisecond {
		remaining = 100 * time.Millisecond
	}

	select {
	case res := <-done:
		if res.err != nil {
			src.Close()
			return nil, nil, 0, 0, fmt.Errorf("first read: %w", res.err)
		}
		return src, res.data, res.w, res.h, nil
	case <-time.After(remaining):
		// Close only after the pending read returns; Source is not safe for
		// concurrent Close.
		go func() {
			<-done
			src.Close()
		}()
		return nil, nil, 0, 0, fmt.Errorf("first read timed out after %s", timeout)
	}
}

// captureLoop reads frames as fast as the source allows, refreshing the
// buffer with every frame and forwarding every Kth frame to the consumer.
func (m *Manager) captureLoop(sess *channelSession, src Source) {
	channelID := sess.channel.CameraID
	logger := logging.WithCamera(logging.NewServiceLogger(m.cfg, "stream"), channelID)
	metrics.ActiveChannels.Inc()
	defer metrics.ActiveChannels.Dec()
	defer close(sess.doneCh)
	defer func() {
		if src != nil {
			src.Close()
		}
		m.notifyDown(channelID)
	}()

	interval := int64(m.cfg.DetectionInterval)
	if interval < 1 {
		interval = 1
	}
	consecutive := 0

	for {
		select {
		case <-sess.stopCh:
			sess.setStatus(models.StreamStopped, "")
			logger.Info().Msg("Capture loop stopped on request")
			return
		default:
		}

		data, w, h, err := src.ReadFrame()
		if err != nil {
			consecutive++
			sess.recordReadError(consecutive)
			logger.Warn().
				Int("consecutive_errors", consecutive).
				Err(err).
				Msg("Failed to read frame")

			if consecutive >= m.cfg.MaxConsecutiveErrors {
				src.Close()
				src = nil

				newSrc, rerr := m.reconnect(sess, logger)
				if rerr != nil {
					if errors.Is(rerr, ErrStopRequested) {
						sess.setStatus(models.StreamStopped, "")
					} else {
						sess.setStatus(models.StreamStopped, rerr.Error())
						logger.Error().
							Err(rerr).
							Msg("Reconnection exhausted, channel failed")
					}
					return
				}
				src = newSrc
				consecutive = 0
			} else {
				select {
				case <-sess.stopCh:
					sess.setStatus(models.StreamStopped, "")
					return
				case <-time.After(m.cfg.ReadRetryDelay):
				}
			}
			continue
		}

		consecutive = 0
		frame := sess.recordFrame(data, w, h)
		sess.buffer.Push(frame)
		metrics.FramesCaptured.WithLabelValues(channelID).Inc()

		if frame.FrameID%interval == 0 {
			m.notifyFrame(channelID, frame)
		}
	}
}

// reconnect runs the bounded reconnect-with-rediscovery path after a
// connection loss. Cancellable mid-sequence by a stop request.
func (m *Manager) reconnect(sess *channelSession, logger zerolog.Logger) (Source, error) {
	channelID := sess.channel.CameraID
	sess.setStatus(models.StreamError, "connection lost")

	for attempt := 1; attempt <= m.cfg.ReconnectMaxAttempts; attempt++ {
		delay := m.backoffDelay(attempt)
		logger.Warn().
			Int("attempt", attempt).
			Dur("delay", delay).
			Msg("Reconnecting after connection loss")

		select {
		case <-sess.stopCh:
			return nil, ErrStopRequested
		case <-time.After(delay):
		}

		sess.setStatus(models.StreamStarting, "")
		metrics.Reconnects.WithLabelValues(channelID).Inc()

		// Re-run full discovery: the previously working URL may no longer be
		// valid after a device restart.
		src, err := m.discover(sess)
		if err != nil {
			if errors.Is(err, ErrStopRequested) {
				return nil, err
			}
			sess.setStatus(models.StreamError, err.Error())
			continue
		}
		return src, nil
	}

	return nil, fmt.Errorf("after %d attempts: %w", m.cfg.ReconnectMaxAttempts, ErrDiscoveryFailed)
}

// backoffDelay returns the jittered exponential delay for a reconnect attempt.
func (m *Manager) backoffDelay(attempt int) time.Duration {
	delay := time.Duration(math.Pow(2, float64(attempt-1))) * time.Second

	if delay < m.cfg.ReconnectBackoffMin {
		delay = m.cfg.ReconnectBackoffMin
	}
	if delay > m.cfg.ReconnectBackoffMax {
		delay = m.cfg.ReconnectBackoffMax
	}

	jitterPct := float64(m.cfg.ReconnectJitterPct) / 100.0
	jitter := time.Duration(float64(delay) * jitterPct * (rand.Float64()*2 - 1))
	return delay + jitter
}

func (m *Manager) notifyFrame(channelID string, frame *models.Frame) {
	m.mu.RLock()
	consumer := m.consumer
	m.mu.RUnlock()

	if consumer != nil {
		consumer.HandleFrame(channelID, frame)
	}
}

func (m *Manager) notifyDown(channelID string) {
	m.mu.RLock()
	consumer := m.consumer
	m.mu.RUnlock()

	if consumer != nil {
		consumer.HandleChannelDown(channelID)
	}
}
