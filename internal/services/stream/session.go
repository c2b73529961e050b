package stream

import (
	"sync"
	"time"

	"safesite-worker-go/internal/models"
)

const fpsWindowSize = 30

// channelSession is the runtime state of one active connection. Owned
// exclusively by the Manager; callers only ever see Snapshot copies.
type channelSession struct {
	channel *models.CameraChannel
	buffer  *FrameBuffer

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once

	mu                sync.RWMutex
	status            models.StreamStatus
	frameCounter      int64
	consecutiveErrors int
	lastFrameTime     time.Time
	startedAt         time.Time
	lastErr           string
	recentFrameTimes  []time.Time
}

func newChannelSession(channel *models.CameraChannel, bufferCapacity int) *channelSession {
	return &channelSession{
		channel:   channel,
		buffer:    NewFrameBuffer(bufferCapacity),
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
		status:    models.StreamStarting,
		startedAt: time.Now(),
	}
}

func (s *channelSession) stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
	})
}

func (s *channelSession) stopped() bool {
	select {
	case <-s.stopCh:
		return true
	default:
		return false
	}
}

func (s *channelSession) setStatus(status models.StreamStatus, lastErr string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	if lastErr != "" {
		s.lastErr = lastErr
	}
}

// recordFrame accounts for one successfully decoded frame and returns it as a
// models.Frame.
func (s *channelSession) recordFrame(data []byte, width, height int) *models.Frame {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.frameCounter++
	s.consecutiveErrors = 0
	s.lastFrameTime = now

	s.recentFrameTimes = append(s.recentFrameTimes, now)
	if len(s.recentFrameTimes) > fpsWindowSize {
		s.recentFrameTimes = s.recentFrameTimes[1:]
	}

	return &models.Frame{
		CameraID:  s.channel.CameraID,
		FrameID:   s.frameCounter,
		Data:      data,
		Width:     width,
		Height:    height,
		Timestamp: now,
	}
}

func (s *channelSession) recordReadError(consecutive int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consecutiveErrors = consecutive
}

// fps over a rolling window of recent frame timestamps. Caller holds s.mu.
func (s *channelSession) fpsLocked() float64 {
	if len(s.recentFrameTimes) < 2 {
		return 0
	}
	span := s.recentFrameTimes[len(s.recentFrameTimes)-1].Sub(s.recentFrameTimes[0]).Seconds()
	if span <= 0 {
		return 0
	}
	return float64(len(s.recentFrameTimes)-1) / span
}

// Snapshot returns a point-in-time copy of the session state.
func (s *channelSession) Snapshot() models.StreamSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return models.StreamSession{
		ChannelID:         s.channel.CameraID,
		Status:            s.status,
		WorkingURL:        s.channel.WorkingURL,
		FrameCounter:      s.frameCounter,
		ConsecutiveErrors: s.consecutiveErrors,
		LastFrameTime:     s.lastFrameTime,
		StartedAt:         s.startedAt,
		LastError:         s.lastErr,
		FPS:               s.fpsLocked(),
	}
}
