package monitor

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"safesite-worker-go/internal/config"
	"safesite-worker-go/internal/helpers"
	"safesite-worker-go/internal/metrics"
	"safesite-worker-go/internal/models"
	"safesite-worker-go/internal/services/association"
	"safesite-worker-go/internal/services/detection"
	"safesite-worker-go/internal/services/snapshot"
	"safesite-worker-go/internal/services/violation"
)

// Publisher is the outbound event stream. Satisfied by messaging.Service; nil
// publishers are tolerated so the worker can run without a broker.
type Publisher interface {
	PublishViolationOpened(event models.ViolationEvent) error
	PublishViolationClosed(event models.ViolationEvent) error
}

// Service runs the per-channel detection pipeline: frames arriving at detection
// cadence are inferred, associated into compliance records, fed to the
// violation tracker, and the resulting deltas are persisted, evidenced, and
// published.
type Service struct {
	cfg       *config.Config
	detector  detection.Detector
	engine    *association.Engine
	tracker   *violation.Tracker
	store     violation.EventStore
	snapshots snapshot.Store
	publisher Publisher

	mu       sync.Mutex
	channels map[string]*channelWorker
}

// channelWorker is a single channel's detection queue and metadata.
type channelWorker struct {
	channel *models.CameraChannel
	queue   chan *models.Frame
	done    chan struct{}
}

func NewService(
	cfg *config.Config,
	detector detection.Detector,
	engine *association.Engine,
	tracker *violation.Tracker,
	store violation.EventStore,
	snapshots snapshot.Store,
	publisher Publisher,
) *Service {
	return &Service{
		cfg:       cfg,
		detector:  detector,
		engine:    engine,
		tracker:   tracker,
		store:     store,
		snapshots: snapshots,
		publisher: publisher,
		channels:  make(map[string]*channelWorker),
	}
}

// Register starts a detection worker for the channel. Must be called before
// frames for that channel arrive. Returns false when the camera already has a
// worker, which is left untouched; callers use this to decide whether a failed
// start owns the registration it would roll back.
func (s *Service) Register(channel *models.CameraChannel) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.channels[channel.CameraID]; ok {
		return false
	}

	w := &channelWorker{
		channel: channel,
		queue:   make(chan *models.Frame, s.cfg.DetectionQueueSize),
		done:    make(chan struct{}),
	}
	s.channels[channel.CameraID] = w
	go s.run(w)

	log.Info().
		Str("camera_id", channel.CameraID).
		Str("sector", channel.Sector).
		Msg("Detection pipeline registered for channel")
	return true
}

// HandleFrame enqueues a detection-cadence frame. Never blocks: when the queue
// is full the oldest queued frame is dropped so inference always sees the most
// recent scene.
func (s *Service) HandleFrame(channelID string, frame *models.Frame) {
	s.mu.Lock()
	w := s.channels[channelID]
	s.mu.Unlock()

	if w == nil {
		return
	}

	for {
		select {
		case w.queue <- frame:
			return
		default:
		}
		select {
		case <-w.queue:
		default:
		}
	}
}

// HandleChannelDown closes the channel's tracking session and stops its
// worker. Open events are resolved as session-ended.
func (s *Service) HandleChannelDown(channelID string) {
	s.mu.Lock()
	w := s.channels[channelID]
	delete(s.channels, channelID)
	s.mu.Unlock()

	if w == nil {
		return
	}
	close(w.done)

	closed := s.tracker.CloseSession(channelID)
	for _, event := range closed {
		s.finalizeClosed(w.channel, event, nil, association.Result{})
	}

	log.Info().
		Str("camera_id", channelID).
		Int("closed_events", len(closed)).
		Msg("Detection pipeline unregistered for channel")
}

// Shutdown stops all channel workers and closes their tracking sessions.
func (s *Service) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	ids := make([]string, 0, len(s.channels))
	for id := range s.channels {
		ids = append(ids, id)
	}
	s.mu.Unlock()

	for _, id := range ids {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		s.HandleChannelDown(id)
	}
	return nil
}

// run drains the channel's queue until the worker is stopped.
func (s *Service) run(w *channelWorker) {
	for {
		select {
		case <-w.done:
			return
		case frame := <-w.queue:
			s.process(w.channel, frame)
		}
	}
}

// process runs one frame through detect, associate, track, and the resulting
// event deltas through evidence, storage, and publish.
func (s *Service) process(channel *models.CameraChannel, frame *models.Frame) {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.DetectorTimeout)
	defer cancel()

	detections, err := s.detector.Detect(ctx, frame, channel.Sector, s.cfg.ConfidenceThreshold)
	if err != nil {
		metrics.DetectorFailures.Inc()
		log.Warn().
			Str("camera_id", channel.CameraID).
			Err(err).
			Msg("Detection failed, skipping frame")
		return
	}
	metrics.FramesDetected.WithLabelValues(channel.CameraID).Inc()

	result := s.engine.Associate(detections, association.RequiredEquipment(channel.Sector))
	opened, closed := s.tracker.ProcessFrame(channel.CameraID, channel.CompanyID, result.People, frame)

	for _, event := range opened {
		s.finalizeOpened(channel, event, frame, result)
	}
	for _, event := range closed {
		s.finalizeClosed(channel, event, frame, result)
	}
}

func (s *Service) finalizeOpened(channel *models.CameraChannel, event *models.ViolationEvent, frame *models.Frame, result association.Result) {
	if path := s.captureEvidence(channel, event, frame, result, "opened"); path != "" {
		event.SnapshotPath = path
	}

	if err := s.store.AddViolationEvent(context.Background(), event); err != nil {
		log.Error().
			Str("camera_id", channel.CameraID).
			Str("event_id", event.EventID).
			Err(err).
			Msg("Failed to persist opened violation event")
	}

	if s.publisher != nil {
		if err := s.publisher.PublishViolationOpened(*event); err != nil {
			log.Warn().
				Str("event_id", event.EventID).
				Err(err).
				Msg("Failed to publish opened violation event")
		}
	}
	metrics.ViolationsOpened.WithLabelValues(event.ViolationType).Inc()
}

func (s *Service) finalizeClosed(channel *models.CameraChannel, event *models.ViolationEvent, frame *models.Frame, result association.Result) {
	// A resolution snapshot only makes sense when the person is still in view
	// wearing the equipment; person-left and session-end closures have no
	// frame to show.
	if event.ResolutionReason == models.ResolutionEquipmentRestored && frame != nil {
		if path := s.captureEvidence(channel, event, frame, result, "resolved"); path != "" {
			event.ResolutionSnapshotPath = path
		}
	}

	if err := s.store.UpdateViolationEvent(context.Background(), event); err != nil {
		log.Error().
			Str("camera_id", channel.CameraID).
			Str("event_id", event.EventID).
			Err(err).
			Msg("Failed to persist closed violation event")
	}

	duration := 0.0
	if event.DurationSeconds != nil {
		duration = *event.DurationSeconds
	}
	if err := s.store.UpdatePersonMonthlyStat(context.Background(), event.PersonID, event.CompanyID, event.ViolationType, duration); err != nil {
		log.Warn().
			Str("event_id", event.EventID).
			Err(err).
			Msg("Failed to update person monthly stat")
	}

	if s.publisher != nil {
		if err := s.publisher.PublishViolationClosed(*event); err != nil {
			log.Warn().
				Str("event_id", event.EventID).
				Err(err).
				Msg("Failed to publish closed violation event")
		}
	}
	metrics.ViolationsClosed.WithLabelValues(event.ViolationType).Inc()
}

// captureEvidence annotates the frame and stores it, returning the stored
// reference or empty when the capture policy rejects the frame.
func (s *Service) captureEvidence(channel *models.CameraChannel, event *models.ViolationEvent, frame *models.Frame, result association.Result, kind string) string {
	if s.snapshots == nil || frame == nil {
		return ""
	}

	if !helpers.EvidenceUsable(event.LastBBox, frame.Bounds(), s.cfg.MinEvidenceAreaRatio) {
		log.Debug().
			Str("camera_id", channel.CameraID).
			Str("event_id", event.EventID).
			Msg("Person box too small or out of frame, skipping evidence snapshot")
		return ""
	}

	annotated, err := helpers.AnnotateSnapshot(frame.Data, result.People, result.Drawables, s.cfg.SnapshotJPEGQuality)
	if err != nil {
		// Fall back to the raw frame rather than losing the evidence.
		log.Warn().
			Str("camera_id", channel.CameraID).
			Err(err).
			Msg("Failed to annotate evidence snapshot, storing raw frame")
		annotated = frame.Data
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.SnapshotTimeout)
	defer cancel()

	key := snapshot.ObjectKey(channel.CompanyID, channel.CameraID, event.ViolationType, event.EventID, kind, frame.Timestamp)
	path, err := s.snapshots.Save(ctx, key, annotated, "image/jpeg")
	if err != nil {
		metrics.SnapshotFailures.Inc()
		log.Warn().
			Str("camera_id", channel.CameraID).
			Str("event_id", event.EventID).
			Err(err).
			Msg("Failed to store evidence snapshot")
		return ""
	}
	return path
}
