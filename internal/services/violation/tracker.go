package violation

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"safesite-worker-go/internal/models"
)

// Tracker converts per-frame person records into bounded violation events.
// State machine per (camera, identity, violation type): Absent and Active. All
// side effects stay in the tracker's own memory; persistence and snapshotting
// are the caller's job, using the returned event deltas.
type Tracker struct {
	resolver PersonIdentityResolver
	grace    time.Duration

	mu      sync.Mutex
	cameras map[string]*cameraState
}

// cameraState is mutated only under its own lock, so cameras never contend
// with each other.
type cameraState struct {
	mu            sync.Mutex
	persons       map[string]*personState
	lastTimestamp time.Time
}

type personState struct {
	id       string
	lastBBox models.BBox
	lastSeen time.Time
	open     map[string]*models.ViolationEvent // keyed by violation type
}

// NewTracker creates a tracker. grace is how long an identity may go unseen
// before its open events are closed as person_left; zero disables the sweep.
func NewTracker(resolver PersonIdentityResolver, grace time.Duration) *Tracker {
	return &Tracker{
		resolver: resolver,
		grace:    grace,
		cameras:  make(map[string]*cameraState),
	}
}

// ProcessFrame feeds one frame's person records through the state machine and
// returns the events opened and closed by this call. Timestamps are clamped
// non-decreasing per camera so durations stay valid.
func (t *Tracker) ProcessFrame(cameraID, companyID string, records []models.PersonRecord, frame *models.Frame) (opened, closed []*models.ViolationEvent) {
	cam := t.camera(cameraID)
	cam.mu.Lock()
	defer cam.mu.Unlock()

	ts := frame.Timestamp
	if ts.Before(cam.lastTimestamp) {
		ts = cam.lastTimestamp
	}
	cam.lastTimestamp = ts

	for _, record := range records {
		o, c := t.processLocked(cam, cameraID, companyID, record, frame.Bounds(), ts)
		opened = append(opened, o...)
		closed = append(closed, c...)
	}

	closed = append(closed, t.sweepAbsentLocked(cam, ts)...)
	return opened, closed
}

// Process runs the state machine for a single person. Exposed for callers
// that resolve identity and cadence themselves.
func (t *Tracker) Process(cameraID, companyID string, personBBox models.BBox, missing []string, frame *models.Frame) (opened, closed []*models.ViolationEvent) {
	cam := t.camera(cameraID)
	cam.mu.Lock()
	defer cam.mu.Unlock()

	ts := frame.Timestamp
	if ts.Before(cam.lastTimestamp) {
		ts = cam.lastTimestamp
	}
	cam.lastTimestamp = ts

	record := models.PersonRecord{BBox: personBBox}
	for _, vt := range missing {
		record.Missing = append(record.Missing, kindForViolation(vt))
	}
	return t.processLocked(cam, cameraID, companyID, record, frame.Bounds(), ts)
}

func (t *Tracker) processLocked(cam *cameraState, cameraID, companyID string, record models.PersonRecord, frameBounds models.BBox, ts time.Time) (opened, closed []*models.ViolationEvent) {
	candidates := make([]TrackedPerson, 0, len(cam.persons))
	for _, p := range cam.persons {
		candidates = append(candidates, TrackedPerson{
			PersonID: p.id,
			LastBBox: p.lastBBox,
			LastSeen: p.lastSeen,
		})
	}

	personID, matched := t.resolver.Match(candidates, record.BBox, frameBounds)
	if !matched {
		personID = uuid.NewString()
		cam.persons[personID] = &personState{
			id:   personID,
			open: make(map[string]*models.ViolationEvent),
		}
	}

	person := cam.persons[personID]
	person.lastBBox = record.BBox
	person.lastSeen = ts

	missing := make(map[string]bool, len(record.Missing))
	for _, vt := range record.MissingViolationTypes() {
		missing[vt] = true
	}

	// Absent -> Active: open one event per newly missing violation type. An
	// already-open event just refreshes its last box (Active -> Active).
	for vt := range missing {
		if event, ok := person.open[vt]; ok {
			event.LastBBox = record.BBox
			continue
		}
		event := &models.ViolationEvent{
			EventID:       uuid.NewString(),
			CompanyID:     companyID,
			CameraID:      cameraID,
			PersonID:      personID,
			ViolationType: vt,
			Severity:      models.SeverityFor(vt),
			Status:        models.ViolationActive,
			StartTime:     ts,
			LastBBox:      record.BBox,
		}
		person.open[vt] = event
		opened = append(opened, event)

		log.Info().
			Str("camera_id", cameraID).
			Str("person_id", personID).
			Str("violation_type", vt).
			Msg("Violation event opened")
	}

	// Active -> Absent: the violation no longer appears for this person.
	for vt, event := range person.open {
		if missing[vt] {
			continue
		}
		closeEvent(event, ts, models.ResolutionEquipmentRestored)
		event.LastBBox = record.BBox
		delete(person.open, vt)
		closed = append(closed, event)

		log.Info().
			Str("camera_id", cameraID).
			Str("person_id", personID).
			Str("violation_type", vt).
			Float64("duration_seconds", *event.DurationSeconds).
			Msg("Violation event resolved")
	}

	return opened, closed
}

// sweepAbsentLocked closes events of identities unseen longer than the grace
// period. Disappearance is not resolution: these closes carry the person_left
// reason so callers skip the resolution snapshot.
func (t *Tracker) sweepAbsentLocked(cam *cameraState, now time.Time) []*models.ViolationEvent {
	if t.grace <= 0 {
		return nil
	}

	var closed []*models.ViolationEvent
	for id, person := range cam.persons {
		if now.Sub(person.lastSeen) <= t.grace {
			continue
		}
		for vt, event := range person.open {
			closeEvent(event, now, models.ResolutionPersonLeft)
			delete(person.open, vt)
			closed = append(closed, event)
		}
		delete(cam.persons, id)
	}
	return closed
}

// CloseSession closes every open event for a camera (monitoring session
// boundary, e.g. the channel was stopped) and drops its state.
func (t *Tracker) CloseSession(cameraID string) []*models.ViolationEvent {
	t.mu.Lock()
	cam := t.cameras[cameraID]
	delete(t.cameras, cameraID)
	t.mu.Unlock()

	if cam == nil {
		return nil
	}

	cam.mu.Lock()
	defer cam.mu.Unlock()

	now := cam.lastTimestamp
	if now.IsZero() {
		now = time.Now()
	}

	var closed []*models.ViolationEvent
	for _, person := range cam.persons {
		for vt, event := range person.open {
			closeEvent(event, now, models.ResolutionSessionEnd)
			delete(person.open, vt)
			closed = append(closed, event)
		}
	}
	cam.persons = make(map[string]*personState)
	return closed
}

// ActiveEvents returns copies of the open events for a camera, all cameras
// when cameraID is empty.
func (t *Tracker) ActiveEvents(cameraID string) []models.ViolationEvent {
	t.mu.Lock()
	cams := make([]*cameraState, 0, len(t.cameras))
	if cameraID != "" {
		if cam := t.cameras[cameraID]; cam != nil {
			cams = append(cams, cam)
		}
	} else {
		for _, cam := range t.cameras {
			cams = append(cams, cam)
		}
	}
	t.mu.Unlock()

	var events []models.ViolationEvent
	for _, cam := range cams {
		cam.mu.Lock()
		for _, person := range cam.persons {
			for _, event := range person.open {
				events = append(events, *event)
			}
		}
		cam.mu.Unlock()
	}
	return events
}

func (t *Tracker) camera(cameraID string) *cameraState {
	t.mu.Lock()
	defer t.mu.Unlock()

	cam, ok := t.cameras[cameraID]
	if !ok {
		cam = &cameraState{persons: make(map[string]*personState)}
		t.cameras[cameraID] = cam
	}
	return cam
}

func closeEvent(event *models.ViolationEvent, ts time.Time, reason models.ResolutionReason) {
	end := ts
	duration := end.Sub(event.StartTime).Seconds()
	if duration < 0 {
		duration = 0
	}
	event.EndTime = &end
	event.DurationSeconds = &duration
	event.Status = models.ViolationResolved
	event.ResolutionReason = reason
}

func kindForViolation(violationType string) models.EquipmentKind {
	switch violationType {
	case models.ViolationNoHelmet:
		return models.EquipmentHeadwear
	case models.ViolationNoVest:
		return models.EquipmentTorso
	case models.ViolationNoBoots:
		return models.EquipmentFeet
	}
	return ""
}
