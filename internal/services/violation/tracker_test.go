package violation

import (
	"testing"
	"time"

	"safesite-worker-go/internal/models"
)

func frameAt(ts time.Time) *models.Frame {
	return &models.Frame{
		CameraID:  "cam-1",
		Width:     1920,
		Height:    1080,
		Timestamp: ts,
	}
}

func violator(box models.BBox, kinds ...models.EquipmentKind) models.PersonRecord {
	return models.PersonRecord{BBox: box, Missing: kinds}
}

func TestTrackerOpensOnFirstMissingFrame(t *testing.T) {
	tracker := NewTracker(NewSpatialResolver(0.3, 0.1), 0)
	base := time.Now()

	opened, closed := tracker.ProcessFrame("cam-1", "acme",
		[]models.PersonRecord{violator(models.BBox{X1: 100, Y1: 100, X2: 200, Y2: 400}, models.EquipmentHeadwear)},
		frameAt(base))

	if len(opened) != 1 || len(closed) != 0 {
		t.Fatalf("Expected 1 opened, 0 closed, got %d/%d", len(opened), len(closed))
	}

	event := opened[0]
	if event.EventID == "" {
		t.Error("Opened event should carry a generated ID")
	}
	if event.ViolationType != models.ViolationNoHelmet {
		t.Errorf("Expected no_helmet, got %s", event.ViolationType)
	}
	if event.Severity != models.AlertSeverityHigh {
		t.Errorf("Helmet violations are high severity, got %s", event.Severity)
	}
	if event.Status != models.ViolationActive {
		t.Errorf("Expected active status, got %s", event.Status)
	}
	if !event.StartTime.Equal(base) {
		t.Errorf("Start time should be the frame timestamp")
	}
	if event.CompanyID != "acme" || event.CameraID != "cam-1" {
		t.Errorf("Event missing company/camera: %+v", event)
	}
}

func TestTrackerRefreshesWithoutReopening(t *testing.T) {
	tracker := NewTracker(NewSpatialResolver(0.3, 0.1), 0)
	base := time.Now()
	box1 := models.BBox{X1: 100, Y1: 100, X2: 200, Y2: 400}
	box2 := models.BBox{X1: 110, Y1: 100, X2: 210, Y2: 400}

	tracker.ProcessFrame("cam-1", "acme",
		[]models.PersonRecord{violator(box1, models.EquipmentHeadwear)}, frameAt(base))
	opened, closed := tracker.ProcessFrame("cam-1", "acme",
		[]models.PersonRecord{violator(box2, models.EquipmentHeadwear)}, frameAt(base.Add(time.Second)))

	if len(opened) != 0 || len(closed) != 0 {
		t.Fatalf("Continuing violation should not emit deltas, got %d/%d", len(opened), len(closed))
	}

	active := tracker.ActiveEvents("cam-1")
	if len(active) != 1 {
		t.Fatalf("Expected exactly one open event, got %d", len(active))
	}
	if active[0].LastBBox != box2 {
		t.Error("Open event should track the latest person box")
	}
}

func TestTrackerClosesWhenEquipmentRestored(t *testing.T) {
	tracker := NewTracker(NewSpatialResolver(0.3, 0.1), 0)
	base := time.Now()
	box := models.BBox{X1: 100, Y1: 100, X2: 200, Y2: 400}

	tracker.ProcessFrame("cam-1", "acme",
		[]models.PersonRecord{violator(box, models.EquipmentHeadwear)}, frameAt(base))
	_, closed := tracker.ProcessFrame("cam-1", "acme",
		[]models.PersonRecord{{BBox: box, Compliant: true}}, frameAt(base.Add(5*time.Second)))

	if len(closed) != 1 {
		t.Fatalf("Expected 1 closed event, got %d", len(closed))
	}
	event := closed[0]
	if event.Status != models.ViolationResolved {
		t.Errorf("Expected resolved status, got %s", event.Status)
	}
	if event.ResolutionReason != models.ResolutionEquipmentRestored {
		t.Errorf("Expected equipment_restored, got %s", event.ResolutionReason)
	}
	if event.DurationSeconds == nil || *event.DurationSeconds != 5 {
		t.Errorf("Expected 5s duration, got %v", event.DurationSeconds)
	}
	if len(tracker.ActiveEvents("cam-1")) != 0 {
		t.Error("No events should remain open")
	}
}

func TestTrackerOnePerTypePerPerson(t *testing.T) {
	tracker := NewTracker(NewSpatialResolver(0.3, 0.1), 0)
	base := time.Now()
	box := models.BBox{X1: 100, Y1: 100, X2: 200, Y2: 400}

	opened, _ := tracker.ProcessFrame("cam-1", "acme",
		[]models.PersonRecord{violator(box, models.EquipmentHeadwear, models.EquipmentTorso)}, frameAt(base))
	if len(opened) != 2 {
		t.Fatalf("Two missing kinds should open two events, got %d", len(opened))
	}

	opened, _ = tracker.ProcessFrame("cam-1", "acme",
		[]models.PersonRecord{violator(box, models.EquipmentHeadwear, models.EquipmentTorso)}, frameAt(base.Add(time.Second)))
	if len(opened) != 0 {
		t.Fatalf("Same missing kinds must not reopen, got %d new events", len(opened))
	}
	if got := len(tracker.ActiveEvents("cam-1")); got != 2 {
		t.Errorf("Expected 2 open events, got %d", got)
	}
}

func TestTrackerGraceSweepClosesAsPersonLeft(t *testing.T) {
	tracker := NewTracker(NewSpatialResolver(0.3, 0.1), 10*time.Second)
	base := time.Now()
	box := models.BBox{X1: 100, Y1: 100, X2: 200, Y2: 400}

	tracker.ProcessFrame("cam-1", "acme",
		[]models.PersonRecord{violator(box, models.EquipmentHeadwear)}, frameAt(base))

	// An empty frame past the grace period triggers the sweep.
	_, closed := tracker.ProcessFrame("cam-1", "acme", nil, frameAt(base.Add(11*time.Second)))

	if len(closed) != 1 {
		t.Fatalf("Expected 1 swept event, got %d", len(closed))
	}
	if closed[0].ResolutionReason != models.ResolutionPersonLeft {
		t.Errorf("Expected person_left, got %s", closed[0].ResolutionReason)
	}
	if len(tracker.ActiveEvents("")) != 0 {
		t.Error("Swept identity should leave no open events")
	}
}

func TestTrackerGraceKeepsRecentlySeen(t *testing.T) {
	tracker := NewTracker(NewSpatialResolver(0.3, 0.1), 10*time.Second)
	base := time.Now()
	box := models.BBox{X1: 100, Y1: 100, X2: 200, Y2: 400}

	tracker.ProcessFrame("cam-1", "acme",
		[]models.PersonRecord{violator(box, models.EquipmentHeadwear)}, frameAt(base))
	_, closed := tracker.ProcessFrame("cam-1", "acme", nil, frameAt(base.Add(5*time.Second)))

	if len(closed) != 0 {
		t.Fatalf("Identity within grace should stay open, got %d closed", len(closed))
	}
	if len(tracker.ActiveEvents("cam-1")) != 1 {
		t.Error("Event should still be open")
	}
}

func TestTrackerCloseSession(t *testing.T) {
	tracker := NewTracker(NewSpatialResolver(0.3, 0.1), 0)
	base := time.Now()

	tracker.ProcessFrame("cam-1", "acme",
		[]models.PersonRecord{violator(models.BBox{X1: 100, Y1: 100, X2: 200, Y2: 400}, models.EquipmentHeadwear)},
		frameAt(base))
	tracker.ProcessFrame("cam-2", "acme",
		[]models.PersonRecord{violator(models.BBox{X1: 100, Y1: 100, X2: 200, Y2: 400}, models.EquipmentTorso)},
		frameAt(base))

	closed := tracker.CloseSession("cam-1")
	if len(closed) != 1 {
		t.Fatalf("Expected 1 closed event for cam-1, got %d", len(closed))
	}
	if closed[0].ResolutionReason != models.ResolutionSessionEnd {
		t.Errorf("Expected session_end, got %s", closed[0].ResolutionReason)
	}
	if len(tracker.ActiveEvents("cam-1")) != 0 {
		t.Error("cam-1 should have no open events")
	}
	if len(tracker.ActiveEvents("cam-2")) != 1 {
		t.Error("cam-2 must be untouched by cam-1 session close")
	}

	if again := tracker.CloseSession("cam-1"); len(again) != 0 {
		t.Errorf("Closing an unknown session should be a no-op, got %d", len(again))
	}
}

func TestTrackerClampsBackwardTimestamps(t *testing.T) {
	tracker := NewTracker(NewSpatialResolver(0.3, 0.1), 0)
	base := time.Now()
	box := models.BBox{X1: 100, Y1: 100, X2: 200, Y2: 400}

	tracker.ProcessFrame("cam-1", "acme",
		[]models.PersonRecord{violator(box, models.EquipmentHeadwear)}, frameAt(base))

	// The closing frame carries an earlier timestamp; duration must not go
	// negative.
	_, closed := tracker.ProcessFrame("cam-1", "acme",
		[]models.PersonRecord{{BBox: box, Compliant: true}}, frameAt(base.Add(-time.Minute)))

	if len(closed) != 1 {
		t.Fatalf("Expected 1 closed event, got %d", len(closed))
	}
	if d := *closed[0].DurationSeconds; d < 0 {
		t.Errorf("Duration went negative: %f", d)
	}
	if closed[0].EndTime.Before(closed[0].StartTime) {
		t.Error("End time precedes start time")
	}
}

func TestTrackerSeparatePeopleSeparateEvents(t *testing.T) {
	tracker := NewTracker(NewSpatialResolver(0.3, 0.1), 0)
	base := time.Now()

	left := models.BBox{X1: 100, Y1: 100, X2: 200, Y2: 400}
	right := models.BBox{X1: 1500, Y1: 100, X2: 1600, Y2: 400}

	opened, _ := tracker.ProcessFrame("cam-1", "acme", []models.PersonRecord{
		violator(left, models.EquipmentHeadwear),
		violator(right, models.EquipmentHeadwear),
	}, frameAt(base))

	if len(opened) != 2 {
		t.Fatalf("Two people should open two events, got %d", len(opened))
	}
	if opened[0].PersonID == opened[1].PersonID {
		t.Error("Distant people must get distinct identities")
	}
}
