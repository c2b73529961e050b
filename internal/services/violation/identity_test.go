package violation

import (
	"testing"
	"time"

	"safesite-worker-go/internal/models"
)

var frameBounds = models.BBox{X1: 0, Y1: 0, X2: 1920, Y2: 1080}

func tracked(id string, box models.BBox) TrackedPerson {
	return TrackedPerson{PersonID: id, LastBBox: box, LastSeen: time.Now()}
}

func TestSpatialResolverPrefersBestOverlap(t *testing.T) {
	r := NewSpatialResolver(0.3, 0.1)

	candidates := []TrackedPerson{
		tracked("a", models.BBox{X1: 100, Y1: 100, X2: 200, Y2: 400}),
		tracked("b", models.BBox{X1: 150, Y1: 100, X2: 250, Y2: 400}),
	}
	// Query sits on top of b.
	query := models.BBox{X1: 155, Y1: 100, X2: 255, Y2: 400}

	id, ok := r.Match(candidates, query, frameBounds)
	if !ok || id != "b" {
		t.Errorf("Expected match to b, got %q ok=%v", id, ok)
	}
}

func TestSpatialResolverFallsBackToCenterDistance(t *testing.T) {
	r := NewSpatialResolver(0.3, 0.1)

	// Non-overlapping but nearby: IoU is zero, center distance small.
	candidates := []TrackedPerson{
		tracked("a", models.BBox{X1: 100, Y1: 100, X2: 200, Y2: 400}),
	}
	query := models.BBox{X1: 210, Y1: 100, X2: 310, Y2: 400}

	id, ok := r.Match(candidates, query, frameBounds)
	if !ok || id != "a" {
		t.Errorf("Expected distance fallback to a, got %q ok=%v", id, ok)
	}
}

func TestSpatialResolverRejectsDistantBox(t *testing.T) {
	r := NewSpatialResolver(0.3, 0.1)

	candidates := []TrackedPerson{
		tracked("a", models.BBox{X1: 100, Y1: 100, X2: 200, Y2: 400}),
	}
	query := models.BBox{X1: 1700, Y1: 100, X2: 1800, Y2: 400}

	if id, ok := r.Match(candidates, query, frameBounds); ok {
		t.Errorf("Distant box should not match, got %q", id)
	}
}

func TestSpatialResolverNoCandidates(t *testing.T) {
	r := NewSpatialResolver(0.3, 0.1)

	if id, ok := r.Match(nil, models.BBox{X1: 0, Y1: 0, X2: 10, Y2: 10}, frameBounds); ok {
		t.Errorf("Empty candidate list should not match, got %q", id)
	}
}

func TestSpatialResolverZeroFrameBounds(t *testing.T) {
	r := NewSpatialResolver(0.3, 0.1)

	candidates := []TrackedPerson{
		tracked("a", models.BBox{X1: 100, Y1: 100, X2: 200, Y2: 400}),
	}
	// No overlap and no valid diagonal for the distance fallback.
	query := models.BBox{X1: 300, Y1: 100, X2: 400, Y2: 400}

	if id, ok := r.Match(candidates, query, models.BBox{}); ok {
		t.Errorf("Zero frame bounds should disable the fallback, got %q", id)
	}
}
