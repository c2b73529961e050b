package helpers

import (
	"testing"

	"safesite-worker-go/internal/models"
)

func TestIsJPEGData(t *testing.T) {
	if !IsJPEGData([]byte{0xFF, 0xD8, 0xFF, 0xE0}) {
		t.Error("JPEG magic bytes not recognized")
	}
	if IsJPEGData([]byte{0x89, 0x50, 0x4E, 0x47}) {
		t.Error("PNG magic bytes accepted as JPEG")
	}
	if IsJPEGData([]byte{0xFF}) {
		t.Error("Truncated data accepted")
	}
	if IsJPEGData(nil) {
		t.Error("Nil data accepted")
	}
}

func TestEvidenceUsable(t *testing.T) {
	frame := models.BBox{X1: 0, Y1: 0, X2: 1920, Y2: 1080}

	big := models.BBox{X1: 400, Y1: 200, X2: 600, Y2: 900}
	if !EvidenceUsable(big, frame, 0.05) {
		t.Error("Large in-frame person should be usable")
	}

	tiny := models.BBox{X1: 0, Y1: 0, X2: 20, Y2: 40}
	if EvidenceUsable(tiny, frame, 0.05) {
		t.Error("Tiny person should not be usable")
	}

	cropped := models.BBox{X1: 1800, Y1: 200, X2: 2000, Y2: 900}
	if EvidenceUsable(cropped, frame, 0.05) {
		t.Error("Person crossing the frame edge should not be usable")
	}

	if EvidenceUsable(models.BBox{}, frame, 0.05) {
		t.Error("Empty person box should not be usable")
	}
	if EvidenceUsable(big, models.BBox{}, 0.05) {
		t.Error("Empty frame bounds should not be usable")
	}
}

func TestAnnotateSnapshotRejectsNonJPEG(t *testing.T) {
	if _, err := AnnotateSnapshot([]byte("plain text"), nil, nil, 85); err == nil {
		t.Error("Non-JPEG data should be rejected before decoding")
	}
}
