package snapshot

import (
	"context"
	"fmt"
	"time"
)

// Store persists evidence snapshots and returns a stable reference (URL or
// filesystem path) recorded on the violation event.
type Store interface {
	Save(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// ObjectKey builds the storage key for an evidence snapshot. Keys are grouped
// by company, camera, violation type, and capture day so retention policies
// can prune whole prefixes.
func ObjectKey(companyID, cameraID, violationType, eventID, kind string, ts time.Time) string {
	ts = ts.UTC()
	return fmt.Sprintf("%s/%s/%s/%04d/%02d/%02d/%s-%s.jpg",
		companyID, cameraID, violationType, ts.Year(), int(ts.Month()), ts.Day(), eventID, kind)
}
