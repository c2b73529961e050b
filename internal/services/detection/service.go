package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"safesite-worker-go/internal/config"
	"safesite-worker-go/internal/models"
)

// Detector is the inference boundary. Implementations run PPE detection on a
// single encoded frame and return raw detections above the confidence
// threshold.
type Detector interface {
	Detect(ctx context.Context, frame *models.Frame, sector string, confidenceThreshold float32) ([]models.Detection, error)
}

// Client talks to the external detection service over HTTP with automatic
// exponential backoff after consecutive failures.
type Client struct {
	cfg  *config.Config
	http *http.Client

	// Retry management
	mu               sync.RWMutex
	lastFailTime     time.Time
	consecutiveFails int
	maxRetryBackoff  time.Duration
}

// NewClient creates a detection client using the configured endpoint and
// timeout.
func NewClient(cfg *config.Config) *Client {
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout: cfg.DetectorTimeout,
		},
		maxRetryBackoff: 30 * time.Second,
	}
}

// wireDetection mirrors the detector's JSON response schema.
type wireDetection struct {
	BBox       [4]float64 `json:"bbox"`
	ClassName  string     `json:"class_name"`
	Confidence float32    `json:"confidence"`
}

type detectResponse struct {
	Detections []wireDetection `json:"detections"`
}

// Detect posts the JPEG frame to the detection service and decodes the
// response. Calls made during a backoff window fail fast without touching the
// network.
func (c *Client) Detect(ctx context.Context, frame *models.Frame, sector string, confidenceThreshold float32) ([]models.Detection, error) {
	if frame == nil || len(frame.Data) == 0 {
		return nil, fmt.Errorf("empty frame")
	}

	if !c.shouldRetry() {
		return nil, fmt.Errorf("detector in backoff period after consecutive failures")
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	fw, err := writer.CreateFormFile("frame", fmt.Sprintf("%s-%d.jpg", frame.CameraID, frame.FrameID))
	if err != nil {
		return nil, fmt.Errorf("failed to create frame part: %w", err)
	}
	if _, err := fw.Write(frame.Data); err != nil {
		return nil, fmt.Errorf("failed to write frame bytes: %w", err)
	}

	if sector != "" {
		if err := writer.WriteField("sector", sector); err != nil {
			return nil, fmt.Errorf("failed to write sector field: %w", err)
		}
	}
	_ = writer.WriteField("confidence_threshold", strconv.FormatFloat(float64(confidenceThreshold), 'f', -1, 32))
	_ = writer.WriteField("timestamp", frame.Timestamp.UTC().Format(time.RFC3339Nano))

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.DetectorURL, &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create detect request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.recordFailure(frame.CameraID)
		return nil, fmt.Errorf("detector request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordFailure(frame.CameraID)
		return nil, fmt.Errorf("failed to read detector response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.recordFailure(frame.CameraID)
		return nil, fmt.Errorf("detector status %d: %s", resp.StatusCode, string(body))
	}

	var decoded detectResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		c.recordFailure(frame.CameraID)
		return nil, fmt.Errorf("failed to parse detector response: %w", err)
	}

	c.recordSuccess()

	detections := make([]models.Detection, 0, len(decoded.Detections))
	for _, d := range decoded.Detections {
		if d.Confidence < confidenceThreshold {
			continue
		}
		detections = append(detections, models.Detection{
			BBox: models.BBox{
				X1: d.BBox[0],
				Y1: d.BBox[1],
				X2: d.BBox[2],
				Y2: d.BBox[3],
			},
			ClassName:  d.ClassName,
			Confidence: d.Confidence,
			IsAbsence:  models.IsAbsenceClass(d.ClassName),
		})
	}

	return detections, nil
}

// shouldRetry determines if we should attempt a request based on exponential backoff
func (c *Client) shouldRetry() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.consecutiveFails == 0 {
		return true
	}

	// Exponential backoff: 1s, 2s, 4s, 8s, 16s, 30s (max)
	backoffDuration := time.Duration(1<<uint(c.consecutiveFails-1)) * time.Second
	if backoffDuration > c.maxRetryBackoff {
		backoffDuration = c.maxRetryBackoff
	}

	return time.Since(c.lastFailTime) >= backoffDuration
}

func (c *Client) recordSuccess() {
	c.mu.Lock()
	c.consecutiveFails = 0
	c.mu.Unlock()
}

// recordFailure records a request failure for backoff calculation
func (c *Client) recordFailure(cameraID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFails++
	c.lastFailTime = time.Now()

	if c.consecutiveFails <= 5 {
		log.Warn().
			Str("camera_id", cameraID).
			Int("consecutive_fails", c.consecutiveFails).
			Msg("Detector request failure recorded")
	}
}
