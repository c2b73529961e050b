package models

import (
	"time"
)

// Transport distinguishes a standalone IP camera from one numbered input on a
// DVR/NVR.
type Transport string

const (
	TransportIPCamera   Transport = "ip_camera"
	TransportDVRChannel Transport = "dvr_channel"
)

// CameraChannel identifies one video source. WorkingURL and WorkingBrand are
// filled in by the ingestion manager on a successful connect so later
// reconnects can try the known-good candidate first.
type CameraChannel struct {
	CameraID      string    `json:"camera_id"`
	CompanyID     string    `json:"company_id"`
	Transport     Transport `json:"transport"`
	Address       string    `json:"address"`
	Port          int       `json:"port"`
	Username      string    `json:"username"`
	Password      string    `json:"password"`
	BrandHint     string    `json:"brand_hint"`
	ChannelNumber int       `json:"channel_number"`
	Sector        string    `json:"sector"`

	WorkingURL   string `json:"working_url,omitempty"`
	WorkingBrand string `json:"working_brand,omitempty"`
}

// StreamStatus is the lifecycle state of one channel's connection.
type StreamStatus string

const (
	StreamStarting StreamStatus = "starting"
	StreamActive   StreamStatus = "active"
	StreamError    StreamStatus = "error"
	StreamStopped  StreamStatus = "stopped"
)

// StreamSession is a point-in-time snapshot of one active connection's runtime
// state, owned exclusively by the ingestion manager.
type StreamSession struct {
	ChannelID         string       `json:"channel_id"`
	Status            StreamStatus `json:"status"`
	WorkingURL        string       `json:"working_url,omitempty"`
	FrameCounter      int64        `json:"frame_counter"`
	ConsecutiveErrors int          `json:"consecutive_errors"`
	LastFrameTime     time.Time    `json:"last_frame_time"`
	StartedAt         time.Time    `json:"started_at"`
	LastError         string       `json:"last_error,omitempty"`
	FPS               float64      `json:"fps"`
}

// ChannelRequest is the API payload to register and start a channel.
type ChannelRequest struct {
	CameraID      string `json:"camera_id" binding:"required"`
	CompanyID     string `json:"company_id" binding:"required"`
	Transport     string `json:"transport"`
	Address       string `json:"address" binding:"required"`
	Port          int    `json:"port"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	BrandHint     string `json:"brand_hint"`
	ChannelNumber int    `json:"channel_number"`
	Sector        string `json:"sector"`
}

// Channel builds the CameraChannel for a request, applying defaults.
func (r *ChannelRequest) Channel() *CameraChannel {
	transport := Transport(r.Transport)
	if transport == "" {
		transport = TransportIPCamera
	}
	port := r.Port
	if port == 0 {
		port = 554
	}
	channelNumber := r.ChannelNumber
	if channelNumber == 0 {
		channelNumber = 1
	}
	return &CameraChannel{
		CameraID:      r.CameraID,
		CompanyID:     r.CompanyID,
		Transport:     transport,
		Address:       r.Address,
		Port:          port,
		Username:      r.Username,
		Password:      r.Password,
		BrandHint:     r.BrandHint,
		ChannelNumber: channelNumber,
		Sector:        r.Sector,
	}
}

// ChannelResponse is the API view of a channel and its session.
type ChannelResponse struct {
	CameraID  string        `json:"camera_id"`
	CompanyID string        `json:"company_id"`
	Address   string        `json:"address"`
	Sector    string        `json:"sector"`
	Session   StreamSession `json:"session"`
}
