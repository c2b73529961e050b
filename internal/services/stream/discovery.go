package stream

import (
	"fmt"
	"net/url"

	"safesite-worker-go/internal/models"
)

// Candidate is one transport URL to probe, tagged with the vendor scheme it
// was built from.
type Candidate struct {
	Brand string
	URL   string
}

// Vendor scheme identifiers used in Candidate.Brand and CameraChannel.BrandHint.
const (
	BrandHikvision = "hikvision"
	BrandDahua     = "dahua"
	BrandXMEye     = "xmeye"
	BrandGeneric   = "generic"
)

// CandidateURLs builds the deterministic probe ladder for a channel: the
// cached working URL first, then templates matching the brand hint, then the
// remaining vendor templates, then generic path guesses. The order is fixed so
// repeated discovery runs probe identically.
func CandidateURLs(ch *models.CameraChannel) []Candidate {
	user := url.QueryEscape(ch.Username)
	pass := url.QueryEscape(ch.Password)
	host := fmt.Sprintf("%s:%d", ch.Address, ch.Port)
	n := ch.ChannelNumber

	var auth string
	if ch.Username != "" {
		auth = fmt.Sprintf("%s:%s@", user, pass)
	}

	// Credential-in-query style used by XMEye-family DVR boards. Tried early
	// because it is the scheme that generic RTSP paths never cover.
	xmeye := []Candidate{
		{BrandXMEye, fmt.Sprintf("rtsp://%s/user=%s&password=%s&channel=%d&stream=0.sdp", host, user, pass, n)},
		{BrandXMEye, fmt.Sprintf("rtsp://%s/user=%s&password=%s&channel=%d&stream=1.sdp", host, user, pass, n)},
	}

	// ISAPI-style channel indices: channel N main stream is N*100+1, sub
	// stream N*100+2.
	hikvision := []Candidate{
		{BrandHikvision, fmt.Sprintf("rtsp://%s%s/Streaming/Channels/%d", auth, host, n*100+1)},
		{BrandHikvision, fmt.Sprintf("rtsp://%s%s/Streaming/Channels/%d", auth, host, n*100+2)},
		{BrandHikvision, fmt.Sprintf("rtsp://%s%s/h264/ch%d/main/av_stream", auth, host, n)},
	}

	dahua := []Candidate{
		{BrandDahua, fmt.Sprintf("rtsp://%s%s/cam/realmonitor?channel=%d&subtype=0", auth, host, n)},
		{BrandDahua, fmt.Sprintf("rtsp://%s%s/cam/realmonitor?channel=%d&subtype=1", auth, host, n)},
	}

	generic := []Candidate{
		{BrandGeneric, fmt.Sprintf("rtsp://%s%s/stream1", auth, host)},
		{BrandGeneric, fmt.Sprintf("rtsp://%s%s/live", auth, host)},
		{BrandGeneric, fmt.Sprintf("rtsp://%s%s/ch%d/main", auth, host, n)},
		{BrandGeneric, fmt.Sprintf("rtsp://%s%s/", auth, host)},
	}

	ladder := make([]Candidate, 0, 2+len(xmeye)+len(hikvision)+len(dahua)+len(generic))

	// A previously working URL is always retried first; after a device
	// restart it may still be the right one.
	if ch.WorkingURL != "" {
		ladder = append(ladder, Candidate{Brand: ch.WorkingBrand, URL: ch.WorkingURL})
	}

	groups := [][]Candidate{xmeye, hikvision, dahua}
	brands := []string{BrandXMEye, BrandHikvision, BrandDahua}

	// Brand hint promotes that vendor's templates ahead of the rest.
	for i, brand := range brands {
		if ch.BrandHint == brand {
			ladder = appendUnique(ladder, groups[i])
		}
	}
	for i, brand := range brands {
		if ch.BrandHint != brand {
			ladder = appendUnique(ladder, groups[i])
		}
	}
	ladder = appendUnique(ladder, generic)

	return ladder
}

func appendUnique(ladder []Candidate, group []Candidate) []Candidate {
	for _, c := range group {
		dup := false
		for _, have := range ladder {
			if have.URL == c.URL {
				dup = true
				break
			}
		}
		if !dup {
			ladder = append(ladder, c)
		}
	}
	return ladder
}
