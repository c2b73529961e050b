package stream

import (
	"strings"
	"testing"

	"safesite-worker-go/internal/models"
)

func testChannel() *models.CameraChannel {
	return &models.CameraChannel{
		CameraID:      "cam-1",
		CompanyID:     "acme",
		Address:       "10.0.0.5",
		Port:          554,
		Username:      "admin",
		Password:      "secret",
		ChannelNumber: 1,
	}
}

func TestCandidateURLsDefaultOrder(t *testing.T) {
	ladder := CandidateURLs(testChannel())
	if len(ladder) == 0 {
		t.Fatal("Expected a non-empty ladder")
	}

	// Without a hint the XMEye credential-in-query scheme leads.
	if ladder[0].Brand != BrandXMEye {
		t.Errorf("Expected xmeye first, got %s", ladder[0].Brand)
	}
	if !strings.Contains(ladder[0].URL, "user=admin&password=secret&channel=1&stream=0.sdp") {
		t.Errorf("Unexpected first candidate URL: %s", ladder[0].URL)
	}

	// Hikvision main stream for channel 1 is index 101.
	foundHik := false
	for _, c := range ladder {
		if c.Brand == BrandHikvision && strings.Contains(c.URL, "/Streaming/Channels/101") {
			foundHik = true
		}
	}
	if !foundHik {
		t.Error("Expected Hikvision ISAPI candidate for channel index 101")
	}

	// Generic guesses come last.
	if ladder[len(ladder)-1].Brand != BrandGeneric {
		t.Errorf("Expected generic candidates last, got %s", ladder[len(ladder)-1].Brand)
	}
}

func TestCandidateURLsBrandHintPromotion(t *testing.T) {
	ch := testChannel()
	ch.BrandHint = BrandDahua

	ladder := CandidateURLs(ch)
	if ladder[0].Brand != BrandDahua {
		t.Errorf("Brand hint should promote dahua first, got %s", ladder[0].Brand)
	}
	if !strings.Contains(ladder[0].URL, "/cam/realmonitor?channel=1&subtype=0") {
		t.Errorf("Unexpected promoted URL: %s", ladder[0].URL)
	}

	// The other vendor groups still appear afterwards.
	brands := map[string]bool{}
	for _, c := range ladder {
		brands[c.Brand] = true
	}
	for _, want := range []string{BrandXMEye, BrandHikvision, BrandDahua, BrandGeneric} {
		if !brands[want] {
			t.Errorf("Expected brand %s in ladder", want)
		}
	}
}

func TestCandidateURLsWorkingURLFirst(t *testing.T) {
	ch := testChannel()
	ch.WorkingURL = "rtsp://10.0.0.5:554/cam/realmonitor?channel=1&subtype=0"
	ch.WorkingBrand = BrandDahua

	ladder := CandidateURLs(ch)
	if ladder[0].URL != ch.WorkingURL {
		t.Errorf("Cached working URL should be probed first, got %s", ladder[0].URL)
	}

	// The cached URL must not appear twice.
	count := 0
	for _, c := range ladder {
		if c.URL == ch.WorkingURL {
			count++
		}
	}
	if count != 1 {
		t.Errorf("Working URL should appear once, appeared %d times", count)
	}
}

func TestCandidateURLsDeterministic(t *testing.T) {
	ch := testChannel()
	first := CandidateURLs(ch)
	second := CandidateURLs(ch)

	if len(first) != len(second) {
		t.Fatalf("Ladder length changed between runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Ladder position %d differs: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestCandidateURLsEscapesCredentials(t *testing.T) {
	ch := testChannel()
	ch.Password = "p@ss:w/rd"

	for _, c := range CandidateURLs(ch) {
		if strings.Contains(c.URL, "p@ss:w/rd") {
			t.Errorf("Credentials must be escaped in %s", c.URL)
		}
	}
}

func TestCandidateURLsNoAuthWithoutUsername(t *testing.T) {
	ch := testChannel()
	ch.Username = ""
	ch.Password = ""

	for _, c := range CandidateURLs(ch) {
		if c.Brand == BrandXMEye {
			continue
		}
		if strings.Contains(c.URL, "@") {
			t.Errorf("URL should have no userinfo without username: %s", c.URL)
		}
	}
}
