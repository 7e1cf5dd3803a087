package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"github.com/shinokgavrin/Koch/internal/core"
	"github.com/shinokgavrin/Koch/internal/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeService serves records built from a fixed raw history, so the window
// and sort behavior under test is the real core path.
type fakeService struct {
	connected bool
	ready     bool
	channelID int64
	raw       []core.RawMessage
	entities  *core.EntitySet
	err       error
}

func (f *fakeService) Connected() bool        { return f.connected }
func (f *fakeService) ChannelReady() bool     { return f.ready }
func (f *fakeService) ForwardingActive() bool { return f.ready }
func (f *fakeService) TargetChannelID() int64 { return f.channelID }

func (f *fakeService) MessagesSince(ctx context.Context, cutoff time.Time) ([]model.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	ents := f.entities
	if ents == nil {
		ents = core.NewEntitySet()
	}
	return core.BuildRecords(f.raw, f.channelID, cutoff, core.NewOriginChain(ents)), nil
}

func newTestAdapter(svc MessageService, apiKey string) *Adapter {
	return NewAdapter("8000", apiKey, svc, zap.NewNop())
}

func doRequest(a *Adapter, path, apiKey string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if apiKey != "" {
		req.Header.Set("x-api-key", apiKey)
	}
	w := httptest.NewRecorder()
	a.Router().ServeHTTP(w, req)
	return w
}

func readyService() *fakeService {
	now := time.Now().UTC()
	return &fakeService{
		connected: true,
		ready:     true,
		channelID: -1001234567890,
		raw: []core.RawMessage{
			{ID: 1, Text: "hour old", Date: now.Add(-time.Hour)},
			{ID: 2, Text: "two days old", Date: now.Add(-48 * time.Hour)},
			{ID: 3, Text: "fresh", Date: now.Add(-time.Minute)},
			{ID: 4, Text: "   ", Date: now.Add(-2 * time.Minute)},
		},
	}
}

func TestAuthGate(t *testing.T) {
	cases := []struct {
		name       string
		configured string
		sent       string
		wantStatus int
	}{
		{"match", "secret", "secret", http.StatusOK},
		{"mismatch", "secret", "wrong", http.StatusUnauthorized},
		{"missing", "secret", "", http.StatusUnauthorized},
		{"no key configured", "", "", http.StatusOK},
		{"no key configured, value sent", "", "anything", http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := newTestAdapter(readyService(), tc.configured)
			w := doRequest(a, "/api/messages/24", tc.sent)
			if w.Code != tc.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tc.wantStatus)
			}
		})
	}
}

func TestServiceUnavailable(t *testing.T) {
	disconnected := &fakeService{connected: false, ready: true}
	a := newTestAdapter(disconnected, "")
	if w := doRequest(a, "/api/messages/24", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("disconnected: status = %d, want 503", w.Code)
	}

	unresolved := &fakeService{connected: true, ready: false}
	a = newTestAdapter(unresolved, "")
	if w := doRequest(a, "/api/messages/24", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("unresolved: status = %d, want 503", w.Code)
	}
}

func TestRecentMessages(t *testing.T) {
	a := newTestAdapter(readyService(), "")
	w := doRequest(a, "/api/messages/24", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}

	var resp model.RecentMessagesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !resp.Success {
		t.Error("success = false")
	}
	// Message 2 is outside the window, message 4 is whitespace-only.
	var ids []int
	for _, m := range resp.Messages {
		ids = append(ids, m.MessageID)
	}
	if diff := cmp.Diff([]int{3, 1}, ids); diff != "" {
		t.Errorf("ids mismatch (-want +got):\n%s", diff)
	}
	if resp.MessageCount != len(resp.Messages) {
		t.Errorf("message_count = %d, messages = %d", resp.MessageCount, len(resp.Messages))
	}
	if resp.HoursRequested != 24 {
		t.Errorf("hours_requested = %d", resp.HoursRequested)
	}
	if resp.ChannelID != "-1001234567890" {
		t.Errorf("channel_id = %q", resp.ChannelID)
	}
	if _, err := time.Parse(time.RFC3339, resp.TimeThreshold); err != nil {
		t.Errorf("time_threshold %q not RFC 3339: %v", resp.TimeThreshold, err)
	}
	for i := 1; i < len(resp.Messages); i++ {
		if resp.Messages[i-1].Date < resp.Messages[i].Date {
			t.Errorf("messages not sorted descending at %d", i)
		}
	}
}

func TestRecentMessagesIdempotent(t *testing.T) {
	a := newTestAdapter(readyService(), "")

	var first, second model.RecentMessagesResponse
	if err := json.Unmarshal(doRequest(a, "/api/messages/24", "").Body.Bytes(), &first); err != nil {
		t.Fatalf("decode first: %v", err)
	}
	if err := json.Unmarshal(doRequest(a, "/api/messages/24", "").Body.Bytes(), &second); err != nil {
		t.Fatalf("decode second: %v", err)
	}

	if diff := cmp.Diff(first.Messages, second.Messages); diff != "" {
		t.Errorf("message lists differ between calls (-first +second):\n%s", diff)
	}
}

func TestCombinedMessages(t *testing.T) {
	svc := readyService()
	a := newTestAdapter(svc, "")

	var plain model.RecentMessagesResponse
	if err := json.Unmarshal(doRequest(a, "/api/messages/24", "").Body.Bytes(), &plain); err != nil {
		t.Fatalf("decode plain: %v", err)
	}

	w := doRequest(a, "/api/messages/24/combined", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
	}
	var combined model.CombinedMessagesResponse
	if err := json.Unmarshal(w.Body.Bytes(), &combined); err != nil {
		t.Fatalf("decode combined: %v", err)
	}

	if combined.MessageCount != plain.MessageCount {
		t.Errorf("combined count %d != plain count %d", combined.MessageCount, plain.MessageCount)
	}
	if n := strings.Count(combined.CombinedText, core.CombinedSeparator) + 1; combined.MessageCount > 0 && n != combined.MessageCount {
		t.Errorf("combined blocks = %d, want %d", n, combined.MessageCount)
	}
	if combined.ProcessingDate != time.Now().Format("2006-01-02") {
		t.Errorf("processing_date = %q", combined.ProcessingDate)
	}
}

func TestFetchErrorSurfacesAs500(t *testing.T) {
	svc := readyService()
	svc.err = errors.New("FLOOD_WAIT_30")
	a := newTestAdapter(svc, "")

	w := doRequest(a, "/api/messages/24", "")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if !strings.Contains(w.Body.String(), "FLOOD_WAIT_30") {
		t.Errorf("detail should carry the underlying error, got %s", w.Body.String())
	}
}

func TestInvalidHours(t *testing.T) {
	a := newTestAdapter(readyService(), "")
	if w := doRequest(a, "/api/messages/abc", ""); w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestRootAndHealth(t *testing.T) {
	a := newTestAdapter(readyService(), "secret")

	w := doRequest(a, "/", "")
	if w.Code != http.StatusOK {
		t.Fatalf("root status = %d", w.Code)
	}
	var root map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &root); err != nil {
		t.Fatalf("decode root: %v", err)
	}
	if root["api_key_required"] != true {
		t.Error("api_key_required should be true")
	}
	if root["forwarding_active"] != true {
		t.Error("forwarding_active should be true")
	}

	w = doRequest(a, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}
	var health map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if health["status"] != "healthy" {
		t.Errorf("status = %v", health["status"])
	}
	if health["api_auth"] != "enabled" {
		t.Errorf("api_auth = %v", health["api_auth"])
	}
}
