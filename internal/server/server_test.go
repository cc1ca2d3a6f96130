package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"premiere-bridge/internal/domain"
	"premiere-bridge/internal/download"
	"premiere-bridge/internal/hub"
)

type stubService struct {
	downloadErr error
	cancelErr   error
	updateErr   error
	settings    domain.Settings

	gotRequest  *domain.ClientRequest
	gotSettings *domain.Settings
}

func (s *stubService) HandleDownload(_ context.Context, req domain.ClientRequest) error {
	s.gotRequest = &req
	return s.downloadErr
}

func (s *stubService) CancelDownload() error { return s.cancelErr }

func (s *stubService) Settings() domain.Settings { return s.settings }

func (s *stubService) UpdateSettings(settings domain.Settings) error {
	s.gotSettings = &settings
	return s.updateErr
}

func (s *stubService) Diagnostics() domain.DiagnosticReport {
	return domain.DiagnosticReport{Items: []domain.DiagnosticItem{}}
}

func newTestServer(t *testing.T, svc *stubService) (*Server, *hub.Hub) {
	t.Helper()
	h := hub.New(zerolog.Nop())
	return New(svc, h, "2.1.6", zerolog.Nop()), h
}

func do(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func TestRootLiveness(t *testing.T) {
	s, _ := newTestServer(t, &stubService{})
	rec := do(t, s, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Premiere is alive", rec.Body.String())
}

func TestVersion(t *testing.T) {
	s, _ := newTestServer(t, &stubService{})
	rec := do(t, s, http.MethodGet, "/get-version", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"version":"2.1.6"}`, rec.Body.String())
}

func TestGetSettings(t *testing.T) {
	svc := &stubService{settings: domain.Settings{Resolution: "720", NotificationVolume: 50}}
	s, _ := newTestServer(t, svc)

	rec := do(t, s, http.MethodGet, "/settings", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"resolution":"720"`)
}

func TestUpdateSettings(t *testing.T) {
	svc := &stubService{}
	s, _ := newTestServer(t, svc)

	rec := do(t, s, http.MethodPost, "/settings", `{"resolution":"1440","downloadMP3":true}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.gotSettings)
	assert.Equal(t, "1440", svc.gotSettings.Resolution)
	assert.True(t, svc.gotSettings.DownloadMP3)
}

func TestUpdateSettingsRejectsBadJSON(t *testing.T) {
	svc := &stubService{}
	s, _ := newTestServer(t, svc)

	rec := do(t, s, http.MethodPost, "/settings", `{"resolution":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, svc.gotSettings)
}

func TestHandleVideoURLAccepted(t *testing.T) {
	svc := &stubService{}
	s, _ := newTestServer(t, svc)

	rec := do(t, s, http.MethodPost, "/handle-video-url",
		`{"url":"https://www.youtube.com/watch?v=abc","type":"clip","currentTime":42.5}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
	require.NotNil(t, svc.gotRequest)
	assert.Equal(t, "clip", svc.gotRequest.Type)
	require.NotNil(t, svc.gotRequest.CurrentTime)
	assert.InDelta(t, 42.5, *svc.gotRequest.CurrentTime, 0.001)
}

func TestHandleVideoURLErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid source", domain.ErrInvalidSource, http.StatusBadRequest},
		{"out of bounds", domain.ErrOutOfBounds, http.StatusBadRequest},
		{"no project", domain.ErrNoProject, http.StatusBadRequest},
		{"busy", domain.ErrBusy, http.StatusConflict},
		{"probe failure", &domain.ProcessError{Tool: "yt-dlp", ExitCode: 1}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, _ := newTestServer(t, &stubService{downloadErr: tc.err})
			rec := do(t, s, http.MethodPost, "/handle-video-url",
				`{"url":"https://www.youtube.com/watch?v=abc","type":"full"}`)
			assert.Equal(t, tc.want, rec.Code)
			assert.Contains(t, rec.Body.String(), "error")
		})
	}
}

func TestHandleVideoURLBadBody(t *testing.T) {
	s, _ := newTestServer(t, &stubService{})
	rec := do(t, s, http.MethodPost, "/handle-video-url", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCancelDownload(t *testing.T) {
	s, _ := newTestServer(t, &stubService{})
	rec := do(t, s, http.MethodPost, "/cancel-download", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())
}

func TestCancelDownloadIdle(t *testing.T) {
	s, _ := newTestServer(t, &stubService{cancelErr: download.ErrNoActiveJob})
	rec := do(t, s, http.MethodPost, "/cancel-download", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEventsPolling(t *testing.T) {
	s, h := newTestServer(t, &stubService{})
	h.EmitToRole(hub.RoleProducer, hub.EventDownloadStarted, map[string]string{"url": "https://youtu.be/abc"})
	h.EmitToRole(hub.RoleProducer, hub.EventDownloadComplete, nil)

	rec := do(t, s, http.MethodGet, "/events?since=1", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), hub.EventDownloadComplete)
	assert.NotContains(t, rec.Body.String(), hub.EventDownloadStarted)
}

func TestEventsRejectsBadCursor(t *testing.T) {
	s, _ := newTestServer(t, &stubService{})
	rec := do(t, s, http.MethodGet, "/events?since=later", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
