package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"vodmill/internal/daemon"
	"vodmill/internal/media/ffprobe"
	"vodmill/internal/notify"
	"vodmill/internal/pipeline"
	"vodmill/internal/planner"
	"vodmill/internal/store"
	"vodmill/internal/testsupport"
)

type stubFetcher struct{}

func (stubFetcher) Fetch(_ context.Context, _ string, localPath string) error {
	return os.WriteFile(localPath, []byte("source"), 0o644)
}

type stubProber struct{}

func (stubProber) Inspect(context.Context, string) (ffprobe.Result, error) {
	return ffprobe.Result{
		Streams: []ffprobe.Stream{{CodecType: "video", Width: 1280, Height: 720}},
		Format:  ffprobe.Format{Duration: "600.0"},
	}, nil
}

type stubEncoder struct{}

func (stubEncoder) Encode(context.Context, string, string, []planner.Rendition, float64) error {
	return nil
}

type stubThumbnailer struct{}

func (stubThumbnailer) ExtractThumbnail(_ context.Context, _, destPath string, _ int, _ float64) error {
	return os.WriteFile(destPath, []byte("jpeg"), 0o644)
}

type stubUploader struct{}

func (stubUploader) Upload(_ context.Context, _, key, _ string) (string, error) {
	return "https://cdn.example/" + key, nil
}

func (stubUploader) UploadDirectory(context.Context, string, string) ([]string, error) {
	return nil, nil
}

func (stubUploader) DeletePrefix(context.Context, string) error { return nil }

func (stubUploader) PublicURL(key string) string { return "https://cdn.example/" + key }

type stubPresigner struct{}

func (stubPresigner) Presign(key, _ string, _ time.Duration) (string, error) {
	return "https://signed.example/" + key, nil
}

func (stubPresigner) PublicURL(key string) string { return "https://cdn.example/" + key }

type apiFixture struct {
	store  *store.Store
	server *httptest.Server
	token  string
}

func newAPIFixture(t *testing.T, token string) *apiFixture {
	t.Helper()

	cfg := testsupport.NewConfig(t, testsupport.WithAPIToken(token))
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("ensure directories: %v", err)
	}
	st := testsupport.MustOpenStore(t, cfg)

	pl := pipeline.New(cfg, st, stubFetcher{}, stubProber{}, stubEncoder{}, stubThumbnailer{}, stubUploader{}, notify.NewNoop(), nil)
	t.Cleanup(pl.Close)

	api := daemon.NewAPIServer(cfg.Paths.APIBind, token, pl, st, stubPresigner{}, 15*time.Minute, nil)
	server := httptest.NewServer(api.Handler())
	t.Cleanup(server.Close)

	return &apiFixture{store: st, server: server, token: token}
}

func (f *apiFixture) request(t *testing.T, method, path string, body any, authorized bool) (*http.Response, map[string]any) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode request body: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, f.server.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if authorized && f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { _ = resp.Body.Close() })

	var payload map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&payload)
	return resp, payload
}

func TestHealthNeedsNoAuth(t *testing.T) {
	fx := newAPIFixture(t, "token-1")
	resp, payload := fx.request(t, http.MethodGet, "/api/health", nil, false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if payload["status"] != "ok" {
		t.Fatalf("payload = %v", payload)
	}
}

func TestBearerAuthGuardsEndpoints(t *testing.T) {
	fx := newAPIFixture(t, "token-1")

	resp, _ := fx.request(t, http.MethodGet, "/api/jobs", nil, false)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token: status = %d", resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, fx.server.URL+"/api/jobs", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp2, err := fx.server.Client().Do(req)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong token: status = %d", resp2.StatusCode)
	}
}

func TestSubmitJobAcceptsAndRecords(t *testing.T) {
	fx := newAPIFixture(t, "token-1")

	resp, payload := fx.request(t, http.MethodPost, "/api/jobs", map[string]string{
		"movieId":   "m1",
		"episodeId": "e1",
		"sourceKey": "episodes/m1/e1/original.mp4",
	}, true)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status = %d, payload %v", resp.StatusCode, payload)
	}
	jobID, _ := payload["jobId"].(string)
	if jobID == "" {
		t.Fatalf("payload missing jobId: %v", payload)
	}
	if payload["status"] != string(store.JobStatusStarted) {
		t.Fatalf("initial status = %v", payload["status"])
	}

	resp2, payload2 := fx.request(t, http.MethodGet, "/api/jobs/"+jobID, nil, true)
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("get job status = %d", resp2.StatusCode)
	}
	if payload2["movieId"] != "m1" || payload2["episodeId"] != "e1" {
		t.Fatalf("job payload = %v", payload2)
	}
}

func TestSubmitJobValidation(t *testing.T) {
	fx := newAPIFixture(t, "token-1")

	resp, payload := fx.request(t, http.MethodPost, "/api/jobs", map[string]string{
		"episodeId": "e1",
		"sourceKey": "k",
	}, true)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, payload %v", resp.StatusCode, payload)
	}
}

func TestGetJobNotFound(t *testing.T) {
	fx := newAPIFixture(t, "token-1")
	resp, _ := fx.request(t, http.MethodGet, "/api/jobs/unknown", nil, true)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d", resp.StatusCode)
	}
}

func TestEpisodeStatus(t *testing.T) {
	fx := newAPIFixture(t, "token-1")

	resp, _ := fx.request(t, http.MethodGet, "/api/episodes/m9/e9/status", nil, true)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown episode status = %d", resp.StatusCode)
	}

	ctx := context.Background()
	if err := fx.store.MarkCompleted(ctx, "m1", "e1", "https://cdn.example/episodes/m1/e1/hls/master.m3u8", "", 600); err != nil {
		t.Fatalf("seed episode: %v", err)
	}

	resp2, payload := fx.request(t, http.MethodGet, "/api/episodes/m1/e1/status", nil, true)
	if resp2.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp2.StatusCode)
	}
	if payload["isProcessed"] != true {
		t.Fatalf("payload = %v", payload)
	}
	if payload["playlistUrl"] != "https://cdn.example/episodes/m1/e1/hls/master.m3u8" {
		t.Fatalf("playlist url = %v", payload["playlistUrl"])
	}
}

func TestPresignUpload(t *testing.T) {
	fx := newAPIFixture(t, "token-1")

	resp, payload := fx.request(t, http.MethodPost, "/api/uploads/presign", map[string]string{
		"movieId":   "m1",
		"episodeId": "e1",
		"fileType":  "mp4",
	}, true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, payload %v", resp.StatusCode, payload)
	}
	if payload["presignedUrl"] != "https://signed.example/episodes/m1/e1/original.mp4" {
		t.Fatalf("presigned url = %v", payload["presignedUrl"])
	}
	if payload["contentType"] != "video/mp4" {
		t.Fatalf("content type = %v", payload["contentType"])
	}
	if payload["cdnUrl"] != "https://cdn.example/episodes/m1/e1/original.mp4" {
		t.Fatalf("cdn url = %v", payload["cdnUrl"])
	}
}

func TestPresignUploadWithoutEpisode(t *testing.T) {
	fx := newAPIFixture(t, "token-1")

	resp, payload := fx.request(t, http.MethodPost, "/api/uploads/presign", map[string]string{
		"movieId":  "m1",
		"fileType": "mp4",
	}, true)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, payload %v", resp.StatusCode, payload)
	}
	if payload["presignedUrl"] != "https://signed.example/episodes/m1/original.mp4" {
		t.Fatalf("presigned url = %v", payload["presignedUrl"])
	}

	resp2, payload2 := fx.request(t, http.MethodPost, "/api/uploads/presign", map[string]string{
		"fileType": "mp4",
	}, true)
	if resp2.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing movieId: status = %d, payload %v", resp2.StatusCode, payload2)
	}
}
