package bookingapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

type fakeAPI struct {
	mu       sync.Mutex
	calls    []string
	courts   map[string]string
	failBook bool

	lastBooking map[string]interface{}
	lastForm    map[string]string
	lastFile    []byte
	lastAuth    string
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/courts", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		switch r.Method {
		case http.MethodGet:
			name := r.URL.Query().Get("name")
			data := []map[string]interface{}{}
			if id, ok := f.courts[name]; ok {
				data = append(data, map[string]interface{}{"id": id, "name": name})
			}
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": data})
		case http.MethodPost:
			var body map[string]interface{}
			_ = json.NewDecoder(r.Body).Decode(&body)
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": true, "data": map[string]interface{}{"id": 77}})
		}
	})
	mux.HandleFunc("/bookings", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if f.failBook {
			http.Error(w, `{"error":"conflict"}`, http.StatusConflict)
			return
		}
		var body map[string]interface{}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.lastBooking = body
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"id": "bk-1"})
	})
	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		f.record(r)
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("multipart inválido: %v", err)
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		file, _, err := r.FormFile("file")
		if err != nil {
			t.Errorf("campo file ausente: %v", err)
			http.Error(w, "bad", http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		f.mu.Lock()
		f.lastFile = data
		f.lastForm = map[string]string{
			"booking_id":  r.FormValue("booking_id"),
			"source_name": r.FormValue("source_name"),
		}
		f.mu.Unlock()
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"data": map[string]interface{}{"id": "vid-9"}})
	})
	return mux
}

func (f *fakeAPI) record(r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	f.lastAuth = r.Header.Get("Authorization")
}

func newTestClient(t *testing.T, f *fakeAPI) *Client {
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", "tok", time.Second, 5*time.Second)
}

func TestResolveCourtExisting(t *testing.T) {
	f := &fakeAPI{courts: map[string]string{"Court 1": "c-1"}}
	c := newTestClient(t, f)

	id, err := c.ResolveCourt(context.Background(), "Court 1", 1)
	if err != nil {
		t.Fatalf("ResolveCourt: %v", err)
	}
	if id != "c-1" {
		t.Fatalf("id = %q, want c-1", id)
	}
	if len(f.calls) != 1 || f.calls[0] != "GET /courts" {
		t.Fatalf("calls = %v, want só GET", f.calls)
	}
	if f.lastAuth != "Bearer tok" {
		t.Fatalf("Authorization = %q", f.lastAuth)
	}
}

func TestResolveCourtCreatesWhenMissing(t *testing.T) {
	f := &fakeAPI{courts: map[string]string{}}
	c := newTestClient(t, f)

	id, err := c.ResolveCourt(context.Background(), "Court 2", 2)
	if err != nil {
		t.Fatalf("ResolveCourt: %v", err)
	}
	if id != "77" {
		t.Fatalf("id = %q, want 77 (id numérico)", id)
	}
	if len(f.calls) != 2 || f.calls[1] != "POST /courts" {
		t.Fatalf("calls = %v", f.calls)
	}
}

func TestCreateBookingWindow(t *testing.T) {
	f := &fakeAPI{}
	c := newTestClient(t, f)

	start := time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC)
	id, err := c.CreateBooking(context.Background(), "c-1", start, start.Add(15*time.Minute))
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}
	if id != "bk-1" {
		t.Fatalf("id = %q", id)
	}
	if f.lastBooking["start_time"] != "2024-05-01T18:00:00Z" || f.lastBooking["end_time"] != "2024-05-01T18:15:00Z" {
		t.Fatalf("booking = %v", f.lastBooking)
	}
}

func TestCreateBookingStatusError(t *testing.T) {
	f := &fakeAPI{failBook: true}
	c := newTestClient(t, f)

	_, err := c.CreateBooking(context.Background(), "c-1", time.Now(), time.Now().Add(time.Minute))
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *StatusError", err)
	}
	if se.Status != http.StatusConflict {
		t.Fatalf("status = %d", se.Status)
	}
}

func TestUploadVideoMultipart(t *testing.T) {
	f := &fakeAPI{}
	c := newTestClient(t, f)

	path := filepath.Join(t.TempDir(), "Court_1_Cam_30s_20240501_180000.mp4")
	if err := os.WriteFile(path, []byte("video-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	id, err := c.UploadVideo(context.Background(), "bk-1", path, "Court 1 Cam")
	if err != nil {
		t.Fatalf("UploadVideo: %v", err)
	}
	if id != "vid-9" {
		t.Fatalf("id = %q", id)
	}
	if f.lastForm["booking_id"] != "bk-1" || f.lastForm["source_name"] != "Court 1 Cam" {
		t.Fatalf("form = %v", f.lastForm)
	}
	if string(f.lastFile) != "video-bytes" {
		t.Fatalf("file = %q", f.lastFile)
	}
}

func TestUploadVideoMissingFile(t *testing.T) {
	f := &fakeAPI{}
	c := newTestClient(t, f)

	if _, err := c.UploadVideo(context.Background(), "bk-1", filepath.Join(t.TempDir(), "nope.mp4"), "x"); err == nil {
		t.Fatal("esperava erro para arquivo inexistente")
	}
	if len(f.calls) != 0 {
		t.Fatalf("nenhuma chamada esperada, got %v", f.calls)
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("BOOKING_API_URL", "")
	if _, err := NewFromEnv(); err == nil {
		t.Fatal("esperava erro sem BOOKING_API_URL")
	}

	t.Setenv("BOOKING_API_URL", "http://api.local/v1/")
	t.Setenv("BOOKING_API_TIMEOUT_SECONDS", "3")
	c, err := NewFromEnv()
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}
	if c.BaseURL != "http://api.local/v1" {
		t.Fatalf("BaseURL = %q", c.BaseURL)
	}
	if c.HTTP.Timeout != 3*time.Second || c.Upload.Timeout != 120*time.Second {
		t.Fatalf("timeouts = %s / %s", c.HTTP.Timeout, c.Upload.Timeout)
	}
}

func TestExtractID(t *testing.T) {
	cases := map[string]string{
		`{"id":"a"}`:              "a",
		`{"id":12}`:               "12",
		`{"data":{"id":"b"}}`:     "b",
		`{"data":{},"id":"root"}`: "root",
		`{}`:                      "",
		`not json`:                "",
	}
	for raw, want := range cases {
		if got := extractID([]byte(raw)); got != want {
			t.Errorf("extractID(%s) = %q, want %q", raw, got, want)
		}
	}
}
