package drivers

import (
	"errors"
	"testing"
	"time"

	"github.com/sua-org/court-cam/internal/core"
)

func TestSchemeOf(t *testing.T) {
	cases := map[string]string{
		"rtsp://admin:x@10.0.0.1:554/stream1": "rtsp",
		"SYNTHETIC://320x240@10":              "synthetic",
		"/var/video/file.mp4":                 "",
		"0":                                   "",
	}
	for uri, want := range cases {
		if got := SchemeOf(uri); got != want {
			t.Errorf("SchemeOf(%q) = %q, want %q", uri, got, want)
		}
	}
}

func TestGetFallsBackToDefault(t *testing.T) {
	prev := defaultFactory
	defer func() { defaultFactory = prev }()

	defaultFactory = nil
	if _, err := Get(core.Source{URI: "weird://x"}); !errors.Is(err, ErrDriverNotFound) {
		t.Fatalf("expected ErrDriverNotFound, got %v", err)
	}

	called := false
	RegisterDefault(func(src core.Source) (FrameSource, error) {
		called = true
		return NewSynthetic(core.Source{URI: "synthetic://2x2@1"})
	})
	if _, err := Get(core.Source{URI: "weird://x"}); err != nil || !called {
		t.Fatalf("expected default factory to be used, err=%v", err)
	}
}

func TestSyntheticSource(t *testing.T) {
	src, err := Get(core.Source{URI: "synthetic://4x2@25?fail_after=3"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	s := src.(*syntheticSource)
	s.wait = func(time.Duration) {}

	if _, err := s.Read(); !errors.Is(err, ErrNotOpen) {
		t.Fatalf("expected ErrNotOpen before Open, got %v", err)
	}
	if err := s.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if s.FPS() != 25 {
		t.Fatalf("expected fps 25, got %v", s.FPS())
	}

	for i := 1; i <= 3; i++ {
		f, err := s.Read()
		if err != nil {
			t.Fatalf("Read %d: %v", i, err)
		}
		if f.Width != 4 || f.Height != 2 || len(f.Data) != 4*2*3 {
			t.Fatalf("unexpected frame geometry %dx%d (%d bytes)", f.Width, f.Height, len(f.Data))
		}
		if f.Seq != uint64(i) {
			t.Fatalf("expected seq %d, got %d", i, f.Seq)
		}
	}
	if _, err := s.Read(); !errors.Is(err, ErrReadFailed) {
		t.Fatalf("expected ErrReadFailed after fail_after, got %v", err)
	}

	// reabrir reinicia a contagem
	_ = s.Close()
	_ = s.Open()
	if _, err := s.Read(); err != nil {
		t.Fatalf("Read after reopen: %v", err)
	}
}

func TestSyntheticInvalidURI(t *testing.T) {
	for _, uri := range []string{"synthetic://axb@20", "synthetic://10x10@fast", "synthetic://10x10@5?fail_after=-1"} {
		if _, err := NewSynthetic(core.Source{URI: uri}); err == nil {
			t.Errorf("expected error for %q", uri)
		}
	}
}
