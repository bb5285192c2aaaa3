package convert

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/sua-org/court-cam/internal/core"
)

// fake ffmpeg: copia o arquivo depois de "-i" para o último argumento
const copyScript = `#!/bin/sh
in=""; prev=""; out=""
for a in "$@"; do
  if [ "$prev" = "-i" ]; then in="$a"; fi
  prev="$a"; out="$a"
done
cp "$in" "$out"
`

// fake ffmpeg que escreve saída parcial e falha
const failScript = `#!/bin/sh
out=""
for a in "$@"; do out="$a"; done
echo partial > "$out"
echo "moov atom not found" >&2
exit 1
`

func writeScript(t *testing.T, dir, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	path := filepath.Join(dir, "fake-ffmpeg")
	if err := os.WriteFile(path, []byte(body), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func writeInput(t *testing.T, dir string) string {
	t.Helper()
	in := filepath.Join(dir, "Court_A_15s_20240501_100000.avi")
	if err := os.WriteFile(in, []byte("RIFF....AVI "), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}
	return in
}

// artifacts lista os arquivos do diretório, ignorando o script.
func artifacts(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	var out []string
	for _, e := range entries {
		if e.Name() != "fake-ffmpeg" {
			out = append(out, e.Name())
		}
	}
	return out
}

func TestConvertSuccessKeepsOnlyOutput(t *testing.T) {
	dir := t.TempDir()
	c := New(writeScript(t, dir, copyScript), 10*time.Second)
	in := writeInput(t, dir)

	out := c.Convert(context.Background(), in)
	if out != OutputPath(in) {
		t.Fatalf("expected %s, got %s", OutputPath(in), out)
	}
	got := artifacts(t, dir)
	if len(got) != 1 || got[0] != filepath.Base(out) {
		t.Fatalf("expected only the converted artifact, got %v", got)
	}
}

func TestConvertFailureFallsBackToOriginal(t *testing.T) {
	dir := t.TempDir()
	c := New(writeScript(t, dir, failScript), 10*time.Second)
	in := writeInput(t, dir)

	if out := c.Convert(context.Background(), in); out != in {
		t.Fatalf("expected fallback to %s, got %s", in, out)
	}
	got := artifacts(t, dir)
	if len(got) != 1 || got[0] != filepath.Base(in) {
		t.Fatalf("expected only the original artifact, got %v", got)
	}
}

func TestConvertMissingToolFallsBack(t *testing.T) {
	dir := t.TempDir()
	c := New(filepath.Join(dir, "does-not-exist"), time.Second)
	in := writeInput(t, dir)

	if out := c.Convert(context.Background(), in); out != in {
		t.Fatalf("expected fallback to %s, got %s", in, out)
	}
	if got := artifacts(t, dir); len(got) != 1 {
		t.Fatalf("expected exactly one artifact, got %v", got)
	}
}

func TestConvertAlreadyDeliveryFormat(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "clip.mp4")
	_ = os.WriteFile(in, []byte("mp4"), 0o644)
	c := New(filepath.Join(dir, "does-not-exist"), time.Second)
	if out := c.Convert(context.Background(), in); out != in {
		t.Fatalf("got %s", out)
	}
}

func TestOutputPath(t *testing.T) {
	if got := OutputPath("/x/temp/a_15s_1.avi"); got != "/x/temp/a_15s_1.mp4" {
		t.Fatalf("got %s", got)
	}
}

func TestNewFromEnv(t *testing.T) {
	t.Setenv("CONVERT_COMMAND", "")
	t.Setenv("CONVERT_TIMEOUT_SECONDS", "30")
	c := NewFromEnv()
	if c.command != "ffmpeg" || c.timeout != 30*time.Second {
		t.Fatalf("unexpected converter %+v", c)
	}
}

func TestConvertErrorsAreConversionFailures(t *testing.T) {
	dir := t.TempDir()
	in := writeInput(t, dir)

	for name, c := range map[string]*Converter{
		"tool fails":   New(writeScript(t, dir, failScript), 10*time.Second),
		"tool missing": New(filepath.Join(dir, "does-not-exist"), time.Second),
	} {
		if _, err := c.convert(context.Background(), in); !errors.Is(err, core.ErrConversion) {
			t.Errorf("%s: err = %v, want ErrConversion", name, err)
		}
	}
}
