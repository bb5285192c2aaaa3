// internal/convert/convert.go
package convert

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sua-org/court-cam/internal/core"
)

// OutputExt é o formato de entrega.
const OutputExt = ".mp4"

// Converter transcodifica os .avi de captura para mp4 via ffmpeg.
// Se o ffmpeg não existir ou falhar, o arquivo original é mantido.
type Converter struct {
	command string
	timeout time.Duration

	mu        sync.Mutex
	processes map[string]*exec.Cmd
}

func NewFromEnv() *Converter {
	command := strings.TrimSpace(os.Getenv("CONVERT_COMMAND"))
	timeout := 5 * time.Minute
	if v := strings.TrimSpace(os.Getenv("CONVERT_TIMEOUT_SECONDS")); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			timeout = time.Duration(sec) * time.Second
		} else {
			log.Printf("[convert] valor inválido em CONVERT_TIMEOUT_SECONDS=%q, usando default %s", v, timeout)
		}
	}
	return New(command, timeout)
}

func New(command string, timeout time.Duration) *Converter {
	if command == "" {
		command = "ffmpeg"
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Converter{
		command:   command,
		timeout:   timeout,
		processes: make(map[string]*exec.Cmd),
	}
}

// OutputPath: mesmo diretório e nome base, extensão .mp4.
func OutputPath(input string) string {
	return strings.TrimSuffix(input, filepath.Ext(input)) + OutputExt
}

// Convert devolve o caminho do artefato final: o mp4 em caso de sucesso
// (o original é apagado) ou o próprio input em caso de falha.
func (c *Converter) Convert(ctx context.Context, input string) string {
	out, err := c.convert(ctx, input)
	if err != nil {
		log.Printf("[convert] mantendo original %s: %v", input, err)
		return input
	}
	return out
}

func (c *Converter) convert(ctx context.Context, input string) (string, error) {
	output := OutputPath(input)
	if output == input {
		return input, nil
	}
	if _, err := os.Stat(input); err != nil {
		return "", fmt.Errorf("input: %w", err)
	}

	bin, err := exec.LookPath(c.command)
	if err != nil {
		return "", fmt.Errorf("%w: conversor %q indisponível: %v", core.ErrConversion, c.command, err)
	}

	// escreve em .part e só renomeia no fim; um .part nunca sobrevive a uma falha
	part := output + ".part"
	defer os.Remove(part)

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, bin,
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", input,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		"-an",
		"-f", "mp4",
		part,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	c.track(input, cmd)
	defer c.untrack(input)

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%w: %s falhou: %v (%s)", core.ErrConversion, filepath.Base(bin), err, strings.TrimSpace(stderr.String()))
	}

	if st, err := os.Stat(part); err != nil || st.Size() == 0 {
		return "", fmt.Errorf("%w: %s não gerou saída", core.ErrConversion, filepath.Base(bin))
	}
	if err := os.Rename(part, output); err != nil {
		return "", fmt.Errorf("rename %s: %w", part, err)
	}
	if err := os.Remove(input); err != nil {
		log.Printf("[convert] erro ao remover original %s: %v", input, err)
	}

	log.Printf("[convert] %s -> %s (%s)", filepath.Base(input), filepath.Base(output), time.Since(start).Round(time.Millisecond))
	return output, nil
}

func (c *Converter) track(input string, cmd *exec.Cmd) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.processes[input] = cmd
}

func (c *Converter) untrack(input string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.processes, input)
}

// Active devolve quantas conversões estão rodando.
func (c *Converter) Active() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.processes)
}

// StopAll mata as conversões em andamento (shutdown). Os originais ficam.
func (c *Converter) StopAll() {
	c.mu.Lock()
	cmds := make(map[string]*exec.Cmd, len(c.processes))
	for input, cmd := range c.processes {
		cmds[input] = cmd
	}
	c.mu.Unlock()

	for input, cmd := range cmds {
		if cmd.Process == nil {
			continue
		}
		if err := cmd.Process.Kill(); err != nil {
			log.Printf("[convert] failed to stop conversion of %s: %v", input, err)
			continue
		}
		log.Printf("[convert] stopped conversion of %s (shutdown)", input)
	}
}
