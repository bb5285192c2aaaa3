// cmd/capture-test/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sua-org/court-cam/internal/core"
	"github.com/sua-org/court-cam/internal/drivers"
	_ "github.com/sua-org/court-cam/internal/drivers/opencv"
)

func main() {
	uri := flag.String("uri", "synthetic://640x480@20", "URI da câmera (rtsp://..., synthetic://WxH@fps, arquivo)")
	frames := flag.Int("frames", 100, "quantidade de frames a ler")
	out := flag.String("snapshot", "capture_test.jpg", "arquivo JPEG com o último frame (vazio desliga)")
	flag.Parse()

	src := core.Source{Name: "capture-test", URI: *uri}
	drv, err := drivers.Get(src)
	if err != nil {
		log.Fatalf("erro ao obter driver para %s: %v", *uri, err)
	}
	if err := drv.Open(); err != nil {
		log.Fatalf("erro ao abrir %s: %v", *uri, err)
	}
	defer drv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sig
		log.Println("[capture-test] sinal recebido, encerrando...")
		cancel()
	}()

	log.Printf("[capture-test] conectado em %s (fps informado=%.2f)", *uri, drv.FPS())

	var last core.Frame
	start := time.Now()
	n := 0
	for n < *frames && ctx.Err() == nil {
		f, err := drv.Read()
		if err != nil {
			log.Fatalf("erro de leitura após %d frames: %v", n, err)
		}
		last = f
		n++
		if n%25 == 0 {
			log.Printf("[capture-test] %d frames (%dx%d)", n, f.Width, f.Height)
		}
	}
	elapsed := time.Since(start)
	fmt.Printf("frames=%d tempo=%s fps_medido=%.2f resolução=%dx%d\n",
		n, elapsed.Round(time.Millisecond), float64(n)/elapsed.Seconds(), last.Width, last.Height)

	if *out == "" || last.Empty() {
		return
	}
	data, err := last.EncodeJPEG(90)
	if err != nil {
		log.Fatalf("erro ao codificar JPEG: %v", err)
	}
	if err := os.WriteFile(*out, data, 0o644); err != nil {
		log.Fatalf("erro ao salvar %s: %v", *out, err)
	}
	log.Printf("[capture-test] snapshot salvo em %s", *out)
}
