// cmd/court-cam/main.go
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/sua-org/court-cam/internal/bookingapi"
	"github.com/sua-org/court-cam/internal/clipper"
	"github.com/sua-org/court-cam/internal/config"
	"github.com/sua-org/court-cam/internal/convert"
	"github.com/sua-org/court-cam/internal/delivery"
	"github.com/sua-org/court-cam/internal/drivers/opencv"
	"github.com/sua-org/court-cam/internal/ingest"
	"github.com/sua-org/court-cam/internal/janitor"
	"github.com/sua-org/court-cam/internal/layout"
	"github.com/sua-org/court-cam/internal/mqttclient"
	"github.com/sua-org/court-cam/internal/storage"
	"github.com/sua-org/court-cam/internal/supervisor"
	"github.com/sua-org/court-cam/internal/tasks"
	"github.com/sua-org/court-cam/internal/trigger"
)

func main() {
	// Carrega .env na raiz (se não existir, só loga aviso)
	if err := godotenv.Load(); err != nil {
		log.Printf("[main] aviso: não foi possível carregar .env: %v", err)
	} else {
		log.Printf("[main] .env carregado com sucesso")
	}

	baseTopic := strings.TrimSuffix(getenv("MQTT_BASE_TOPIC", "courts"), "/")

	cfgFile, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("[main] erro ao carregar câmeras: %v", err)
	}

	l := layout.NewFromEnv()
	if err := l.Ensure(); err != nil {
		log.Fatalf("[main] erro ao criar pastas em %s: %v", l.Root, err)
	}

	// MQTT e MinIO são opcionais; sem eles o serviço só grava em disco
	var (
		mqttCli *mqttclient.Client
		pub     supervisor.Publisher
	)
	if c, err := mqttclient.NewClientFromEnv("court-cam"); err != nil {
		if errors.Is(err, mqttclient.ErrDisabled) {
			log.Printf("[main] MQTT desabilitado")
		} else {
			log.Printf("[main] aviso: MQTT não conectado: %v", err)
		}
	} else {
		mqttCli, pub = c, c
		defer mqttCli.Close()
	}

	var store storage.ObjectStore
	if s, err := storage.NewMinioStoreFromEnv(); err != nil {
		log.Printf("[main] aviso: MinIO não inicializado: %v", err)
	} else {
		store = s
	}

	var api delivery.CourtAPI
	if c, err := bookingapi.NewFromEnv(); err != nil {
		log.Printf("[main] aviso: API de reservas desabilitada: %v", err)
	} else {
		api = c
	}

	conv := convert.NewFromEnv()
	segmentTasks := tasks.New("segments")

	supCfg := supervisor.ConfigFromEnv()
	supCfg.NewWriter = opencv.NewVideoWriter
	supCfg.SegmentPath = l.SegmentPath
	supCfg.Placeholder = opencv.Placeholder
	var segConv clipper.Converter
	if getenv("RECORD_CONVERT_SEGMENTS", "false") == "true" {
		segConv = conv
	}
	var segStore storage.ObjectStore
	if getenv("RECORD_ARCHIVE_SEGMENTS", "false") == "true" {
		segStore = store
	}
	supCfg.OnSegmentClosed = clipper.SegmentHook(segConv, segStore, segmentTasks)

	sup := supervisor.New(cfgFile.Sources, supCfg, pub, baseTopic)

	deps := delivery.Deps{API: api, Store: store, TopicFor: sup.SourceTopic}
	if mqttCli != nil {
		deps.MQTT = mqttCli
	}
	deliver := delivery.LoadFromEnv(deps)

	clips := clipper.New(sup, conv, deliver, clipper.Config{
		DefaultSeconds: envInt("CLIP_DEFAULT_SECONDS", 15),
		DefaultFPS:     supCfg.DefaultFPS,
		Layout:         l,
		NewWriter:      opencv.NewVideoWriter,
	}, tasks.New("clipper"))

	svc := ingest.New(sup, clips, l, ingest.Options{
		Annotate:   opencv.Annotate,
		Store:      store,
		Stopper:    conv,
		Background: []*tasks.Group{segmentTasks},
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	svc.StartAll(ctx)

	go func() {
		if err := sup.Run(ctx); err != nil {
			log.Printf("[main] supervisor terminou com erro: %v", err)
		}
	}()
	go func() {
		if err := janitor.NewFromEnv(l).Run(ctx); err != nil {
			log.Printf("[main] janitor terminou com erro: %v", err)
		}
	}()

	disp := trigger.NewDispatcher(svc, trigger.ConfigFromEnv())
	listeners := []*trigger.UDPListener{
		trigger.NewUDPListener(getenv("TRIGGER_LISTEN_ADDR", "0.0.0.0:12345"), trigger.NoGroup, disp),
	}
	for _, t := range cfgFile.Triggers {
		listeners = append(listeners, trigger.NewUDPListener(t.Listen, t.GroupID, disp))
	}
	for _, ln := range listeners {
		go func(ln *trigger.UDPListener) {
			if err := ln.Serve(ctx); err != nil {
				log.Printf("[main] listener UDP terminou com erro: %v", err)
			}
		}(ln)
	}
	if mqttCli != nil {
		if err := trigger.SubscribeMQTT(mqttCli, baseTopic, disp); err != nil {
			log.Printf("[main] aviso: trigger MQTT indisponível: %v", err)
		}
	}

	<-sig
	log.Println("[main] sinal recebido, encerrando...")
	cancel()
	svc.Close()
	log.Println("[main] encerrado")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(key)))
	if err != nil || n <= 0 {
		return def
	}
	return n
}
