// cmd/upload-test/main.go
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/sua-org/court-cam/internal/bookingapi"
	"github.com/sua-org/court-cam/internal/delivery"
)

func main() {
	// Carrega .env se existir
	if err := godotenv.Load(); err == nil {
		log.Printf("[upload-test] .env carregado com sucesso")
	}

	group := flag.Int("group", 1, "id do grupo (quadra)")
	court := flag.String("court", "", "nome da quadra (default \"Court <group>\")")
	source := flag.String("source", "upload-test", "nome da câmera enviado em source_name")
	flag.Parse()

	if flag.NArg() < 1 {
		log.Fatalf("uso: go run ./cmd/upload-test [-group N] <caminho_do_video>")
	}
	path := flag.Arg(0)
	if *court == "" {
		*court = "Court " + strconv.Itoa(*group)
	}

	client, err := bookingapi.NewFromEnv()
	if err != nil {
		log.Fatalf("erro ao criar client da API: %v", err)
	}
	up := delivery.NewUploader(client, 0, 0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	start := time.Now()
	if st, err := os.Stat(path); err == nil {
		start = st.ModTime()
	}

	videoID, err := up.Upload(ctx, path, *source, *group, *court, start)
	if err != nil {
		log.Fatalf("upload falhou: %v", err)
	}
	log.Printf("upload OK: %s -> vídeo %s", filepath.Base(path), videoID)
}
