package main

import (
	"log"
	"log/slog"
	"net/http"
	"os"

	"manualqa/internal/api"
	"manualqa/internal/config"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	srv, err := api.NewServer(cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer srv.Close()

	log.Printf("manualqa api listening on %s provider=%q embed_dim=%d", cfg.APIAddr, cfg.CompletionProvider, cfg.EmbedDim)
	if err := http.ListenAndServe(cfg.APIAddr, srv.Routes()); err != nil {
		log.Fatal(err)
	}
}
