// Command wsecho is a minimal WebSocket echo server, demonstrating the
// websocket package's Upgrader and Conn against a real listener.
package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	srv := newEchoServer(cfg, log)

	mux := http.NewServeMux()
	mux.Handle(cfg.Path, srv)

	log.Info("listening", "addr", cfg.Addr, "path", cfg.Path)
	if err := http.ListenAndServe(cfg.Addr, mux); err != nil {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}
