package main

import (
	_ "embed"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/inkwell-ui/inkwell/pkg/blockstore"
	"github.com/inkwell-ui/inkwell/pkg/editor"
	"github.com/inkwell-ui/inkwell/pkg/remotehost"
)

func demoCmd() *cobra.Command {
	var (
		listen     string
		configPath string
	)

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run the demo editor server",
		Long: `Serves a demo editor page, a websocket endpoint driving the
editor core, and Prometheus metrics on /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("listen") {
				cfg.Listen = listen
			}
			return runDemo(cfg)
		},
	}

	cmd.Flags().StringVar(&listen, "listen", ":8080", "listen address")
	cmd.Flags().StringVar(&configPath, "config", "inkwell.yaml", "config file path")
	return cmd
}

func runDemo(cfg config) error {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	metrics := remotehost.NewMetrics(prometheus.DefaultRegisterer)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)

	r.Get("/", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, demoPage)
	})

	r.Get("/client.js", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Write(clientJS)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/ws", func(w http.ResponseWriter, req *http.Request) {
		conn, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			logger.Error("upgrade failed", "error", err)
			return
		}
		serveEditor(conn, cfg, logger, metrics)
	})

	logger.Info("demo server listening", "addr", cfg.Listen)
	return http.ListenAndServe(cfg.Listen, r)
}

// serveEditor runs one editor session over an upgraded connection.
// Blocks until the client disconnects.
func serveEditor(conn *websocket.Conn, cfg config, logger *slog.Logger, metrics *remotehost.Metrics) {
	session := remotehost.NewSession(conn, remotehost.Config{
		MeasureTimeout: cfg.measureTimeout(),
		Logger:         logger,
		Metrics:        metrics,
	})

	store := blockstore.New()
	intro := store.Add("paragraph", "Welcome to Inkwell.")
	body := store.Add("paragraph", "Click into a block and start typing.")

	session.Post(func() {
		eng, err := editor.New(session, session.Root(), store,
			editor.WithLogger(logger))
		if err != nil {
			logger.Error("engine init failed", "error", err)
			session.Close()
			return
		}
		for _, rec := range []blockstore.Record{intro, body} {
			eng.RenderBlock(editor.Block{ID: rec.ID, Type: rec.Type, Text: rec.Text})
		}
		eng.SetupInputHandler()
	})

	go session.ReadLoop()
	session.RunLoop()
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// clientJS is the thin render-host client: it mirrors ops into the
// DOM, acks each batch, answers measurement requests, and streams
// input events back.
//
//go:embed client.js
var clientJS []byte

const demoPage = `<!doctype html>
<html>
<head><meta charset="utf-8"><title>Inkwell demo</title></head>
<body>
<div id="inkwell-root"></div>
<script src="/client.js" defer></script>
</body>
</html>
`
