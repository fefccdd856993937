package commands

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/chaosbotics/chaos/pkg/telemetry"
)

var (
	monitorAddr     string
	monitorInterval time.Duration
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Serve live telemetry over HTTP",
	Long: `Start a small HTTP server that streams telemetry snapshots to browsers
over a websocket. Open the address in a browser, or connect to /ws directly
and read one JSON snapshot per interval.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMonitor(cmd.Context())
	},
}

func init() {
	monitorCmd.Flags().StringVar(&monitorAddr, "addr", ":8420", "listen address")
	monitorCmd.Flags().DurationVar(&monitorInterval, "interval", 200*time.Millisecond, "push interval")
	rootCmd.AddCommand(monitorCmd)
}

const monitorPage = `<!doctype html>
<html>
<head><title>chaos telemetry</title></head>
<body style="font-family: monospace; background: #0d1117; color: #00ff9f">
<h3>chaos telemetry</h3>
<pre id="out">connecting...</pre>
<script>
const ws = new WebSocket("ws://" + location.host + "/ws");
ws.onmessage = e => {
  document.getElementById("out").textContent =
    JSON.stringify(JSON.parse(e.data), null, 2);
};
ws.onclose = () => { document.getElementById("out").textContent = "disconnected"; };
</script>
</body>
</html>
`

func runMonitor(parent context.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := slog.Default().With("component", "monitor")

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store := telemetry.NewStore()
	reader := telemetry.NewReader(telemetry.Config{
		Port:      cfg.SerialPort,
		ForceStub: cfg.StubHardware,
	}, store, slog.Default())
	go reader.Run(ctx)

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(monitorPage))
	})
	mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Warn("websocket upgrade failed", "error", err)
			return
		}
		log.Info("client connected", "remote", r.RemoteAddr)
		pushSnapshots(ctx, conn, store)
		conn.Close()
		log.Info("client disconnected", "remote", r.RemoteAddr)
	})

	srv := &http.Server{Addr: monitorAddr, Handler: mux}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.Info("serving telemetry", "addr", monitorAddr)

	select {
	case <-ctx.Done():
		shutCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		srv.Shutdown(shutCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// pushSnapshots writes one JSON snapshot per interval until the client goes
// away or the request context ends.
func pushSnapshots(ctx context.Context, conn *websocket.Conn, store *telemetry.Store) {
	ticker := time.NewTicker(monitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			raw, err := json.Marshal(store.Snapshot())
			if err != nil {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		}
	}
}
