package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mezonai/ledgerstore/exception"
	"github.com/mezonai/ledgerstore/jsonx"
	"github.com/mezonai/ledgerstore/ledger"
	"github.com/mezonai/ledgerstore/logx"
	"github.com/mezonai/ledgerstore/monitoring"
)

const shutdownTimeout = 5 * time.Second

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve status, metrics and secondary catch-up over HTTP",
	Long: `Open the ledger and serve:
- GET  /metrics   prometheus metrics
- GET  /status    height, latest block and tree digest
- GET  /peers     the stored peer book
- POST /catchup?height=N[&rebuild=false]   move a secondary up to height N`,
	RunE: func(cmd *cobra.Command, args []string) error {
		monitoring.InitMetrics()
		s, err := loadSettings()
		if err != nil {
			return err
		}
		addr := serveAddr
		if addr == "" {
			addr = s.cfg.MetricsAddr
		}

		l, err := s.openLedger()
		if err != nil {
			return err
		}
		defer l.Close()

		srv := &http.Server{Addr: addr, Handler: newServeMux(l)}
		exception.SafeGo("http-server", func() {
			logx.Info("SERVE", "Listening on ", addr, " (secondary=", l.IsSecondary(), ")")
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logx.Error("SERVE", "HTTP server stopped: ", err)
			}
		})

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logx.Info("SERVE", "Shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address, defaults to metrics_addr from the config")
}

func newServeMux(l *ledger.Ledger) *http.ServeMux {
	mux := http.NewServeMux()
	monitoring.RegisterMetrics(mux)

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		status, err := collectStatus(l)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, status)
	})

	mux.HandleFunc("/peers", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		peers, err := l.GetPeerBook()
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if peers == nil {
			http.Error(w, "no peer book stored", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write(peers)
	})

	mux.HandleFunc("/catchup", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if !l.IsSecondary() {
			http.Error(w, "ledger is not a secondary", http.StatusConflict)
			return
		}
		height, err := strconv.ParseUint(r.URL.Query().Get("height"), 10, 32)
		if err != nil {
			http.Error(w, "invalid height: "+err.Error(), http.StatusBadRequest)
			return
		}
		rebuild := r.URL.Query().Get("rebuild") != "false"

		if err := l.CatchUpSecondary(rebuild, uint32(height)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		status, err := collectStatus(l)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, status)
	})

	return mux
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := jsonx.WriteJSON(w, v); err != nil {
		logx.Error("SERVE", "Failed to write response: ", err)
	}
}
