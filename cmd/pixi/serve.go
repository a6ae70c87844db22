package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/pixi/internal/animation"
	"github.com/san-kum/pixi/internal/metrics"
	"github.com/san-kum/pixi/internal/stream"
)

type serverStatus struct {
	Status  animation.Status   `json:"status"`
	Clients int                `json:"clients"`
	Dropped uint64             `json:"dropped"`
	Metrics map[string]float64 `json:"metrics"`
}

// newServeMux routes the websocket stream and the control endpoints:
//
//	GET  /ws      frame stream
//	GET  /status  controller status, clients and metric values
//	POST /grid    resize the grid, ?nx=&ny=&nz= (nz defaults to 0)
func newServeMux(anim *animation.Animation, hub *stream.Hub, set *metrics.Set) *http.ServeMux {
	status := func(w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(serverStatus{anim.Status(), hub.Clients(), hub.Dropped(), set.Values()})
	}

	mux := http.NewServeMux()
	mux.Handle("/ws", hub)
	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		status(w)
	})
	mux.HandleFunc("POST /grid", func(w http.ResponseWriter, r *http.Request) {
		cells, err := gridCells(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := anim.ResizeGrid(cells[0], cells[1], cells[2]); err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		status(w)
	})
	return mux
}

func gridCells(r *http.Request) ([3]int, error) {
	var cells [3]int
	for i, key := range []string{"nx", "ny", "nz"} {
		v := r.URL.Query().Get(key)
		if v == "" {
			if key == "nz" {
				continue
			}
			return cells, fmt.Errorf("missing %s", key)
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return cells, fmt.Errorf("%s: %w", key, err)
		}
		cells[i] = n
	}
	return cells, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	anim, err := newAnimation()
	if err != nil {
		return err
	}
	hub := stream.NewHub(stream.Config{QueueSize: queueSize, Every: every, Logger: slog.Default()})
	anim.AddObserver(hub)
	set := metrics.Default()
	anim.AddObserver(set)

	srv := &http.Server{Addr: addr, Handler: newServeMux(anim, hub, set), ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runAnimation(ctx, anim, func(ctx context.Context) error {
		if err := anim.Start(); err != nil {
			return err
		}
		errc := make(chan error, 1)
		go func() { errc <- srv.ListenAndServe() }()
		fmt.Printf("streaming on ws://%s/ws\n", addr)
		slog.Info("serving", "addr", addr)

		select {
		case err := <-errc:
			return err
		case <-ctx.Done():
		}
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdown)
	})
}
