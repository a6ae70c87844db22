package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/onsi/gomega"

	"github.com/san-kum/pixi/internal/animation"
	"github.com/san-kum/pixi/internal/metrics"
	"github.com/san-kum/pixi/internal/stream"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func newTestServer(t *testing.T, preset int) (*animation.Animation, *httptest.Server) {
	t.Helper()
	clock := animation.NewFakeClock(time.Unix(0, 0))
	anim, err := animation.New(animation.Config{
		Preset: preset,
		Seed:   1,
		Clock:  clock,
		Ticker: animation.NewManualTicker(clock),
		Logger: quiet,
	})
	if err != nil {
		t.Fatal(err)
	}
	hub := stream.NewHub(stream.Config{Logger: quiet})
	anim.AddObserver(hub)
	set := metrics.Default()
	anim.AddObserver(set)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- anim.Run(ctx) }()
	srv := httptest.NewServer(newServeMux(anim, hub, set))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return anim, srv
}

func TestServeStatus(t *testing.T) {
	g := NewWithT(t)
	anim, srv := newTestServer(t, 7)

	resp, err := http.Get(srv.URL + "/status")
	g.Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()
	g.Expect(resp.StatusCode).To(Equal(http.StatusOK))

	var st serverStatus
	g.Expect(json.NewDecoder(resp.Body).Decode(&st)).To(Succeed())
	g.Expect(st.Status.Preset).To(Equal(7))
	g.Expect(st.Status.GridCells).To(Equal(anim.Status().GridCells))
	g.Expect(st.Metrics).To(HaveKey("stability"))
}

func TestServeResizesGrid(t *testing.T) {
	g := NewWithT(t)
	anim, srv := newTestServer(t, 7)

	resp, err := http.Post(srv.URL+"/grid?nx=12&ny=8", "", nil)
	g.Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()
	g.Expect(resp.StatusCode).To(Equal(http.StatusOK))

	var st serverStatus
	g.Expect(json.NewDecoder(resp.Body).Decode(&st)).To(Succeed())
	g.Expect(st.Status.GridCells).To(Equal([3]int{12, 8, 0}))
	g.Expect(anim.Status().GridCells).To(Equal([3]int{12, 8, 0}))
}

func TestServeRejectsBadGrid(t *testing.T) {
	tests := []struct {
		name   string
		method string
		query  string
		code   int
	}{
		{"missing ny", http.MethodPost, "?nx=4", http.StatusBadRequest},
		{"not a number", http.MethodPost, "?nx=4&ny=four", http.StatusBadRequest},
		{"empty mesh", http.MethodPost, "?nx=0&ny=4", http.StatusUnprocessableEntity},
		{"wrong method", http.MethodGet, "?nx=4&ny=4", http.StatusMethodNotAllowed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewWithT(t)
			anim, srv := newTestServer(t, 7)
			before := anim.Status().GridCells

			req, err := http.NewRequest(tt.method, srv.URL+"/grid"+tt.query, nil)
			g.Expect(err).NotTo(HaveOccurred())
			resp, err := http.DefaultClient.Do(req)
			g.Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()
			g.Expect(resp.StatusCode).To(Equal(tt.code))
			g.Expect(anim.Status().GridCells).To(Equal(before))
		})
	}
}
