package app

import (
	"context"
	"encoding/json"
	"math/rand"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"github.com/suxatcode/gravity-sim/internal/controller"
	"github.com/suxatcode/gravity-sim/middleware"
	"github.com/suxatcode/gravity-sim/nbody"
)

type particlesResponse struct {
	Step      int               `json:"step"`
	Particles []*nbody.Particle `json:"particles"`
}

type treeResponse struct {
	Step  int          `json:"step"`
	Boxes []nbody.Rect `json:"boxes"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

// NewRouter serves read-only views of the runner's last completed step and
// accepts new particles.
func NewRouter(runner *controller.Runner, gatherer prometheus.Gatherer) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.AddLogging)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)
	r.HandleFunc("/snapshot", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, runner.Snapshot())
	}).Methods(http.MethodGet)
	r.HandleFunc("/particles", func(w http.ResponseWriter, _ *http.Request) {
		s := runner.Snapshot()
		writeJSON(w, http.StatusOK, particlesResponse{Step: s.Step, Particles: s.Particles})
	}).Methods(http.MethodGet)
	r.HandleFunc("/particles", func(w http.ResponseWriter, req *http.Request) {
		p := nbody.Particle{}
		if err := json.NewDecoder(req.Body).Decode(&p); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		if err := runner.AddParticle(&p); err != nil {
			log.Ctx(req.Context()).Warn().Err(err).Msg("rejected particle")
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "queued"})
	}).Methods(http.MethodPost)
	r.HandleFunc("/tree", func(w http.ResponseWriter, _ *http.Request) {
		s := runner.Snapshot()
		writeJSON(w, http.StatusOK, treeResponse{Step: s.Step, Boxes: s.Boxes})
	}).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	return r
}

// Run serves a continuously stepping simulation configured from the
// environment until SIGINT or SIGTERM.
func Run() error {
	conf, err := GetEnvConfig()
	if err != nil {
		return err
	}
	SetupLogging(conf)
	log.Info().Msgf("Config: %#v", conf)

	sim, err := nbody.NewSimulation(conf.Simulation.NBodyConfig())
	if err != nil {
		return err
	}
	rnd := rand.New(rand.NewSource(conf.Simulation.Seed))
	particles := nbody.RandomParticles(conf.Simulation.Particles, conf.Simulation.Boundary(), rnd.Float64)
	registry := prometheus.NewRegistry()
	runner := controller.NewRunner(sim, particles, conf.Simulation.Tick, controller.NewMetrics(registry))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	ctx = log.Logger.WithContext(ctx)
	go func() {
		if err := runner.Run(ctx, conf.Simulation.Steps); err != nil {
			log.Error().Err(err).Msg("simulation stopped")
			return
		}
		log.Info().Msgf("simulation finished after %d steps", runner.Snapshot().Step)
	}()

	server := http.Server{
		Addr:         ":" + conf.Port,
		Handler:      NewRouter(runner, registry),
		ReadTimeout:  conf.HTTPTimeout,
		WriteTimeout: conf.HTTPTimeout,
		BaseContext:  func(_ net.Listener) context.Context { return ctx },
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("failed to shut down server")
		}
	}()
	log.Info().Msgf("serving simulation on http://0.0.0.0:%s/snapshot", conf.Port)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "ListenAndServe")
	}
	return nil
}
