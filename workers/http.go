package workers

import (
	"context"
	"crypto/tls"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gobridgerelay/config"
	"gobridgerelay/workers/handlers"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/sirupsen/logrus"
)

// Worker_HTTP serves the read-only status/quote API and blocks until the
// process receives a termination signal; it then propagates shutdown to the
// other workers. Runs on the main goroutine.
func Worker_HTTP(h *handlers.Handler, logger *logrus.Logger) {
	logger.Info("starting HTTP service")

	r := chi.NewRouter()
	r.Use(middleware.Logger)

	r.Options("/*", CORSHeaders)

	// prev. bridge implementation compatibility
	r.Get("/state", h.State)

	r.Get("/api/status", h.Status)
	r.Get("/api/exchange-rates", h.ExchangeRates)
	r.Get("/api/quote/{fromToken}/{toToken}/{amount}", h.Quote)

	r.Post("/api/simulate-bridge", h.SimulateBridge)
	r.Post("/api/release", h.Release)

	r.Get("/api/failed", h.Failed)

	var server *http.Server

	if config.Config.Server.UseSSL {
		cert, _ := tls.LoadX509KeyPair("certchain.pem", "privatekey.pem")
		server = &http.Server{
			Addr:    ":443",
			Handler: r,
			TLSConfig: &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			},
		}
	} else {
		server = &http.Server{
			Addr:    ":8080",
			Handler: r,
		}
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if config.Config.Server.UseSSL {
			if err := server.ListenAndServeTLS("", ""); err != nil && err != http.ErrServerClosed {
				logger.Fatalf("error listening: %s", err)
			}
		} else {
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Fatalf("error listening: %s", err)
			}
		}
	}()
	logger.Info("HTTP service started")

	<-done
	logger.Info("HTTP service stopping")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Fatalf("HTTP service shutdown error: %+v", err)
	}
	logger.Info("HTTP service shutdown normal")

	// send signal to other threads/workers to exit
	WorkerShutdown.Store(true)
}

func CORSHeaders(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE")
	w.Header().Set("Access-Control-Allow-Headers", "Accept, Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, Origin, X-Requested-With")
}
