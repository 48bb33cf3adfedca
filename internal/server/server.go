package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"time"

	"github.com/rs/cors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/emrgen/mediahub/internal/config"
	"github.com/emrgen/mediahub/internal/service"
)

// Server represents the server
type Server struct {
	httpPort string
	jobs     bool
}

// NewServer creates a new server. The scheduled refresh and prune jobs run
// when jobs is set.
func NewServer(httpPort string, jobs bool) *Server {
	return &Server{httpPort: httpPort, jobs: jobs}
}

// Start starts the server
func (s *Server) Start() {
	if err := Start(s.httpPort, s.jobs); err != nil {
		logrus.Fatalf("error starting server: %v", err)
	}
}

// Start serves the http api until the process is interrupted.
func Start(httpPort string, withJobs bool) error {
	cnf := config.LoadConfig()
	if httpPort == "" {
		httpPort = cnf.HTTPPort
	}
	httpPort = ":" + httpPort

	rdb, err := config.OpenDB(cnf)
	if err != nil {
		return err
	}

	app, err := config.Build(context.Background(), cnf, rdb)
	if err != nil {
		return err
	}
	defer app.Close()

	rl, err := net.Listen("tcp", httpPort)
	if err != nil {
		return err
	}

	svc := service.NewResourceService(app.Store, app.Importer, app.Files)

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "DELETE", "PUT"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", UserHeader},
		AllowCredentials: true,
	})

	restServer := &http.Server{
		Addr:              httpPort,
		Handler:           c.Handler(NewHandler(svc)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	if withJobs {
		executor := app.Jobs(cnf)
		if err := executor.Run(); err != nil {
			return err
		}
		defer executor.Stop()
	}

	// make sure to wait for the server to stop before exiting
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		logrus.Info("starting http server on: ", httpPort)
		logrus.Infof("sources: %v", svc.Sources())
		if err := restServer.Serve(rl); err != nil {
			if !errors.Is(err, http.ErrServerClosed) {
				logrus.Errorf("error starting http server: %v", err)
			}
		}
		logrus.Infof("http server stopped")
	}()

	logrus.Infof("Press Ctrl+C to stop the server")

	// listen for interrupt signal to gracefully shut down the server
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, unix.SIGTERM, unix.SIGINT, unix.SIGTSTP)
	<-sigs
	// clean Ctrl+C output
	fmt.Println()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := restServer.Shutdown(ctx); err != nil {
		logrus.Errorf("error stopping http server: %v", err)
	}

	wg.Wait()

	return nil
}
