// Package server exposes the engine over HTTP to external collaborators: the
// cluster monitor pushes failure events and solution outcomes in, query tools
// pull analysis reports out.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/packagewjx/failure-insight/internal/engine"
	api "github.com/packagewjx/failure-insight/pkg/engine"
	"github.com/pkg/errors"
)

const DefaultPort = 2100

type ServerConfig struct {
	Port   uint16
	Engine *engine.EngineConfig
}

func (c ServerConfig) String() string {
	marshal, _ := json.Marshal(c)
	return string(marshal)
}

type Server interface {
	Start() error
}

func NewServer(config *ServerConfig) (Server, error) {
	if config.Port < 1024 {
		return nil, fmt.Errorf("port must be between 1024 and 65535, got %d", config.Port)
	}
	if config.Engine == nil {
		config.Engine = &engine.EngineConfig{}
	}

	eng, err := engine.New(config.Engine)
	if err != nil {
		return nil, err
	}

	return &serverImpl{
		config: config,
		api:    eng,
		logger: log.New(os.Stdout, "failure server: ", log.LstdFlags|log.Lshortfile|log.Lmsgprefix),
	}, nil
}

type serverImpl struct {
	config *ServerConfig
	api    api.API
	logger *log.Logger
}

func (s *serverImpl) Start() error {
	rootCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s.logger.Printf("server starting, config: %v", s.config)

	server := s.buildServer()
	errCh := make(chan error)
	go s.serve(server, errCh)

	termSigChan := make(chan os.Signal, 1)
	signal.Notify(termSigChan, syscall.SIGTERM, syscall.SIGINT)

	<-termSigChan
	if err := server.Shutdown(rootCtx); err != nil {
		return errors.Wrap(err, "shutting down HTTP server failed")
	}

	if err := <-errCh; err != nil {
		return errors.Wrap(err, "HTTP server exited with error")
	}
	return nil
}

func (s *serverImpl) serve(server *http.Server, errCh chan<- error) {
	s.logger.Println("API server started")

	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		errCh <- err
		return
	}

	s.logger.Println("API server stopped")
	errCh <- nil
}
