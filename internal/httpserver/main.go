package httpserver

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/jkroepke/fake-fortinet-server/internal/config"
)

const (
	ServerNameDefault = "default"
	ServerNameDebug   = "debug"
)

type Server struct {
	name   string
	conf   config.HTTP
	logger *slog.Logger
	server *http.Server

	tlsCertificate   *tls.Certificate
	tlsCertificateMu sync.RWMutex
}

func NewHTTPServer(name string, logger *slog.Logger, conf config.HTTP, fnHandler http.Handler) *Server {
	return &Server{
		name:   name,
		conf:   conf,
		logger: logger,
		server: &http.Server{
			Addr:              conf.Listen,
			ReadHeaderTimeout: 3 * time.Second,
			ReadTimeout:       3 * time.Second,
			WriteTimeout:      3 * time.Second,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
			Handler:           fnHandler,
		},
		tlsCertificateMu: sync.RWMutex{},
	}
}

// Listen starts the listener and blocks until the server fails or ctx is
// canceled. Cancellation triggers a graceful shutdown and returns nil.
func (s *Server) Listen(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownDone := make(chan struct{})

	go func() {
		defer close(shutdownDone)

		<-ctx.Done()

		if err := s.Shutdown(); err != nil {
			s.logger.Error(fmt.Sprintf("error shutting down %s http listener: %s", s.name, err))
		}
	}()

	var err error

	if s.conf.TLS {
		s.logger.Info(fmt.Sprintf("start %s HTTPS server listener on %s", s.name, s.conf.Listen))

		if err = s.Reload(); err != nil {
			return err
		}

		s.server.TLSConfig = &tls.Config{
			GetCertificate: s.GetCertificateFunc(),
		}

		err = s.server.ListenAndServeTLS("", "")
	} else {
		s.logger.Info(fmt.Sprintf("start %s HTTP server listener on %s", s.name, s.conf.Listen))

		err = s.server.ListenAndServe()
	}

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("ListenAndServe: %w", err)
	}

	<-shutdownDone

	return nil
}

func (s *Server) GetCertificateFunc() func(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return func(clientHello *tls.ClientHelloInfo) (*tls.Certificate, error) {
		s.tlsCertificateMu.RLock()
		defer s.tlsCertificateMu.RUnlock()

		return s.tlsCertificate, nil
	}
}

// Reload re-reads the TLS key pair from disk. Bound to SIGHUP by the daemon.
func (s *Server) Reload() error {
	if !s.conf.TLS {
		return nil
	}

	certs, err := tls.LoadX509KeyPair(s.conf.CertFile, s.conf.KeyFile)
	if err != nil {
		return fmt.Errorf("tls.LoadX509KeyPair: %w", err)
	}

	if s.tlsCertificate != nil {
		s.logger.Info("reloading TLS certificate")
	}

	s.tlsCertificateMu.Lock()

	s.tlsCertificate = &certs

	s.tlsCertificateMu.Unlock()

	return nil
}

func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx) //nolint:wrapcheck
}
