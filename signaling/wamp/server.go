package wamp

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"

	"github.com/gammazero/nexus/v3/router"
	"github.com/gammazero/nexus/v3/wamp"
	"github.com/sirupsen/logrus"
)

// Server is a WAMP router through which connected clients publish and
// subscribe to room signaling topics, adapted from babble's
// src/net/signal/wamp/server.go RPC relay into a pub/sub broker.
type Server struct {
	address    string
	router     router.Router
	httpServer *http.Server
	logger     *logrus.Entry
}

// NewServer instantiates a Server secured with the TLS keypair at certFile/
// keyFile, matching babble's production configuration.
func NewServer(address, realm, certFile, keyFile string, logger *logrus.Entry) (*Server, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("error loading X509 key pair: %w", err)
	}

	s, err := newServer(address, realm, logger)
	if err != nil {
		return nil, err
	}

	s.httpServer.TLSConfig = &tls.Config{Certificates: []tls.Certificate{cert}}
	return s, nil
}

// NewInsecureServer instantiates a Server with no TLS, for use in tests
// only (babble's equivalent always requires a certificate; dropping
// that requirement here is confined to this constructor).
func NewInsecureServer(address, realm string, logger *logrus.Entry) (*Server, error) {
	return newServer(address, realm, logger)
}

func newServer(address, realm string, logger *logrus.Entry) (*Server, error) {
	routerConfig := &router.Config{
		RealmConfigs: []*router.RealmConfig{
			{URI: wamp.URI(realm), AnonymousAuth: true},
		},
	}

	nxr, err := router.NewRouter(routerConfig, logger)
	if err != nil {
		return nil, err
	}

	wss := router.NewWebsocketServer(nxr)

	return &Server{
		address:    address,
		router:     nxr,
		httpServer: &http.Server{Handler: wss, Addr: address},
		logger:     logger,
	}, nil
}

// Run starts the websocket server. It blocks until Shutdown is called.
func (s *Server) Run() error {
	var err error
	if s.httpServer.TLSConfig != nil {
		err = s.httpServer.ListenAndServeTLS("", "")
	} else {
		err = s.httpServer.ListenAndServe()
	}
	if err != nil && err != http.ErrServerClosed {
		s.logger.WithError(err).Error("Run")
	}
	return err
}

// Shutdown stops the websocket server and the WAMP router.
func (s *Server) Shutdown() {
	defer s.router.Close()

	if err := s.httpServer.Shutdown(context.Background()); err != nil {
		s.logger.WithError(err).Error("Shutting down http server")
	}
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.address
}
