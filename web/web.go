package web

import (
	"context"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/EdoardoFiore/madmin-strongswan/api"
	"github.com/EdoardoFiore/madmin-strongswan/config"
	"github.com/EdoardoFiore/madmin-strongswan/logger"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
)

// Server is the panel's HTTP frontend.
type Server struct {
	httpServer *http.Server
}

func NewServer() *Server {
	return &Server{}
}

func (s *Server) initRouter() *gin.Engine {
	if config.IsDebug() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.DefaultWriter = io.Discard
		gin.DefaultErrorWriter = io.Discard
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(gzip.Gzip(gzip.DefaultCompression))

	group := engine.Group("/api")
	api.NewTunnelAPI().RegisterRoutes(group)
	api.NewServerAPI().RegisterRoutes(group)

	return engine
}

func (s *Server) Start() error {
	engine := s.initRouter()

	addr := net.JoinHostPort(config.GetListen(), strconv.Itoa(config.GetPort()))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	logger.Info("Web server running on ", addr)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: engine,
	}
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			logger.Error("Web server error: ", err)
		}
	}()
	return nil
}

func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
