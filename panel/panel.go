package panel

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/zabeloliver/wethermo-remote/display"
)

var upgrader = websocket.Upgrader{} // use default options

// Server serves the control page of one controller.
type Server struct {
	ctx        context.Context
	controller *display.Controller
	hub        *Hub
	logger     *zap.SugaredLogger
	engine     *gin.Engine
}

// New builds the panel routes. Operations triggered through the panel are
// bound to ctx rather than to the HTTP request, so they outlive the 202
// answer. reg may be nil to leave /metrics out.
func New(ctx context.Context, controller *display.Controller, hub *Hub, reg *prometheus.Registry, logger *zap.SugaredLogger) *Server {
	s := &Server{
		ctx:        ctx,
		controller: controller,
		hub:        hub,
		logger:     logger,
	}

	r := gin.New()
	r.Use(gin.Recovery(), s.accessLog)
	r.SetHTMLTemplate(page)

	r.GET("/", s.index)
	r.POST("/wethermo/:operation", s.invoke)
	r.GET("/stream", s.stream)
	if reg != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
	}
	s.engine = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) accessLog(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.logger.Debugw("Panel request",
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"status", c.Writer.Status(),
		"duration", time.Since(start),
	)
}

func (s *Server) index(c *gin.Context) {
	region := s.controller.Region()
	c.HTML(http.StatusOK, "page", gin.H{
		"Region": region.Name(),
		"Lines":  region.Lines(),
	})
}

func (s *Server) invoke(c *gin.Context) {
	op := c.Param("operation")
	if _, err := s.controller.Invoke(s.ctx, op); err != nil {
		if errors.Is(err, display.ErrUnknownOperation) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"operation": op})
}

func (s *Server) stream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warnf("Websocket upgrade failure: %v", err)
		return
	}

	region := s.controller.Region()
	current := Update{Region: region.Name(), Lines: region.Lines()}
	if current.Lines == nil {
		current.Lines = []string{}
	}
	if err := s.hub.add(conn, current); err != nil {
		s.logger.Warnf("Failed to send region to new client: %v", err)
		conn.Close()
		return
	}

	// The page never sends anything, reading only notices the disconnect.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				s.logger.Debugf("Disconnecting panel client: %v", err)
				break
			}
		}
		s.hub.remove(conn)
	}()
}
