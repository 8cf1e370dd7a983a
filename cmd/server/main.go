package main

import (
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"garudarush/internal/config"
	"garudarush/internal/metrics"
	"garudarush/internal/models"
	"garudarush/internal/session"
	"garudarush/internal/storage"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsHub tracks connected clients per session.
type wsHub struct {
	mu      sync.Mutex
	clients map[string]map[*websocket.Conn]bool
}

func newWSHub() *wsHub {
	return &wsHub{clients: make(map[string]map[*websocket.Conn]bool)}
}

func (h *wsHub) add(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[sessionID] == nil {
		h.clients[sessionID] = make(map[*websocket.Conn]bool)
	}
	h.clients[sessionID][conn] = true
}

func (h *wsHub) remove(sessionID string, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients[sessionID], conn)
}

// broadcast sends a message to every client watching a session.
func (h *wsHub) broadcast(sessionID string, message interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients[sessionID] {
		err := client.WriteJSON(message)
		if err != nil {
			log.Printf("WebSocket write error: %v", err)
			client.Close()
			delete(h.clients[sessionID], client)
		}
	}
}

type Server struct {
	cfg       *config.Config
	redis     *storage.RedisClient
	sessions  *session.Registry
	collector *metrics.Collector
	hub       *wsHub
	router    *gin.Engine
}

func NewServer(cfg *config.Config) (*Server, error) {
	// Initialize Redis
	redisClient, err := storage.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RecordRetention)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	server := &Server{
		cfg:   cfg,
		redis: redisClient,
		hub:   newWSHub(),
	}

	defaults := models.SessionSettings{
		DetectionThreshold: cfg.DefaultThreshold,
		UpdateIntervalSec:  cfg.DefaultInterval,
	}
	server.sessions = session.NewRegistry(defaults, server.onTick)

	server.collector = metrics.NewCollector(server.sessions.Count)
	server.collector.Register(prometheus.DefaultRegisterer)
	server.collector.StartSystemSampler(15 * time.Second)

	// Create Gin router
	server.router = gin.Default()
	server.setupRoutes()

	return server, nil
}

func (s *Server) setupRoutes() {
	// Enable CORS
	s.router.Use(corsMiddleware())

	// API routes
	api := s.router.Group("/api")
	{
		// Session lifecycle
		api.POST("/sessions", s.createSession)
		api.GET("/sessions", s.listSessions)
		api.DELETE("/sessions/:id", s.deleteSession)

		// Monitoring controls
		api.POST("/sessions/:id/start", s.startSession)
		api.POST("/sessions/:id/stop", s.stopSession)
		api.POST("/sessions/:id/reset", s.resetSession)
		api.POST("/sessions/:id/tick", s.tickSession)
		api.PUT("/sessions/:id/settings", s.updateSettings)
		api.POST("/sessions/:id/alerts/:alertID/resolve", s.resolveAlert)

		// Dashboard reads
		api.GET("/sessions/:id/state", s.getState)
		api.GET("/sessions/:id/stats", s.getStats)
		api.GET("/sessions/:id/records", s.getRecordCounts)
		api.GET("/sessions/:id/export", s.exportSession)

		// Host performance panel
		api.GET("/system", s.getSystem)
	}

	// WebSocket endpoint
	s.router.GET("/ws", s.handleWebSocket)

	// Prometheus metrics
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Serve static HTML dashboard
	s.router.StaticFile("/", s.cfg.DashboardFile)
}

// onTick fans out the outcome of an effective tick: best-effort record
// storage, alert publishing, websocket frames and counters. Storage
// failures are logged, never surfaced to the monitor.
func (s *Server) onTick(sess *session.Session, sample *models.TrafficSample, alert *models.Alert) {
	s.collector.ObserveTick()

	if err := s.redis.StoreTraffic(sess.ID, *sample); err != nil {
		log.Printf("Error storing traffic record: %v", err)
	}
	s.hub.broadcast(sess.ID, gin.H{"type": "sample", "payload": sample})

	if alert != nil {
		log.Printf("⚠️  Attack detected: %s (Confidence: %.1f%%)", alert.AttackType, alert.Confidence)
		s.collector.ObserveAlert(string(alert.AttackType), string(alert.Severity))

		if err := s.redis.StoreAlert(sess.ID, *alert); err != nil {
			log.Printf("Error storing alert record: %v", err)
		}
		if err := s.redis.PublishAlert(*alert); err != nil {
			log.Printf("Error publishing alert: %v", err)
		}
		s.hub.broadcast(sess.ID, gin.H{"type": "alert", "payload": alert})
	}
}

// createSession registers a new monitoring session
func (s *Server) createSession(c *gin.Context) {
	var patch models.SessionSettingsPatch
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&patch); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	sess, err := s.sessions.Create(patch)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, sess.Info())
}

// listSessions returns summaries of all registered sessions
func (s *Server) listSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": s.sessions.List()})
}

func (s *Server) deleteSession(c *gin.Context) {
	id := c.Param("id")
	if !s.sessions.Delete(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	if err := s.redis.DeleteSession(id); err != nil {
		log.Printf("Error deleting session records: %v", err)
	}

	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func (s *Server) session(c *gin.Context) (*session.Session, bool) {
	sess, ok := s.sessions.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
	}
	return sess, ok
}

// startSession begins scheduled monitoring for a session
func (s *Server) startSession(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	sess.Start()
	c.JSON(http.StatusOK, gin.H{"status": "monitoring started"})
}

// stopSession pauses scheduled monitoring for a session
func (s *Server) stopSession(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	sess.Stop()
	c.JSON(http.StatusOK, gin.H{"status": "monitoring paused"})
}

// resetSession clears counters, the traffic series and the alert log
func (s *Server) resetSession(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	sess.Monitor.Reset()
	s.hub.broadcast(sess.ID, gin.H{"type": "state", "payload": sess.Monitor.Snapshot()})
	c.JSON(http.StatusOK, gin.H{"status": "statistics reset"})
}

// tickSession advances a session once, outside the schedule
func (s *Server) tickSession(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	sample, alert := sess.Tick()
	c.JSON(http.StatusOK, gin.H{
		"advanced": sample != nil,
		"sample":   sample,
		"alert":    alert,
	})
}

// updateSettings changes a session's threshold and update interval
func (s *Server) updateSettings(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	var patch models.SessionSettingsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := sess.ApplyPatch(patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, sess.Settings())
}

// resolveAlert removes an alert from the session's alert log
func (s *Server) resolveAlert(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	if !sess.Monitor.Resolve(c.Param("alertID")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "alert not found"})
		return
	}

	s.hub.broadcast(sess.ID, gin.H{"type": "state", "payload": sess.Monitor.Snapshot()})
	c.JSON(http.StatusOK, gin.H{"status": "resolved"})
}

// getState returns the full monitoring snapshot of a session
func (s *Server) getState(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, sess.Monitor.Snapshot())
}

// getStats returns derived statistics and model-performance figures
func (s *Server) getStats(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, sess.Monitor.Stats())
}

// getRecordCounts returns the storage-panel totals
func (s *Server) getRecordCounts(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	counts, err := s.redis.RecordCounts(sess.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, counts)
}

// exportSession returns every stored record of a session as JSON
func (s *Server) exportSession(c *gin.Context) {
	sess, ok := s.session(c)
	if !ok {
		return
	}

	export, err := s.redis.Export(sess.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Disposition",
		fmt.Sprintf("attachment; filename=garudarush_%s.json", time.Now().Format("20060102_150405")))
	c.JSON(http.StatusOK, export)
}

// getSystem returns host CPU and memory usage
func (s *Server) getSystem(c *gin.Context) {
	snap, err := s.collector.SampleSystem()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, snap)
}

// handleWebSocket streams tick results for one session in real time
func (s *Server) handleWebSocket(c *gin.Context) {
	sessionID := c.Query("session")
	sess, ok := s.sessions.Get(sessionID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	// The conn supports only one writer at a time. Send the initial
	// snapshot before registering with the hub; once registered, every
	// write goes through the hub under its mutex.
	if err := conn.WriteJSON(gin.H{"type": "state", "payload": sess.Monitor.Snapshot()}); err != nil {
		log.Printf("WebSocket write error: %v", err)
		return
	}

	s.hub.add(sessionID, conn)
	defer s.hub.remove(sessionID, conn)

	log.Printf("New WebSocket client connected to session %s", sessionID)

	for {
		_, _, err := conn.ReadMessage()
		if err != nil {
			break
		}
	}
}

// corsMiddleware handles CORS
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}

func main() {
	log.Println("🚀 Starting GarudaRush Monitoring Server...")

	cfg := config.Load()

	server, err := NewServer(cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	// Start server
	log.Printf("Server listening on %s", cfg.ListenAddr)
	if err := server.router.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
