// handlers.go — JSON and SSE endpoints.
package dashboard

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/brennhill/renderlens/internal/buffers"
	"github.com/brennhill/renderlens/internal/bus"
	"github.com/brennhill/renderlens/internal/types"
)

// sseBuffer bounds events queued for one slow SSE client before dropping.
const sseBuffer = 256

// health reports liveness plus history ring occupancy and how many handlers
// (SSE clients, relay, collector) follow each topic.
func (s *Server) health(c *gin.Context) {
	subscribers := make(map[types.Topic]int, len(types.AllTopics))
	for _, topic := range types.AllTopics {
		subscribers[topic] = s.eng.Bus().SubscriberCount(topic)
	}
	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"session_id":   s.eng.SessionID(),
		"components":   s.eng.Tracker().ComponentCount(),
		"threshold_ms": s.eng.Monitor().Threshold(),
		"history":      s.eng.Tracker().Stats(),
		"subscribers":  subscribers,
	})
}

func (s *Server) export(c *gin.Context) {
	c.JSON(http.StatusOK, s.eng.Export())
}

// history returns recent renders. With ?cursor=N it returns renders recorded
// since that position and sets X-Renderlens-Cursor for the next poll.
func (s *Server) history(c *gin.Context) {
	if raw, ok := c.GetQuery("cursor"); ok {
		pos, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || pos < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "cursor must be a non-negative integer"})
			return
		}
		events, next := s.eng.Tracker().HistorySince(buffers.Cursor{Position: pos})
		if events == nil {
			events = []types.RenderEvent{}
		}
		c.Header("X-Renderlens-Cursor", strconv.FormatInt(next.Position, 10))
		c.JSON(http.StatusOK, gin.H{"events": events, "cursor": next.Position})
		return
	}

	limit, ok := queryLimit(c, 100)
	if !ok {
		return
	}
	events := s.eng.Tracker().RecentRenders(limit)
	if events == nil {
		events = []types.RenderEvent{}
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

func (s *Server) slow(c *gin.Context) {
	limit, ok := queryLimit(c, 10)
	if !ok {
		return
	}
	slow := s.eng.SlowComponents(limit)
	if slow == nil {
		slow = []types.PerformanceMetrics{}
	}
	c.JSON(http.StatusOK, gin.H{"components": slow, "threshold_ms": s.eng.Monitor().Threshold()})
}

func (s *Server) component(c *gin.Context) {
	id := c.Param("id")
	report := s.eng.Report(id)
	if report.Node == nil && report.RenderCount == 0 && report.Metrics == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown component", "component_id": id})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) suggestions(c *gin.Context) {
	id := c.Param("id")
	out := s.eng.Suggestions(id)
	if out == nil {
		out = []types.Suggestion{}
	}
	c.JSON(http.StatusOK, gin.H{"component_id": id, "suggestions": out})
}

func (s *Server) reset(c *gin.Context) {
	s.eng.Reset()
	s.logger.Info("engine reset over HTTP")
	c.Status(http.StatusNoContent)
}

// events streams bus events as SSE until the client disconnects.
func (s *Server) events(c *gin.Context) {
	ch := make(chan bus.Event, sseBuffer)
	cancel := s.eng.Bus().SubscribeAll(func(ev bus.Event) {
		select {
		case ch <- ev:
		default:
			s.logger.WithField("topic", string(ev.Topic)).Debug("sse client lagging; event dropped")
		}
	})
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev := <-ch:
			c.SSEvent(string(ev.Topic), ev.Payload)
			return true
		}
	})
}

// queryLimit parses ?limit, writing a 400 and returning false when invalid.
func queryLimit(c *gin.Context, def int) (int, bool) {
	raw := c.Query("limit")
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
		return 0, false
	}
	return n, true
}
