package main

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/dougsko/synthd/pkg/engine"
	"github.com/dougsko/synthd/pkg/logging"
	"github.com/dougsko/synthd/pkg/protocol"
	"github.com/dougsko/synthd/pkg/storage"
)

// handleGetStatus returns the active backend's status response
func (d *SynthDaemon) handleGetStatus(c *gin.Context) {
	resp := d.coreEngine.StatusResponse()
	if resp.Mensaje == engine.ErrNotInitialized.Error() {
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handleGetInfo returns routing, the status record and the backend table
func (d *SynthDaemon) handleGetInfo(c *gin.Context) {
	info, err := d.coreEngine.Info()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"version": Version,
		"info":    info,
	})
}

// handleCommand executes one raw JSON command
func (d *SynthDaemon) handleCommand(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": err.Error(),
		})
		return
	}

	resp := d.coreEngine.ExecuteLine(engine.SourceHTTP, strings.TrimSpace(string(body)))
	c.JSON(http.StatusOK, resp)
}

// handleInput executes shorthand text against the active backend
func (d *SynthDaemon) handleInput(c *gin.Context) {
	var req struct {
		Texto string `json:"texto" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request: " + err.Error(),
		})
		return
	}

	resp := d.coreEngine.ExecuteInput(engine.SourceHTTP, req.Texto)
	c.JSON(http.StatusOK, resp)
}

// handleGetHistory returns journaled commands, newest first
func (d *SynthDaemon) handleGetHistory(c *gin.Context) {
	journal := d.coreEngine.Journal()
	if journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "command journal disabled",
		})
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	query := storage.Query{
		Limit:     limit,
		Offset:    offset,
		Accion:    c.Query("accion"),
		SubAccion: c.Query("sub_accion"),
		Status:    c.Query("status"),
	}

	if since := c.Query("since"); since != "" {
		t, err := time.Parse(time.RFC3339, since)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "since must be RFC3339",
			})
			return
		}
		query.Since = &t
	}

	entries, err := journal.Recent(query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"entries": entries,
		"count":   len(entries),
		"limit":   limit,
		"offset":  offset,
	})
}

// handleGetHistoryStats returns journal totals
func (d *SynthDaemon) handleGetHistoryStats(c *gin.Context) {
	journal := d.coreEngine.Journal()
	if journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "command journal disabled",
		})
		return
	}

	stats, err := journal.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// handleGetHistoryEntry returns one journaled command
func (d *SynthDaemon) handleGetHistoryEntry(c *gin.Context) {
	journal := d.coreEngine.Journal()
	if journal == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "command journal disabled",
		})
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "invalid id",
		})
		return
	}

	entry, err := journal.Get(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, entry)
}

// WebSocket upgrader
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// handleWebSocket pushes every engine response to the client and executes
// the JSON command lines it sends
func (d *SynthDaemon) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Warnf("websocket", "Upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	logging.Debug("websocket", "Client connected", map[string]interface{}{
		"remote": c.Request.RemoteAddr,
	})

	updates, unsubscribe := d.coreEngine.Subscribe()
	defer unsubscribe()

	// Replies that are not broadcast, such as parse errors
	direct := make(chan *protocol.Response, 4)
	done := make(chan struct{})

	go func() {
		defer close(done)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					logging.Debugf("websocket", "Read error: %v", err)
				}
				return
			}

			line := strings.TrimSpace(string(message))
			if line == "" {
				continue
			}
			cmd, err := protocol.ParseCommand(line)
			if err != nil {
				select {
				case direct <- d.coreEngine.ExecuteLine(engine.SourceWebSocket, line):
				default:
				}
				continue
			}
			// The reply reaches this client through its subscription
			d.coreEngine.Execute(engine.SourceWebSocket, cmd)
		}
	}()

	if err := conn.WriteJSON(d.coreEngine.StatusResponse()); err != nil {
		logging.Debugf("websocket", "Write error: %v", err)
		return
	}

	for {
		var resp *protocol.Response
		select {
		case r, ok := <-updates:
			if !ok {
				return
			}
			resp = r
		case resp = <-direct:
		case <-done:
			logging.Debug("websocket", "Client disconnected")
			return
		case <-d.ctx.Done():
			return
		}

		if err := conn.WriteJSON(resp); err != nil {
			logging.Debugf("websocket", "Write error: %v", err)
			return
		}
	}
}
