package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"

	"github.com/alexsears/tentOS/pkg/common"
	"github.com/alexsears/tentOS/pkg/models"
	"github.com/alexsears/tentOS/pkg/state"
	"github.com/alexsears/tentOS/pkg/store"
)

const (
	defaultHistoryHours = 24
	defaultEventLimit   = 50
)

func (rs *RestfulServer) HealthCheck(c *gin.Context) {
	connected := rs.Client != nil && rs.Client.Connected()
	c.JSON(http.StatusOK, gin.H{"status": "ok", "ha_connected": connected})
}

func (rs *RestfulServer) GetTents(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tents": rs.Tents.GetAllTents()})
}

func (rs *RestfulServer) GetTent(c *gin.Context) {
	snapshot, err := rs.Tents.GetTent(c.Param("tent_id"))
	if errors.Is(err, state.ErrTentNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

type HistoryQuery struct {
	Sensor string `json:"sensor" zog:"sensor"`
	Hours  int    `json:"hours" zog:"hours"`
}

var historyQuerySchema = z.Struct(z.Shape{
	"Sensor": z.String().Optional(),
	"Hours":  z.Int().Optional().GTE(1).LTE(24 * 30),
})

func (rs *RestfulServer) GetHistory(c *gin.Context) {
	tentID := c.Param("tent_id")

	var query HistoryQuery
	if err := historyQuerySchema.Parse(zhttp.Request(c.Request), &query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}
	if query.Hours == 0 {
		query.Hours = defaultHistoryHours
	}

	since := time.Now().UTC().Add(-time.Duration(query.Hours) * time.Hour)
	rows, err := rs.Store.History.GetHistory(tentID, query.Sensor, since)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tent_id": tentID, "hours": query.Hours, "history": rows})
}

func (rs *RestfulServer) GetEvents(c *gin.Context) {
	limit := defaultEventLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		limit = n
	}

	events, err := rs.Store.Event.GetTentEvents(c.Param("tent_id"), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, events)
}

type EventRequest struct {
	Notes string `json:"notes" zog:"notes"`
	User  string `json:"user" zog:"user"`
}

var eventRequestSchema = z.Struct(z.Shape{
	"Notes": z.String().Min(1).Required(),
	"User":  z.String().Optional(),
})

// PostEvent adds a grower's note to the tent's event log.
func (rs *RestfulServer) PostEvent(c *gin.Context) {
	tentID := c.Param("tent_id")
	if _, err := rs.Tents.GetTent(tentID); err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	var req EventRequest
	if err := eventRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	event := &models.Event{
		TentID:    tentID,
		EventType: models.EventTypeNote,
		Notes:     req.Notes,
		User:      req.User,
	}
	if err := rs.Store.Event.RecordEvent(event); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, event)
}

func (rs *RestfulServer) ReloadConfig(c *gin.Context) {
	if err := rs.Tents.ReloadConfig(c.Request.Context()); err != nil {
		common.GetLoggerWith(common.LoggerNameRestfulServer).
			Warn("Config reload rejected", zap.Error(err))
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "reloaded", "tents": len(rs.Tents.GetAllTents())})
}

func (rs *RestfulServer) GetAlerts(c *gin.Context) {
	alerts, err := rs.Store.Alert.GetActiveAlerts(c.Query("tent_id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func alertID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("alert_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid alert id"})
		return 0, false
	}
	return uint(id), true
}

type AcknowledgeRequest struct {
	By string `json:"by" zog:"by"`
}

var acknowledgeRequestSchema = z.Struct(z.Shape{
	"By": z.String().Optional(),
})

func (rs *RestfulServer) AcknowledgeAlert(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}

	var req AcknowledgeRequest
	if c.Request.ContentLength > 0 {
		if err := acknowledgeRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err})
			return
		}
	}
	if req.By == "" {
		req.By = "user"
	}

	rs.alertResult(c, rs.Store.Alert.AcknowledgeAlert(id, req.By))
}

func (rs *RestfulServer) ResolveAlert(c *gin.Context) {
	id, ok := alertID(c)
	if !ok {
		return
	}
	rs.alertResult(c, rs.Store.Alert.ResolveAlert(id))
}

func (rs *RestfulServer) alertResult(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrAlertNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	default:
		c.Status(http.StatusOK)
	}
}
