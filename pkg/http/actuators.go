package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"

	"github.com/alexsears/tentOS/pkg/common"
	"github.com/alexsears/tentOS/pkg/hass"
	"github.com/alexsears/tentOS/pkg/state"
)

const (
	ActionToggleLight = "toggle_light"
	ActionSetFan      = "set_fan"
	ActionTurnOn      = "turn_on"
	ActionTurnOff     = "turn_off"

	defaultFanSlot = "exhaust_fan"
)

// ActionRequest is a manual command for one tent. EntityType names the
// actuator slot; Value is a fan percentage for set_fan.
type ActionRequest struct {
	Action     string `json:"action" zog:"action"`
	EntityType string `json:"entity_type" zog:"entity_type"`
	Value      *int   `json:"value" zog:"value"`
}

var actionRequestSchema = z.Struct(z.Shape{
	"Action":     z.String().OneOf([]string{ActionToggleLight, ActionSetFan, ActionTurnOn, ActionTurnOff}).Required(),
	"EntityType": z.String().Optional(),
	"Value":      z.Ptr(z.Int().GTE(0).LTE(100)),
})

// PostAction runs a manual actuator command against Home Assistant. The
// tent's state follows once the entity reports back.
func (rs *RestfulServer) PostAction(c *gin.Context) {
	tentID := c.Param("tent_id")

	var req ActionRequest
	if err := actionRequestSchema.Parse(zhttp.Request(c.Request), &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err})
		return
	}

	ctx := c.Request.Context()
	var err error
	switch req.Action {
	case ActionToggleLight:
		_, err = rs.Tents.ToggleActuator(ctx, tentID, "light")
	case ActionSetFan:
		slot := req.EntityType
		if slot == "" {
			slot = defaultFanSlot
		}
		if req.Value == nil {
			_, err = rs.Tents.ToggleActuator(ctx, tentID, slot)
		} else {
			err = rs.Tents.SetActuatorSpeed(ctx, tentID, slot, *req.Value)
		}
	case ActionTurnOn, ActionTurnOff:
		if req.EntityType == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "entity_type required"})
			return
		}
		err = rs.Tents.SetActuator(ctx, tentID, req.EntityType, req.Action == ActionTurnOn)
	}

	if !rs.actuatorResult(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "action": req.Action})
}

func (rs *RestfulServer) ToggleActuator(c *gin.Context) {
	slot := c.Param("slot")

	on, err := rs.Tents.ToggleActuator(c.Request.Context(), c.Param("tent_id"), slot)
	if !rs.actuatorResult(c, err) {
		return
	}

	newState := "off"
	if on {
		newState = "on"
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "slot": slot, "new_state": newState})
}

// actuatorResult writes the error response for a failed command and
// reports whether the command went through.
func (rs *RestfulServer) actuatorResult(c *gin.Context, err error) bool {
	switch {
	case err == nil:
		return true
	case errors.Is(err, state.ErrTentNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, state.ErrActuatorNotConfigured), errors.Is(err, state.ErrInvalidPercentage):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, hass.ErrNotConnected):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		common.GetLoggerWith(common.LoggerNameRestfulServer).
			Error("Actuator command failed", zap.String("tent_id", c.Param("tent_id")), zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
	return false
}
