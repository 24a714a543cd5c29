package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	z "github.com/Oudwins/zog"

	"github.com/alexsears/tentOS/pkg/automation"
)

// RuleRequest is the body of rule create and update. Omitted safety fields
// take the engine defaults.
type RuleRequest struct {
	Name    string `json:"name"`
	Enabled *bool  `json:"enabled"`
	TentID  string `json:"tent_id"`

	TriggerType        string   `json:"trigger_type"`
	TriggerSensor      string   `json:"trigger_sensor"`
	TriggerValue       *float64 `json:"trigger_value"`
	TriggerValueMax    *float64 `json:"trigger_value_max"`
	TriggerScheduleOn  string   `json:"trigger_schedule_on"`
	TriggerScheduleOff string   `json:"trigger_schedule_off"`

	ActionType     string `json:"action_type"`
	ActionActuator string `json:"action_actuator"`
	ActionValue    *int   `json:"action_value"`

	Hysteresis     *float64 `json:"hysteresis"`
	MinOnDuration  *int     `json:"min_on_duration"`
	MinOffDuration *int     `json:"min_off_duration"`
	Cooldown       *int     `json:"cooldown"`
}

var ruleRequestSchema = z.Struct(z.Shape{
	"Name":   z.String().Max(128).Optional(),
	"TentID": z.String().Min(1).Required(),
	"TriggerType": z.String().OneOf([]string{
		string(automation.TriggerSensorAbove),
		string(automation.TriggerSensorBelow),
		string(automation.TriggerSensorRange),
		string(automation.TriggerSchedule),
	}).Required(),
	"ActionType": z.String().OneOf([]string{
		string(automation.ActionTurnOn),
		string(automation.ActionTurnOff),
		string(automation.ActionSetSpeed),
	}).Required(),
	"ActionActuator": z.String().Min(1).Required(),
})

func (req *RuleRequest) toRule() automation.Rule {
	rule := automation.Rule{
		Name:               req.Name,
		Enabled:            true,
		TentID:             req.TentID,
		TriggerType:        automation.TriggerType(req.TriggerType),
		TriggerSensor:      req.TriggerSensor,
		TriggerValue:       req.TriggerValue,
		TriggerValueMax:    req.TriggerValueMax,
		TriggerScheduleOn:  req.TriggerScheduleOn,
		TriggerScheduleOff: req.TriggerScheduleOff,
		ActionType:         automation.ActionType(req.ActionType),
		ActionActuator:     req.ActionActuator,
		ActionValue:        req.ActionValue,
		Hysteresis:         automation.DefaultHysteresis,
		MinOnDuration:      automation.DefaultMinOnDuration,
		MinOffDuration:     automation.DefaultMinOffDuration,
		Cooldown:           automation.DefaultCooldown,
	}
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}
	if req.Hysteresis != nil {
		rule.Hysteresis = *req.Hysteresis
	}
	if req.MinOnDuration != nil {
		rule.MinOnDuration = *req.MinOnDuration
	}
	if req.MinOffDuration != nil {
		rule.MinOffDuration = *req.MinOffDuration
	}
	if req.Cooldown != nil {
		rule.Cooldown = *req.Cooldown
	}
	return rule
}

func bindRule(c *gin.Context) (automation.Rule, bool) {
	var req RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return automation.Rule{}, false
	}
	if errs := ruleRequestSchema.Validate(&req); errs != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errs})
		return automation.Rule{}, false
	}
	return req.toRule(), true
}

func ruleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, automation.ErrRuleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, automation.ErrInvalidRule):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

func (rs *RestfulServer) GetRules(c *gin.Context) {
	if tentID := c.Query("tent_id"); tentID != "" {
		c.JSON(http.StatusOK, rs.Automation.RulesForTent(tentID))
		return
	}
	c.JSON(http.StatusOK, rs.Automation.Rules())
}

func (rs *RestfulServer) GetRule(c *gin.Context) {
	rule, err := rs.Automation.Rule(c.Param("rule_id"))
	if err != nil {
		ruleError(c, err)
		return
	}
	c.JSON(http.StatusOK, rule)
}

func (rs *RestfulServer) PostRule(c *gin.Context) {
	rule, ok := bindRule(c)
	if !ok {
		return
	}
	if _, err := rs.Tents.GetTent(rule.TentID); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := rs.Automation.AddRule(c.Request.Context(), rule)
	if err != nil {
		ruleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (rs *RestfulServer) PutRule(c *gin.Context) {
	rule, ok := bindRule(c)
	if !ok {
		return
	}

	updated, err := rs.Automation.UpdateRule(c.Request.Context(), c.Param("rule_id"), rule)
	if err != nil {
		ruleError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (rs *RestfulServer) DeleteRule(c *gin.Context) {
	if err := rs.Automation.RemoveRule(c.Request.Context(), c.Param("rule_id")); err != nil {
		ruleError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (rs *RestfulServer) GetRuleStatus(c *gin.Context) {
	status, err := rs.Automation.RuleStatus(c.Param("rule_id"))
	if err != nil {
		ruleError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}
