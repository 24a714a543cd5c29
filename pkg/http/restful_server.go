package http

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/alexsears/tentOS/pkg/automation"
	"github.com/alexsears/tentOS/pkg/hass"
	"github.com/alexsears/tentOS/pkg/metrics"
	"github.com/alexsears/tentOS/pkg/state"
	"github.com/alexsears/tentOS/pkg/store"
	"github.com/alexsears/tentOS/pkg/tent"
)

// TentService is what the routes need from the state manager.
type TentService interface {
	GetTent(tentID string) (tent.Snapshot, error)
	GetAllTents() []tent.Snapshot
	ReloadConfig(ctx context.Context) error
	ToggleActuator(ctx context.Context, tentID, slot string) (bool, error)
	SetActuator(ctx context.Context, tentID, slot string, on bool) error
	SetActuatorSpeed(ctx context.Context, tentID, slot string, percentage int) error
	AddSubscriber(sub state.Subscriber)
	RemoveSubscriber(id string)
}

type RuleService interface {
	Rules() []automation.Rule
	RulesForTent(tentID string) []automation.Rule
	Rule(ruleID string) (automation.Rule, error)
	AddRule(ctx context.Context, rule automation.Rule) (automation.Rule, error)
	UpdateRule(ctx context.Context, ruleID string, rule automation.Rule) (automation.Rule, error)
	RemoveRule(ctx context.Context, ruleID string) error
	RuleStatus(ruleID string) (automation.RuleStatus, error)
}

type RestfulServer struct {
	Server           *gin.Engine
	Tents            TentService
	Automation       RuleService
	Store            *store.Store
	Client           hass.Client
	Metrics          *metrics.Metrics
	RateLimiterStore *RateLimiterStore
}

func (rs *RestfulServer) Setup() {
	rs.Server.GET("/healthz", rs.HealthCheck)
	rs.Server.GET("/metrics", gin.WrapH(rs.Metrics.Handler()))
	rs.Server.GET("/api/ws", rs.ServeWebSocket)

	api := rs.Server.Group("/api", rs.RateLimit())
	{
		api.GET("/tents", rs.GetTents)
		api.GET("/tents/:tent_id", rs.GetTent)
		api.GET("/tents/:tent_id/history", rs.GetHistory)
		api.GET("/tents/:tent_id/events", rs.GetEvents)
		api.POST("/tents/:tent_id/events", rs.PostEvent)
		api.POST("/tents/:tent_id/actions", rs.PostAction)
		api.POST("/tents/:tent_id/actuators/:slot/toggle", rs.ToggleActuator)
		api.POST("/config/reload", rs.ReloadConfig)

		api.GET("/alerts", rs.GetAlerts)
		api.POST("/alerts/:alert_id/acknowledge", rs.AcknowledgeAlert)
		api.POST("/alerts/:alert_id/resolve", rs.ResolveAlert)

		api.GET("/automations", rs.GetRules)
		api.POST("/automations", rs.PostRule)
		api.GET("/automations/:rule_id", rs.GetRule)
		api.PUT("/automations/:rule_id", rs.PutRule)
		api.DELETE("/automations/:rule_id", rs.DeleteRule)
		api.GET("/automations/:rule_id/status", rs.GetRuleStatus)
	}
}
