package rest

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/shinokgavrin/Koch/internal/core"
	"github.com/shinokgavrin/Koch/internal/model"
)

// MessageService is the view of the platform adapter the HTTP surface needs.
type MessageService interface {
	Connected() bool
	ChannelReady() bool
	ForwardingActive() bool
	TargetChannelID() int64
	MessagesSince(ctx context.Context, cutoff time.Time) ([]model.Message, error)
}

type Adapter struct {
	Service MessageService
	Logger  *zap.Logger
	Port    string
	APIKey  string
}

func NewAdapter(port, apiKey string, svc MessageService, logger *zap.Logger) *Adapter {
	return &Adapter{
		Service: svc,
		Logger:  logger,
		Port:    port,
		APIKey:  apiKey,
	}
}

func (a *Adapter) Start(ctx context.Context) error {
	r := a.Router()
	a.Logger.Info("Starting REST API server", zap.String("port", a.Port))
	return r.Run(":" + a.Port)
}

func (a *Adapter) Router() *gin.Engine {
	r := gin.Default()

	r.GET("/", a.handleRoot)
	r.GET("/health", a.handleHealth)

	api := r.Group("/api", a.requireAPIKey())
	api.GET("/messages/:hours", a.handleRecentMessages)
	api.GET("/messages/:hours/combined", a.handleCombinedMessages)

	return r
}

// requireAPIKey gates the /api endpoints behind the x-api-key header. With no
// key configured the gate always passes. Only the outcome is logged; the
// received and expected values stay out of the log.
func (a *Adapter) requireAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if a.APIKey == "" {
			c.Next()
			return
		}
		match := c.GetHeader("x-api-key") == a.APIKey
		a.Logger.Info("API key check",
			zap.String("path", c.FullPath()),
			zap.Bool("match", match))
		if !match {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"detail": "Invalid API key"})
			return
		}
		c.Next()
	}
}

func (a *Adapter) handleRoot(c *gin.Context) {
	var targetChannel interface{}
	if a.Service.ChannelReady() {
		targetChannel = a.Service.TargetChannelID()
	}
	c.JSON(http.StatusOK, gin.H{
		"service":            "Koch Telegram Forwarder + API",
		"status":             "running",
		"telegram_connected": a.Service.Connected(),
		"target_channel":     targetChannel,
		"api_key_required":   a.APIKey != "",
		"forwarding_active":  a.Service.ForwardingActive(),
		"endpoints": gin.H{
			"health":   "/health",
			"messages": "/api/messages/{hours}",
			"combined": "/api/messages/{hours}/combined",
		},
	})
}

func (a *Adapter) handleHealth(c *gin.Context) {
	apiAuth := "disabled"
	if a.APIKey != "" {
		apiAuth = "enabled"
	}
	c.JSON(http.StatusOK, gin.H{
		"status":                    "healthy",
		"timestamp":                 time.Now().UTC().Format(time.RFC3339),
		"telegram_connected":        a.Service.Connected(),
		"target_channel_configured": a.Service.ChannelReady(),
		"forwarding_configured":     a.Service.ForwardingActive(),
		"api_auth":                  apiAuth,
	})
}

func (a *Adapter) handleRecentMessages(c *gin.Context) {
	hours, err := strconv.Atoi(c.Param("hours"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "hours must be an integer"})
		return
	}

	resp, status, detail := a.recentMessages(c.Request.Context(), hours)
	if resp == nil {
		c.JSON(status, gin.H{"detail": detail})
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (a *Adapter) handleCombinedMessages(c *gin.Context) {
	hours, err := strconv.Atoi(c.Param("hours"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"detail": "hours must be an integer"})
		return
	}

	resp, status, detail := a.recentMessages(c.Request.Context(), hours)
	if resp == nil {
		c.JSON(status, gin.H{"detail": detail})
		return
	}

	combined := core.CombineMessages(resp.Messages)
	a.Logger.Info("Created combined text", zap.Int("message_count", resp.MessageCount))

	c.JSON(http.StatusOK, model.CombinedMessagesResponse{
		Success:        true,
		CombinedText:   combined,
		MessageCount:   resp.MessageCount,
		Messages:       resp.Messages,
		ProcessingDate: time.Now().Format("2006-01-02"),
	})
}

// recentMessages holds the shared fetch path of both message endpoints. A nil
// response means an error; status and detail describe it.
func (a *Adapter) recentMessages(ctx context.Context, hours int) (*model.RecentMessagesResponse, int, string) {
	if !a.Service.Connected() {
		return nil, http.StatusServiceUnavailable, "Telegram client not connected"
	}
	if !a.Service.ChannelReady() {
		return nil, http.StatusServiceUnavailable, "Target channel not configured"
	}

	cutoff := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	msgs, err := a.Service.MessagesSince(ctx, cutoff)
	if err != nil {
		a.Logger.Error("Fetching messages failed", zap.Int("hours", hours), zap.Error(err))
		return nil, http.StatusInternalServerError, "Error fetching messages: " + err.Error()
	}

	a.Logger.Info("Retrieved messages", zap.Int("count", len(msgs)), zap.Int("hours", hours))
	return &model.RecentMessagesResponse{
		Success:        true,
		Messages:       msgs,
		MessageCount:   len(msgs),
		HoursRequested: hours,
		TimeThreshold:  cutoff.Format(time.RFC3339),
		ChannelID:      strconv.FormatInt(a.Service.TargetChannelID(), 10),
	}, http.StatusOK, ""
}
