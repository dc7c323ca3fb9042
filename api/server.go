package api

import (
	"strconv"
	"time"

	"github.com/EdoardoFiore/madmin-strongswan/service"
	"github.com/gin-gonic/gin"
)

// ServerAPI exposes the panel's host status and log buffer.
type ServerAPI struct {
	serverService *service.ServerService
	panelService  *service.PanelService
}

func NewServerAPI() *ServerAPI {
	return &ServerAPI{
		serverService: &service.ServerService{},
		panelService:  &service.PanelService{},
	}
}

func (a *ServerAPI) RegisterRoutes(router *gin.RouterGroup) {
	group := router.Group("/server")
	group.GET("/status", a.getStatus)
	group.GET("/logs", a.getLogs)
	group.POST("/restart", a.restartPanel)
}

func (a *ServerAPI) getStatus(c *gin.Context) {
	jsonObj(c, a.serverService.GetStatus(), nil)
}

func (a *ServerAPI) getLogs(c *gin.Context) {
	count, err := strconv.Atoi(c.DefaultQuery("c", "50"))
	if err != nil {
		count = 50
	}
	level := c.DefaultQuery("l", "info")
	jsonObj(c, a.serverService.GetLogs(count, level), nil)
}

func (a *ServerAPI) restartPanel(c *gin.Context) {
	err := a.panelService.RestartPanel(3 * time.Second)
	jsonMsg(c, "restart", err)
}
