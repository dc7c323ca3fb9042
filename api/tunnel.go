package api

import (
	"strconv"

	"github.com/EdoardoFiore/madmin-strongswan/database/model"
	"github.com/EdoardoFiore/madmin-strongswan/service"
	"github.com/gin-gonic/gin"
)

// TunnelAPI handles API requests for IPsec tunnels.
type TunnelAPI struct {
	tunnelService *service.TunnelService
	statsService  *service.StatsService
}

// NewTunnelAPI creates a new instance of TunnelAPI.
func NewTunnelAPI() *TunnelAPI {
	return &TunnelAPI{
		tunnelService: service.NewTunnelService(),
		statsService:  &service.StatsService{},
	}
}

// RegisterRoutes registers the API routes for IPsec tunnels.
func (a *TunnelAPI) RegisterRoutes(router *gin.RouterGroup) {
	router.GET("/crypto-options", a.getCryptoOptions)
	router.GET("/sas", a.listSAs)

	tunnels := router.Group("/tunnels")
	tunnels.GET("", a.getTunnels)
	tunnels.POST("", a.createTunnel)
	tunnels.GET("/:id", a.getTunnel)
	tunnels.PUT("/:id", a.updateTunnel)
	tunnels.DELETE("/:id", a.deleteTunnel)
	tunnels.POST("/:id/start", a.startTunnel)
	tunnels.POST("/:id/stop", a.stopTunnel)
	tunnels.GET("/:id/status", a.getTunnelStatus)
	tunnels.GET("/:id/logs", a.getTunnelLogs)
	tunnels.GET("/:id/traffic", a.getTunnelTraffic)
	tunnels.GET("/:id/children", a.getChildSas)
	tunnels.POST("/:id/children", a.createChildSa)

	children := router.Group("/children")
	children.PUT("/:id", a.updateChildSa)
	children.DELETE("/:id", a.deleteChildSa)
	children.PUT("/:id/rules", a.saveFirewallRules)
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		jsonMsg(c, "Invalid ID", err)
		return 0, false
	}
	return uint(id), true
}

func (a *TunnelAPI) getCryptoOptions(c *gin.Context) {
	jsonObj(c, service.GetCryptoOptions(), nil)
}

func (a *TunnelAPI) listSAs(c *gin.Context) {
	sas, err := a.tunnelService.ListSAs()
	if err != nil {
		jsonMsg(c, "Failed to list SAs", err)
		return
	}
	jsonObj(c, sas, nil)
}

func (a *TunnelAPI) getTunnels(c *gin.Context) {
	tunnels, err := a.tunnelService.GetAllTunnels()
	if err != nil {
		jsonMsg(c, "Failed to get tunnels", err)
		return
	}
	// The PSK never leaves the server.
	for i := range tunnels {
		tunnels[i].Psk = ""
	}
	jsonObj(c, tunnels, nil)
}

func (a *TunnelAPI) getTunnel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	tunnel, err := a.tunnelService.GetTunnel(id)
	if err != nil {
		jsonMsg(c, "Failed to get tunnel", err)
		return
	}
	tunnel.Psk = ""
	jsonObj(c, tunnel, nil)
}

func (a *TunnelAPI) createTunnel(c *gin.Context) {
	var tunnel model.Tunnel
	if err := c.ShouldBindJSON(&tunnel); err != nil {
		jsonMsg(c, "Invalid tunnel config", err)
		return
	}

	// NOTE: This operation requires root privileges.
	if err := a.tunnelService.CreateTunnel(&tunnel); err != nil {
		jsonMsg(c, "Failed to create tunnel", err)
		return
	}
	jsonMsg(c, "Tunnel created successfully", nil)
}

func (a *TunnelAPI) updateTunnel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var tunnel model.Tunnel
	if err := c.ShouldBindJSON(&tunnel); err != nil {
		jsonMsg(c, "Invalid tunnel config", err)
		return
	}
	tunnel.ID = id

	if err := a.tunnelService.UpdateTunnel(&tunnel); err != nil {
		jsonMsg(c, "Failed to update tunnel", err)
		return
	}
	jsonMsg(c, "Tunnel updated successfully", nil)
}

func (a *TunnelAPI) deleteTunnel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := a.tunnelService.DeleteTunnel(id); err != nil {
		jsonMsg(c, "Failed to delete tunnel", err)
		return
	}
	jsonMsg(c, "Tunnel deleted successfully", nil)
}

func (a *TunnelAPI) startTunnel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	status, err := a.tunnelService.StartTunnel(id)
	if err != nil {
		jsonMsg(c, "Failed to start tunnel", err)
		return
	}
	jsonObj(c, gin.H{"status": status}, nil)
}

func (a *TunnelAPI) stopTunnel(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := a.tunnelService.StopTunnel(id); err != nil {
		jsonMsg(c, "Failed to stop tunnel", err)
		return
	}
	jsonObj(c, gin.H{"status": "terminated"}, nil)
}

func (a *TunnelAPI) getTunnelStatus(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	status, err := a.tunnelService.GetTunnelStatus(id)
	if err != nil {
		jsonMsg(c, "Failed to get tunnel status", err)
		return
	}
	jsonObj(c, status, nil)
}

func (a *TunnelAPI) getTunnelLogs(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	lines, err := strconv.Atoi(c.DefaultQuery("lines", "100"))
	if err != nil {
		lines = 100
	}
	logs, err := a.tunnelService.GetTunnelLogs(id, lines)
	if err != nil {
		jsonMsg(c, "Failed to get tunnel logs", err)
		return
	}
	jsonObj(c, logs, nil)
}

func (a *TunnelAPI) getTunnelTraffic(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	period := c.DefaultQuery("period", "24h")
	samples, err := a.statsService.GetTrafficHistory(id, period)
	if err != nil {
		jsonMsg(c, "Failed to get traffic history", err)
		return
	}
	jsonObj(c, samples, nil)
}

func (a *TunnelAPI) getChildSas(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	children, err := a.tunnelService.GetChildSas(id)
	if err != nil {
		jsonMsg(c, "Failed to get child SAs", err)
		return
	}
	jsonObj(c, children, nil)
}

func (a *TunnelAPI) createChildSa(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var child model.ChildSa
	if err := c.ShouldBindJSON(&child); err != nil {
		jsonMsg(c, "Invalid child SA config", err)
		return
	}
	child.TunnelID = id

	if err := a.tunnelService.CreateChildSa(&child); err != nil {
		jsonMsg(c, "Failed to create child SA", err)
		return
	}
	jsonMsg(c, "Child SA created successfully", nil)
}

func (a *TunnelAPI) updateChildSa(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var child model.ChildSa
	if err := c.ShouldBindJSON(&child); err != nil {
		jsonMsg(c, "Invalid child SA config", err)
		return
	}
	child.ID = id

	if err := a.tunnelService.UpdateChildSa(&child); err != nil {
		jsonMsg(c, "Failed to update child SA", err)
		return
	}
	jsonMsg(c, "Child SA updated successfully", nil)
}

func (a *TunnelAPI) deleteChildSa(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := a.tunnelService.DeleteChildSa(id); err != nil {
		jsonMsg(c, "Failed to delete child SA", err)
		return
	}
	jsonMsg(c, "Child SA deleted successfully", nil)
}

func (a *TunnelAPI) saveFirewallRules(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var rules []model.FirewallRule
	if err := c.ShouldBindJSON(&rules); err != nil {
		jsonMsg(c, "Invalid firewall rules", err)
		return
	}
	if err := a.tunnelService.SaveFirewallRules(id, rules); err != nil {
		jsonMsg(c, "Failed to save firewall rules", err)
		return
	}
	jsonMsg(c, "Firewall rules saved successfully", nil)
}
