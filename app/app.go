package app

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/EdoardoFiore/madmin-strongswan/config"
	"github.com/EdoardoFiore/madmin-strongswan/cronjob"
	"github.com/EdoardoFiore/madmin-strongswan/database"
	"github.com/EdoardoFiore/madmin-strongswan/database/model"
	"github.com/EdoardoFiore/madmin-strongswan/logger"
	"github.com/EdoardoFiore/madmin-strongswan/service"
	"github.com/EdoardoFiore/madmin-strongswan/telegram"
	"github.com/EdoardoFiore/madmin-strongswan/web"

	"github.com/op/go-logging"
)

type APP struct {
	tunnelService  *service.TunnelService
	serverService  *service.ServerService
	webServer      *web.Server
	cronJob        *cronjob.CronJob
	telegramConfig *telegram.Config
	isBotStarted   bool
}

func NewApp() *APP {
	return &APP{}
}

func (a *APP) Init() error {
	log.Printf("%v %v", config.GetName(), config.GetVersion())

	a.initLog()

	err := database.InitDB(config.GetDBPath())
	if err != nil {
		return err
	}

	a.initTelegramConfig()

	a.cronJob = cronjob.NewCronJob()
	a.webServer = web.NewServer()
	a.tunnelService = service.NewTunnelService()
	a.serverService = &service.ServerService{}

	return nil
}

func (a *APP) Start() error {
	err := a.cronJob.Start(time.Local, config.GetTrafficAge())
	if err != nil {
		return err
	}

	err = a.webServer.Start()
	if err != nil {
		return err
	}

	if a.telegramConfig != nil && a.telegramConfig.Enabled {
		service.StatusNotifier = func(tunnelName, oldStatus, newStatus string) {
			telegram.Notify(fmt.Sprintf("Tunnel %s: %s -> %s", tunnelName, oldStatus, newStatus))
		}
		if !a.isBotStarted {
			go telegram.Start(context.Background(), a.telegramConfig, a)
			a.isBotStarted = true
		}
	}

	return nil
}

func (a *APP) Stop() {
	a.cronJob.Stop()
	err := a.webServer.Stop()
	if err != nil {
		logger.Warning("stop Web Server err:", err)
	}
}

func (a *APP) initLog() {
	switch config.GetLogLevel() {
	case config.Debug:
		logger.InitLogger(logging.DEBUG)
	case config.Info:
		logger.InitLogger(logging.INFO)
	case config.Warn:
		logger.InitLogger(logging.WARNING)
	case config.Error:
		logger.InitLogger(logging.ERROR)
	default:
		log.Fatal("unknown log level:", config.GetLogLevel())
	}
}

func (a *APP) initTelegramConfig() {
	file, err := os.ReadFile("telegram_config.json")
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("telegram_config.json not found, Telegram bot is disabled.")
			return
		}
		logger.Warning("Error reading telegram_config.json:", err)
		return
	}

	var cfg telegram.Config
	if err := json.Unmarshal(file, &cfg); err != nil {
		logger.Warning("Error unmarshalling telegram_config.json:", err)
		return
	}
	a.telegramConfig = &cfg
}

func (a *APP) RestartApp() {
	a.Stop()
	err := a.Init()
	if err != nil {
		logger.Error("Error re-initializing app:", err)
		os.Exit(1)
	}
	err = a.Start()
	if err != nil {
		logger.Error("Error re-starting app:", err)
		os.Exit(1)
	}
}

// Telegram bot bridge.

func (a *APP) GetAllTunnels() ([]model.Tunnel, error) {
	return a.tunnelService.GetAllTunnels()
}

func (a *APP) GetTunnelByName(name string) (*model.Tunnel, error) {
	return a.tunnelService.GetTunnelByName(name)
}

func (a *APP) StartTunnel(id uint) (string, error) {
	return a.tunnelService.StartTunnel(id)
}

func (a *APP) StopTunnel(id uint) error {
	return a.tunnelService.StopTunnel(id)
}

func (a *APP) GetTunnelStatus(id uint) (*model.TunnelStatus, error) {
	return a.tunnelService.GetTunnelStatus(id)
}

func (a *APP) GetTunnelLogs(id uint, lines int) (*service.TunnelLogs, error) {
	return a.tunnelService.GetTunnelLogs(id, lines)
}

func (a *APP) GetLogs(count int, level string) []string {
	return a.serverService.GetLogs(count, level)
}
