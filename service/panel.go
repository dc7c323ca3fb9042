package service

import (
	"syscall"
	"time"

	"github.com/EdoardoFiore/madmin-strongswan/logger"
)

type PanelService struct {
}

// RestartPanel asks the process to re-initialize itself after a delay, so
// the HTTP response for the restart request can still be delivered. The
// SIGHUP is handled by the main run loop.
func (s *PanelService) RestartPanel(delay time.Duration) error {
	pid := syscall.Getpid()
	go func() {
		time.Sleep(delay)
		if err := syscall.Kill(pid, syscall.SIGHUP); err != nil {
			logger.Error("panel restart signal failed:", err)
		}
	}()
	return nil
}
