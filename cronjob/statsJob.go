package cronjob

import (
	"github.com/EdoardoFiore/madmin-strongswan/logger"
	"github.com/EdoardoFiore/madmin-strongswan/service"
)

type StatsJob struct {
	service.StatsService
}

func NewStatsJob() *StatsJob {
	return new(StatsJob)
}

func (s *StatsJob) Run() {
	err := s.StatsService.SaveStats()
	if err != nil {
		logger.Warning("Get stats failed: ", err)
		return
	}
}
