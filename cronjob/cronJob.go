package cronjob

import (
	"time"

	"github.com/robfig/cron/v3"
)

// CronJob owns the background schedule: traffic collection every minute and
// sample pruning once a day.
type CronJob struct {
	cron *cron.Cron
}

func NewCronJob() *CronJob {
	return &CronJob{}
}

// Start registers and starts the jobs. Calling Start while the scheduler is
// already running is a no-op.
func (c *CronJob) Start(loc *time.Location, trafficAge int) error {
	if c.cron != nil {
		return nil
	}
	c.cron = cron.New(cron.WithLocation(loc))

	_, err := c.cron.AddJob("@every 1m", NewStatsJob())
	if err != nil {
		return err
	}
	_, err = c.cron.AddJob("@daily", NewDelStatsJob(trafficAge))
	if err != nil {
		return err
	}

	c.cron.Start()
	return nil
}

// Stop cancels the schedule and waits for an in-flight job to return.
func (c *CronJob) Stop() {
	if c.cron == nil {
		return
	}
	ctx := c.cron.Stop()
	<-ctx.Done()
	c.cron = nil
}
