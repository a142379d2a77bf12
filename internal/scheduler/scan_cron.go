package cron

import (
	"context"

	"github.com/donenme/donenme-api/internal/jobs"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// StartScanJobs wires the periodic scans: expiry alerts every hour and
// meetup reminders every 30 minutes.
func StartScanJobs(expiry *jobs.ExpiryNotifier, meetup *jobs.MeetupNotifier) {
	c := cron.New()

	c.AddFunc("@hourly", func() {
		if err := expiry.RunHourlyScan(context.Background()); err != nil {
			logrus.WithError(err).Error("Expiry scan failed")
		}
	})

	c.AddFunc("*/30 * * * *", func() {
		if err := meetup.RunScan(context.Background()); err != nil {
			logrus.WithError(err).Error("Meetup scan failed")
		}
	})

	c.Start()
}
