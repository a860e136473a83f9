package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/amarpathagar/pathagar-server/internal/config"
	"github.com/amarpathagar/pathagar-server/internal/logger"
	"github.com/amarpathagar/pathagar-server/internal/service"
)

// HandoverScanJob periodically opens handover threads for readings that are
// close to their due date.
type HandoverScanJob struct {
	handover *service.HandoverService
	cancel   context.CancelFunc
	done     chan struct{}
}

// Shutdown implements do.Shutdownable.
func (j *HandoverScanJob) Shutdown() error {
	j.cancel()
	<-j.done
	j.handover.Stop()
	return nil
}

// ProvideHandoverScanJob provides the periodic due-reading scan.
func ProvideHandoverScanJob(i do.Injector) (*HandoverScanJob, error) {
	cfg := do.MustInvoke[*config.Config](i)
	handover := do.MustInvoke[*service.HandoverService](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())
	job := &HandoverScanJob{handover: handover, cancel: cancel, done: make(chan struct{})}

	scan := func() {
		if _, err := handover.ScanDueReadings(ctx); err != nil && ctx.Err() == nil {
			log.Warn("Handover scan failed", "error", err)
		}
	}

	go func() {
		defer close(job.done)
		ticker := time.NewTicker(cfg.Handover.ScanInterval)
		defer ticker.Stop()

		scan()
		for {
			select {
			case <-ticker.C:
				scan()
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Handover scan job started", "interval", cfg.Handover.ScanInterval)

	return job, nil
}
