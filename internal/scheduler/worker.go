package scheduler

import (
	"context"
	"fmt"

	"elecrm_backend/internal/recordings"
	"elecrm_backend/internal/spitfire"
	"elecrm_backend/platform/config"
	"elecrm_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Worker consumes background tasks: lead exports and recording archival.
type Worker struct {
	server   *asynq.Server
	mux      *asynq.ServeMux
	export   *spitfire.Service
	archiver *recordings.Archiver
	log      *logger.Logger
}

// NewWorker creates the asynq worker and registers task handlers.
func NewWorker(cfg config.SchedulerConfig, export *spitfire.Service, archiver *recordings.Archiver, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:   server,
		mux:      mux,
		export:   export,
		archiver: archiver,
		log:      log,
	}

	mux.HandleFunc(TaskSpitfireLeadExport, w.handleLeadExport)
	mux.HandleFunc(TaskRecordingArchive, w.handleRecordingArchive)

	return w, nil
}

// handleLeadExport runs one export attempt. Failures are logged by the
// export service and not retried here; the ledger pre-check makes any
// redelivered notification safe.
func (w *Worker) handleLeadExport(ctx context.Context, task *asynq.Task) error {
	if w.export == nil {
		return nil
	}

	payload, err := ParseLeadExportPayload(task)
	if err != nil {
		return err
	}

	if err := w.export.ExportLead(ctx, payload.Lead); err != nil {
		// Logged with the lead identifier inside the service; swallowed
		// so asynq does not resubmit a failed external call.
		return nil
	}
	return nil
}

func (w *Worker) handleRecordingArchive(ctx context.Context, task *asynq.Task) error {
	if w.archiver == nil {
		return nil
	}

	payload, err := ParseRecordingArchivePayload(task)
	if err != nil {
		return err
	}

	return w.archiver.Archive(ctx, payload.CallSid, payload.RecordingURL)
}

// Run serves tasks until ctx is canceled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
