package jobs

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"docsign/internal/reconcile"
)

// ReconcileJob periodically logs the differences between the registry and the file store.
// It never repairs anything.
type ReconcileJob struct {
	src      reconcile.Source
	schedule string
	timeout  time.Duration
	log      logrus.FieldLogger
}

func NewReconcileJob(schedule string, src reconcile.Source, log logrus.FieldLogger) *ReconcileJob {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ReconcileJob{
		src:      src,
		schedule: schedule,
		timeout:  time.Minute,
		log:      log.WithField("job", "reconcile"),
	}
}

func (j *ReconcileJob) Name() string { return "reconcile" }

func (j *ReconcileJob) Schedule() string { return j.schedule }

func (j *ReconcileJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	rep, err := reconcile.Run(ctx, j.src)
	if err != nil {
		j.log.WithError(err).Error("reconcile failed")
		return
	}

	fields := logrus.Fields{
		"event":          "reconcile",
		"store_status":   rep.StoreStatus,
		"registry_count": rep.RegistryCount,
		"file_count":     rep.FileCount,
		"missing_files":  rep.MissingFiles,
		"orphan_files":   rep.OrphanFiles,
	}
	if rep.Consistent() {
		j.log.WithFields(fields).Info("registry and store consistent")
		return
	}
	j.log.WithFields(fields).Warn("registry and store disagree")
}
