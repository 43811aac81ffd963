package stats

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Store provides the aggregate ledger figures the reporter logs.
type Store interface {
	Stats(ctx context.Context) (accounts int64, totalBalance int64, err error)
}

// Reporter periodically logs ledger-wide totals. It is scheduled from main
// via cron; each run is independent and failures only log.
type Reporter struct {
	store Store
	log   *logrus.Logger
}

// NewReporter creates a new stats reporter
func NewReporter(store Store, log *logrus.Logger) *Reporter {
	return &Reporter{store: store, log: log}
}

// Run collects and logs the current ledger stats
func (r *Reporter) Run(ctx context.Context) {
	accounts, total, err := r.store.Stats(ctx)
	if err != nil {
		r.log.Errorf("Failed to collect ledger stats: %v", err)
		return
	}
	r.log.Infof("Ledger stats: %d accounts, total balance %.2f", accounts, float64(total)/100)
}
