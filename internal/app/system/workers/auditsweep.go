// internal/app/system/workers/auditsweep.go
package workers

import (
	"context"
	"sync"
	"time"

	governancestore "github.com/dalemusser/planhub/internal/app/store/governance"
	"github.com/dalemusser/planhub/internal/domain/models"
	"go.uber.org/zap"
)

// AuditSweep is a background worker that re-verifies the integrity hash of
// every audit entry on a fixed interval. A mismatch means the entry was
// edited after it was written, which the audit trail must never allow.
type AuditSweep struct {
	governance *governancestore.Store
	log        *zap.Logger
	interval   time.Duration
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

// SweepResult summarizes one integrity pass over the audit trail.
type SweepResult struct {
	Scanned  int
	Tampered []string // hex IDs of entries whose hash did not verify
}

// Clean reports whether every scanned entry verified.
func (r SweepResult) Clean() bool { return len(r.Tampered) == 0 }

// NewAuditSweep creates a new audit integrity worker.
//
// Parameters:
//   - govStore: the governance store holding the audit trail
//   - logger: zap logger for logging
//   - interval: how often to run a full verification pass (e.g., 1 hour)
func NewAuditSweep(govStore *governancestore.Store, logger *zap.Logger, interval time.Duration) *AuditSweep {
	return &AuditSweep{
		governance: govStore,
		log:        logger,
		interval:   interval,
		stopCh:     make(chan struct{}),
	}
}

// Start begins the background verification loop.
func (w *AuditSweep) Start() {
	w.wg.Add(1)
	go w.run()
	w.log.Info("audit integrity worker started",
		zap.Duration("interval", w.interval))
}

// Stop signals the worker to stop and waits for it to finish.
func (w *AuditSweep) Stop() {
	close(w.stopCh)
	w.wg.Wait()
	w.log.Info("audit integrity worker stopped")
}

func (w *AuditSweep) run() {
	defer w.wg.Done()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *AuditSweep) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := w.SweepOnce(ctx)
	if err != nil {
		w.log.Error("audit integrity sweep failed", zap.Error(err))
		return
	}

	if !result.Clean() {
		w.log.Error("audit integrity sweep found tampered entries",
			zap.Int("scanned", result.Scanned),
			zap.Int("tampered", len(result.Tampered)),
			zap.Strings("ids", result.Tampered))
		return
	}

	w.log.Info("audit integrity sweep clean", zap.Int("scanned", result.Scanned))
}

// SweepOnce walks the whole audit trail and re-verifies each entry's hash.
// The governance compliance report calls this synchronously; the background
// loop calls it on its ticker.
func (w *AuditSweep) SweepOnce(ctx context.Context) (SweepResult, error) {
	var result SweepResult

	err := w.governance.EachAudit(ctx, func(rec models.GovernanceRecord) error {
		result.Scanned++
		if !governancestore.VerifyAudit(&rec) {
			result.Tampered = append(result.Tampered, rec.ID.Hex())
			w.log.Error("audit entry failed hash verification",
				zap.String("id", rec.ID.Hex()),
				zap.String("action", rec.Action),
				zap.String("resource_id", rec.ResourceID))
		}
		return nil
	})
	if err != nil {
		return result, err
	}
	return result, nil
}
