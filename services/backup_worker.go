package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// BackupStatus mirrors the server badge of the intranet header
type BackupStatus string

const (
	BackupOnline   BackupStatus = "ONLINE"
	BackupOffline  BackupStatus = "OFFLINE"
	BackupDisabled BackupStatus = "DISABLED"
)

// BackupState is what the health endpoint reports about persistence
type BackupState struct {
	Status      BackupStatus `json:"status"`
	LastAttempt *time.Time   `json:"last_attempt,omitempty"`
	LastSuccess *time.Time   `json:"last_success,omitempty"`
	LastKey     string       `json:"last_key,omitempty"`
	LastError   string       `json:"last_error,omitempty"`
}

// BackupWorker periodically uploads the snapshot to object storage.
// Failures only flip the status to OFFLINE; requests are never blocked.
type BackupWorker struct {
	snapshots *SnapshotService
	storage   ObjectStorage
	interval  time.Duration
	logger    *zap.Logger
	now       func() time.Time

	mu    sync.RWMutex
	state BackupState
}

// NewBackupWorker creates a worker; a nil storage yields a DISABLED worker
func NewBackupWorker(snapshots *SnapshotService, storage ObjectStorage, interval time.Duration, logger *zap.Logger) *BackupWorker {
	status := BackupOnline
	if storage == nil {
		status = BackupDisabled
	}
	if interval <= 0 {
		interval = time.Minute
	}
	return &BackupWorker{
		snapshots: snapshots,
		storage:   storage,
		interval:  interval,
		logger:    logger,
		now:       time.Now,
		state:     BackupState{Status: status},
	}
}

// Run uploads one backup per interval until ctx is cancelled
func (w *BackupWorker) Run(ctx context.Context) {
	if w.storage == nil {
		w.logger.Info("Snapshot backups disabled, object storage not configured")
		return
	}

	w.logger.Info("Snapshot backup worker started", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Snapshot backup worker stopped")
			return
		case <-ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.Error("Snapshot backup failed", zap.Error(err))
			}
		}
	}
}

// RunOnce exports and uploads a single snapshot, returning its key
func (w *BackupWorker) RunOnce(ctx context.Context) (string, error) {
	if w.storage == nil {
		return "", ErrStorageDisabled
	}

	started := w.now()
	key := fmt.Sprintf("backups/snapshot-%s.json", started.UTC().Format("20060102T150405Z"))

	err := w.upload(ctx, key)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.state.LastAttempt = &started
	if err != nil {
		w.state.Status = BackupOffline
		w.state.LastError = err.Error()
		return "", err
	}
	w.state.Status = BackupOnline
	w.state.LastSuccess = &started
	w.state.LastKey = key
	w.state.LastError = ""
	w.logger.Debug("Snapshot backup uploaded", zap.String("key", key))
	return key, nil
}

func (w *BackupWorker) upload(ctx context.Context, key string) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	data, err := w.snapshots.ExportJSON(ctx)
	if err != nil {
		return fmt.Errorf("failed to export snapshot: %w", err)
	}
	return w.storage.Put(ctx, key, "application/json", data)
}

// State returns a copy of the last outcome
func (w *BackupWorker) State() BackupState {
	if w == nil {
		return BackupState{Status: BackupDisabled}
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}
