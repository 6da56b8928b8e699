package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"chatwave/models"
)

// CleanupWorker prunes rows that expire on their own: revoked or
// expired refresh tokens, and upload grants that were issued but never
// claimed.
type CleanupWorker struct {
	db       *gorm.DB
	logger   *logrus.Entry
	interval time.Duration
}

func NewCleanupWorker(db *gorm.DB, logger *logrus.Entry) *CleanupWorker {
	return &CleanupWorker{
		db:       db,
		logger:   logger,
		interval: time.Hour,
	}
}

func (cw *CleanupWorker) Start(ctx context.Context) {
	cw.logger.Info("Starting cleanup worker...")
	ticker := time.NewTicker(cw.interval)

	for {
		select {
		case <-ticker.C:
			cw.runOnce()
		case <-ctx.Done():
			cw.logger.Info("Stopping cleanup worker...")
			ticker.Stop()
			return
		}
	}
}

func (cw *CleanupWorker) runOnce() {
	now := time.Now()

	tokens := cw.db.Unscoped().
		Where("expires_at < ? OR revoked = ?", now, true).
		Delete(&models.RefreshToken{})
	if tokens.Error != nil {
		cw.logger.WithError(tokens.Error).Warn("Failed to prune refresh tokens")
	}

	grants := cw.db.Unscoped().
		Where("claimed = ? AND expires_at < ?", false, now).
		Delete(&models.FileUpload{})
	if grants.Error != nil {
		cw.logger.WithError(grants.Error).Warn("Failed to prune upload grants")
	}

	if tokens.RowsAffected > 0 || grants.RowsAffected > 0 {
		cw.logger.WithFields(logrus.Fields{
			"refresh_tokens": tokens.RowsAffected,
			"upload_grants":  grants.RowsAffected,
		}).Info("Pruned expired rows")
	}
}
