package repository

import (
	"github.com/vastrahub/vastrahub/app/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// webhookRepository implements the WebhookRepository interface
type webhookRepository struct {
	db *gorm.DB
}

// NewWebhookRepository creates a new webhook repository instance
func NewWebhookRepository(db *gorm.DB) WebhookRepository {
	return &webhookRepository{db: db}
}

func (r *webhookRepository) RecordIfNotExists(w *models.PaymentWebhook) (bool, *models.PaymentWebhook, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "dedup_key"}},
		DoNothing: true,
	}).Create(w)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.PaymentWebhook
	if err := r.db.Where("dedup_key = ?", w.DedupKey).First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

// Claim is the concurrency linchpin: a single conditional UPDATE, so under N
// simultaneous identical deliveries exactly one caller sees RowsAffected == 1.
// Signature-invalid records never match the guard and can never be claimed.
func (r *webhookRepository) Claim(dedupKey, claimedBy string) (bool, error) {
	tx := r.db.Model(&models.PaymentWebhook{}).
		Where("dedup_key = ? AND processed = ? AND signature_valid = ?", dedupKey, false, true).
		Updates(map[string]interface{}{
			"processed":  true,
			"claimed_by": claimedBy,
		})
	if tx.Error != nil {
		return false, tx.Error
	}
	return tx.RowsAffected > 0, nil
}

func (r *webhookRepository) SetResult(dedupKey, result string) error {
	return r.db.Model(&models.PaymentWebhook{}).
		Where("dedup_key = ?", dedupKey).
		Update("result", result).Error
}

// MarkRejected records a rejection on a record nobody has claimed. The guard
// makes a late rejection write-back a no-op once a concurrent worker has
// claimed the key, so it can never demote that worker's outcome.
func (r *webhookRepository) MarkRejected(dedupKey string) error {
	return r.db.Model(&models.PaymentWebhook{}).
		Where("dedup_key = ? AND processed = ?", dedupKey, false).
		Update("result", models.WebhookResultRejected).Error
}

// ReleaseClaim reverts a claim after a transient failure so the reconcile
// drain can claim the record again. Guarded on ownership: only the worker
// holding the claim (or an unclaimed row) matches, never a record another
// worker resolved in the meantime.
func (r *webhookRepository) ReleaseClaim(dedupKey, claimedBy string) error {
	return r.db.Model(&models.PaymentWebhook{}).
		Where("dedup_key = ? AND (processed = ? OR claimed_by = ?)", dedupKey, false, claimedBy).
		Updates(map[string]interface{}{
			"processed": false,
			"result":    models.WebhookResultError,
		}).Error
}

func (r *webhookRepository) MarkSignatureValid(dedupKey string) error {
	return r.db.Model(&models.PaymentWebhook{}).
		Where("dedup_key = ? AND signature_valid = ?", dedupKey, false).
		Update("signature_valid", true).Error
}

func (r *webhookRepository) GetByDedupKey(dedupKey string) (*models.PaymentWebhook, error) {
	var w models.PaymentWebhook
	if err := r.db.Where("dedup_key = ?", dedupKey).First(&w).Error; err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *webhookRepository) ListUnprocessed(limit int) ([]models.PaymentWebhook, error) {
	var hooks []models.PaymentWebhook
	err := r.db.Where("processed = ? AND signature_valid = ?", false, true).
		Order("received_at ASC").
		Limit(limit).
		Find(&hooks).Error
	return hooks, err
}
