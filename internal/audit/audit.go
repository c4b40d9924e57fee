package audit

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"shopcore/internal/models"
)

// Recorder appends rows to the audit trail. Recording is a non-critical
// side path: failures are logged and swallowed, never propagated into the
// operation being audited.
type Recorder struct {
	DB *gorm.DB
	Lg *zap.SugaredLogger
}

func (r *Recorder) Record(ctx context.Context, userID *string, action string, meta map[string]any) {
	if r == nil || r.DB == nil {
		return
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		raw = []byte("{}")
	}
	row := models.AuditLog{
		UserID:    userID,
		Action:    action,
		Metadata:  models.JSONB(raw),
		CreatedAt: time.Now(),
	}
	if err := r.DB.WithContext(ctx).Create(&row).Error; err != nil {
		r.Lg.Warnw("audit write failed", "action", action, "error", err)
	}
}

// Recent returns up to limit rows, newest first, optionally filtered to one
// user.
func (r *Recorder) Recent(ctx context.Context, userID string, limit int) ([]models.AuditLog, error) {
	q := r.DB.WithContext(ctx).Order("created_at desc").Limit(limit)
	if userID != "" {
		q = q.Where("user_id = ?", userID)
	}
	var logs []models.AuditLog
	err := q.Find(&logs).Error
	return logs, err
}
