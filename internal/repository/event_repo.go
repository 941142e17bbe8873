package repository

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/console-hq/calleval_go_server/internal/model"
)

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

// Admit 按 external_event_id 幂等入库：首次插入返回 created=true,
// 重复提交返回已有记录。raw_body 一经写入不再变更（防供应商重试与手动导入重复）。
func (r *EventRepository) Admit(externalEventID string, verified bool, rawHeaders, rawBody string) (*model.WebhookEvent, bool, error) {
	ev := &model.WebhookEvent{
		ExternalEventID:  externalEventID,
		Verified:         verified,
		RawHeaders:       rawHeaders,
		RawBody:          rawBody,
		ProcessingStatus: model.EventStatusQueued,
	}

	result := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_event_id"}},
		DoNothing: true,
	}).Create(ev)
	if result.Error != nil {
		return nil, false, result.Error
	}
	created := result.RowsAffected > 0

	// 冲突时 Create 不回填主键，统一按唯一键读回
	var stored model.WebhookEvent
	if err := r.db.Where("external_event_id = ?", externalEventID).First(&stored).Error; err != nil {
		return nil, false, err
	}
	return &stored, created, nil
}

func (r *EventRepository) GetByID(id int64) (*model.WebhookEvent, error) {
	var ev model.WebhookEvent
	err := r.db.Where("id = ?", id).First(&ev).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &ev, nil
}
