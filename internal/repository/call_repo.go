package repository

import (
	"errors"

	"gorm.io/gorm"

	"github.com/console-hq/calleval_go_server/internal/model"
)

type CallRepository struct {
	db *gorm.DB
}

func NewCallRepository(db *gorm.DB) *CallRepository {
	return &CallRepository{db: db}
}

// FindOrCreate 按 external_recording_id 或 share_url 去重；
// 已存在时返回原行，重新处理不会再插入。
func (r *CallRepository) FindOrCreate(call *model.Call) (*model.Call, error) {
	var existing model.Call
	q := r.db.Where("external_recording_id = ?", call.ExternalRecordingID)
	if call.ShareURL != "" {
		q = q.Or("share_url = ?", call.ShareURL)
	}
	err := q.First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if err := r.db.Create(call).Error; err != nil {
		return nil, err
	}
	return call, nil
}

func (r *CallRepository) GetByID(id int64) (*model.Call, error) {
	var call model.Call
	err := r.db.Where("id = ?", id).First(&call).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &call, nil
}

// ListAll 标题匹配兜底用（CRM 公司名 → 通话标题）
func (r *CallRepository) ListAll() ([]*model.Call, error) {
	var calls []*model.Call
	err := r.db.Find(&calls).Error
	return calls, err
}

// ReplaceParticipants 每次归一化全量重建：先删后插。
// 同一通话同一时刻只有一个活跃任务在归一化，不存在部分更新竞态。
func (r *CallRepository) ReplaceParticipants(callID int64, participants []*model.Participant) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("call_id = ?", callID).Delete(&model.Participant{}).Error; err != nil {
			return err
		}
		for _, p := range participants {
			p.CallID = callID
			if err := tx.Create(p).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// ReplaceUtterances 整体替换，idx 必须从 0 连续
func (r *CallRepository) ReplaceUtterances(callID int64, utterances []*model.Utterance) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("call_id = ?", callID).Delete(&model.Utterance{}).Error; err != nil {
			return err
		}
		for _, u := range utterances {
			u.CallID = callID
			if err := tx.Create(u).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *CallRepository) GetParticipants(callID int64) ([]*model.Participant, error) {
	var participants []*model.Participant
	err := r.db.Where("call_id = ?", callID).Find(&participants).Error
	return participants, err
}

// GetParticipantsByRole 按角色筛选参会人
func (r *CallRepository) GetParticipantsByRole(callID int64, role string) ([]*model.Participant, error) {
	var participants []*model.Participant
	err := r.db.Where("call_id = ? AND role = ?", callID, role).Find(&participants).Error
	return participants, err
}

// FindCallIDsByParticipantEmails 外部参会人邮箱匹配（大小写不敏感，分批 IN 查询）
func (r *CallRepository) FindCallIDsByParticipantEmails(emails []string) ([]int64, error) {
	if len(emails) == 0 {
		return nil, nil
	}

	const batchSize = 50
	seen := make(map[int64]struct{})
	var ids []int64

	for i := 0; i < len(emails); i += batchSize {
		end := i + batchSize
		if end > len(emails) {
			end = len(emails)
		}
		var participants []*model.Participant
		err := r.db.Where("role = ? AND LOWER(email) IN ?", model.RoleExternal, emails[i:end]).
			Find(&participants).Error
		if err != nil {
			return nil, err
		}
		for _, p := range participants {
			if _, ok := seen[p.CallID]; !ok {
				seen[p.CallID] = struct{}{}
				ids = append(ids, p.CallID)
			}
		}
	}
	return ids, nil
}

func (r *CallRepository) GetUtterances(callID int64) ([]*model.Utterance, error) {
	var utterances []*model.Utterance
	err := r.db.Where("call_id = ?", callID).Order("idx ASC").Find(&utterances).Error
	return utterances, err
}
