package dto

// ProcessRequest 管道手动处理请求
type ProcessRequest struct {
	RecordingID string `json:"recording_id" binding:"required"`
	CallbackURL string `json:"callback_url"`
}

// ExtractInfoRequest 纯上下文提取请求（不落库）
type ExtractInfoRequest struct {
	Title            string           `json:"title" binding:"required"`
	RecordingID      string           `json:"recording_id" binding:"required"`
	CalendarInvitees []InviteeRequest `json:"calendar_invitees"`
	RecordedBy       *InviteeRequest  `json:"recorded_by"`
}

type InviteeRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	IsExternal bool   `json:"is_external"`
}

// ImportMeetingRequest 按分享链接手动导入
type ImportMeetingRequest struct {
	URL string `json:"url" binding:"required"`
}

// ReprocessRequest 按 call_id 重新处理
type ReprocessRequest struct {
	CallID int64 `json:"call_id" binding:"required"`
}

// GeoTriggerRequest 触发短语提取
type GeoTriggerRequest struct {
	CRMPipelineID string `json:"crm_pipeline_id"`
	CRMStageID    string `json:"crm_stage_id"`
	Backfill      bool   `json:"backfill"`
	QualifiedOnly bool   `json:"qualified_only"`
}
