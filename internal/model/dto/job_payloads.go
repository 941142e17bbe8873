package dto

// 任务 payload 契约，与 jobs.payload 的 JSON 编码一一对应

type ProcessMeetingPayload struct {
	WebhookEventID int64  `json:"webhook_event_id"`
	CallbackURL    string `json:"callback_url,omitempty"`
}

type ReprocessCallPayload struct {
	CallID int64 `json:"call_id"`
}

type ExtractPhrasesPayload struct {
	CRMPipelineID string `json:"crm_pipeline_id"`
	CRMStageID    string `json:"crm_stage_id"`
	Backfill      bool   `json:"backfill"`
	QualifiedOnly bool   `json:"qualified_only,omitempty"`
}

type RunWeeklyAnalysisPayload struct{}
