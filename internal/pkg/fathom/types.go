package fathom

import "encoding/json"

// 与录音供应商的 Meeting schema 对应

type TranscriptSpeaker struct {
	DisplayName                 string  `json:"display_name"`
	MatchedCalendarInviteeEmail *string `json:"matched_calendar_invitee_email,omitempty"`
}

type TranscriptItem struct {
	Speaker   TranscriptSpeaker `json:"speaker"`
	Text      string            `json:"text"`
	Timestamp string            `json:"timestamp"` // "HH:MM:SS"，相对录制起点
}

type Invitee struct {
	Name                      *string `json:"name"`
	Email                     *string `json:"email"`
	EmailDomain               *string `json:"email_domain,omitempty"`
	IsExternal                bool    `json:"is_external"`
	MatchedSpeakerDisplayName *string `json:"matched_speaker_display_name,omitempty"`
}

type RecordedBy struct {
	Name  string  `json:"name"`
	Email string  `json:"email"`
	Team  *string `json:"team"`
}

type Meeting struct {
	Title              string           `json:"title"`
	RecordingID        int64            `json:"recording_id"`
	URL                string           `json:"url"`
	ShareURL           string           `json:"share_url"`
	CreatedAt          string           `json:"created_at"`
	RecordingStartTime string           `json:"recording_start_time"`
	RecordingEndTime   string           `json:"recording_end_time"`
	CalendarInvitees   []Invitee        `json:"calendar_invitees"`
	RecordedBy         *RecordedBy      `json:"recorded_by"`
	Transcript         []TranscriptItem `json:"transcript"`
}

// ParseMeeting 宽松解析：字段缺失不报错，关键字段校验交给 IsValid
func ParseMeeting(raw []byte) (*Meeting, error) {
	var m Meeting
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// IsValid 判断是否为可处理的会议载荷
func (m *Meeting) IsValid() bool {
	return m != nil && m.Title != "" && m.RecordingID != 0
}
