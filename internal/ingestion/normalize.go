package ingestion

import (
	"strconv"
	"strings"
	"time"

	"github.com/console-hq/calleval_go_server/internal/pkg/fathom"
)

// NormalizedParticipant 归一化后的参会人
type NormalizedParticipant struct {
	Name        string
	Email       *string
	Role        string
	SourceLabel *string
}

// NormalizedUtterance 归一化后的转写片段
type NormalizedUtterance struct {
	Idx               int
	SpeakerLabelRaw   string
	TimestampStartSec *int
	TimestampEndSec   *int
	TextRaw           string
	TextNormalized    string
}

// NormalizedCall 供应商载荷到内部结构的映射结果
type NormalizedCall struct {
	ExternalRecordingID string
	Title               string
	StartTime           *time.Time
	EndTime             *time.Time
	ShareURL            string
	SourceURL           string
	Participants        []NormalizedParticipant
	Utterances          []NormalizedUtterance
}

var unicodeReplacer = strings.NewReplacer(
	"‘", "'", // 左单引号
	"’", "'", // 右单引号
	"“", `"`, // 左双引号
	"”", `"`, // 右双引号
	"–", "-", // en dash
	"—", "-", // em dash
)

// NormalizeText 去首尾空白、折叠连续空白、印刷体引号/破折号转 ASCII
func NormalizeText(raw string) string {
	text := strings.TrimSpace(raw)
	text = strings.Join(strings.Fields(text), " ")
	return unicodeReplacer.Replace(text)
}

// ParseTimestampToSec "HH:MM:SS" → 总秒数
func ParseTimestampToSec(ts string) *int {
	parts := strings.Split(ts, ":")
	if len(parts) != 3 {
		return nil
	}
	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil
		}
		nums[i] = n
	}
	sec := nums[0]*3600 + nums[1]*60 + nums[2]
	return &sec
}

func parseRFC3339(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return nil
	}
	return &t
}

// MapMeeting 把供应商会议载荷映射为内部结构。
// 角色判定：来源标记非外部、或名字命中团队名单 → internal，否则 external。
func MapMeeting(m *fathom.Meeting, roster []string) *NormalizedCall {
	var participants []NormalizedParticipant
	for _, inv := range m.CalendarInvitees {
		name := "Unknown"
		if inv.Name != nil && *inv.Name != "" {
			name = *inv.Name
		}
		role := roleForInvitee(name, inv.IsExternal, roster)
		participants = append(participants, NormalizedParticipant{
			Name:        name,
			Email:       lowerEmail(inv.Email),
			Role:        role,
			SourceLabel: inv.MatchedSpeakerDisplayName,
		})
	}

	// recorded_by 不在邀请列表时补为内部参会人
	if m.RecordedBy != nil {
		already := false
		for _, p := range participants {
			if p.Email != nil && strings.EqualFold(*p.Email, m.RecordedBy.Email) {
				already = true
				break
			}
		}
		if !already {
			email := strings.ToLower(m.RecordedBy.Email)
			participants = append(participants, NormalizedParticipant{
				Name:        m.RecordedBy.Name,
				Email:       &email,
				Role:        "internal",
				SourceLabel: m.RecordedBy.Team,
			})
		}
	}

	var utterances []NormalizedUtterance
	for idx, entry := range m.Transcript {
		utterances = append(utterances, NormalizedUtterance{
			Idx:               idx,
			SpeakerLabelRaw:   entry.Speaker.DisplayName,
			TimestampStartSec: ParseTimestampToSec(entry.Timestamp),
			TimestampEndSec:   nil, // 供应商每条只给单个时间戳
			TextRaw:           entry.Text,
			TextNormalized:    NormalizeText(entry.Text),
		})
	}

	return &NormalizedCall{
		ExternalRecordingID: strconv.FormatInt(m.RecordingID, 10),
		Title:               m.Title,
		StartTime:           parseRFC3339(m.RecordingStartTime),
		EndTime:             parseRFC3339(m.RecordingEndTime),
		ShareURL:            m.ShareURL,
		SourceURL:           m.URL,
		Participants:        participants,
		Utterances:          utterances,
	}
}

func roleForInvitee(name string, isExternal bool, roster []string) string {
	if !isExternal {
		return "internal"
	}
	for _, member := range roster {
		if member != "" && strings.Contains(strings.ToLower(name), strings.ToLower(member)) {
			return "internal"
		}
	}
	return "external"
}

func lowerEmail(email *string) *string {
	if email == nil || *email == "" {
		return nil
	}
	lower := strings.ToLower(*email)
	return &lower
}
