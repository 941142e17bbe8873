package ingestion

import (
	"strings"
)

// 客户规模分层
const (
	SegmentEnterprise = "enterprise"
	SegmentMidTier    = "mid_tier"
)

type Attendee struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// MeetingContext 提供给提取/评估环节的会议上下文
type MeetingContext struct {
	OurCompany        string     `json:"our_company"`
	ProspectCompany   string     `json:"prospect_company,omitempty"`
	AEName            string     `json:"ae_name,omitempty"`
	DealSegment       string     `json:"deal_segment"`
	MeetingTitle      string     `json:"meeting_title"`
	InternalAttendees []Attendee `json:"internal_attendees"`
	ExternalAttendees []Attendee `json:"external_attendees"`
}

// ContextBuilder 基于注入的团队配置构建会议上下文
type ContextBuilder struct {
	ourCompany string
	roster     []string
}

func NewContextBuilder(ourCompany string, roster []string) *ContextBuilder {
	return &ContextBuilder{ourCompany: ourCompany, roster: roster}
}

// Build 纯函数：标题解析 + 参会人分组 + AE 识别，段位默认 mid_tier
func (b *ContextBuilder) Build(title string, participants []NormalizedParticipant) MeetingContext {
	ctx := MeetingContext{
		OurCompany:   b.ourCompany,
		DealSegment:  SegmentMidTier,
		MeetingTitle: title,
	}

	if company, ok := ParseMeetingTitle(title, b.ourCompany); ok {
		ctx.ProspectCompany = company
	}

	for _, p := range participants {
		att := Attendee{Name: p.Name}
		if p.Email != nil {
			att.Email = *p.Email
		}
		if p.Role == "internal" {
			ctx.InternalAttendees = append(ctx.InternalAttendees, att)
		} else {
			ctx.ExternalAttendees = append(ctx.ExternalAttendees, att)
		}

		if ctx.AEName == "" {
			for _, member := range b.roster {
				if member != "" && strings.Contains(strings.ToLower(p.Name), strings.ToLower(member)) {
					ctx.AEName = p.Name
					break
				}
			}
		}
	}

	return ctx
}
