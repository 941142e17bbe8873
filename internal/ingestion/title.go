package ingestion

import (
	"regexp"
	"strings"
)

// 括号内的已知职能词：命中时括号前的部分才是公司名
var roleDescriptors = map[string]struct{}{
	"legal":       {},
	"hr":          {},
	"it":          {},
	"security":    {},
	"finance":     {},
	"engineering": {},
	"engineer":    {},
	"sales":       {},
	"marketing":   {},
	"ops":         {},
	"operations":  {},
	"procurement": {},
	"compliance":  {},
	"recruiting":  {},
	"people":      {},
}

// 会议标题里常见的尾缀废词，从右往左剥离
var trailingJunkWords = map[string]struct{}{
	"demo":       {},
	"sync":       {},
	"kickoff":    {},
	"call":       {},
	"meeting":    {},
	"intro":      {},
	"chat":       {},
	"focused":    {},
	"discussion": {},
	"connection": {},
	"catchup":    {},
	"followup":   {},
	"follow-up":  {},
}

var nameDescriptorRe = regexp.MustCompile(`^(.+?)\s*\(([^)]*)\)\s*$`)

// ParseMeetingTitle 从会议标题推导对方公司名。确定性规则：
// 去掉整体括号包裹；按分隔符（"//"、"/"、" x "、"<>"）切分；
// 丢弃等于我方公司名的 token；剩下的 token 若形如 "Name (职能词)" 取 Name，
// 括号内容非空且不是我方名则取括号内容，否则剥掉尾部描述词返回。
// 没有分隔符时返回 false。
func ParseMeetingTitle(title, ourCompany string) (string, bool) {
	s := strings.TrimSpace(title)
	if s == "" {
		return "", false
	}

	// 整体括号包裹："(Clio/Console) - Connection Call" → "Clio/Console"
	if strings.HasPrefix(s, "(") {
		if end := strings.Index(s, ")"); end > 1 {
			s = s[1:end]
		}
	}

	normalized := strings.ReplaceAll(s, "//", "/")
	normalized = strings.ReplaceAll(normalized, "<>", "/")
	normalized = strings.ReplaceAll(normalized, " x ", "/")
	normalized = strings.ReplaceAll(normalized, " X ", "/")

	if !strings.Contains(normalized, "/") {
		return "", false
	}

	var candidate string
	for _, token := range strings.Split(normalized, "/") {
		token = strings.TrimSpace(token)
		if token == "" || strings.EqualFold(token, ourCompany) {
			continue
		}
		candidate = token
		break
	}
	if candidate == "" {
		return "", false
	}

	if m := nameDescriptorRe.FindStringSubmatch(candidate); m != nil {
		name := strings.TrimSpace(m[1])
		inner := strings.TrimSpace(m[2])
		if _, known := roleDescriptors[strings.ToLower(inner)]; known {
			return name, true
		}
		if inner != "" && !strings.EqualFold(inner, ourCompany) {
			return inner, true
		}
		candidate = name
	}

	cleaned := stripTrailingDescriptors(candidate)
	if cleaned == "" {
		return "", false
	}
	return cleaned, true
}

func stripTrailingDescriptors(token string) string {
	// 破折号后缀："Acme - intro call" → "Acme"
	if i := strings.Index(token, " - "); i >= 0 {
		token = token[:i]
	}

	words := strings.Fields(token)
	for len(words) > 0 {
		last := strings.ToLower(words[len(words)-1])
		if _, junk := trailingJunkWords[last]; !junk {
			break
		}
		words = words[:len(words)-1]
	}
	return strings.Join(words, " ")
}
