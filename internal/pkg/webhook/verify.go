package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"strconv"
	"strings"
	"time"
)

// ReplayWindowSec 签名时间戳容忍窗口（秒）
const ReplayWindowSec = 300

const secretPrefix = "whsec_"

// Headers 入站 webhook 的三个必需头
type Headers struct {
	ID        string
	Timestamp string
	Signature string
}

// ParseHeaders 缺任一必需头时返回 false
func ParseHeaders(get func(string) string) (Headers, bool) {
	h := Headers{
		ID:        get("webhook-id"),
		Timestamp: get("webhook-timestamp"),
		Signature: get("webhook-signature"),
	}
	if h.ID == "" || h.Timestamp == "" || h.Signature == "" {
		return Headers{}, false
	}
	return h, true
}

// Verify 校验签名与时效，纯谓词，无副作用。
// 期望签名为 HMAC-SHA256("{id}.{timestamp}.{rawBody}")，
// 密钥是 secret 去掉 whsec_ 前缀后的 base64 解码字节。
// 签名头可含多个空格分隔的 "version,value" 项，任一匹配即通过。
func Verify(secret string, h Headers, rawBody []byte) bool {
	return verifyAt(secret, h, rawBody, time.Now())
}

func verifyAt(secret string, h Headers, rawBody []byte, now time.Time) bool {
	if h.ID == "" || h.Timestamp == "" || h.Signature == "" {
		return false
	}

	// 重放保护
	tsSec, err := strconv.ParseInt(h.Timestamp, 10, 64)
	if err != nil {
		return false
	}
	diff := now.Unix() - tsSec
	if diff < 0 {
		diff = -diff
	}
	if diff > ReplayWindowSec {
		return false
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(secret, secretPrefix))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(h.ID + "." + h.Timestamp + "."))
	mac.Write(rawBody)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	for _, entry := range strings.Split(h.Signature, " ") {
		parts := strings.SplitN(entry, ",", 2)
		if len(parts) != 2 {
			continue
		}
		if hmac.Equal([]byte(parts[1]), []byte(expected)) {
			return true
		}
	}
	return false
}
