package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func signedHeaders(t *testing.T, secret string, id string, ts time.Time, body []byte) Headers {
	t.Helper()

	key, err := base64.StdEncoding.DecodeString(secret[len("whsec_"):])
	if err != nil {
		t.Fatalf("bad test secret: %v", err)
	}

	tsStr := fmt.Sprintf("%d", ts.Unix())
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(id + "." + tsStr + "." + string(body)))
	sig := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	return Headers{ID: id, Timestamp: tsStr, Signature: "v1," + sig}
}

func testSecret() string {
	return "whsec_" + base64.StdEncoding.EncodeToString([]byte("super-secret-key"))
}

func TestVerify_ValidSignature(t *testing.T) {
	secret := testSecret()
	now := time.Now()
	body := []byte(`{"recording_id":123}`)

	h := signedHeaders(t, secret, "msg_1", now, body)
	assert.True(t, verifyAt(secret, h, body, now))
}

func TestVerify_WrongBody(t *testing.T) {
	secret := testSecret()
	now := time.Now()

	h := signedHeaders(t, secret, "msg_1", now, []byte("original"))
	assert.False(t, verifyAt(secret, h, []byte("tampered"), now))
}

func TestVerify_StaleTimestamp(t *testing.T) {
	secret := testSecret()
	now := time.Now()
	body := []byte("payload")

	// 签名本身正确，但超出重放窗口也必须拒绝
	h := signedHeaders(t, secret, "msg_1", now.Add(-301*time.Second), body)
	assert.False(t, verifyAt(secret, h, body, now))

	h = signedHeaders(t, secret, "msg_1", now.Add(301*time.Second), body)
	assert.False(t, verifyAt(secret, h, body, now))

	// 窗口内则通过
	h = signedHeaders(t, secret, "msg_1", now.Add(-299*time.Second), body)
	assert.True(t, verifyAt(secret, h, body, now))
}

func TestVerify_MultipleSignatureEntries(t *testing.T) {
	secret := testSecret()
	now := time.Now()
	body := []byte("payload")

	good := signedHeaders(t, secret, "msg_1", now, body)

	// 任一项匹配即通过
	h := good
	h.Signature = "v1,bogus " + good.Signature
	assert.True(t, verifyAt(secret, h, body, now))

	// 全部不匹配则拒绝
	h.Signature = "v1,bogus v1,alsobogus"
	assert.False(t, verifyAt(secret, h, body, now))
}

func TestVerify_NonNumericTimestamp(t *testing.T) {
	secret := testSecret()
	h := Headers{ID: "msg_1", Timestamp: "not-a-number", Signature: "v1,whatever"}
	assert.False(t, verifyAt(secret, h, []byte("x"), time.Now()))
}

func TestParseHeaders_MissingHeader(t *testing.T) {
	headers := map[string]string{
		"webhook-id":        "msg_1",
		"webhook-timestamp": "1700000000",
	}
	_, ok := ParseHeaders(func(k string) string { return headers[k] })
	assert.False(t, ok)

	headers["webhook-signature"] = "v1,abc"
	h, ok := ParseHeaders(func(k string) string { return headers[k] })
	assert.True(t, ok)
	assert.Equal(t, "msg_1", h.ID)
}
