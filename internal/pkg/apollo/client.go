package apollo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.apollo.io/v1"
	// 员工数达到该值按企业客户处理
	enterpriseEmployeeThreshold = 2000
)

// 公司分层
const (
	SegmentEnterprise = "enterprise"
	SegmentMidTier    = "mid_tier"
)

// Organization 公司画像
type Organization struct {
	Name          string `json:"name"`
	Domain        string `json:"primary_domain"`
	EmployeeCount int    `json:"estimated_num_employees"`
	Industry      string `json:"industry"`
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

var nonAlnumRe = regexp.MustCompile(`[^a-z0-9]`)

// GuessDomain 从公司名推测主域名,如 "Goat HR" → "goathr.com"
func GuessDomain(companyName string) string {
	slug := nonAlnumRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(companyName)), "")
	if slug == "" {
		return ""
	}
	return slug + ".com"
}

// EnrichOrganization 按域名查公司画像,查不到返回 nil 而非错误
func (c *Client) EnrichOrganization(ctx context.Context, domain string) (*Organization, error) {
	endpoint := fmt.Sprintf("%s/organizations/enrich?domain=%s", c.baseURL, url.QueryEscape(domain))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("apollo enrich %s: status %d: %s", domain, resp.StatusCode, body)
	}

	var envelope struct {
		Organization *Organization `json:"organization"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("apollo decode: %w", err)
	}
	return envelope.Organization, nil
}

// SegmentFor 按员工数分层;画像缺失时回落到 mid_tier
func SegmentFor(org *Organization) string {
	if org != nil && org.EmployeeCount >= enterpriseEmployeeThreshold {
		return SegmentEnterprise
	}
	return SegmentMidTier
}
