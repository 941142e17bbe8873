package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.hubapi.com"
	searchPageSize = 100
	// 官方限速 10 req/s,留出余量
	requestDelay = 110 * time.Millisecond
	maxRetries   = 3
)

// Deal CRM 交易对象
type Deal struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
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

type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties"`
	Limit        int           `json:"limit"`
	After        string        `json:"after,omitempty"`
}

type filterGroup struct {
	Filters []filter `json:"filters"`
}

type filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

type searchResponse struct {
	Total   int    `json:"total"`
	Results []Deal `json:"results"`
	Paging  *struct {
		Next struct {
			After string `json:"after"`
		} `json:"next"`
	} `json:"paging,omitempty"`
}

// SearchDealsByStage 分页取出指定 pipeline/stage 下的全部交易
func (c *Client) SearchDealsByStage(ctx context.Context, pipelineID, stageID string) ([]Deal, error) {
	var deals []Deal
	after := ""
	for {
		req := searchRequest{
			FilterGroups: []filterGroup{{Filters: []filter{
				{PropertyName: "pipeline", Operator: "EQ", Value: pipelineID},
				{PropertyName: "dealstage", Operator: "EQ", Value: stageID},
			}}},
			Properties: []string{"dealname", "createdate"},
			Limit:      searchPageSize,
			After:      after,
		}
		var resp searchResponse
		if err := c.do(ctx, http.MethodPost, "/crm/v3/objects/deals/search", req, &resp); err != nil {
			return nil, err
		}
		deals = append(deals, resp.Results...)
		if resp.Paging == nil || resp.Paging.Next.After == "" {
			return deals, nil
		}
		after = resp.Paging.Next.After
	}
}

type associationsResponse struct {
	Results []struct {
		ToObjectID int64 `json:"toObjectId"`
	} `json:"results"`
}

type objectResponse struct {
	Properties map[string]string `json:"properties"`
}

// GetDealCompanyName 取交易首个关联公司的名称,无关联时返回空串
func (c *Client) GetDealCompanyName(ctx context.Context, dealID string) (string, error) {
	var assoc associationsResponse
	path := fmt.Sprintf("/crm/v4/objects/deals/%s/associations/companies", dealID)
	if err := c.do(ctx, http.MethodGet, path, nil, &assoc); err != nil {
		return "", err
	}
	if len(assoc.Results) == 0 {
		return "", nil
	}
	var company objectResponse
	path = fmt.Sprintf("/crm/v3/objects/companies/%d?properties=name", assoc.Results[0].ToObjectID)
	if err := c.do(ctx, http.MethodGet, path, nil, &company); err != nil {
		return "", err
	}
	return company.Properties["name"], nil
}

// GetDealContactEmails 取交易全部关联联系人的邮箱(小写,去空)
func (c *Client) GetDealContactEmails(ctx context.Context, dealID string) ([]string, error) {
	var assoc associationsResponse
	path := fmt.Sprintf("/crm/v4/objects/deals/%s/associations/contacts", dealID)
	if err := c.do(ctx, http.MethodGet, path, nil, &assoc); err != nil {
		return nil, err
	}
	var emails []string
	for _, r := range assoc.Results {
		var contact objectResponse
		p := fmt.Sprintf("/crm/v3/objects/contacts/%d?properties=email", r.ToObjectID)
		if err := c.do(ctx, http.MethodGet, p, nil, &contact); err != nil {
			return nil, err
		}
		if email := strings.ToLower(strings.TrimSpace(contact.Properties["email"])); email != "" {
			emails = append(emails, email)
		}
	}
	return emails, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	for attempt := 0; attempt <= maxRetries; attempt++ {
		// 控制整体请求节奏
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(requestDelay):
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return err
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			if attempt == maxRetries {
				return fmt.Errorf("hubspot rate limited after %d retries", maxRetries)
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryAfter(resp, attempt)):
			}
			continue
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("hubspot %s %s: status %d: %s", method, path, resp.StatusCode, respBody)
		}
		if out == nil {
			return nil
		}
		return json.Unmarshal(respBody, out)
	}
	return fmt.Errorf("hubspot %s %s: retries exhausted", method, path)
}

func retryAfter(resp *http.Response, attempt int) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if sec, err := strconv.Atoi(v); err == nil && sec > 0 {
			return time.Duration(sec) * time.Second
		}
	}
	return time.Duration(1<<attempt) * time.Second
}
