package fathom

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// 按链接查找时最多翻页数
const maxSearchPages = 30

// Client 录音供应商 API 客户端（列表接口游标分页）
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

func NewClient(apiKey, baseURL string) *Client {
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

type meetingsPage struct {
	Items      []json.RawMessage `json:"items"`
	NextCursor *string           `json:"next_cursor"`
}

func (c *Client) fetchPage(ctx context.Context, cursor string) (*meetingsPage, error) {
	params := url.Values{"include_transcript": {"true"}}
	if cursor != "" {
		params.Set("cursor", cursor)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/meetings?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("fathom api %d: %s", resp.StatusCode, string(body))
	}

	var page meetingsPage
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, err
	}
	return &page, nil
}

// FindByRecordingID 逐页搜索指定 recording_id 的会议，返回原始 JSON
func (c *Client) FindByRecordingID(ctx context.Context, recordingID string) (json.RawMessage, error) {
	cursor := ""
	for {
		page, err := c.fetchPage(ctx, cursor)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Items {
			m, err := ParseMeeting(raw)
			if err != nil {
				continue
			}
			if fmt.Sprintf("%d", m.RecordingID) == recordingID {
				return raw, nil
			}
		}
		if page.NextCursor == nil || *page.NextCursor == "" {
			return nil, nil
		}
		cursor = *page.NextCursor
	}
}

// FindByURL 按分享链接或原始链接查找，最多翻 maxSearchPages 页
func (c *Client) FindByURL(ctx context.Context, target string) (json.RawMessage, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(target), "/")
	cursor := ""

	for i := 0; i < maxSearchPages; i++ {
		page, err := c.fetchPage(ctx, cursor)
		if err != nil {
			return nil, err
		}
		for _, raw := range page.Items {
			m, err := ParseMeeting(raw)
			if err != nil {
				continue
			}
			if strings.TrimRight(m.URL, "/") == trimmed ||
				strings.TrimRight(m.ShareURL, "/") == trimmed {
				return raw, nil
			}
		}
		if page.NextCursor == nil || *page.NextCursor == "" {
			break
		}
		cursor = *page.NextCursor
	}
	return nil, nil
}

// ListAll 拉取全部会议（批量导入用）
func (c *Client) ListAll(ctx context.Context) ([]json.RawMessage, error) {
	var all []json.RawMessage
	cursor := ""
	for {
		page, err := c.fetchPage(ctx, cursor)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Items...)
		if page.NextCursor == nil || *page.NextCursor == "" {
			return all, nil
		}
		cursor = *page.NextCursor
	}
}
