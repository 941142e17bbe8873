package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const (
	ChannelCallProgress = "call_progress"
)

// ProgressMessage 进度消息
type ProgressMessage struct {
	Type     string `json:"type"`
	CallID   int64  `json:"call_id"`
	RunID    int64  `json:"run_id"`
	JobID    int64  `json:"job_id"`
	Status   string `json:"status"`
	Step     string `json:"step"`
	Progress int    `json:"progress"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

// 流水线阶段常量
const (
	StepNormalizing = "normalizing"
	StepEnriching   = "enriching"
	StepExtracting  = "extracting"
	StepEvaluating  = "evaluating"
	StepPersisting  = "persisting"
	StepDone        = "done"
)

// 阶段对应的进度百分比
var StepProgress = map[string]int{
	StepNormalizing: 15,
	StepEnriching:   30,
	StepExtracting:  55,
	StepEvaluating:  80,
	StepPersisting:  95,
	StepDone:        100,
}

// 阶段对应的消息
var StepMessages = map[string]string{
	StepNormalizing: "Normalizing transcript",
	StepEnriching:   "Building meeting context",
	StepExtracting:  "Extracting signals",
	StepEvaluating:  "Evaluating qualification",
	StepPersisting:  "Persisting results",
	StepDone:        "Processing complete",
}

// Publisher Redis 发布者
type Publisher struct {
	client *redis.Client
}

// NewPublisher 创建发布者;client 可为 nil,此时发布为空操作
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

// PublishProgress 发布进度消息
func (p *Publisher) PublishProgress(ctx context.Context, msg *ProgressMessage) error {
	if p == nil || p.client == nil {
		return nil
	}
	msg.Type = "job_progress"

	// 自动填充进度和消息
	if msg.Progress == 0 && msg.Step != "" {
		if progress, ok := StepProgress[msg.Step]; ok {
			msg.Progress = progress
		}
	}
	if msg.Message == "" && msg.Step != "" {
		if message, ok := StepMessages[msg.Step]; ok {
			msg.Message = message
		}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal progress message: %w", err)
	}

	return p.client.Publish(ctx, ChannelCallProgress, data).Err()
}

// Subscriber Redis 订阅者
type Subscriber struct {
	client *redis.Client
}

// NewSubscriber 创建订阅者
func NewSubscriber(client *redis.Client) *Subscriber {
	return &Subscriber{client: client}
}

// Subscribe 订阅进度消息,阻塞直到 ctx 取消
func (s *Subscriber) Subscribe(ctx context.Context, handler func(*ProgressMessage)) error {
	pubsub := s.client.Subscribe(ctx, ChannelCallProgress)
	defer pubsub.Close()

	ch := pubsub.Channel()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}

			var progressMsg ProgressMessage
			if err := json.Unmarshal([]byte(msg.Payload), &progressMsg); err != nil {
				continue // 忽略解析错误
			}

			handler(&progressMsg)
		}
	}
}
