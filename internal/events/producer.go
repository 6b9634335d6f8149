// Package events publishes media lifecycle events for the rest of the
// platform (the CRUD services consume these to refresh their views).
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	TypeRenditionReady     = "media.rendition.ready"
	TypeJobFailed          = "media.job.failed"
	TypePostApproved       = "media.post.approved"
	TypeModerationRejected = "media.moderation.rejected"
)

// Event is the wire payload; unset fields are omitted.
type Event struct {
	Type    string   `json:"type"`
	PostID  string   `json:"post_id,omitempty"`
	AssetID string   `json:"asset_id,omitempty"`
	JobID   string   `json:"job_id,omitempty"`
	Labels  []string `json:"labels,omitempty"`
	At      int64    `json:"at"`
}

type Producer struct {
	writer *kafka.Writer
	topic  string
}

func NewProducer(brokers []string, topic string) *Producer {
	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:  brokers,
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	})
	return &Producer{writer: w, topic: topic}
}

// Publish keys messages by post id so per-post ordering is preserved.
func (p *Producer) Publish(ctx context.Context, ev Event) error {
	if ev.At == 0 {
		ev.At = time.Now().Unix()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.PostID),
		Value: b,
		Time:  time.Now(),
	})
}

func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
