package repository

import (
	"context"
	"time"

	"algojudge/internal/common/mq"
	submodel "algojudge/internal/submission/model"
	pkgerrors "algojudge/pkg/errors"
)

// StatusEventPublisher announces final statuses to other services.
type StatusEventPublisher interface {
	PublishFinalStatus(ctx context.Context, status submodel.StatusSnapshot) error
}

// MQStatusEventPublisher publishes status events to a topic.
type MQStatusEventPublisher struct {
	producer mq.Producer
	topic    string
}

func NewMQStatusEventPublisher(producer mq.Producer, topic string) *MQStatusEventPublisher {
	return &MQStatusEventPublisher{producer: producer, topic: topic}
}

// PublishFinalStatus publishes status keyed by its submission id.
func (p *MQStatusEventPublisher) PublishFinalStatus(ctx context.Context, status submodel.StatusSnapshot) error {
	if p == nil || p.producer == nil {
		return pkgerrors.New(pkgerrors.ServiceUnavailable).WithMessage("status publisher is not configured")
	}
	if p.topic == "" {
		return pkgerrors.New(pkgerrors.InvalidParams).WithMessage("status topic is required")
	}
	if status.SubmissionID == "" {
		return pkgerrors.ValidationError("submission_id", "required")
	}
	payload, err := json.Marshal(submodel.StatusEvent{
		Type:      submodel.StatusEventFinal,
		Status:    status,
		CreatedAt: time.Now().Unix(),
	})
	if err != nil {
		return pkgerrors.Wrapf(err, pkgerrors.InvalidFormat, "marshal status event")
	}
	message := mq.NewMessage(payload)
	message.ID = status.SubmissionID
	if err := p.producer.Publish(ctx, p.topic, message); err != nil {
		return pkgerrors.Wrapf(err, pkgerrors.QueueError, "publish status event failed")
	}
	return nil
}
