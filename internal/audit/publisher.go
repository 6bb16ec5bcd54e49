package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sing3demons/authgateway/pkg/logAction"
	"github.com/sing3demons/authgateway/pkg/logger"
	"github.com/sing3demons/authgateway/pkg/mlog"
)

type Publisher interface {
	Publish(ctx context.Context, key string, value []byte, headers map[string]string) error
	Topic() string
}

type KafkaPublisher struct {
	producer Publisher
}

func NewKafkaPublisher(p Publisher) *KafkaPublisher {
	return &KafkaPublisher{producer: p}
}

func (k *KafkaPublisher) Record(ctx context.Context, e Event) {
	log := mlog.L(ctx)
	masking := []logger.MaskingRule{{Field: "email", Type: logger.MaskingTypeEmail}}

	body, err := json.Marshal(e)
	if err != nil {
		log.Error(logAction.EXCEPTION("audit event encode failed"), err.Error())
		return
	}

	log.Debug(logAction.PRODUCE(k.producer.Topic(), string(e.Type)), e, masking...)
	start := time.Now()
	err = k.producer.Publish(ctx, e.key(), body, map[string]string{
		"event-type":     string(e.Type),
		"transaction-id": log.TransactionID(),
	})

	meta := logger.DependencyMetadata{
		Dependency:   k.producer.Topic(),
		ResponseTime: time.Since(start).Milliseconds(),
		ResultFlag:   "success",
	}
	if err != nil {
		meta.ResultFlag = "fail"
		log.SetDependencyMetadata(meta).Error(logAction.EXCEPTION("audit publish failed", string(e.Type)), err.Error())
		return
	}
	log.SetDependencyMetadata(meta).Debug(logAction.PRODUCE(k.producer.Topic(), "produced"), map[string]any{"id": e.ID})
}
