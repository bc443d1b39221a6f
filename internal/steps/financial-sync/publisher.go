package financialsync

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	commonaws "deal-wizard/internal/common/aws"
	apperrors "deal-wizard/internal/common/errors"
	"deal-wizard/internal/common/logger"
)

// Publisher delivers design-change events to the financial-modeling
// collaborator.
type Publisher interface {
	Publish(ctx context.Context, evt DesignChanged) error
}

type SNSPublisher struct {
	client   commonaws.SNSService
	topicARN string
	timeout  time.Duration
}

func NewSNSPublisher(client commonaws.SNSService, topicARN string) *SNSPublisher {
	return &SNSPublisher{client: client, topicARN: topicARN}
}

// WithTimeout bounds each publish call.
func (p *SNSPublisher) WithTimeout(d time.Duration) *SNSPublisher {
	p.timeout = d
	return p
}

func (p *SNSPublisher) Publish(ctx context.Context, evt DesignChanged) error {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	body, err := json.Marshal(evt)
	if err != nil {
		return apperrors.NewFinancialSyncFailedError(err)
	}

	_, err = p.client.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Message:  aws.String(string(body)),
		Subject:  aws.String("DesignChanged"),
		MessageAttributes: map[string]types.MessageAttributeValue{
			"eventType": {
				DataType:    aws.String("String"),
				StringValue: aws.String("DesignChanged"),
			},
			"sessionId": {
				DataType:    aws.String("String"),
				StringValue: aws.String(evt.SessionID),
			},
			"revision": {
				DataType:    aws.String("Number"),
				StringValue: aws.String(strconv.FormatInt(evt.Revision, 10)),
			},
			"idempotencyKey": {
				DataType:    aws.String("String"),
				StringValue: aws.String(evt.IdempotencyKey),
			},
		},
	})
	if err != nil {
		return apperrors.NewFinancialSyncFailedError(err)
	}
	return nil
}

// LogPublisher only logs events. Used when SNS is disabled.
type LogPublisher struct {
	logger logger.Logger
}

func NewLogPublisher(log logger.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.ForComponent(log, "financial-sync")}
}

func (p *LogPublisher) Publish(ctx context.Context, evt DesignChanged) error {
	p.logger.Info("Design change event (not published)", map[string]interface{}{
		"sessionId":      evt.SessionID,
		"revision":       evt.Revision,
		"idempotencyKey": evt.IdempotencyKey,
	})
	return nil
}
