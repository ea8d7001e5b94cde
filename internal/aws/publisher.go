package aws

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// AttrEventType is the message attribute consumers route on.
const AttrEventType = "event_type"

// Event is a domain event that can be put on the events queue.
type Event interface {
	// Type is sent as the event_type attribute.
	Type() string
	// GroupKey orders and de-duplicates events on FIFO queues.
	GroupKey() string
	Marshal() (string, error)
}

// Publisher puts domain events on one SQS queue.
type Publisher struct {
	SQS      SQSAPI
	QueueURL string
	fifo     bool
}

// NewPublisher returns a Publisher bound to a queue URL. Queues whose URL
// ends in .fifo get MessageGroupId and MessageDeduplicationId set.
func NewPublisher(sqsClient SQSAPI, queueURL string) *Publisher {
	return &Publisher{
		SQS:      sqsClient,
		QueueURL: queueURL,
		fifo:     strings.HasSuffix(queueURL, ".fifo"),
	}
}

// Publish encodes ev and sends it with its type as a message attribute.
func (p *Publisher) Publish(ctx context.Context, ev Event) error {
	body, err := ev.Marshal()
	if err != nil {
		return fmt.Errorf("encode %s event: %w", ev.Type(), err)
	}

	input := &sqs.SendMessageInput{
		QueueUrl:    &p.QueueURL,
		MessageBody: &body,
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			AttrEventType: {DataType: awsString("String"), StringValue: awsString(ev.Type())},
		},
	}
	if p.fifo {
		key := ev.GroupKey()
		input.MessageGroupId = awsString(key)
		// one event of a type per key, e.g. one booking.confirmed per payment
		input.MessageDeduplicationId = awsString(ev.Type() + ":" + key)
	}

	if _, err := p.SQS.SendMessage(ctx, input); err != nil {
		return fmt.Errorf("send %s event: %w", ev.Type(), err)
	}
	return nil
}

func awsString(s string) *string { return &s }
