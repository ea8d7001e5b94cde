package aws

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSQS struct {
	sent []*sqs.SendMessageInput
	err  error
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.sent = append(f.sent, params)
	return &sqs.SendMessageOutput{}, nil
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
}

func (f *fakeCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, params)
	return &cloudwatch.PutMetricDataOutput{}, nil
}

type testEvent struct {
	kind, key string
	err       error
}

func (e testEvent) Type() string     { return e.kind }
func (e testEvent) GroupKey() string { return e.key }
func (e testEvent) Marshal() (string, error) {
	if e.err != nil {
		return "", e.err
	}
	return `{"payment_id":"` + e.key + `"}`, nil
}

func TestPublisher_Publish(t *testing.T) {
	q := &fakeSQS{}
	p := NewPublisher(q, "https://sqs.local/queue")

	err := p.Publish(context.Background(), testEvent{kind: "booking.confirmed", key: "P1"})
	require.NoError(t, err)
	require.Len(t, q.sent, 1)

	msg := q.sent[0]
	assert.Equal(t, "https://sqs.local/queue", *msg.QueueUrl)
	assert.Equal(t, `{"payment_id":"P1"}`, *msg.MessageBody)
	assert.Equal(t, "booking.confirmed", *msg.MessageAttributes[AttrEventType].StringValue)
	assert.Nil(t, msg.MessageGroupId, "standard queues take no group id")
}

func TestPublisher_PublishFIFO(t *testing.T) {
	q := &fakeSQS{}
	p := NewPublisher(q, "https://sqs.local/bookings.fifo")

	require.NoError(t, p.Publish(context.Background(), testEvent{kind: "booking.confirmed", key: "P1"}))
	require.Len(t, q.sent, 1)
	assert.Equal(t, "P1", *q.sent[0].MessageGroupId)
	assert.Equal(t, "booking.confirmed:P1", *q.sent[0].MessageDeduplicationId)
}

func TestPublisher_PublishErrors(t *testing.T) {
	p := NewPublisher(&fakeSQS{err: errors.New("throttled")}, "q")
	err := p.Publish(context.Background(), testEvent{kind: "booking.confirmed", key: "P1"})
	assert.ErrorContains(t, err, "throttled")

	q := &fakeSQS{}
	err = NewPublisher(q, "q").Publish(context.Background(), testEvent{kind: "booking.confirmed", err: errors.New("bad")})
	assert.ErrorContains(t, err, "encode booking.confirmed event")
	assert.Empty(t, q.sent)
}

func TestMetricsEmitter_Count(t *testing.T) {
	cw := &fakeCloudWatch{}
	m := NewMetricsEmitter(cw, "PaidBookings")
	m.nowFunc = func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

	require.NoError(t, m.Count(context.Background(), "DuplicatePaymentIdentifiers", 2, map[string]string{"Source": "sentinel"}))
	require.Len(t, cw.inputs, 1)

	in := cw.inputs[0]
	assert.Equal(t, "PaidBookings", *in.Namespace)
	require.Len(t, in.MetricData, 1)
	assert.Equal(t, "DuplicatePaymentIdentifiers", *in.MetricData[0].MetricName)
	assert.Equal(t, 2.0, *in.MetricData[0].Value)
	require.Len(t, in.MetricData[0].Dimensions, 1)
	assert.Equal(t, "sentinel", *in.MetricData[0].Dimensions[0].Value)
}
