package main

import (
	"github.com/aws/aws-lambda-go/events"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
)

// toSQSEvent adapts polled messages to the Lambda event shape and returns
// receipt handles keyed by message id.
func toSQSEvent(msgs []sqstypes.Message) (events.SQSEvent, map[string]string) {
	ev := events.SQSEvent{Records: make([]events.SQSMessage, 0, len(msgs))}
	handles := make(map[string]string, len(msgs))
	for _, m := range msgs {
		id, body, handle := deref(m.MessageId), deref(m.Body), deref(m.ReceiptHandle)
		attrs := make(map[string]events.SQSMessageAttribute, len(m.MessageAttributes))
		for k, v := range m.MessageAttributes {
			attrs[k] = events.SQSMessageAttribute{DataType: deref(v.DataType), StringValue: v.StringValue}
		}
		ev.Records = append(ev.Records, events.SQSMessage{MessageId: id, Body: body, ReceiptHandle: handle, MessageAttributes: attrs})
		handles[id] = handle
	}
	return ev, handles
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
