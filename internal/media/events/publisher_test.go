package events

import (
	"context"
	"testing"
	"time"
)

func TestNoopPublisherDiscardsSilently(t *testing.T) {
	var p Publisher = NoopPublisher{}
	evt := RecordingAvailable{
		EventType:    "call.recording.available",
		TraceID:      "trace-1",
		CallID:       "call-1",
		RecordingURI: "s3://sentiric/recordings/call-1.wav",
		Timestamp:    time.Now(),
	}
	if err := p.PublishRecordingAvailable(context.Background(), evt); err != nil {
		t.Fatalf("PublishRecordingAvailable: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
