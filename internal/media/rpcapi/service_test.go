package rpcapi

import (
	"context"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/sentiric/media-engine/internal/media/engine"
	"github.com/sentiric/media-engine/internal/media/events"
	"github.com/sentiric/media-engine/internal/media/storage"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	e := engine.New(engine.Config{
		RTPHost:       "127.0.0.1",
		PortMin:       31000,
		PortMax:       31020,
		QuarantineFor: 10 * time.Millisecond,
		StagingDir:    dir,
		AudioBaseDir:  dir,
	}, storage.New(storage.Config{}), events.NoopPublisher{})
	return NewServer(e)
}

func TestAllocatePortThenPlayAudioInvalidTarget(t *testing.T) {
	s := testServer(t)
	ctx := context.Background()

	allocResp, err := s.AllocatePort(ctx, &AllocatePortRequest{CallID: "call-x"})
	if err != nil {
		t.Fatalf("AllocatePort: %v", err)
	}

	_, err = s.PlayAudio(ctx, &PlayAudioRequest{
		ServerRTPPort: allocResp.RTPPort,
		AudioURI:      "file://missing.wav",
		RTPTargetAddr: "not-an-address",
	})
	if status.Code(err) != codes.InvalidArgument {
		t.Fatalf("PlayAudio with malformed target = %v, want InvalidArgument", err)
	}
}

func TestPlayAudioUnknownPortReturnsNotFound(t *testing.T) {
	s := testServer(t)
	_, err := s.PlayAudio(context.Background(), &PlayAudioRequest{
		ServerRTPPort: 9999,
		AudioURI:      "file://missing.wav",
		RTPTargetAddr: "127.0.0.1:5000",
	})
	if status.Code(err) != codes.NotFound {
		t.Fatalf("PlayAudio on unknown port = %v, want NotFound", err)
	}
}

func TestReleasePortIsIdempotent(t *testing.T) {
	s := testServer(t)
	resp, err := s.ReleasePort(context.Background(), &ReleasePortRequest{RTPPort: 123})
	if err != nil || !resp.Success {
		t.Fatalf("ReleasePort on never-allocated port = (%v, %v), want success", resp, err)
	}
}

func TestStartThenStopRecordingReturnsOutputURI(t *testing.T) {
	s := testServer(t)
	ctx := context.Background()

	allocResp, err := s.AllocatePort(ctx, &AllocatePortRequest{CallID: "call-rec"})
	if err != nil {
		t.Fatalf("AllocatePort: %v", err)
	}
	defer s.ReleasePort(ctx, &ReleasePortRequest{RTPPort: allocResp.RTPPort})

	outputURI := "file://" + t.TempDir() + "/out.wav"
	if _, err := s.StartRecording(ctx, &StartRecordingRequest{
		ServerRTPPort: allocResp.RTPPort,
		OutputURI:     outputURI,
		CallID:        "call-rec",
		TraceID:       "trace-rec",
	}); err != nil {
		t.Fatalf("StartRecording: %v", err)
	}

	stopResp, err := s.StopRecording(ctx, &StopRecordingRequest{ServerRTPPort: allocResp.RTPPort})
	if err != nil {
		t.Fatalf("StopRecording: %v", err)
	}
	if !stopResp.Success || stopResp.RecordingURI != outputURI {
		t.Fatalf("StopRecording response = %+v, want Success=true RecordingURI=%q", stopResp, outputURI)
	}
}

func TestStopRecordingWithNoActiveRecordingFails(t *testing.T) {
	s := testServer(t)
	ctx := context.Background()

	allocResp, err := s.AllocatePort(ctx, &AllocatePortRequest{CallID: "call-norec"})
	if err != nil {
		t.Fatalf("AllocatePort: %v", err)
	}
	defer s.ReleasePort(ctx, &ReleasePortRequest{RTPPort: allocResp.RTPPort})

	if _, err := s.StopRecording(ctx, &StopRecordingRequest{ServerRTPPort: allocResp.RTPPort}); err == nil {
		t.Fatal("StopRecording with no active recording should fail")
	}
}

func TestClassifyRecordingFailure(t *testing.T) {
	cases := []struct {
		msg  string
		code codes.Code
	}{
		{"storage: recording save failed: bucket \"x\": NoSuchBucket: the bucket does not exist", codes.FailedPrecondition},
		{"storage: recording save failed: bucket \"x\": AccessDenied", codes.PermissionDenied},
		{"storage: recording save failed: bucket \"x\": some other transient error", codes.Internal},
	}
	for _, c := range cases {
		err := classifyRecordingFailure(c.msg)
		if status.Code(err) != c.code {
			t.Errorf("classifyRecordingFailure(%q) code = %v, want %v", c.msg, status.Code(err), c.code)
		}
	}
}
