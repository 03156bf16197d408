// Package rpcapi is the gRPC-transported contract for the media engine:
// plain Go request/response structs (no protoc-generated bindings — see
// codec.go), the service descriptor wiring them to engine.Engine, and the
// error taxonomy mapping engine failures to gRPC status codes.
package rpcapi

import "google.golang.org/protobuf/types/known/timestamppb"

// AllocatePortRequest asks for a fresh RTP port bound and a session
// started for callID.
type AllocatePortRequest struct {
	CallID string `json:"call_id"`
}

type AllocatePortResponse struct {
	RTPPort uint32 `json:"rtp_port"`
}

type ReleasePortRequest struct {
	RTPPort uint32 `json:"rtp_port"`
}

type ReleasePortResponse struct {
	Success bool `json:"success"`
}

type PlayAudioRequest struct {
	ServerRTPPort uint32 `json:"server_rtp_port"`
	AudioURI      string `json:"audio_uri"`
	RTPTargetAddr string `json:"rtp_target_addr"`
}

type PlayAudioResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type StopAudioRequest struct {
	ServerRTPPort uint32 `json:"server_rtp_port"`
}

type StopAudioResponse struct {
	Success bool `json:"success"`
}

// StartRecordingRequest's SampleRate and Format are advisory only: the
// finalized WAV is always mono 16-bit PCM at 8kHz, per the recording
// pipeline's fixed output contract.
type StartRecordingRequest struct {
	ServerRTPPort uint32 `json:"server_rtp_port"`
	OutputURI     string `json:"output_uri"`
	SampleRate    uint32 `json:"sample_rate,omitempty"`
	Format        string `json:"format,omitempty"`
	CallID        string `json:"call_id"`
	TraceID       string `json:"trace_id"`
}

type StartRecordingResponse struct {
	Success bool `json:"success"`
}

type StopRecordingRequest struct {
	ServerRTPPort uint32 `json:"server_rtp_port"`
}

type StopRecordingResponse struct {
	Success      bool   `json:"success"`
	RecordingURI string `json:"recording_uri"`
}

type RecordAudioRequest struct {
	ServerRTPPort    uint32 `json:"server_rtp_port"`
	TargetSampleRate uint32 `json:"target_sample_rate,omitempty"`
}

// AudioFrame is one chunk streamed back by RecordAudio. CapturedAt uses
// the well-known protobuf timestamp type rather than a plain string/int64
// so the wire shape stays compatible with a future protoc-generated
// client despite the JSON substitution in codec.go.
type AudioFrame struct {
	Bytes      []byte                 `json:"bytes"`
	MediaType  string                 `json:"media_type"`
	CapturedAt *timestamppb.Timestamp `json:"captured_at"`
}

// StreamAudioToCallChunk is one message of the client-streaming
// StreamAudioToCall RPC. The first chunk on a stream must carry CallID;
// an AudioChunk on that first message, if present, is forwarded like any
// other. Every subsequent message carries only AudioChunk.
type StreamAudioToCallChunk struct {
	CallID     string `json:"call_id,omitempty"`
	AudioChunk []byte `json:"audio_chunk,omitempty"`
}

type StreamAudioToCallResponse struct {
	Success bool `json:"success"`
}
