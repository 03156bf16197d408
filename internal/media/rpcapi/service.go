package rpcapi

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/sentiric/media-engine/internal/media/engine"
)

// MediaServiceServer is the hand-written equivalent of a protoc-generated
// server interface: one method per unary RPC, plus the two streaming
// signatures below. No .proto/.pb.go exists for this service (see
// codec.go) — this interface and the ServiceDesc further down are the
// entire substitute for codegen.
type MediaServiceServer interface {
	AllocatePort(context.Context, *AllocatePortRequest) (*AllocatePortResponse, error)
	ReleasePort(context.Context, *ReleasePortRequest) (*ReleasePortResponse, error)
	PlayAudio(context.Context, *PlayAudioRequest) (*PlayAudioResponse, error)
	StopAudio(context.Context, *StopAudioRequest) (*StopAudioResponse, error)
	StartRecording(context.Context, *StartRecordingRequest) (*StartRecordingResponse, error)
	StopRecording(context.Context, *StopRecordingRequest) (*StopRecordingResponse, error)
	RecordAudio(*RecordAudioRequest, MediaService_RecordAudioServer) error
	StreamAudioToCall(MediaService_StreamAudioToCallServer) error
}

// MediaService_RecordAudioServer is the server-streaming handle RecordAudio
// sends AudioFrame messages over.
type MediaService_RecordAudioServer interface {
	Send(*AudioFrame) error
	grpc.ServerStream
}

type mediaServiceRecordAudioServer struct{ grpc.ServerStream }

func (x *mediaServiceRecordAudioServer) Send(m *AudioFrame) error { return x.ServerStream.SendMsg(m) }

// MediaService_StreamAudioToCallServer is the client-streaming handle
// StreamAudioToCall reads chunks from and replies on once, at close.
type MediaService_StreamAudioToCallServer interface {
	SendAndClose(*StreamAudioToCallResponse) error
	Recv() (*StreamAudioToCallChunk, error)
	grpc.ServerStream
}

type mediaServiceStreamAudioToCallServer struct{ grpc.ServerStream }

func (x *mediaServiceStreamAudioToCallServer) SendAndClose(m *StreamAudioToCallResponse) error {
	return x.ServerStream.SendMsg(m)
}

func (x *mediaServiceStreamAudioToCallServer) Recv() (*StreamAudioToCallChunk, error) {
	m := new(StreamAudioToCallChunk)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func _MediaService_AllocatePort_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(AllocatePortRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MediaServiceServer).AllocatePort(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/sentiric.media.v1.MediaService/AllocatePort"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MediaServiceServer).AllocatePort(ctx, req.(*AllocatePortRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _MediaService_ReleasePort_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ReleasePortRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MediaServiceServer).ReleasePort(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/sentiric.media.v1.MediaService/ReleasePort"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MediaServiceServer).ReleasePort(ctx, req.(*ReleasePortRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _MediaService_PlayAudio_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(PlayAudioRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MediaServiceServer).PlayAudio(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/sentiric.media.v1.MediaService/PlayAudio"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MediaServiceServer).PlayAudio(ctx, req.(*PlayAudioRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _MediaService_StopAudio_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(StopAudioRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MediaServiceServer).StopAudio(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/sentiric.media.v1.MediaService/StopAudio"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MediaServiceServer).StopAudio(ctx, req.(*StopAudioRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _MediaService_StartRecording_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(StartRecordingRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MediaServiceServer).StartRecording(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/sentiric.media.v1.MediaService/StartRecording"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MediaServiceServer).StartRecording(ctx, req.(*StartRecordingRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _MediaService_StopRecording_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(StopRecordingRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(MediaServiceServer).StopRecording(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/sentiric.media.v1.MediaService/StopRecording"}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(MediaServiceServer).StopRecording(ctx, req.(*StopRecordingRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _MediaService_RecordAudio_Handler(srv interface{}, stream grpc.ServerStream) error {
	in := new(RecordAudioRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(MediaServiceServer).RecordAudio(in, &mediaServiceRecordAudioServer{stream})
}

func _MediaService_StreamAudioToCall_Handler(srv interface{}, stream grpc.ServerStream) error {
	return srv.(MediaServiceServer).StreamAudioToCall(&mediaServiceStreamAudioToCallServer{stream})
}

// MediaService_ServiceDesc is the hand-assembled equivalent of the
// grpc.ServiceDesc protoc-gen-go-grpc would emit from a .proto file.
var MediaService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "sentiric.media.v1.MediaService",
	HandlerType: (*MediaServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "AllocatePort", Handler: _MediaService_AllocatePort_Handler},
		{MethodName: "ReleasePort", Handler: _MediaService_ReleasePort_Handler},
		{MethodName: "PlayAudio", Handler: _MediaService_PlayAudio_Handler},
		{MethodName: "StopAudio", Handler: _MediaService_StopAudio_Handler},
		{MethodName: "StartRecording", Handler: _MediaService_StartRecording_Handler},
		{MethodName: "StopRecording", Handler: _MediaService_StopRecording_Handler},
	},
	Streams: []grpc.StreamDesc{
		{StreamName: "RecordAudio", Handler: _MediaService_RecordAudio_Handler, ServerStreams: true},
		{StreamName: "StreamAudioToCall", Handler: _MediaService_StreamAudioToCall_Handler, ClientStreams: true},
	},
	Metadata: "sentiric/media/v1/media.proto",
}

// RegisterMediaServiceServer wires srv into s the same way generated code
// would call grpc.ServiceRegistrar.RegisterService.
func RegisterMediaServiceServer(s grpc.ServiceRegistrar, srv MediaServiceServer) {
	s.RegisterService(&MediaService_ServiceDesc, srv)
}

// Server implements MediaServiceServer against an *engine.Engine,
// translating RPC requests into engine calls and engine errors into gRPC
// statuses via toStatus.
type Server struct {
	Engine *engine.Engine
}

func NewServer(e *engine.Engine) *Server { return &Server{Engine: e} }

func (s *Server) AllocatePort(ctx context.Context, req *AllocatePortRequest) (*AllocatePortResponse, error) {
	port, err := s.Engine.AllocatePort(ctx, req.CallID)
	if err != nil {
		slog.Error("rpcapi: AllocatePort failed", "call_id", maskPII(req.CallID), "error", err)
		return nil, toStatus(errPortPoolExhausted())
	}
	slog.Info("rpcapi: AllocatePort succeeded", "call_id", maskPII(req.CallID), "port", port)
	return &AllocatePortResponse{RTPPort: uint32(port)}, nil
}

func (s *Server) ReleasePort(ctx context.Context, req *ReleasePortRequest) (*ReleasePortResponse, error) {
	s.Engine.ReleasePort(uint16(req.RTPPort))
	return &ReleasePortResponse{Success: true}, nil
}

func (s *Server) PlayAudio(ctx context.Context, req *PlayAudioRequest) (*PlayAudioResponse, error) {
	target, err := net.ResolveUDPAddr("udp", req.RTPTargetAddr)
	if err != nil {
		return nil, toStatus(errInvalidTargetAddress(req.RTPTargetAddr, err))
	}
	if err := s.Engine.PlayAudio(ctx, uint16(req.ServerRTPPort), req.AudioURI, target); err != nil {
		if err == engine.ErrSessionNotFound {
			return nil, toStatus(errSessionNotFound(req.ServerRTPPort))
		}
		return nil, toStatus(errCommandSendFailed(err.Error()))
	}
	return &PlayAudioResponse{Success: true, Message: "Playback queued"}, nil
}

func (s *Server) StopAudio(ctx context.Context, req *StopAudioRequest) (*StopAudioResponse, error) {
	if err := s.Engine.StopAudio(uint16(req.ServerRTPPort)); err != nil {
		return nil, toStatus(errSessionNotFound(req.ServerRTPPort))
	}
	return &StopAudioResponse{Success: true}, nil
}

func (s *Server) StartRecording(ctx context.Context, req *StartRecordingRequest) (*StartRecordingResponse, error) {
	traceID := req.TraceID
	if traceID == "" {
		// callers aren't required to supply a trace id; mint one so the
		// recording's lifecycle (staged -> uploaded -> event published)
		// stays correlatable end to end.
		traceID = uuid.NewString()
	}
	if err := s.Engine.StartRecording(uint16(req.ServerRTPPort), req.OutputURI, traceID); err != nil {
		return nil, toStatus(errSessionNotFound(req.ServerRTPPort))
	}
	slog.Info("rpcapi: recording started", "port", req.ServerRTPPort, "call_id", maskPII(req.CallID), "trace_id", traceID, "output_uri", req.OutputURI)
	return &StartRecordingResponse{Success: true}, nil
}

func (s *Server) StopRecording(ctx context.Context, req *StopRecordingRequest) (*StopRecordingResponse, error) {
	uri, err := s.Engine.StopRecording(ctx, uint16(req.ServerRTPPort))
	if err != nil {
		return nil, toStatus(errRecordingSaveFailed(err))
	}
	return &StopRecordingResponse{Success: true, RecordingURI: uri}, nil
}

func (s *Server) RecordAudio(req *RecordAudioRequest, stream MediaService_RecordAudioServer) error {
	port := uint16(req.ServerRTPPort)
	frames, err := s.Engine.RecordAudio(port, int(req.TargetSampleRate))
	if err != nil {
		return toStatus(errSessionNotFound(req.ServerRTPPort))
	}
	defer s.Engine.StopLiveStream(port)

	ctx := stream.Context()
	for {
		select {
		case frame, ok := <-frames:
			if !ok {
				return nil
			}
			wireFrame := &AudioFrame{
				Bytes:      int16SamplesToBytes(frame.PCM),
				MediaType:  frame.MediaType,
				CapturedAt: timestamppb.New(time.Now()),
			}
			if err := stream.Send(wireFrame); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Server) StreamAudioToCall(stream MediaService_StreamAudioToCallServer) error {
	first, err := stream.Recv()
	if err != nil {
		return err
	}
	if first.CallID == "" {
		return toStatus(errInvalidURI("missing call_id on first StreamAudioToCall message"))
	}

	port, err := s.Engine.ResolveCallID(first.CallID)
	if err != nil {
		return toStatus(errSessionNotFound(0))
	}

	pcm := make(chan []byte, 8)
	if err := s.Engine.StreamAudioToCall(port, pcm); err != nil {
		return toStatus(errSessionNotFound(uint32(port)))
	}
	defer s.Engine.StopOutboundStream(port)

	if len(first.AudioChunk) > 0 {
		pcm <- first.AudioChunk
	}
	for {
		chunk, err := stream.Recv()
		if err != nil {
			close(pcm)
			return stream.SendAndClose(&StreamAudioToCallResponse{Success: true})
		}
		pcm <- chunk.AudioChunk
	}
}

func int16SamplesToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}
