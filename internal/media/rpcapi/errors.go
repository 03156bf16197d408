package rpcapi

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/sentiric/media-engine/internal/media/engine"
	"github.com/sentiric/media-engine/internal/media/storage"
)

// ServiceError is the engine-facing error type every RPC handler maps to
// a gRPC status through toStatus. Handlers construct these directly
// rather than returning *status.Status themselves, keeping the status
// code mapping in one place.
type ServiceError struct {
	Kind serviceErrorKind
	Msg  string
	Port uint32
}

type serviceErrorKind int

const (
	kindInternal serviceErrorKind = iota
	kindPortPoolExhausted
	kindSessionNotFound
	kindInvalidURI
	kindInvalidTargetAddress
	kindCommandSendFailed
	kindRecordingSaveFailed
)

func (e *ServiceError) Error() string { return e.Msg }

func errPortPoolExhausted() error {
	return &ServiceError{Kind: kindPortPoolExhausted, Msg: "available RTP port pool is exhausted"}
}

func errSessionNotFound(port uint32) error {
	return &ServiceError{Kind: kindSessionNotFound, Port: port, Msg: fmt.Sprintf("active session not found for port %d", port)}
}

func errInvalidURI(uri string) error {
	return &ServiceError{Kind: kindInvalidURI, Msg: fmt.Sprintf("unsupported or invalid URI scheme: %s", uri)}
}

func errInvalidTargetAddress(addr string, cause error) error {
	return &ServiceError{Kind: kindInvalidTargetAddress, Msg: fmt.Sprintf("invalid target RTP address format %q: %v", addr, cause)}
}

func errCommandSendFailed(msg string) error {
	return &ServiceError{Kind: kindCommandSendFailed, Msg: msg}
}

func errRecordingSaveFailed(cause error) error {
	return &ServiceError{Kind: kindRecordingSaveFailed, Msg: fmt.Sprintf("failed to finalize and save recording: %v", cause)}
}

// toStatus maps err to a gRPC status, classifying engine- and
// storage-level failures into the richest status code a caller can act
// on. Unrecognized errors collapse to Internal, with the detail logged
// server-side rather than leaked to the caller.
func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, engine.ErrSessionNotFound) {
		return status.Error(codes.NotFound, err.Error())
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		switch svcErr.Kind {
		case kindPortPoolExhausted:
			return status.Error(codes.ResourceExhausted, svcErr.Msg)
		case kindSessionNotFound:
			return status.Error(codes.NotFound, svcErr.Msg)
		case kindInvalidURI, kindInvalidTargetAddress:
			return status.Error(codes.InvalidArgument, svcErr.Msg)
		case kindRecordingSaveFailed:
			return classifyRecordingFailure(svcErr.Msg)
		case kindCommandSendFailed:
			slog.Error("rpcapi: command send failed", "error", svcErr.Msg)
			return status.Error(codes.Internal, "an internal error occurred")
		default:
			slog.Error("rpcapi: internal service error", "error", svcErr.Msg)
			return status.Error(codes.Internal, "an internal error occurred")
		}
	}

	if errors.Is(err, storage.ErrRecordingSaveFailed) {
		return classifyRecordingFailure(err.Error())
	}

	slog.Error("rpcapi: unclassified error", "error", err)
	return status.Error(codes.Internal, "an internal error occurred")
}

// classifyRecordingFailure inspects the lowercased failure message for
// well-known S3 failure substrings, surfacing a more actionable status
// code than a blanket Internal when the cause is a misconfigured bucket
// or missing write permission.
func classifyRecordingFailure(msg string) error {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "nosuchbucket"):
		return status.Error(codes.FailedPrecondition, fmt.Sprintf("recording destination (S3 bucket) not found or not configured: %s", msg))
	case strings.Contains(lower, "accessdenied"):
		return status.Error(codes.PermissionDenied, fmt.Sprintf("no permission to write to S3 bucket: %s", msg))
	default:
		slog.Error("rpcapi: internal recording failure", "error", msg)
		return status.Error(codes.Internal, "an internal error occurred while saving the recording")
	}
}
