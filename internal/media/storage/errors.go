package storage

import (
	"bytes"
	"fmt"
	"io"
)

func bytesReader(data []byte) io.Reader {
	return bytes.NewReader(data)
}

// ErrRecordingSaveFailed wraps any failure writing a finalized recording.
// The RPC layer inspects the wrapped AWS error's message for the
// NoSuchBucket/AccessDenied substrings to choose between
// failed_precondition, permission_denied, and a generic internal status;
// storage itself stays agnostic to gRPC status codes.
var ErrRecordingSaveFailed = fmt.Errorf("storage: recording save failed")

func classifyS3Error(bucket string, err error) error {
	return fmt.Errorf("%w: bucket %q: %v", ErrRecordingSaveFailed, bucket, err)
}
