package session

import (
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/pion/rtp"

	"golang.org/x/sync/semaphore"

	"github.com/sentiric/media-engine/internal/media/audiocache"
	"github.com/sentiric/media-engine/internal/media/codec"
	"github.com/sentiric/media-engine/internal/media/portpool"
	"github.com/sentiric/media-engine/internal/media/wavcodec"
)

func testDeps(t *testing.T) Deps {
	t.Helper()
	dir := t.TempDir()
	return Deps{
		Pool:         portpool.New(20000, 20010, time.Minute),
		AudioCache:   audiocache.New(dir),
		StagingDir:   dir,
		BlockingWork: semaphore.NewWeighted(8),
	}
}

func newTestSession(t *testing.T) (*Session, net.PacketConn) {
	t.Helper()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket: %v", err)
	}
	port := uint16(conn.LocalAddr().(*net.UDPAddr).Port)
	sess := New(port, "call-test", conn, testDeps(t))
	go sess.Run()
	return sess, conn
}

func sendRTPFrame(t *testing.T, from net.PacketConn, to net.Addr, seq uint16, samples []int16) {
	t.Helper()
	payload := codec.Encode(codec.CodecPCMU, samples)
	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    codec.CodecPCMU.PayloadType,
			SequenceNumber: seq,
			Timestamp:      uint32(seq) * 160,
			SSRC:           0xCAFEBABE,
		},
		Payload: payload,
	}
	buf, err := pkt.Marshal()
	if err != nil {
		t.Fatalf("marshal rtp: %v", err)
	}
	if _, err := from.WriteTo(buf, to); err != nil {
		t.Fatalf("write rtp: %v", err)
	}
}

func TestSessionLatchesRemoteAndFansOutLiveAudio(t *testing.T) {
	sess, conn := newTestSession(t)
	defer conn.Close()

	phone, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket: %v", err)
	}
	defer phone.Close()

	frames := make(chan AudioFrame, 16)
	sess.Commands() <- StartLiveStreamCmd{TargetSampleRate: 16000, Frames: frames}

	samples := make([]int16, 160)
	for i := range samples {
		samples[i] = int16(i)
	}
	sendRTPFrame(t, phone, conn.LocalAddr(), 1, samples)

	select {
	case frame := <-frames:
		if len(frame.PCM) == 0 {
			t.Fatal("received empty audio frame")
		}
		if !strings.Contains(frame.MediaType, "audio/l16;rate=16000") {
			t.Errorf("media type = %q, want audio/l16;rate=16000", frame.MediaType)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fanned-out live audio frame")
	}

	done := make(chan error, 1)
	sess.Commands() <- ShutdownCmd{}
	select {
	case <-sess.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("session did not shut down")
	}
	_ = done

	// Run has returned, so reading the latched endpoint no longer races.
	if sess.remote == nil || sess.remote.String() != phone.LocalAddr().String() {
		t.Errorf("latched remote = %v, want %v", sess.remote, phone.LocalAddr())
	}
}

func silentWAVFile(t *testing.T, dir, name string) string {
	t.Helper()
	path := dir + "/" + name
	data, err := wavcodec.Encode(make([]int16, 160), 8000)
	if err != nil {
		t.Fatalf("encode wav: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write wav: %v", err)
	}
	return path
}

func TestSessionPlaybackQueueDoesNotInterleave(t *testing.T) {
	deps := testDeps(t)
	wavPath := silentWAVFile(t, deps.StagingDir, "tone.wav")

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket: %v", err)
	}
	defer conn.Close()
	port := uint16(conn.LocalAddr().(*net.UDPAddr).Port)
	sess := New(port, "call-queue", conn, deps)
	go sess.Run()

	target, err := net.ResolveUDPAddr("udp", "127.0.0.1:19999")
	if err != nil {
		t.Fatalf("ResolveUDPAddr: %v", err)
	}

	done1 := make(chan error, 1)
	done2 := make(chan error, 1)
	sess.Commands() <- PlayAudioCmd{AudioURI: "file://" + wavPath, TargetAddr: target, Done: done1}
	sess.Commands() <- PlayAudioCmd{AudioURI: "file://" + wavPath, TargetAddr: target, Done: done2}

	select {
	case <-done2:
		t.Fatal("second playback completed before the first — queue ordering violated")
	case <-done1:
	case <-time.After(3 * time.Second):
		t.Fatal("first playback never completed")
	}

	select {
	case <-done2:
	case <-time.After(3 * time.Second):
		t.Fatal("second playback never started after the first finished")
	}

	sess.Commands() <- ShutdownCmd{}
	<-sess.Done()
}

func TestSessionRecordingRoundTrip(t *testing.T) {
	sess, conn := newTestSession(t)
	defer conn.Close()

	phone, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("ListenPacket: %v", err)
	}
	defer phone.Close()

	sess.Commands() <- StartRecordingCmd{OutputURI: "file://" + sess.deps.StagingDir + "/out.wav", TraceID: "trace-1"}

	samples := make([]int16, 160)
	for i := 0; i < 10; i++ {
		sendRTPFrame(t, phone, conn.LocalAddr(), uint16(i), samples)
		time.Sleep(5 * time.Millisecond)
	}

	stopDone := make(chan StopRecordingResult, 1)
	sess.Commands() <- StopRecordingCmd{Done: stopDone}

	select {
	case result := <-stopDone:
		if result.Err != nil {
			t.Fatalf("StopRecording failed: %v", result.Err)
		}
		if result.RecordingURI == "" {
			t.Error("expected a non-empty recording URI")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("StopRecording never completed")
	}

	sess.Commands() <- ShutdownCmd{}
	<-sess.Done()
}
