package protocol

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Errors returned by ReadFrame/WriteFrame. Callers branch on these with
// errors.Is, matching the taxonomy in spec §4.A.
var (
	// ErrFraming is returned when reading the frame fails for a reason other
	// than the stream ending, or when the length prefix exceeds maxFrameBytes.
	ErrFraming = errors.New("protocol: framing error")
	// ErrDecode is returned when the payload bytes don't decode to the
	// expected structured message (or name an unknown variant tag).
	ErrDecode = errors.New("protocol: decode error")
	// ErrEOF is returned when the stream ends before a whole frame (length
	// prefix and payload) was read: a partial frame is an error, never a
	// silent truncation.
	ErrEOF = errors.New("protocol: unexpected eof")
)

const maxFrameBytes = 64 << 20 // 64MiB guards against a corrupt length prefix

// ReadFrame reads one length-prefixed frame from r and decodes it as v.
// r should be a *bufio.Reader (or otherwise buffered) so that a slow peer
// writing a frame in multiple syscalls does not produce spurious EOFs.
func ReadFrame(r *bufio.Reader, v any) error {
	var length uint64
	if err := binary.Read(r, binary.BigEndian, &length); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: %v", ErrEOF, err)
		}
		return fmt.Errorf("%w: %v", ErrFraming, err)
	}
	if length > maxFrameBytes {
		return fmt.Errorf("%w: frame of %d bytes exceeds maximum of %d", ErrFraming, length, maxFrameBytes)
	}

	payload := make([]byte, length)
	if _, err := io.ReadFull(r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return fmt.Errorf("%w: %v", ErrEOF, err)
		}
		return fmt.Errorf("%w: %v", ErrFraming, err)
	}

	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return nil
}

// WriteFrame encodes v and writes it to w as one length-prefixed frame.
func WriteFrame(w io.Writer, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDecode, err)
	}

	length := uint64(len(payload))
	if err := binary.Write(w, binary.BigEndian, length); err != nil {
		return fmt.Errorf("io: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("io: %w", err)
	}
	return nil
}

// ReadFollowerMessage reads one FollowerMessage frame.
func ReadFollowerMessage(r *bufio.Reader) (FollowerMessage, error) {
	var msg FollowerMessage
	if err := ReadFrame(r, &msg); err != nil {
		return FollowerMessage{}, err
	}
	if !validFollowerKind(msg.Kind) {
		return FollowerMessage{}, fmt.Errorf("%w: unknown follower message kind %q", ErrDecode, msg.Kind)
	}
	return msg, nil
}

// ReadLeaderReply reads one LeaderReply frame.
func ReadLeaderReply(r *bufio.Reader) (LeaderReply, error) {
	var reply LeaderReply
	if err := ReadFrame(r, &reply); err != nil {
		return LeaderReply{}, err
	}
	if !validLeaderKind(reply.Kind) {
		return LeaderReply{}, fmt.Errorf("%w: unknown leader reply kind %q", ErrDecode, reply.Kind)
	}
	return reply, nil
}

func validFollowerKind(k FollowerMessageKind) bool {
	switch k {
	case KindAddSubgraph, KindUpdateSubgraph, KindRemoveSubgraph, KindGetSubgraphs,
		KindHealthCheck, KindGetVersion, KindShutdown:
		return true
	default:
		return false
	}
}

func validLeaderKind(k LeaderReplyKind) bool {
	switch k {
	case ReplyMessageReceived, ReplyCompositionSuccess, ReplyErrorNotification,
		ReplyLeaderSessionInfo, ReplyGetVersion:
		return true
	default:
		return false
	}
}
