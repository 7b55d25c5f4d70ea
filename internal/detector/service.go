package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync/atomic"
	"time"
)

// service is a long-running landmark process spoken to over its stdin and stdout.
// Each request is a 4-byte big-endian length and a JPEG; each reply is one JSON line.
type service struct {
	cmd *exec.Cmd
	in  io.WriteCloser
	out *bufio.Reader
}

// startService launches name with args. Its stderr is passed through to ours.
func startService(name string, args ...string) (*service, error) {
	cmd := exec.Command(name, args...)
	cmd.Stderr = os.Stderr

	in, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("landmark service stdin: %w", err)
	}
	out, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("landmark service stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start landmark service: %w", err)
	}
	return &service{cmd: cmd, in: in, out: bufio.NewReader(out)}, nil
}

// pid returns the process id of the running service.
func (s *service) pid() int {
	return s.cmd.Process.Pid
}

// exchange sends one JPEG and returns the raw reply line. If no reply arrives within
// timeout the process is killed and ErrServiceTimeout is returned; the service is then
// unusable and must be stopped.
func (s *service) exchange(jpeg []byte, timeout time.Duration) ([]byte, error) {
	var expired atomic.Bool
	timer := time.AfterFunc(timeout, func() {
		expired.Store(true)
		s.cmd.Process.Kill()
	})
	defer timer.Stop()

	if err := writeFrame(s.in, jpeg); err != nil {
		if expired.Load() {
			return nil, fmt.Errorf("%w after %v", ErrServiceTimeout, timeout)
		}
		return nil, err
	}
	line, err := s.out.ReadBytes('\n')
	if err != nil {
		if expired.Load() {
			return nil, fmt.Errorf("%w after %v", ErrServiceTimeout, timeout)
		}
		return nil, fmt.Errorf("read landmark reply: %w", err)
	}
	return line, nil
}

// stop closes stdin, which the service treats as end of input, and waits for it to exit.
func (s *service) stop() error {
	s.in.Close()
	return s.cmd.Wait()
}

// writeFrame writes the length prefix and payload in a single write.
func writeFrame(w io.Writer, jpeg []byte) error {
	buf := make([]byte, 4+len(jpeg))
	binary.BigEndian.PutUint32(buf, uint32(len(jpeg)))
	copy(buf[4:], jpeg)
	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

type wireHand struct {
	Points     []Point3D `json:"points"`
	Handedness string    `json:"handedness"`
	Score      float64   `json:"score"`
}

type wireReply struct {
	Hands []wireHand `json:"hands"`
}

// parseResponse decodes one reply line, keeping at most maxHands hands.
// A hand without exactly NumLandmarks points fails with ErrMalformedHand.
func parseResponse(line []byte, maxHands int) (FrameDetection, error) {
	var reply wireReply
	if err := json.Unmarshal(line, &reply); err != nil {
		return nil, fmt.Errorf("decode landmark reply: %w", err)
	}

	hands := reply.Hands
	if maxHands > 0 && len(hands) > maxHands {
		hands = hands[:maxHands]
	}

	det := make(FrameDetection, len(hands))
	for i, h := range hands {
		if len(h.Points) != NumLandmarks {
			return nil, fmt.Errorf("%w: hand %d has %d landmarks, want %d", ErrMalformedHand, i, len(h.Points), NumLandmarks)
		}
		det[i].Handedness = h.Handedness
		det[i].Score = h.Score
		copy(det[i].Points[:], h.Points)
	}
	return det, nil
}
