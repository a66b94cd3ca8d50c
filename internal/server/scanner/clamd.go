package scanner

import (
	"bufio"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
)

const chunkSize = 64 << 10

// Clamd talks to a clamd daemon over TCP using the INSTREAM command.
type Clamd struct {
	Addr string
	dial func(ctx context.Context, network, addr string) (net.Conn, error)
}

func NewClamd(addr string) *Clamd {
	var d net.Dialer
	return &Clamd{Addr: addr, dial: d.DialContext}
}

func (c *Clamd) Scan(ctx context.Context, r io.Reader) (Result, error) {
	conn, err := c.dial(ctx, "tcp", c.Addr)
	if err != nil {
		return Result{}, fmt.Errorf("clamd dial: %w", err)
	}
	defer conn.Close()

	// closing the conn unblocks any pending read or write
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	if err := stream(conn, r); err != nil {
		return Result{}, errors.Join(fmt.Errorf("clamd stream: %w", err), ctx.Err())
	}

	reply, err := bufio.NewReader(conn).ReadString(0)
	if err != nil && !(errors.Is(err, io.EOF) && reply != "") {
		return Result{}, errors.Join(fmt.Errorf("clamd reply: %w", err), ctx.Err())
	}
	return parseReply(reply)
}

func stream(w io.Writer, r io.Reader) error {
	if _, err := w.Write([]byte("zINSTREAM\x00")); err != nil {
		return err
	}

	buf := make([]byte, chunkSize)
	var size [4]byte
	for {
		n, err := r.Read(buf)
		if n > 0 {
			binary.BigEndian.PutUint32(size[:], uint32(n))
			if _, werr := w.Write(size[:]); werr != nil {
				return werr
			}
			if _, werr := w.Write(buf[:n]); werr != nil {
				return werr
			}
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
	}

	binary.BigEndian.PutUint32(size[:], 0)
	_, err := w.Write(size[:])
	return err
}

// parseReply understands "stream: OK", "stream: <sig> FOUND" and "<msg> ERROR".
func parseReply(reply string) (Result, error) {
	reply = strings.TrimSpace(strings.TrimRight(reply, "\x00"))
	body := strings.TrimPrefix(reply, "stream: ")

	switch {
	case body == "OK":
		return Result{}, nil
	case strings.HasSuffix(body, " FOUND"):
		var sigs []string
		for _, line := range strings.Split(reply, "\n") {
			line = strings.TrimPrefix(strings.TrimSpace(line), "stream: ")
			if sig, ok := strings.CutSuffix(line, " FOUND"); ok {
				sigs = append(sigs, sig)
			}
		}
		return Result{Infected: true, Signatures: sigs}, nil
	default:
		return Result{}, fmt.Errorf("clamd: %s", reply)
	}
}
