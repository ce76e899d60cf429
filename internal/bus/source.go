package bus

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"github.com/kestrelmd/matchbook/internal/dispatch"
)

const (
	maxFrameSize      = 4 * 1024
	frameLengthPrefix = 4 // uint32 big-endian length prefix, per frame
	acceptTimeout     = time.Second
	defaultPoolSize   = 10
)

// Source is anything that can hand framed command bytes to the bus; the
// default implementation is a length-prefixed TCP listener, matching the
// teacher's raw-socket idiom, but a message-bus client could implement the
// same interface.
type Source interface {
	Run(ctx context.Context, sink chan<- dispatch.Command) error
}

// TCPSource accepts TCP connections and decodes one length-prefixed frame at
// a time into dispatch.Command values, pushed onto sink (the dispatcher's
// bounded command channel, which applies backpressure on a full sink).
// Connections are handled by a bounded connPool rather than one goroutine
// per connection, so a burst of slow clients cannot spawn unbounded work.
type TCPSource struct {
	Address  string
	Port     int
	PoolSize int
}

func (s *TCPSource) Run(ctx context.Context, sink chan<- dispatch.Command) error {
	t, ctx := tomb.WithContext(ctx)

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", fmt.Sprintf("%s:%d", s.Address, s.Port))
	if err != nil {
		return fmt.Errorf("bus: listen: %w", err)
	}
	defer listener.Close()

	log.Info().Str("address", listener.Addr().String()).Msg("bus source listening")

	poolSize := s.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}
	pool := newConnPool(poolSize)
	pool.run(t, sink)

	t.Go(func() error {
		<-t.Dying()
		return listener.Close()
	})

	for {
		conn, err := listener.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return t.Wait()
			default:
				log.Error().Err(err).Msg("bus: accept failed")
				continue
			}
		}
		pool.addTask(conn)
	}
}

func handleConn(t *tomb.Tomb, conn net.Conn, sink chan<- dispatch.Command) {
	defer conn.Close()
	lenBuf := make([]byte, frameLengthPrefix)
	frameBuf := make([]byte, maxFrameSize)

	for {
		select {
		case <-t.Dying():
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(acceptTimeout))
		if n, err := io.ReadFull(conn, lenBuf); err != nil {
			// The deadline only lets the loop re-check t.Dying() while the
			// connection is idle between frames; keep serving it.
			if ne, ok := err.(net.Error); ok && ne.Timeout() && n == 0 {
				continue
			}
			if err != io.EOF {
				log.Debug().Err(err).Str("address", conn.RemoteAddr().String()).Msg("bus: connection closed")
			}
			return
		}
		frameLen := binary.BigEndian.Uint32(lenBuf)
		if int(frameLen) > maxFrameSize {
			log.Error().Uint32("frame_len", frameLen).Msg("bus: frame exceeds max size, dropping connection")
			return
		}
		if _, err := io.ReadFull(conn, frameBuf[:frameLen]); err != nil {
			log.Error().Err(err).Msg("bus: short read on frame body")
			return
		}

		cmd, err := Decode(frameBuf[:frameLen])
		if err != nil {
			log.Error().Err(err).Msg("bus: failed to decode command, dropping frame")
			continue
		}

		select {
		case sink <- cmd:
		case <-t.Dying():
			return
		}
	}
}
