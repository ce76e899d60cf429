package bus

import (
	"net"

	"github.com/rs/zerolog/log"
	tomb "gopkg.in/tomb.v2"

	"github.com/kestrelmd/matchbook/internal/dispatch"
)

// connPool bounds the number of connections handled concurrently, adapted
// from the teacher's generic WorkerPool (internal/worker.go) to this
// package's one concrete task type (net.Conn) rather than carrying the
// teacher's any-typed task channel.
type connPool struct {
	n     int
	tasks chan net.Conn
}

func newConnPool(size int) connPool {
	return connPool{n: size, tasks: make(chan net.Conn, size)}
}

func (p *connPool) addTask(conn net.Conn) {
	p.tasks <- conn
}

// run maintains a full pool of workers under t, each draining tasks and
// handling one connection to completion (handleConn loops until the
// connection closes) before picking up the next.
func (p *connPool) run(t *tomb.Tomb, sink chan<- dispatch.Command) {
	log.Info().Int("workers", p.n).Msg("bus: starting connection pool")
	for i := 0; i < p.n; i++ {
		t.Go(func() error {
			for {
				select {
				case <-t.Dying():
					return nil
				case conn := <-p.tasks:
					handleConn(t, conn, sink)
				}
			}
		})
	}
}
