package rpc

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
)

// TCPListener serves each accepted connection with a Server.
type TCPListener struct {
	listener net.Listener
	server   *Server

	conns   map[string]net.Conn
	connsMu sync.Mutex
	connSeq atomic.Int64

	wg        sync.WaitGroup
	closed    atomic.Bool
	closeOnce sync.Once
}

// Listen starts listening on addr.
func Listen(addr string, server *Server) (*TCPListener, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return &TCPListener{
		listener: listener,
		server:   server,
		conns:    make(map[string]net.Conn),
	}, nil
}

func (l *TCPListener) Addr() net.Addr {
	return l.listener.Addr()
}

// Serve accepts connections until Close is called or ctx is done.
func (l *TCPListener) Serve(ctx context.Context) error {
	l.server.logger.Info("rpc listener started", "addr", l.listener.Addr().String())
	stop := context.AfterFunc(ctx, func() { l.Close() })
	defer stop()
	for {
		conn, err := l.listener.Accept()
		if err != nil {
			if l.closed.Load() {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		id, ok := l.track(conn)
		if !ok {
			conn.Close()
			return nil
		}
		go l.handle(ctx, id, conn)
	}
}

// track registers conn unless the listener is closed. close marks the
// listener closed before it walks conns under connsMu.
func (l *TCPListener) track(conn net.Conn) (string, bool) {
	l.connsMu.Lock()
	defer l.connsMu.Unlock()
	if l.closed.Load() {
		return "", false
	}
	id := fmt.Sprintf("tcp-%d", l.connSeq.Add(1))
	l.conns[id] = conn
	l.wg.Add(1)
	return id, true
}

func (l *TCPListener) handle(ctx context.Context, id string, conn net.Conn) {
	defer l.wg.Done()
	log := l.server.logger.With("conn", id)
	log.Debug("new connection", "remote", conn.RemoteAddr().String())

	if err := l.server.Serve(ctx, conn); err != nil && !l.closed.Load() {
		log.Error("connection error", "error", err)
	}

	l.connsMu.Lock()
	delete(l.conns, id)
	l.connsMu.Unlock()
	log.Debug("connection ended")
}

// Close stops accepting, closes open connections and waits for their
// handlers.
func (l *TCPListener) Close() error {
	l.closeOnce.Do(l.close)
	return nil
}

func (l *TCPListener) close() {
	l.closed.Store(true)
	if err := l.listener.Close(); err != nil {
		l.server.logger.Error("error closing listener", "error", err)
	}
	l.connsMu.Lock()
	for _, c := range l.conns {
		c.Close()
	}
	l.connsMu.Unlock()
	l.wg.Wait()
	l.server.logger.Info("rpc listener stopped")
}

// ConnCount returns the number of open connections.
func (l *TCPListener) ConnCount() int {
	l.connsMu.Lock()
	defer l.connsMu.Unlock()
	return len(l.conns)
}
