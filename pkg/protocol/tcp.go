package protocol

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"sync"
	"time"

	"github.com/getimposd/imposd/pkg/imposter"
	"github.com/getimposd/imposd/pkg/util"
)

// tcpReadBuffer bounds a single unframed read. Without an endOfRequest
// marker one read chunk is one request.
const tcpReadBuffer = 64 * 1024

// tcpAdapter serves raw tcp imposters. Connections stay open across
// requests; each frame read becomes one request and its resolved payload
// is written straight back.
type tcpAdapter struct {
	cfg       *imposter.Config
	responder Responder
	log       *slog.Logger
	marker    []byte
	binary    bool

	mu       sync.Mutex
	running  bool
	port     int
	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
}

func newTCPAdapter(cfg *imposter.Config, responder Responder, log *slog.Logger) *tcpAdapter {
	var marker []byte
	if cfg.EndOfRequest != "" {
		marker = []byte(cfg.EndOfRequest)
	}
	return &tcpAdapter{
		cfg:       cfg,
		responder: responder,
		log:       log,
		marker:    marker,
		binary:    cfg.Mode == imposter.ModeBinary,
		port:      cfg.Port,
		conns:     make(map[net.Conn]struct{}),
	}
}

// Protocol returns tcp.
func (a *tcpAdapter) Protocol() imposter.Protocol { return imposter.ProtocolTCP }

// Port returns the bound port.
func (a *tcpAdapter) Port() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.port
}

// Start binds the listener and begins accepting connections.
func (a *tcpAdapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.running {
		return ErrAlreadyStarted
	}

	ln, err := net.Listen("tcp", listenAddr(a.cfg))
	if err != nil {
		return err
	}
	a.listener = ln
	a.port = boundPort(ln)
	a.running = true

	a.wg.Add(1)
	go a.acceptLoop(ln)
	return nil
}

// Stop closes the listener and all open connections, then waits for
// handler goroutines bounded by ctx.
func (a *tcpAdapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	ln := a.listener
	open := make([]net.Conn, 0, len(a.conns))
	for c := range a.conns {
		open = append(open, c)
	}
	a.mu.Unlock()

	_ = ln.Close()
	// Unblock reads on idle connections so their handlers exit.
	deadline := time.Now()
	for _, c := range open {
		_ = c.SetReadDeadline(deadline)
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		for _, c := range open {
			_ = c.Close()
		}
		return ctx.Err()
	}
}

func (a *tcpAdapter) acceptLoop(ln net.Listener) {
	defer a.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		a.track(conn)
		a.wg.Add(1)
		go a.serve(conn)
	}
}

func (a *tcpAdapter) track(conn net.Conn) {
	a.mu.Lock()
	a.conns[conn] = struct{}{}
	a.mu.Unlock()
}

func (a *tcpAdapter) untrack(conn net.Conn) {
	a.mu.Lock()
	delete(a.conns, conn)
	a.mu.Unlock()
}

func (a *tcpAdapter) serve(conn net.Conn) {
	defer a.wg.Done()
	defer a.untrack(conn)
	defer conn.Close()

	reader := bufio.NewReaderSize(conn, tcpReadBuffer)
	for {
		frame, err := a.readFrame(reader)
		if err != nil {
			if !errors.Is(err, io.EOF) && !isClosedConn(err) {
				a.log.Debug("tcp read ended", "port", a.Port(), "error", err)
			}
			return
		}
		if len(frame) == 0 {
			continue
		}

		req := a.decodeRequest(conn, frame)
		a.log.Debug("request received", "port", a.Port(), "from", req.RequestFrom,
			"data", util.TruncateBody(req.Data, 0))
		resp, err := a.responder.Respond(context.Background(), req)
		if err != nil {
			// No error shape on a raw socket: reset the connection.
			a.log.Warn("request resolution failed", "port", a.Port(), "error", err)
			if tc, ok := conn.(*net.TCPConn); ok {
				_ = tc.SetLinger(0)
			}
			return
		}

		payload := a.encodePayload(resp)
		if len(payload) > 0 {
			if _, err := conn.Write(payload); err != nil {
				return
			}
		}
	}
}

// readFrame returns the next request frame. With a marker configured it
// reads until the marker and strips it; otherwise one read chunk is one
// frame.
func (a *tcpAdapter) readFrame(reader *bufio.Reader) ([]byte, error) {
	if len(a.marker) == 0 {
		buf := make([]byte, tcpReadBuffer)
		n, err := reader.Read(buf)
		if err != nil {
			return nil, err
		}
		return buf[:n], nil
	}

	var frame []byte
	for {
		b, err := reader.ReadByte()
		if err != nil {
			// A partial frame at connection close is still a request.
			if errors.Is(err, io.EOF) && len(frame) > 0 {
				return frame, nil
			}
			return nil, err
		}
		frame = append(frame, b)
		if bytes.HasSuffix(frame, a.marker) {
			return frame[:len(frame)-len(a.marker)], nil
		}
	}
}

func (a *tcpAdapter) decodeRequest(conn net.Conn, frame []byte) *imposter.Request {
	data := string(frame)
	if a.binary {
		data = base64.StdEncoding.EncodeToString(frame)
	}
	return &imposter.Request{
		RequestFrom: conn.RemoteAddr().String(),
		Data:        data,
		Timestamp:   time.Now().UTC(),
	}
}

func (a *tcpAdapter) encodePayload(resp *imposter.ISResponse) []byte {
	if resp == nil || resp.Data == "" {
		return nil
	}
	mode := resp.Mode
	if mode == "" && a.binary {
		mode = imposter.ModeBinary
	}
	if mode == imposter.ModeBinary {
		if decoded, err := base64.StdEncoding.DecodeString(resp.Data); err == nil {
			return decoded
		}
	}
	return []byte(resp.Data)
}

func isClosedConn(err error) bool {
	return errors.Is(err, net.ErrClosed) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, os.ErrDeadlineExceeded)
}
