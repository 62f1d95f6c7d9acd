package protocol

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/mail"
	"net/textproto"
	"strings"
	"sync"
	"time"

	"github.com/getimposd/imposd/pkg/imposter"
)

// smtpAdapter serves smtp imposters. It speaks the minimal command
// dialog (HELO/EHLO, MAIL FROM, RCPT TO, DATA, RSET, NOOP, QUIT) needed
// to capture a full message envelope. Each completed DATA exchange
// becomes one request; the resolved stub response sets the DATA reply
// code and text, defaulting to 250 OK.
type smtpAdapter struct {
	cfg       *imposter.Config
	responder Responder
	log       *slog.Logger

	mu       sync.Mutex
	running  bool
	port     int
	listener net.Listener
	conns    map[net.Conn]struct{}
	wg       sync.WaitGroup
}

func newSMTPAdapter(cfg *imposter.Config, responder Responder, log *slog.Logger) *smtpAdapter {
	return &smtpAdapter{
		cfg:       cfg,
		responder: responder,
		log:       log,
		port:      cfg.Port,
		conns:     make(map[net.Conn]struct{}),
	}
}

// Protocol returns smtp.
func (a *smtpAdapter) Protocol() imposter.Protocol { return imposter.ProtocolSMTP }

// Port returns the bound port.
func (a *smtpAdapter) Port() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.port
}

// Start binds the listener and begins accepting sessions.
func (a *smtpAdapter) Start(ctx context.Context) error {
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

// Stop closes the listener and open sessions, waiting for handler
// goroutines bounded by ctx.
func (a *smtpAdapter) Stop(ctx context.Context) error {
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

func (a *smtpAdapter) acceptLoop(ln net.Listener) {
	defer a.wg.Done()
	for {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		a.mu.Lock()
		a.conns[conn] = struct{}{}
		a.mu.Unlock()
		a.wg.Add(1)
		go a.session(conn)
	}
}

// envelope accumulates one message's sender and recipients between
// MAIL FROM and the end of DATA.
type envelope struct {
	from string
	to   []string
}

func (a *smtpAdapter) session(conn net.Conn) {
	defer a.wg.Done()
	defer func() {
		a.mu.Lock()
		delete(a.conns, conn)
		a.mu.Unlock()
		conn.Close()
	}()

	tp := textproto.NewConn(conn)
	if err := tp.PrintfLine("220 imposd ESMTP ready"); err != nil {
		return
	}

	var env envelope
	for {
		line, err := tp.ReadLine()
		if err != nil {
			if !errors.Is(err, io.EOF) && !isClosedConn(err) {
				a.log.Debug("smtp session ended", "port", a.Port(), "error", err)
			}
			return
		}

		verb := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(verb, "HELO"), strings.HasPrefix(verb, "EHLO"):
			err = tp.PrintfLine("250 OK")
		case strings.HasPrefix(verb, "MAIL FROM:"):
			env = envelope{from: parseSMTPAddress(line[len("MAIL FROM:"):])}
			err = tp.PrintfLine("250 OK")
		case strings.HasPrefix(verb, "RCPT TO:"):
			env.to = append(env.to, parseSMTPAddress(line[len("RCPT TO:"):]))
			err = tp.PrintfLine("250 OK")
		case verb == "DATA":
			err = a.readMessage(tp, conn, &env)
			env = envelope{}
		case verb == "RSET":
			env = envelope{}
			err = tp.PrintfLine("250 OK")
		case verb == "NOOP":
			err = tp.PrintfLine("250 OK")
		case verb == "QUIT":
			_ = tp.PrintfLine("221 Bye")
			return
		default:
			err = tp.PrintfLine("502 Command not implemented")
		}
		if err != nil {
			return
		}
	}
}

// readMessage runs the DATA sub-dialog: accept the dot-terminated
// message, dispatch it as a request, and acknowledge with the resolved
// reply.
func (a *smtpAdapter) readMessage(tp *textproto.Conn, conn net.Conn, env *envelope) error {
	if err := tp.PrintfLine("354 End data with <CR><LF>.<CR><LF>"); err != nil {
		return err
	}

	lines, err := tp.ReadDotLines()
	if err != nil {
		return err
	}

	req := decodeSMTPRequest(conn.RemoteAddr().String(), env, strings.Join(lines, "\r\n"))
	resp, err := a.responder.Respond(context.Background(), req)
	if err != nil {
		a.log.Warn("request resolution failed", "port", a.Port(), "error", err)
		return tp.PrintfLine("451 Requested action aborted: local error in processing")
	}
	code, text := smtpReply(resp)
	return tp.PrintfLine("%d %s", code, text)
}

// smtpReply maps a resolved response onto the DATA acknowledgement:
// StatusCode overrides the reply code and Body its text. Absent or
// zero-valued fields keep the 250 OK default, and the text is collapsed
// to a single line since the reply is one.
func smtpReply(resp *imposter.ISResponse) (int, string) {
	code, text := 250, "OK"
	if resp == nil {
		return code, text
	}
	if resp.StatusCode != 0 {
		code = resp.StatusCode
	}
	if body := strings.Join(strings.Fields(resp.Body), " "); body != "" {
		text = body
	}
	return code, text
}

// decodeSMTPRequest builds the request envelope from the SMTP dialog
// plus whatever message headers parse cleanly.
func decodeSMTPRequest(remoteAddr string, env *envelope, raw string) *imposter.Request {
	req := &imposter.Request{
		RequestFrom:  remoteAddr,
		EnvelopeFrom: env.from,
		EnvelopeTo:   append([]string(nil), env.to...),
		Text:         raw,
		Timestamp:    time.Now().UTC(),
	}

	msg, err := mail.ReadMessage(strings.NewReader(raw))
	if err != nil {
		return req
	}

	req.Subject = msg.Header.Get("Subject")
	if from := headerAddresses(msg.Header, "From"); len(from) > 0 {
		req.From = from[0]
	}
	req.To = headerAddresses(msg.Header, "To")
	if body, err := io.ReadAll(msg.Body); err == nil {
		req.Text = strings.TrimRight(string(body), "\r\n")
	}
	return req
}

func headerAddresses(header mail.Header, key string) []string {
	list, err := header.AddressList(key)
	if err != nil {
		if raw := header.Get(key); raw != "" {
			return []string{raw}
		}
		return nil
	}
	out := make([]string, len(list))
	for i, addr := range list {
		out[i] = addr.Address
	}
	return out
}

// parseSMTPAddress extracts the bare address from a MAIL FROM / RCPT TO
// argument, tolerating both <user@host> and user@host forms.
func parseSMTPAddress(arg string) string {
	arg = strings.TrimSpace(arg)
	if start := strings.Index(arg, "<"); start >= 0 {
		if end := strings.Index(arg[start:], ">"); end > 0 {
			return arg[start+1 : start+end]
		}
	}
	if idx := strings.IndexByte(arg, ' '); idx > 0 {
		arg = arg[:idx]
	}
	return arg
}
