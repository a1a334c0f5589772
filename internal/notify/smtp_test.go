package notify

import (
	"encoding/base64"
	"net"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type delivery struct {
	From string
	Rcpt []string
	Data string
}

// fakeSMTP is a minimal plaintext SMTP server that records deliveries.
type fakeSMTP struct {
	ln   net.Listener
	auth bool

	mu     sync.Mutex
	mail   []delivery
	logins []string
}

func newFakeSMTP(t *testing.T) *fakeSMTP {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	return serveSMTP(t, ln, false)
}

// serveSMTP accepts connections on ln. With auth set the server advertises
// AUTH PLAIN LOGIN and records each PLAIN login as "user:password".
func serveSMTP(t *testing.T, ln net.Listener, auth bool) *fakeSMTP {
	t.Helper()
	s := &fakeSMTP{ln: ln, auth: auth}
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serve(conn)
		}
	}()
	return s
}

func (s *fakeSMTP) port() int {
	return s.ln.Addr().(*net.TCPAddr).Port
}

func (s *fakeSMTP) host() string {
	return s.ln.Addr().(*net.TCPAddr).IP.String()
}

func (s *fakeSMTP) credentials() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.logins...)
}

func (s *fakeSMTP) deliveries() []delivery {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]delivery(nil), s.mail...)
}

func (s *fakeSMTP) serve(conn net.Conn) {
	defer conn.Close()
	tp := textproto.NewConn(conn)
	_ = tp.PrintfLine("220 localhost ESMTP")

	var cur delivery
	for {
		line, err := tp.ReadLine()
		if err != nil {
			return
		}
		cmd := strings.ToUpper(line)
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			_ = tp.PrintfLine("250-localhost")
			if s.auth {
				_ = tp.PrintfLine("250-AUTH PLAIN LOGIN")
			}
			_ = tp.PrintfLine("250 8BITMIME")
		case strings.HasPrefix(cmd, "AUTH PLAIN"):
			if !s.auth {
				_ = tp.PrintfLine("502 not supported")
				continue
			}
			resp := strings.TrimSpace(line[len("AUTH PLAIN"):])
			if resp == "" {
				_ = tp.PrintfLine("334 ")
				if resp, err = tp.ReadLine(); err != nil {
					return
				}
			}
			raw, err := base64.StdEncoding.DecodeString(resp)
			parts := strings.Split(string(raw), "\x00")
			if err != nil || len(parts) != 3 {
				_ = tp.PrintfLine("501 malformed")
				continue
			}
			s.mu.Lock()
			s.logins = append(s.logins, parts[1]+":"+parts[2])
			s.mu.Unlock()
			_ = tp.PrintfLine("235 2.7.0 authenticated")
		case strings.HasPrefix(cmd, "MAIL FROM:"):
			cur = delivery{From: address(line)}
			_ = tp.PrintfLine("250 OK")
		case strings.HasPrefix(cmd, "RCPT TO:"):
			cur.Rcpt = append(cur.Rcpt, address(line))
			_ = tp.PrintfLine("250 OK")
		case cmd == "DATA":
			_ = tp.PrintfLine("354 end with <CRLF>.<CRLF>")
			data, err := tp.ReadDotBytes()
			if err != nil {
				return
			}
			cur.Data = string(data)
			s.mu.Lock()
			s.mail = append(s.mail, cur)
			s.mu.Unlock()
			_ = tp.PrintfLine("250 queued")
		case cmd == "QUIT":
			_ = tp.PrintfLine("221 bye")
			return
		default:
			_ = tp.PrintfLine("250 OK")
		}
	}
}

func address(line string) string {
	start := strings.IndexByte(line, '<')
	end := strings.IndexByte(line, '>')
	if start < 0 || end < start {
		return ""
	}
	return line[start+1 : end]
}

// closedPort returns a local port with nothing listening on it.
func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())
	return port
}
