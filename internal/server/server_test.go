package server

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/adred-codev/kvengine/internal/executor"
)

func startTestServer(t *testing.T) (addr string, cancel context.CancelFunc) {
	t.Helper()
	exec := executor.New(zerolog.Nop(), "")
	ctx, cancelExec := context.WithCancel(context.Background())
	go exec.Run(ctx)

	srv := New(exec, zerolog.Nop())
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	srvCtx, cancelSrv := context.WithCancel(context.Background())
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go srv.handleConn(srvCtx, conn, nextClientID(srv))
		}
	}()

	t.Cleanup(func() {
		ln.Close()
		cancelSrv()
		cancelExec()
	})
	return ln.Addr().String(), cancelSrv
}

func nextClientID(s *Server) int64 {
	s.clientSeq++
	return s.clientSeq
}

func dial(t *testing.T, addr string) (net.Conn, *bufio.Reader) {
	t.Helper()
	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	return conn, bufio.NewReader(conn)
}

func sendLine(t *testing.T, conn net.Conn, reader *bufio.Reader, line string) string {
	t.Helper()
	if _, err := conn.Write([]byte(line + "\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	resp, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return resp
}

func TestSetGetRoundTrip(t *testing.T) {
	addr, _ := startTestServer(t)
	conn, reader := dial(t, addr)
	defer conn.Close()

	if resp := sendLine(t, conn, reader, "set foo bar"); resp != "Ok\r\n" {
		t.Fatalf("set response = %q", resp)
	}
	if resp := sendLine(t, conn, reader, "get foo"); resp != "bar\r\n" {
		t.Fatalf("get response = %q", resp)
	}
}

func TestUnknownCommandRendersError(t *testing.T) {
	addr, _ := startTestServer(t)
	conn, reader := dial(t, addr)
	defer conn.Close()

	resp := sendLine(t, conn, reader, "bogus")
	if resp != "Command not valid\r\n" {
		t.Fatalf("response = %q", resp)
	}
}

func TestListRendersNewlineJoinedElements(t *testing.T) {
	addr, _ := startTestServer(t)
	conn, reader := dial(t, addr)
	defer conn.Close()

	sendLine(t, conn, reader, "rpush mylist a b c")
	conn.Write([]byte("lrange mylist 0 -1\n"))
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var lines []string
	for i := 0; i < 3; i++ {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		lines = append(lines, line)
	}
	want := []string{"a\r\n", "b\r\n", "c\r\n"}
	for i, w := range want {
		if lines[i] != w {
			t.Fatalf("line %d = %q, want %q", i, lines[i], w)
		}
	}
}

func TestNilRendersAsNilToken(t *testing.T) {
	addr, _ := startTestServer(t)
	conn, reader := dial(t, addr)
	defer conn.Close()

	resp := sendLine(t, conn, reader, "get missingkey")
	if resp != "(nil)\r\n" {
		t.Fatalf("response = %q", resp)
	}
}
