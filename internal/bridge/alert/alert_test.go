package alert

import (
	"context"
	"errors"
	"net"
	"net/textproto"
	"strconv"
	"strings"
	"testing"
	"time"

	clocktesting "k8s.io/utils/clock/testing"
)

type countingNotifier struct {
	calls int
	err   error
}

func (c *countingNotifier) Notify(context.Context, string, string) error {
	c.calls++
	return c.err
}

func TestRateLimitedCooldown(t *testing.T) {
	clk := clocktesting.NewFakePassiveClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	next := &countingNotifier{}
	n := NewRateLimited(next, time.Hour, clk)
	ctx := context.Background()

	for range 5 {
		if err := n.Notify(ctx, DefaultSubject, "boom"); err != nil {
			t.Fatal(err)
		}
	}
	if next.calls != 1 {
		t.Fatalf("burst delivered %d alerts, want 1", next.calls)
	}

	clk.SetTime(clk.Now().Add(59 * time.Minute))
	n.Notify(ctx, DefaultSubject, "boom")
	if next.calls != 1 {
		t.Errorf("alert delivered inside the cooldown")
	}

	clk.SetTime(clk.Now().Add(2 * time.Minute))
	n.Notify(ctx, DefaultSubject, "boom")
	if next.calls != 2 {
		t.Errorf("calls = %d after cooldown, want 2", next.calls)
	}
}

func TestRateLimitedPropagatesErrors(t *testing.T) {
	next := &countingNotifier{err: errors.New("relay down")}
	if err := NewRateLimited(next, time.Hour, nil).Notify(context.Background(), "s", "b"); err == nil {
		t.Error("expected the delivery error")
	}
}

// fakeRelay accepts a single plain SMTP session and records the message.
func fakeRelay(t *testing.T) (host string, port int, got <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ln.Close() })

	out := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		tp := textproto.NewConn(conn)
		tp.PrintfLine("220 fake ESMTP")

		var msg strings.Builder
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			switch cmd := strings.ToUpper(strings.SplitN(line, " ", 2)[0]); cmd {
			case "EHLO":
				tp.PrintfLine("250-fake")
				tp.PrintfLine("250 8BITMIME")
			case "HELO", "MAIL", "RCPT", "RSET", "NOOP":
				msg.WriteString(line + "\n")
				tp.PrintfLine("250 OK")
			case "DATA":
				tp.PrintfLine("354 go ahead")
				data, _ := tp.ReadDotBytes()
				msg.Write(data)
				tp.PrintfLine("250 queued")
			case "QUIT":
				tp.PrintfLine("221 bye")
				out <- msg.String()
				return
			default:
				tp.PrintfLine("502 unsupported")
			}
		}
	}()

	h, p, _ := net.SplitHostPort(ln.Addr().String())
	port, _ = strconv.Atoi(p)
	return h, port, out
}

func TestSMTPNotifier(t *testing.T) {
	host, port, got := fakeRelay(t)
	n := NewSMTPNotifier(SMTPConfig{
		Host:    host,
		Port:    port,
		From:    "bridge@example.com",
		To:      []string{"ops@example.com"},
		Timeout: 5 * time.Second,
	})

	if err := n.Notify(context.Background(), DefaultSubject, "panic: boom\ngoroutine 1"); err != nil {
		t.Fatal(err)
	}

	select {
	case msg := <-got:
		for _, want := range []string{
			"MAIL FROM:<bridge@example.com>",
			"RCPT TO:<ops@example.com>",
			"Subject: Error sending data to SFMTA",
			"panic: boom",
		} {
			if !strings.Contains(msg, want) {
				t.Errorf("message missing %q:\n%s", want, msg)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("relay never received QUIT")
	}
}

func TestSMTPNotifierRequireTLS(t *testing.T) {
	host, port, _ := fakeRelay(t)
	n := NewSMTPNotifier(SMTPConfig{Host: host, Port: port, From: "a@b", To: []string{"c@d"}, RequireTLS: true})
	if err := n.Notify(context.Background(), "s", "b"); err == nil {
		t.Error("expected an error when STARTTLS is not offered")
	}
}

// blockingNotifier holds every delivery until release is closed.
type blockingNotifier struct {
	entered   chan struct{}
	release   chan struct{}
	delivered chan string
}

func newBlockingNotifier() *blockingNotifier {
	return &blockingNotifier{
		entered:   make(chan struct{}, 8),
		release:   make(chan struct{}),
		delivered: make(chan string, 8),
	}
}

func (b *blockingNotifier) Notify(ctx context.Context, subject, _ string) error {
	b.entered <- struct{}{}
	select {
	case <-b.release:
	case <-ctx.Done():
		return ctx.Err()
	}
	b.delivered <- subject
	return nil
}

func TestAsyncDoesNotBlockCaller(t *testing.T) {
	next := newBlockingNotifier()
	n := NewAsync(t.Context(), next, 2)

	start := time.Now()
	if err := n.Notify(context.Background(), "first", "b"); err != nil {
		t.Fatal(err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("Notify blocked for %v behind a stuck relay", elapsed)
	}

	select {
	case <-next.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("worker never picked up the alert")
	}

	// The worker holds "first"; two more fill the queue and the rest are dropped.
	var queued int
	for _, subject := range []string{"second", "third", "fourth", "fifth"} {
		err := n.Notify(context.Background(), subject, "b")
		switch {
		case err == nil:
			queued++
		case !errors.Is(err, ErrQueueFull):
			t.Fatalf("Notify(%s) = %v", subject, err)
		}
	}
	if queued != 2 {
		t.Errorf("queued %d alerts behind a stuck relay, want 2", queued)
	}

	close(next.release)
	select {
	case got := <-next.delivered:
		if got != "first" {
			t.Errorf("delivered %q first", got)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("queued alert never delivered")
	}
}

func TestRateLimitedAsyncSuppressesBeforeQueueing(t *testing.T) {
	clk := clocktesting.NewFakePassiveClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	next := newBlockingNotifier()
	close(next.release)
	n := NewRateLimited(NewAsync(t.Context(), next, 1), time.Hour, clk)

	for range 3 {
		if err := n.Notify(context.Background(), DefaultSubject, "boom"); err != nil {
			t.Fatal(err)
		}
	}
	select {
	case <-next.delivered:
	case <-time.After(5 * time.Second):
		t.Fatal("alert never delivered")
	}
	select {
	case got := <-next.delivered:
		t.Errorf("unexpected second delivery %q inside the cooldown", got)
	case <-time.After(50 * time.Millisecond):
	}
}
