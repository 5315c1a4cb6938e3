package actor

import (
	"context"
	"testing"
	"time"
)

type echoMsg struct {
	value int
	reply chan int
}

// TestRequestReplyLiveness drives the request/reply liveness property: every
// successful Request observes exactly one reply.
func TestRequestReplyLiveness(t *testing.T) {
	mailbox := NewMailbox[echoMsg](10)
	go Run(mailbox, func(m echoMsg) bool {
		m.reply <- m.value * 2
		return true
	})
	h := mailbox.Handle()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for i := 0; i < 100; i++ {
		reply := make(chan int, 1)
		got, err := Request(ctx, h, echoMsg{value: i, reply: reply}, reply)
		if err != nil {
			t.Fatalf("request %d: %v", i, err)
		}
		if got != i*2 {
			t.Fatalf("request %d: got %d, want %d", i, got, i*2)
		}
		select {
		case extra := <-reply:
			t.Fatalf("request %d: second reply %d", i, extra)
		default:
		}
	}
}

// TestStopEndsRunLoop verifies the handler returning false terminates the loop
// and closes the mailbox.
func TestStopEndsRunLoop(t *testing.T) {
	type msg struct{ stop bool }
	mailbox := NewMailbox[msg](10)
	done := make(chan struct{})
	go func() {
		Run(mailbox, func(m msg) bool { return !m.stop })
		close(done)
	}()

	h := mailbox.Handle()
	if !h.TrySend(msg{}) {
		t.Fatalf("send failed")
	}
	if !h.TrySend(msg{stop: true}) {
		t.Fatalf("stop send failed")
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("run loop did not terminate after stop")
	}
}

// TestRequestErrorsWhenCanceled surfaces MessagingError-style failure when the
// caller's context dies before a reply.
func TestRequestErrorsWhenCanceled(t *testing.T) {
	mailbox := NewMailbox[echoMsg](10)
	// No consumer: the request can never complete.
	h := mailbox.Handle()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reply := make(chan int, 1)
	if _, err := Request(ctx, h, echoMsg{value: 1, reply: reply}, reply); err != ErrMessaging {
		t.Fatalf("got err %v, want ErrMessaging", err)
	}
}
