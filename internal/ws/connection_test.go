package ws

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
)

func TestConnection_SendWritesTextFrame(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	c := newConnection(server, time.Second)

	done := make(chan struct{})
	var got []byte
	var op ws.OpCode
	go func() {
		defer close(done)
		var err error
		got, op, err = wsutil.ReadServerData(client)
		if err != nil {
			t.Errorf("read frame: %v", err)
		}
	}()

	if err := c.Send([]byte(`{"type":"pong"}`)); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("frame never arrived")
	}
	if op != ws.OpText {
		t.Errorf("opcode = %v, want text", op)
	}
	if string(got) != `{"type":"pong"}` {
		t.Errorf("payload = %q", got)
	}
}

func TestConnection_ConcurrentSendsDoNotInterleave(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	c := newConnection(server, time.Second)

	const senders = 8
	frames := make(chan []byte, senders)
	go func() {
		for i := 0; i < senders; i++ {
			data, _, err := wsutil.ReadServerData(client)
			if err != nil {
				t.Errorf("read frame %d: %v", i, err)
				return
			}
			frames <- data
		}
		close(frames)
	}()

	var wg sync.WaitGroup
	for i := 0; i < senders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := c.Send([]byte("payload-payload-payload")); err != nil {
				t.Errorf("Send failed: %v", err)
			}
		}()
	}
	wg.Wait()

	count := 0
	for data := range frames {
		if string(data) != "payload-payload-payload" {
			t.Fatalf("corrupted frame: %q", data)
		}
		count++
		if count == senders {
			break
		}
	}
	if count != senders {
		t.Errorf("received %d intact frames, want %d", count, senders)
	}
}

func TestConnection_CloseIsIdempotent(t *testing.T) {
	server, client := net.Pipe()
	defer client.Close()

	c := newConnection(server, time.Second)
	if err := c.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := c.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
