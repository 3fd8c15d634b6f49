package pty

import (
	"bytes"
	"sync"
	"testing"
	"time"
)

func TestSpawn(t *testing.T) {
	p, err := Spawn("/bin/sh", "/", 80, 24, nil)
	if err != nil {
		t.Fatalf("failed to spawn: %v", err)
	}
	defer p.Close()
}

func TestSpawnMissingShell(t *testing.T) {
	_, err := Spawn("/nonexistent/shell", "/", 80, 24, nil)
	if err == nil {
		t.Fatal("expected error spawning missing shell")
	}
}

func TestWriteAndOutput(t *testing.T) {
	p, err := Spawn("/bin/sh", "/", 80, 24, nil)
	if err != nil {
		t.Fatalf("failed to spawn: %v", err)
	}
	defer p.Close()

	var mu sync.Mutex
	var output []byte
	seen := make(chan struct{}, 1)

	p.Start(func(data []byte) {
		mu.Lock()
		output = append(output, data...)
		found := bytes.Contains(output, []byte("hello"))
		mu.Unlock()
		if found {
			select {
			case seen <- struct{}{}:
			default:
			}
		}
	}, func(code int, signal string) {})

	if _, err := p.Write([]byte("echo hello\n")); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	select {
	case <-seen:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for output")
	}
}

func TestExitCallbackFiresOnce(t *testing.T) {
	p, err := Spawn("/bin/sh", "/", 80, 24, nil)
	if err != nil {
		t.Fatalf("failed to spawn: %v", err)
	}

	exited := make(chan struct{})
	var fires int
	var mu sync.Mutex

	p.Start(func([]byte) {}, func(code int, signal string) {
		mu.Lock()
		fires++
		mu.Unlock()
		close(exited)
	})

	if _, err := p.Write([]byte("exit\n")); err != nil {
		t.Fatalf("failed to write: %v", err)
	}

	select {
	case <-exited:
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for exit")
	}

	// Give a second fire a chance to happen, then verify it didn't
	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if fires != 1 {
		t.Errorf("expected exit callback to fire once, fired %d times", fires)
	}
}

func TestExitReportsSignal(t *testing.T) {
	p, err := Spawn("/bin/sh", "/", 80, 24, nil)
	if err != nil {
		t.Fatalf("failed to spawn: %v", err)
	}

	exitCh := make(chan string, 1)
	p.Start(func([]byte) {}, func(code int, signal string) {
		exitCh <- signal
	})

	// Close kills the process with SIGKILL
	p.Close()

	select {
	case signal := <-exitCh:
		if signal == "" {
			t.Error("expected a signal name for a killed process")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timeout waiting for exit")
	}
}

func TestResize(t *testing.T) {
	p, err := Spawn("/bin/sh", "/", 80, 24, nil)
	if err != nil {
		t.Fatalf("failed to spawn: %v", err)
	}
	defer p.Close()

	if err := p.Resize(120, 40); err != nil {
		t.Fatalf("failed to resize: %v", err)
	}
}

func TestCloseIdempotent(t *testing.T) {
	p, err := Spawn("/bin/sh", "/", 80, 24, nil)
	if err != nil {
		t.Fatalf("failed to spawn: %v", err)
	}

	if err := p.Close(); err != nil {
		t.Fatalf("failed to close: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Errorf("second close should be a no-op, got: %v", err)
	}

	if _, err := p.Write([]byte("test")); err == nil {
		t.Error("expected error writing to closed process")
	}
	if err := p.Resize(10, 10); err == nil {
		t.Error("expected error resizing closed process")
	}
}
