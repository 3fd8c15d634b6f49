package pty

import (
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/creack/pty"
)

// Process represents a shell running behind a pseudo-terminal.
type Process struct {
	file *os.File
	cmd  *exec.Cmd

	mu     sync.Mutex
	closed bool

	exitOnce sync.Once
}

// Spawn starts the given shell in a new PTY with the given working directory
// and window size. The extra environment entries are appended on top of the
// parent environment. The caller is expected to have validated cwd.
func Spawn(shell, cwd string, cols, rows uint16, env map[string]string) (*Process, error) {
	cmd := exec.Command(shell)
	cmd.Dir = cwd
	cmd.Env = append(os.Environ(),
		"TERM=xterm-256color",
	)
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{
		Cols: cols,
		Rows: rows,
	})
	if err != nil {
		return nil, err
	}

	return &Process{
		file: ptmx,
		cmd:  cmd,
	}, nil
}

// Start launches the read loop. onData receives output chunks in the exact
// order the process produced them; it is always invoked from a single
// goroutine. onExit fires exactly once, after the read loop has drained and
// the process has been reaped.
func (p *Process) Start(onData func([]byte), onExit func(code int, signal string)) {
	go func() {
		buf := make([]byte, 32*1024)
		for {
			n, err := p.file.Read(buf)
			if n > 0 {
				data := make([]byte, n)
				copy(data, buf[:n])
				onData(data)
			}
			if err != nil {
				break
			}
		}

		p.exitOnce.Do(func() {
			code, signal := p.wait()
			onExit(code, signal)
		})
	}()
}

// wait reaps the child and reports its exit code and terminating signal.
func (p *Process) wait() (int, string) {
	if err := p.cmd.Wait(); err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return -1, ""
		}
	}
	state := p.cmd.ProcessState
	if state == nil {
		return -1, ""
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -1, ws.Signal().String()
	}
	return state.ExitCode(), ""
}

// Write sends input bytes to the process. A single call is a single write to
// the PTY, so concurrent callers cannot interleave bytes within one chunk.
func (p *Process) Write(data []byte) (int, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return 0, os.ErrClosed
	}
	file := p.file
	p.mu.Unlock()

	return file.Write(data)
}

// Resize changes the PTY window size.
func (p *Process) Resize(cols, rows uint16) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return os.ErrClosed
	}

	return pty.Setsize(p.file, &pty.Winsize{
		Cols: cols,
		Rows: rows,
	})
}

// Close kills the process and closes the PTY. Safe to call multiple times.
func (p *Process) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if p.cmd.Process != nil {
		p.cmd.Process.Kill()
	}

	return p.file.Close()
}
