package main

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chzyer/readline"

	"github.com/wsact/wsact-go/pkg/actor"
	"github.com/wsact/wsact-go/pkg/frame"
	"github.com/wsact/wsact-go/pkg/handler"
)

// Probe is the interactive prompt. It doubles as the connection handler
// so inbound frames print straight to the terminal.
type Probe struct {
	rl *readline.Instance

	handler.Default

	mu  sync.Mutex
	act *actor.Actor
}

// newProbe creates the prompt.
func newProbe() (*Probe, error) {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "probe> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create readline: %w", err)
	}
	return &Probe{rl: rl}, nil
}

// Bind attaches the connection actor once it is started.
func (p *Probe) Bind(act *actor.Actor) {
	p.mu.Lock()
	p.act = act
	p.mu.Unlock()
}

func (p *Probe) actor() *actor.Actor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.act
}

// Stdout returns a writer that coordinates with the input line.
func (p *Probe) Stdout() io.Writer {
	return p.rl.Stdout()
}

// Close releases the terminal.
func (p *Probe) Close() error {
	return p.rl.Close()
}

// InitStream announces each (re)established stream.
func (p *Probe) InitStream(ic handler.InitContext) (any, error) {
	if ic.Subprotocol != "" {
		fmt.Fprintf(p.Stdout(), "<< stream up (subprotocol %s)\n", ic.Subprotocol)
	} else {
		fmt.Fprintln(p.Stdout(), "<< stream up")
	}
	return nil, nil
}

// HandleReceive prints every inbound frame, then falls back to the
// stock behavior (close frames terminate with an echo).
func (p *Probe) HandleReceive(f frame.Frame, state any) (handler.Result, error) {
	switch f.Type {
	case frame.TypeText:
		fmt.Fprintf(p.Stdout(), "<< %s\n", f.Payload)
	case frame.TypeBinary:
		fmt.Fprintf(p.Stdout(), "<< binary %d bytes: %s\n", len(f.Payload), hex.EncodeToString(f.Payload))
	case frame.TypeClose:
		fmt.Fprintf(p.Stdout(), "<< %s\n", f)
	default:
		fmt.Fprintf(p.Stdout(), "<< %s\n", f)
	}
	return p.Default.HandleReceive(f, state)
}

// Run starts the interactive command loop.
func (p *Probe) Run(ctx context.Context, cancel context.CancelFunc) {
	p.printHelp()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		line, err := p.rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(p.Stdout(), "Exiting...")
			cancel()
			return
		}

		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		parts := strings.Fields(input)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "help", "?":
			p.printHelp()

		case "send", "s":
			p.cmdSend(ctx, strings.TrimSpace(strings.TrimPrefix(input, parts[0])))

		case "binary", "b":
			p.cmdBinary(ctx, args)

		case "ping":
			p.cmdPing(ctx, args)

		case "status":
			p.cmdStatus()

		case "close":
			p.cmdClose(ctx, args)

		case "quit", "exit", "q":
			fmt.Fprintln(p.Stdout(), "Exiting...")
			cancel()
			return

		default:
			fmt.Fprintf(p.Stdout(), "Unknown command: %s (type 'help' for commands)\n", cmd)
		}
	}
}

func (p *Probe) cmdSend(ctx context.Context, text string) {
	if text == "" {
		fmt.Fprintln(p.Stdout(), "Usage: send <text>")
		return
	}
	p.push(ctx, text)
}

func (p *Probe) cmdBinary(ctx context.Context, args []string) {
	if len(args) != 1 {
		fmt.Fprintln(p.Stdout(), "Usage: binary <hex-bytes>")
		return
	}
	data, err := hex.DecodeString(args[0])
	if err != nil {
		fmt.Fprintf(p.Stdout(), "Bad hex: %v\n", err)
		return
	}
	p.push(ctx, frame.Binary(data))
}

func (p *Probe) cmdPing(ctx context.Context, args []string) {
	var payload []byte
	if len(args) > 0 {
		payload = []byte(strings.Join(args, " "))
	}
	p.push(ctx, frame.Ping(payload))
}

func (p *Probe) cmdClose(ctx context.Context, args []string) {
	code := frame.CodeNormalClosure
	var reason []byte

	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			fmt.Fprintf(p.Stdout(), "Bad close code: %v\n", err)
			return
		}
		code = frame.CloseCode(n)
	}
	if len(args) > 1 {
		reason = []byte(strings.Join(args[1:], " "))
	}

	p.push(ctx, frame.CloseWith(code, reason))
}

func (p *Probe) cmdStatus() {
	act := p.actor()
	if act == nil {
		fmt.Fprintln(p.Stdout(), "Not connected")
		return
	}
	fmt.Fprintf(p.Stdout(), "Connection %s: %s\n", act.ID(), act.State())
}

func (p *Probe) push(ctx context.Context, msg any) {
	act := p.actor()
	if act == nil {
		fmt.Fprintln(p.Stdout(), "Not connected")
		return
	}

	pushCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if err := act.Push(pushCtx, msg); err != nil {
		fmt.Fprintf(p.Stdout(), "Push failed: %v\n", err)
	}
}

func (p *Probe) printHelp() {
	fmt.Fprintln(p.Stdout(), `
Commands:
  send <text>           - Send a text frame
  binary <hex>          - Send a binary frame (hex-encoded payload)
  ping [payload]        - Send a ping control frame
  close [code] [reason] - Send a close frame (default 1000)
  status                - Show connection state
  help                  - Show this help
  quit                  - Exit`)
}

// Compile-time interface satisfaction check.
var _ handler.Handler = (*Probe)(nil)
