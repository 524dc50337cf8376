package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/flexicli/flexicli/internal/approval"
	"github.com/flexicli/flexicli/internal/memory"
	"github.com/flexicli/flexicli/internal/session"
	"github.com/flexicli/flexicli/internal/tokenbudget"
)

// runREPL implements the interactive loop from spec §6: a line at a time is
// run as a turn, with a handful of slash commands controlling session state
// instead of going through the Orchestrator.
func runREPL(ctx context.Context, d *deps, sess *session.Session, ephemeral *memory.Ephemeral, mode tokenbudget.Mode) error {
	fmt.Printf("flexicli %s — session %s (mode: %s). Type /help for commands, Ctrl+D to exit.\n", version, sess.ID, mode)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil && err != io.EOF {
				return newExitError(1, err)
			}
			fmt.Println()
			return nil
		}
		if ctx.Err() != nil {
			return newExitError(2, fmt.Errorf("interrupted"))
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			if handled, err := handleSlashCommand(ctx, d, sess, ephemeral, &mode, line); handled {
				if err != nil {
					fmt.Fprintf(os.Stderr, "error: %v\n", err)
				}
				continue
			}
		}

		answer, err := runOneTurn(ctx, d, sess, ephemeral, mode, line)
		if err != nil {
			if ctx.Err() != nil {
				return newExitError(2, err)
			}
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println(answer)
	}
}

func handleSlashCommand(ctx context.Context, d *deps, sess *session.Session, ephemeral *memory.Ephemeral, mode *tokenbudget.Mode, line string) (bool, error) {
	fields := strings.Fields(line)
	cmd := fields[0]

	switch cmd {
	case "/help":
		fmt.Println("commands: /mode <direct|concise|deep>  /clear  /sessions  /approve <always|never>  /help")
		return true, nil

	case "/mode":
		if len(fields) != 2 {
			return true, fmt.Errorf("usage: /mode <direct|concise|deep>")
		}
		switch tokenbudget.Mode(fields[1]) {
		case tokenbudget.ModeDirect, tokenbudget.ModeConcise, tokenbudget.ModeDeep:
			*mode = tokenbudget.Mode(fields[1])
			fmt.Printf("mode set to %s\n", *mode)
			return true, nil
		default:
			return true, fmt.Errorf("unknown mode %q (want direct, concise, or deep)", fields[1])
		}

	case "/clear":
		ephemeral.Clear()
		fmt.Println("ephemeral memory cleared")
		return true, nil

	case "/sessions":
		sessions, err := d.store.ListSessions(ctx, 20)
		if err != nil {
			return true, err
		}
		for _, s := range sessions {
			marker := " "
			if s.ID == sess.ID {
				marker = "*"
			}
			fmt.Printf("%s %s  mode=%-8s status=%-10s turns=%d\n", marker, s.ID, s.Mode, s.Status, s.TurnCount)
		}
		return true, nil

	case "/approve":
		if len(fields) != 2 {
			return true, fmt.Errorf("usage: /approve <always|never>")
		}
		switch fields[1] {
		case "always":
			d.gate.SetMode(approval.ModeYolo)
			fmt.Println("approval mode set to always-approve")
		case "never":
			d.gate.SetMode(approval.ModeDefault)
			fmt.Println("approval mode set to ask-every-time")
		default:
			return true, fmt.Errorf("usage: /approve <always|never>")
		}
		return true, nil

	default:
		return true, fmt.Errorf("unknown command %q (try /help)", cmd)
	}
}
