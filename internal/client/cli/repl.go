package cli

import (
	"bufio"
	"context"
	"fmt"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL dispatches to.
type execIface interface {
	Grant(ctx context.Context, args []string) error
	Tier(ctx context.Context, args []string) error
	Special(ctx context.Context, args []string) error
	Found(ctx context.Context, args []string) error
	Token(ctx context.Context, args []string) error
}

// runREPL reads commands line by line until EOF, "exit" or "quit".
//
//	grant <owner> <gb>                 add permanent bonus capacity
//	tier <owner> <tierId>              change subscription tier
//	special <gb> <maxUses> [createdBy] issue an administrator code
//	found <owner> [class]              issue a single-use mini-game code
//	token <owner> [hours]              mint an HTTP API access token
//
// Handlers print their own results and errors.
func runREPL(ctx context.Context, a execIface, scanner *bufio.Scanner) {
	for {
		printlnFn("gd-admin > ")
		if !scanner.Scan() {
			return
		}
		parts := strings.Fields(scanner.Text())
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		switch cmd {
		case "help":
			printlnFn("Available commands: grant, tier, special, found, token, exit")

		case "grant":
			_ = a.Grant(ctx, args)

		case "tier":
			_ = a.Tier(ctx, args)

		case "special":
			_ = a.Special(ctx, args)

		case "found":
			_ = a.Found(ctx, args)

		case "token":
			_ = a.Token(ctx, args)

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}
	}
}
