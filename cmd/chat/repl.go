package main

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/ashureev/caficafe-chat/internal/chatclient"
	"github.com/ashureev/caficafe-chat/internal/domain"
)

const replHelp = `Commands:
  /health   check the chat service now
  /history  show message counts for this session
  /help     show this help
  /quit     leave the chat`

// runREPL reads lines from in and sends each as a chat message until in is
// exhausted, the user quits or ctx is done.
func runREPL(ctx context.Context, opts *options, in io.Reader, out io.Writer) error {
	r := newRenderer(out)
	client, err := opts.newClient(r)
	if err != nil {
		return err
	}
	defer client.Close()

	r.info("CafiCafe chat at %s (user %s). Type /help for commands.", client.BaseURL(), client.UserID())
	client.CheckHealth(ctx)

	stopMonitor := client.MonitorConnection(ctx, opts.cfg.MonitorInterval)
	defer stopMonitor()

	lines := make(chan string)
	scanDone := make(chan error, 1)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		scanDone <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				select {
				case err := <-scanDone:
					return err
				default:
					return nil
				}
			}
			if quit := handleLine(ctx, client, r, line); quit {
				return nil
			}
		}
	}
}

// handleLine runs a slash command or sends the line. It reports whether the
// session should end.
func handleLine(ctx context.Context, client *chatclient.Client, r *renderer, line string) bool {
	line = strings.TrimSpace(line)
	switch line {
	case "":
		return false
	case "/quit", "/exit":
		r.info("Goodbye!")
		return true
	case "/help":
		r.info("%s", replHelp)
		return false
	case "/health":
		if client.CheckHealth(ctx) {
			r.info("Chat service is healthy.")
		} else {
			r.info("Chat service is unreachable.")
		}
		return false
	case "/history":
		log := client.Log()
		r.info("%d messages (%d from you, %d replies, %d notices)", log.Len(),
			log.CountBySender(domain.SenderUser), log.CountBySender(domain.SenderBot), log.CountBySender(domain.SenderSystem))
		return false
	}

	// Failures are rendered as system messages by the observer.
	_, _ = client.SendMessage(ctx, line)
	return false
}
