package main

import (
	"bufio"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/aroundme/aroundme/internal/infrastructure/clients/chatstream"
)

// A small terminal chat surface against a running API server. Each line
// typed becomes one turn; tokens print as they stream in. Ctrl-C cancels
// the in-flight reply; EOF on stdin exits.
func main() {
	baseURL := flag.String("url", "http://localhost:8080", "API base URL")
	flag.Parse()

	logger := zerolog.New(os.Stderr).Level(zerolog.WarnLevel)
	client := chatstream.NewClient(*baseURL, logger)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	fmt.Println("Chat connected to", *baseURL, "- type a message, Ctrl-C to cancel")

	var conversationID string
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		message := strings.TrimSpace(scanner.Text())
		if message == "" {
			continue
		}

		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			select {
			case <-sigCh:
				cancel()
				fmt.Println("\n[cancelled]")
			case <-done:
			}
		}()

		err := client.Stream(ctx, chatstream.Request{
			ConversationID: conversationID,
			Message:        message,
		}, chatstream.Handler{
			OnStart: func(payload string) {
				var start struct {
					ConversationID string `json:"conversationId"`
				}
				if json.Unmarshal([]byte(payload), &start) == nil && start.ConversationID != "" {
					conversationID = start.ConversationID
				}
			},
			OnDelta: func(token string) { fmt.Print(token) },
			OnError: func(message string) { fmt.Printf("\n[error: %s]", message) },
			OnDone:  func(string) {},
		})
		close(done)
		cancel()
		fmt.Println()

		if err != nil && ctx.Err() == nil {
			log.Printf("stream failed: %v", err)
		}
	}
}
