// Tails the chat event stream from NATS. Ops utility for verifying that
// ANSWER_COMPLETED, FEEDBACK_RECEIVED and the other pipeline events actually
// land on the bus.
//
// Usage: go run ./cmd/events_tail [-subject events.>] [-durable events-tail]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"doc-assistant-be/pkg/events"
	pktNats "doc-assistant-be/pkg/nats"

	"github.com/fatih/color"
	"github.com/joho/godotenv"
)

func main() {
	subject := flag.String("subject", "events.>", "subject filter to tail")
	durable := flag.String("durable", "events-tail", "durable consumer name")
	flag.Parse()

	if err := godotenv.Load(); err != nil {
		log.Println("Info: No .env file found, using system env")
	}

	natsURL := os.Getenv("NATS_URL")
	if natsURL == "" {
		natsURL = "nats://localhost:4222"
	}

	sub, err := pktNats.NewSubscriber(natsURL)
	if err != nil {
		log.Fatalf("Error: Failed to connect to NATS at %s: %v", natsURL, err)
	}
	defer sub.Close()

	tag := color.New(color.FgCyan, color.Bold).SprintFunc()
	err = sub.Subscribe(*subject, *durable, func(_ context.Context, event events.Event) error {
		pretty, err := json.MarshalIndent(event.Payload(), "", "  ")
		if err != nil {
			return err
		}
		log.Printf("%s\n%s", tag("["+event.EventType()+"]"), pretty)
		return nil
	})
	if err != nil {
		log.Fatalf("Error: Failed to subscribe to %s: %v", *subject, err)
	}

	log.Printf("Tailing %s, Ctrl+C to stop...", *subject)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
}
