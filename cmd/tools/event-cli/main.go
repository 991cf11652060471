// event-cli печатает доменные события сервера из NATS JetStream.
//
//	event-cli -url nats://127.0.0.1:4222 -types player.died,player.achievement
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/annel0/wildlands/internal/eventbus"
)

const timeFormat = "2006-01-02T15:04:05Z"

func main() {
	var (
		url     = flag.String("url", "nats://127.0.0.1:4222", "NATS server URL")
		stream  = flag.String("stream", "WILDLANDS", "JetStream stream name")
		types   = flag.String("types", "", "Event types filter (comma-separated)")
		players = flag.String("players", "", "Player IDs filter (comma-separated)")
	)
	flag.Parse()

	bus, err := eventbus.NewJetStreamBus(*url, *stream, 24*time.Hour)
	if err != nil {
		log.Fatalf("❌ Failed to connect to NATS: %v", err)
	}
	defer bus.Close()

	wanted := splitList(*players)
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	sub, err := bus.Subscribe(ctx, eventbus.Filter{Types: splitList(*types)}, func(_ context.Context, ev *eventbus.Envelope) {
		if len(wanted) > 0 && !contains(wanted, ev.PlayerID) {
			return
		}
		fmt.Printf("%s  %-20s %-36s %s\n", ev.Timestamp.UTC().Format(timeFormat), ev.EventType, ev.PlayerID, ev.Payload)
	})
	if err != nil {
		log.Fatalf("❌ Subscribe failed: %v", err)
	}
	defer sub.Unsubscribe()

	fmt.Printf("📡 Listening on %s (stream %s), Ctrl+C to stop\n", *url, *stream)
	<-ctx.Done()
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
