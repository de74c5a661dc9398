package core

import (
	"context"
	"fmt"
	"testing"

	"github.com/vovakirdan/relaychat/internal/store/memory"
)

func benchmarkRoomBroadcast(b *testing.B, recipients int) {
	ctx := context.Background()
	relay := NewRelay(NewRegistry(), memory.New(), nil, DefaultOptions())

	sender := NewClient("sender", "sender")
	relay.HandleJoin(ctx, sender, "bench", "sender")

	clients := make([]*Client, 0, recipients)
	for i := range recipients {
		c := NewClient(fmt.Sprintf("c%d", i), "client")
		relay.HandleJoin(ctx, c, "bench", "client")
		clients = append(clients, c)
	}

	// Drain events for everyone but the first recipient to avoid channel backpressure.
	target := clients[0]
	drain(target.Events)
	go func() {
		for range sender.Events {
		}
	}()
	for _, c := range clients[1:] {
		go func(cl *Client) {
			for range cl.Events {
			}
		}(c)
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := relay.HandleSend(ctx, sender, "bench", nil, "payload", ""); err != nil {
			b.Fatal(err)
		}
		<-target.Events
	}
}

func BenchmarkRoomBroadcast_10(b *testing.B)  { benchmarkRoomBroadcast(b, 10) }
func BenchmarkRoomBroadcast_100(b *testing.B) { benchmarkRoomBroadcast(b, 100) }
func BenchmarkRoomBroadcast_500(b *testing.B) { benchmarkRoomBroadcast(b, 500) }
