// Command loadtest exercises a running room server with simulated
// clients. Each client joins the room, walks randomly, and chats once
// in a while; inbound frames are counted by type. At the end it prints
// a human-readable summary of what the server delivered, which makes
// admission limits and fan-out throughput easy to eyeball.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/urfave/cli/v3"

	"github.com/tobyre/bearroom/room/wire"
)

type counters struct {
	connected int64
	rejected  int64
	movesSent int64
	chatsSent int64
	framesIn  int64
	readErr   int64

	mu     sync.Mutex
	byType map[string]int64
}

func (c *counters) countFrame(msgType string) {
	atomic.AddInt64(&c.framesIn, 1)
	c.mu.Lock()
	c.byType[msgType]++
	c.mu.Unlock()
}

func main() {
	cmd := &cli.Command{
		Name:  "loadtest",
		Usage: "drive a room server with simulated clients",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "url",
				Value: "ws://localhost:3000/room",
				Usage: "room endpoint to dial",
			},
			&cli.IntFlag{
				Name:  "clients",
				Value: 25,
				Usage: "number of simulated clients",
			},
			&cli.DurationFlag{
				Name:  "duration",
				Value: 30 * time.Second,
				Usage: "how long to keep the clients running",
			},
			&cli.DurationFlag{
				Name:  "move-interval",
				Value: 200 * time.Millisecond,
				Usage: "delay between movement frames per client",
			},
			&cli.IntFlag{
				Name:  "chat-every",
				Value: 50,
				Usage: "send a chat line every N moves",
			},
		},
		Action: run,
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatalf("loadtest failed: %v", err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	url := cmd.String("url")
	clients := cmd.Int("clients")
	duration := cmd.Duration("duration")
	moveInterval := cmd.Duration("move-interval")
	chatEvery := cmd.Int("chat-every")

	log.Printf("Driving %s with %d clients for %s", url, clients, duration)

	stats := &counters{byType: make(map[string]int64)}

	runCtx, cancel := context.WithTimeout(ctx, duration)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runClient(runCtx, id, url, moveInterval, chatEvery, stats)
		}(i)

		// Stagger dials so the attempt window is not hit all at once.
		time.Sleep(20 * time.Millisecond)
	}

	wg.Wait()
	report(stats)
	return nil
}

// runClient drives one connection until the context expires or the
// server drops it.
func runClient(ctx context.Context, id int, url string, moveInterval time.Duration, chatEvery int, stats *counters) {
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		atomic.AddInt64(&stats.rejected, 1)
		if resp != nil {
			log.Printf("Client %d rejected: %s", id, resp.Status)
		} else {
			log.Printf("Client %d dial failed: %v", id, err)
		}
		return
	}
	defer conn.Close()
	atomic.AddInt64(&stats.connected, 1)

	send := func(msgType string, payload any) error {
		raw, err := wire.Encode(msgType, payload)
		if err != nil {
			return err
		}
		return conn.WriteMessage(websocket.TextMessage, raw)
	}

	if err := send(wire.TypeJoinRoom, wire.JoinPayload{
		SessionID: fmt.Sprintf("load-%d", id),
		Username:  fmt.Sprintf("bot-%d", id),
	}); err != nil {
		log.Printf("Client %d join failed: %v", id, err)
		return
	}

	// Reader: count everything, answer server heartbeats.
	go func() {
		for {
			conn.SetReadDeadline(time.Now().Add(90 * time.Second))
			_, raw, err := conn.ReadMessage()
			if err != nil {
				atomic.AddInt64(&stats.readErr, 1)
				return
			}
			env, err := wire.Decode(raw)
			if err != nil {
				continue
			}
			stats.countFrame(env.Type)
			if env.Type == wire.TypePing {
				send(wire.TypePong, nil)
			}
		}
	}()

	x, y := 200.0, 200.0
	direction := "right"
	moves := 0

	ticker := time.NewTicker(moveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		case <-ticker.C:
			x += rand.Float64()*20 - 10
			y += rand.Float64()*20 - 10
			if rand.Float64() < 0.5 {
				direction = "left"
			} else {
				direction = "right"
			}

			if err := send(wire.TypeMoveMessage, wire.MovePayload{X: &x, Y: &y, Direction: direction}); err != nil {
				return
			}
			atomic.AddInt64(&stats.movesSent, 1)
			moves++

			if chatEvery > 0 && moves%chatEvery == 0 {
				if err := send(wire.TypeChatMessage, wire.ChatPayload{
					Message: fmt.Sprintf("move %d from bot-%d", moves, id),
				}); err != nil {
					return
				}
				atomic.AddInt64(&stats.chatsSent, 1)
			}
		}
	}
}

func report(stats *counters) {
	fmt.Println("\n=== Load test summary ===")
	fmt.Printf("Connected: %d\n", atomic.LoadInt64(&stats.connected))
	fmt.Printf("Rejected:  %d\n", atomic.LoadInt64(&stats.rejected))
	fmt.Printf("Moves sent: %d\n", atomic.LoadInt64(&stats.movesSent))
	fmt.Printf("Chats sent: %d\n", atomic.LoadInt64(&stats.chatsSent))
	fmt.Printf("Frames received: %d\n", atomic.LoadInt64(&stats.framesIn))
	fmt.Printf("Read errors: %d\n", atomic.LoadInt64(&stats.readErr))

	stats.mu.Lock()
	defer stats.mu.Unlock()
	data, err := json.MarshalIndent(stats.byType, "", "  ")
	if err == nil {
		fmt.Printf("By type: %s\n", data)
	}
}
