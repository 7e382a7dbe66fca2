// Command chessroom is a terminal client for the chessroom server. It
// joins a game, prints everything the server broadcasts and sends moves
// typed on stdin (SAN like "e4" or coordinates like "e2e4").
package main

import (
	"bufio"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/gorilla/websocket"

	"chessroom/internal/protocol"
)

var (
	server = flag.String("server", "ws://localhost:5000/ws", "server websocket URL")
	game   = flag.String("game", "", "game ID to join (required)")
)

func main() {
	flag.Parse()
	if *game == "" {
		fmt.Fprintln(os.Stderr, "usage: chessroom -game <id> [-server ws://host:port/ws]")
		os.Exit(2)
	}

	conn, _, err := websocket.DefaultDialer.Dial(*server, nil)
	if err != nil {
		log.Fatalf("connect %s: %v", *server, err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(protocol.ClientMessage{Type: protocol.TypeJoin, SessionID: *game}); err != nil {
		log.Fatalf("join: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg protocol.ServerMessage
			if err := conn.ReadJSON(&msg); err != nil {
				fmt.Println("connection closed")
				return
			}
			printMessage(msg)
		}
	}()

	fmt.Printf("joined game %s, type a move, \"state\" or \"resign\"\n", *game)
	reader := bufio.NewReader(os.Stdin)
	for {
		fmt.Print("> ")
		line, err := reader.ReadString('\n')
		if err != nil {
			break
		}
		input := strings.TrimSpace(line)
		if input == "" {
			continue
		}

		var msg protocol.ClientMessage
		switch input {
		case "quit", "exit":
			return
		case "state":
			msg = protocol.ClientMessage{Type: protocol.TypeState, SessionID: *game}
		case "resign":
			msg = protocol.ClientMessage{Type: protocol.TypeResign, SessionID: *game}
		default:
			msg = protocol.ClientMessage{Type: protocol.TypeMove, SessionID: *game, Move: input}
		}
		if err := conn.WriteJSON(msg); err != nil {
			log.Fatalf("send: %v", err)
		}

		select {
		case <-done:
			return
		default:
		}
	}
}

func printMessage(msg protocol.ServerMessage) {
	switch msg.Type {
	case protocol.TypeRoleAssigned:
		fmt.Printf("\nyou play %s\n", msg.Role)
	case protocol.TypeOpponentJoined:
		fmt.Println("\nopponent joined, game on")
	case protocol.TypeOpponentDisconnected:
		fmt.Println("\nopponent disconnected")
	case protocol.TypeMoveApplied:
		fmt.Printf("\n%s played %s, %s to move\n", msg.Role, msg.Move, msg.Turn)
		if msg.GameOver != "" {
			fmt.Printf("game over: %s\n", msg.GameOver)
		}
	case protocol.TypeStateSnapshot:
		fmt.Printf("\nstatus=%s turn=%s\nposition: %s\n", msg.Status, msg.Turn, msg.Position)
	case protocol.TypeResigned:
		fmt.Printf("\n%s resigned\n", msg.Role)
	case protocol.TypeError:
		fmt.Printf("\nerror: %s\n", msg.Message)
	default:
		fmt.Printf("\n%+v\n", msg)
	}
	fmt.Print("> ")
}
