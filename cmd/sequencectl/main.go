package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/gorilla/websocket"
)

// Common flags
var (
	baseURL = flag.String("url", "http://127.0.0.1:8080", "Server base URL")
	session = flag.String("session", "", "Session token (from join)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [global flags] <command> [args]\n", os.Args[0])
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  ping                             Check server liveness")
		fmt.Fprintln(os.Stderr, "  check-name NAME                  Check display name availability")
		fmt.Fprintln(os.Stderr, "  join NAME                        Join the server; prints session token")
		fmt.Fprintln(os.Stderr, "  leave                            Destroy the session")
		fmt.Fprintln(os.Stderr, "  state                            Print session status (JSON)")
		fmt.Fprintln(os.Stderr, "  rooms                            List rooms (JSON)")
		fmt.Fprintln(os.Stderr, "  create-room NAME [MODE] [BOARD]  Create a room (default 1v1 classic)")
		fmt.Fprintln(os.Stderr, "  join-room ID [PASSWORD]          Join a room")
		fmt.Fprintln(os.Stderr, "  leave-room ID                    Leave a room")
		fmt.Fprintln(os.Stderr, "  ready ID set|unset               Flip the ready flag")
		fmt.Fprintln(os.Stderr, "  start ID                         Start the game (host only)")
		fmt.Fprintln(os.Stderr, "  turn GAME CARD ROW COL           Play a card onto a cell")
		fmt.Fprintln(os.Stderr, "  discard GAME CARD                Exchange a dead card")
		fmt.Fprintln(os.Stderr, "  watch                            Stream events (JSON, one per line)")
		fmt.Fprintln(os.Stderr, "\nGlobal flags:")
		flag.PrintDefaults()
	}
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "ping":
		err = call("GET", "/v1/ping", nil)
	case "check-name":
		err = call("POST", "/v1/check-name", map[string]string{"name": arg(rest, 0)})
	case "join":
		err = call("POST", "/v1/join-server", map[string]string{"name": arg(rest, 0)})
	case "leave":
		err = call("POST", "/v1/leave-server", nil)
	case "state":
		err = call("GET", "/v1/session", nil)
	case "rooms":
		err = call("GET", "/v1/rooms", nil)
	case "create-room":
		mode, board := "1v1", "classic"
		if len(rest) > 1 {
			mode = rest[1]
		}
		if len(rest) > 2 {
			board = rest[2]
		}
		err = call("POST", "/v1/rooms", map[string]string{
			"name": arg(rest, 0), "mode": mode, "boardType": board,
		})
	case "join-room":
		body := map[string]string{}
		if len(rest) > 1 {
			body["password"] = rest[1]
		}
		err = call("POST", "/v1/rooms/"+arg(rest, 0)+"/join", body)
	case "leave-room":
		err = call("POST", "/v1/rooms/"+arg(rest, 0)+"/leave", nil)
	case "ready":
		err = call("POST", "/v1/rooms/"+arg(rest, 0)+"/ready",
			map[string]bool{"ready": arg(rest, 1) != "unset"})
	case "start":
		err = call("POST", "/v1/rooms/"+arg(rest, 0)+"/start", nil)
	case "turn":
		err = call("POST", "/v1/games/"+arg(rest, 0)+"/turn", map[string]int{
			"cardIndex": atoi(arg(rest, 1)),
			"row":       atoi(arg(rest, 2)),
			"col":       atoi(arg(rest, 3)),
		})
	case "discard":
		err = call("POST", "/v1/games/"+arg(rest, 0)+"/discard",
			map[string]int{"cardIndex": atoi(arg(rest, 1))})
	case "watch":
		err = watch()
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func arg(args []string, i int) string {
	if i < len(args) {
		return args[i]
	}
	return ""
}

func atoi(s string) int {
	var n int
	fmt.Sscanf(s, "%d", &n)
	return n
}

// call performs one API request and pretty-prints the response envelope.
func call(method, path string, body interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	req, err := http.NewRequest(method, *baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if *session != "" {
		req.Header.Set("Authorization", "Bearer "+*session)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, raw, "", "  "); err != nil {
		fmt.Println(string(raw))
		return nil
	}
	fmt.Println(pretty.String())
	if resp.StatusCode >= 400 {
		return fmt.Errorf("request failed with status %d", resp.StatusCode)
	}
	return nil
}

// watch attaches to the event stream and prints every event as one JSON
// line until the connection drops.
func watch() error {
	if *session == "" {
		return fmt.Errorf("watch requires -session")
	}
	wsURL := strings.Replace(*baseURL, "http", "ws", 1) + "/ws?sessionId=" + *session
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		fmt.Println(string(msg))
	}
}
