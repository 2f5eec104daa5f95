package main

import (
	"encoding/json"
	"flag"
	"log"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"

	"illyrian_project/internal/realtime"
	"illyrian_project/internal/service"
)

// Connects to the realtime endpoint and prints every event it receives.
func main() {
	addr := flag.String("addr", "ws://localhost:8080/ws", "websocket endpoint")
	token := flag.String("token", "", "bearer token (generated from JWT_SECRET and -user when empty)")
	userID := flag.String("user", "", "user id for a generated token")
	wait := flag.Duration("wait", 10*time.Second, "how long to listen")
	flag.Parse()

	if *token == "" {
		secret := os.Getenv("JWT_SECRET")
		if secret == "" || *userID == "" {
			log.Fatal("pass -token, or set JWT_SECRET and pass -user")
		}
		service.InitJWT(secret)
		t, err := service.GenerateJWT(*userID, "", time.Hour)
		if err != nil {
			log.Fatalf("generate token: %v", err)
		}
		*token = t
	}

	u, err := url.Parse(*addr)
	if err != nil {
		log.Fatalf("bad addr: %v", err)
	}
	q := u.Query()
	q.Set("token", *token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		log.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(map[string]string{"type": realtime.MsgPing}); err != nil {
		log.Fatalf("ping: %v", err)
	}

	deadline := time.Now().Add(*wait)
	_ = conn.SetReadDeadline(deadline)
	for {
		var ev realtime.Event
		if err := conn.ReadJSON(&ev); err != nil {
			if time.Now().After(deadline) {
				log.Println("done")
				return
			}
			log.Fatalf("read: %v", err)
		}
		data, _ := json.Marshal(ev.Data)
		log.Printf("%s %s\n", ev.Type, data)
	}
}
