// Package main runs a demo WebSocket client for plan events.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/gorilla/websocket"
)

type wsMessage struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	base := fmt.Sprintf("http://localhost:%s", port)

	// Create a small plan to stream events for
	body := []byte(`{
        "items": [{"id":"crate","shape":"box","lengthMm":1000,"widthMm":800,"heightMm":600,"weightKg":50,"quantity":4,"stackable":true}],
        "containers": [{"name":"van","lengthMm":4000,"widthMm":2000,"heightMm":2200,"maxWeightKg":1500}]
    }`)
	req, _ := http.NewRequest(http.MethodPost, base+"/v1/plans", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Tenant-Id", "t_demo")
	req.Header.Set("X-Role", "admin")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = resp.Body.Close() }()
	var plan struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&plan); err != nil {
		log.Fatal(err)
	}
	if plan.ID == "" {
		log.Fatal("no plan id returned")
	}
	log.Printf("Plan ID: %s", plan.ID)

	// Connect WS
	u := url.URL{Scheme: "ws", Host: "localhost:" + port, Path: "/ws/plans"}
	hdr := http.Header{}
	hdr.Set("X-Tenant-Id", "t_demo")
	hdr.Set("X-Role", "admin")
	c, _, err := websocket.DefaultDialer.Dial(u.String(), hdr)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = c.Close() }()

	if err := c.WriteJSON(wsMessage{Type: "connection_init"}); err != nil {
		log.Fatal(err)
	}

	sub, _ := json.Marshal(map[string]any{"planId": plan.ID})
	if err := c.WriteJSON(wsMessage{Type: "subscribe", ID: "1", Payload: sub}); err != nil {
		log.Fatal(err)
	}

	deadline := time.After(30 * time.Second)
	for {
		select {
		case <-deadline:
			log.Println("done")
			return
		default:
		}
		_ = c.SetReadDeadline(time.Now().Add(30 * time.Second))
		var msg wsMessage
		if err := c.ReadJSON(&msg); err != nil {
			log.Printf("read: %v", err)
			return
		}
		switch msg.Type {
		case "connection_ack":
			log.Println("connected")
		case "ping":
			_ = c.WriteJSON(wsMessage{Type: "pong"})
		case "next":
			log.Printf("event: %s", msg.Payload)
		case "complete":
			log.Println("stream complete")
			return
		case "error":
			log.Printf("error: %s", msg.Payload)
			return
		}
	}
}
