package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/gorilla/websocket"

	"garudarush/internal/models"
)

// Watcher follows one monitoring session over the server's websocket
// and prints samples and alerts as they arrive.
type Watcher struct {
	serverURL string
	sessionID string
}

func NewWatcher(serverURL, sessionID string) *Watcher {
	return &Watcher{serverURL: serverURL, sessionID: sessionID}
}

// CreateSession asks the server for a fresh session and starts it.
func (w *Watcher) CreateSession() error {
	resp, err := http.Post(w.serverURL+"/api/sessions", "application/json",
		bytes.NewBufferString("{}"))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var info models.SessionInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return err
	}
	w.sessionID = info.ID

	resp, err = http.Post(w.serverURL+"/api/sessions/"+w.sessionID+"/start", "application/json", nil)
	if err != nil {
		return err
	}
	resp.Body.Close()

	fmt.Println("Session started:", w.sessionID)
	return nil
}

type frame struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Run streams frames until interrupted.
func (w *Watcher) Run() error {
	wsURL := strings.Replace(w.serverURL, "http", "ws", 1) + "/ws?session=" + url.QueryEscape(w.sessionID)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", wsURL, err)
	}
	defer conn.Close()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	done := make(chan error, 1)
	go func() {
		for {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				done <- err
				return
			}
			w.print(f)
		}
	}()

	select {
	case <-interrupt:
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		return nil
	case err := <-done:
		return err
	}
}

func (w *Watcher) print(f frame) {
	switch f.Type {
	case "sample":
		var s models.TrafficSample
		if json.Unmarshal(f.Payload, &s) != nil {
			return
		}
		fmt.Printf("[%s] normal=%d suspicious=%d attack=%d\n",
			s.Timestamp.Format("15:04:05"), s.Normal, s.Suspicious, s.Attack)
	case "alert":
		var a models.Alert
		if json.Unmarshal(f.Payload, &a) != nil {
			return
		}
		fmt.Printf("🚨 %s  %s  %s → %s  confidence %.1f%%\n",
			a.Severity, a.AttackType, a.SourceIP, a.DestIP, a.Confidence)
	case "state":
		var snap models.Snapshot
		if json.Unmarshal(f.Payload, &snap) != nil {
			return
		}
		fmt.Printf("state: packets=%d attacks=%d samples=%d alerts=%d\n",
			snap.TotalPackets, snap.AttacksDetected, len(snap.TrafficSeries), len(snap.Alerts))
	}
}

func main() {
	serverURL := flag.String("server", "http://localhost:8888", "monitoring server base URL")
	sessionID := flag.String("session", "", "existing session to watch (created if empty)")
	flag.Parse()

	fmt.Println("GarudaRush - Live Session Watcher")
	fmt.Println("=================================")

	watcher := NewWatcher(*serverURL, *sessionID)

	if watcher.sessionID == "" {
		if err := watcher.CreateSession(); err != nil {
			fmt.Fprintln(os.Stderr, "create session:", err)
			os.Exit(1)
		}
	}

	if err := watcher.Run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
