package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	maxClients   = flag.Int("clients", 200, "concurrent API clients")
	maxWatchers  = flag.Int("watchers", 50, "websocket subscribers held open during the run")
	httpHostPort = flag.String("addr", "127.0.0.1:8099", "tentOS http address")
)

var rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
var rndMu sync.Mutex

var failures atomic.Int64

type tentList struct {
	Tents []struct {
		ID string `json:"id"`
	} `json:"tents"`
}

func main() {
	flag.Parse()

	resp, err := http.Get(fmt.Sprintf("http://%s/healthz", *httpHostPort))
	if err != nil {
		log.Fatal("Failed to connect to HTTP server:", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		log.Fatal("HTTP server not available")
	}
	fmt.Printf("http server verified\n")

	tentIDs := listTents()
	if len(tentIDs) == 0 {
		log.Fatal("No tents configured, nothing to exercise")
	}
	fmt.Printf("found %v tents\n", len(tentIDs))

	var received atomic.Int64
	watchers := openWatchers(*maxWatchers, &received)
	defer func() {
		for _, conn := range watchers {
			conn.Close()
		}
	}()
	fmt.Printf("opened %v websocket subscribers\n", len(watchers))

	startTime := time.Now()
	wg := sync.WaitGroup{}
	for i := 0; i < *maxClients; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			doActions(tentIDs[i%len(tentIDs)])
			fmt.Printf("\rfinished client %v", i)
		}()
	}
	wg.Wait()
	usedTime := time.Since(startTime)

	fmt.Printf(
		"\n\rdid actions for %v clients: used time=%v seconds, throughput=%v request/second, failures=%v\n",
		*maxClients, usedTime.Seconds(), float64(*maxClients*4)/usedTime.Seconds(), failures.Load(),
	)
	fmt.Printf("websocket frames received: %v\n", received.Load())
}

func listTents() []string {
	resp, err := http.Get(fmt.Sprintf("http://%s/api/tents", *httpHostPort))
	if err != nil {
		log.Fatal("Failed to list tents:", err)
	}
	defer resp.Body.Close()

	var list tentList
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		log.Fatal("Failed to decode tents:", err)
	}
	ids := make([]string, 0, len(list.Tents))
	for _, t := range list.Tents {
		ids = append(ids, t.ID)
	}
	return ids
}

func openWatchers(n int, received *atomic.Int64) []*websocket.Conn {
	url := fmt.Sprintf("ws://%s/api/ws", *httpHostPort)
	conns := make([]*websocket.Conn, 0, n)
	for j := 0; j < n; j++ {
		conn, _, err := websocket.DefaultDialer.Dial(url, nil)
		if err != nil {
			fmt.Printf("\nwebsocket dial error: %v\n", err)
			continue
		}
		conns = append(conns, conn)
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
				received.Add(1)
			}
		}()
	}
	return conns
}

func sleepJitter() {
	rndMu.Lock()
	d := time.Duration(100+rnd.Int31n(1000)) * time.Millisecond
	rndMu.Unlock()
	time.Sleep(d)
}

func doActions(tentID string) {
	actions := []func(string){getTent, getHistory, getAlerts, postNote}
	rndMu.Lock()
	rnd.Shuffle(len(actions), func(i, j int) {
		actions[i], actions[j] = actions[j], actions[i]
	})
	rndMu.Unlock()

	for _, action := range actions {
		action(tentID)
		sleepJitter()
	}
}

func get(path string) {
	resp, err := http.Get(fmt.Sprintf("http://%s%s", *httpHostPort, path))
	if err != nil {
		failures.Add(1)
		fmt.Printf("\nerror: %v\n", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		failures.Add(1)
		fmt.Printf("\nGET %s status %v\n", path, resp.StatusCode)
	}
}

func getTent(tentID string) {
	get("/api/tents/" + tentID)
}

func getHistory(tentID string) {
	get("/api/tents/" + tentID + "/history?hours=1")
}

func getAlerts(tentID string) {
	get("/api/alerts?tent_id=" + tentID)
}

func postNote(tentID string) {
	payload, _ := json.Marshal(map[string]string{
		"notes": "load test " + uuid.NewString(),
		"user":  "apiload",
	})
	resp, err := http.Post(
		fmt.Sprintf("http://%s/api/tents/%s/events", *httpHostPort, tentID),
		"application/json", bytes.NewBuffer(payload),
	)
	if err != nil {
		failures.Add(1)
		fmt.Printf("\nerror: %v\n", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		failures.Add(1)
		fmt.Printf("\nPOST events status %v\n", resp.StatusCode)
	}
}
