package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/noah-isme/room-reservation-api/internal/models"
	"github.com/noah-isme/room-reservation-api/internal/service"
	"github.com/noah-isme/room-reservation-api/pkg/config"
)

type outcome struct {
	Status   int
	Duration time.Duration
	Error    error
}

func main() {
	var (
		base     string
		roomID   string
		userID   string
		start    string
		end      string
		parallel int
		timeout  time.Duration
	)

	flag.StringVar(&base, "base", "http://localhost:8080/api/v1", "API base URL")
	flag.StringVar(&roomID, "room", "", "Room ID to book")
	flag.StringVar(&userID, "user", "9d4c2b1a-7e6f-4a3b-8c2d-1e0f9a8b7c02", "User ID placed in the signed token")
	flag.StringVar(&start, "start", "", "Reservation start (RFC3339)")
	flag.StringVar(&end, "end", "", "Reservation end (RFC3339)")
	flag.IntVar(&parallel, "n", 10, "Number of concurrent requests")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "HTTP client timeout")
	flag.Parse()

	if roomID == "" || start == "" || end == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	auth := service.NewAuthService(nil, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: time.Hour,
		Issuer:            cfg.JWT.Issuer,
	})
	token, _, err := auth.IssueToken(models.User{ID: userID, Role: models.RoleMember})
	if err != nil {
		log.Fatalf("failed to sign token: %v", err)
	}

	body, err := json.Marshal(map[string]string{"start_date": start, "end_date": end, "purpose": "race probe"})
	if err != nil {
		log.Fatalf("encode payload: %v", err)
	}
	url := strings.TrimRight(base, "/") + "/rooms/" + roomID + "/reservations"
	client := &http.Client{Timeout: timeout}

	results := make([]outcome, parallel)
	ready := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < parallel; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-ready
			results[i] = book(client, url, token, body)
		}(i)
	}
	close(ready)
	wg.Wait()

	created := printReport(results)
	if created != 1 {
		fmt.Printf("expected exactly one 201, got %d\n", created)
		os.Exit(1)
	}
}

func book(client *http.Client, url, token string, body []byte) outcome {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return outcome{Error: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	started := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		return outcome{Error: err, Duration: time.Since(started)}
	}
	defer resp.Body.Close()
	return outcome{Status: resp.StatusCode, Duration: time.Since(started)}
}

func printReport(results []outcome) int {
	counts := map[int]int{}
	var slowest time.Duration
	for _, r := range results {
		if r.Error != nil {
			fmt.Printf("request failed: %v\n", r.Error)
			continue
		}
		counts[r.Status]++
		if r.Duration > slowest {
			slowest = r.Duration
		}
	}
	statuses := make([]int, 0, len(counts))
	for status := range counts {
		statuses = append(statuses, status)
	}
	sort.Ints(statuses)
	fmt.Printf("%-8s %s\n", "STATUS", "COUNT")
	for _, status := range statuses {
		fmt.Printf("%-8d %d\n", status, counts[status])
	}
	fmt.Printf("slowest: %s\n", slowest)
	return counts[http.StatusCreated]
}
