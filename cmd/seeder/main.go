// Seeder posts synthetic score submissions to a locally running server,
// exercising the full submission pipeline end to end.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"time"
)

type judgments struct {
	FantasticPlus int `json:"fantasticPlus"`
	Fantastic     int `json:"fantastic"`
	Excellent     int `json:"excellent"`
	Great         int `json:"great"`
	Decent        int `json:"decent"`
	WayOff        int `json:"wayOff"`
	Miss          int `json:"miss"`
	TotalSteps    int `json:"totalSteps"`
	MinesHit      int `json:"minesHit"`
	TotalMines    int `json:"totalMines"`
	HoldsHeld     int `json:"holdsHeld"`
	TotalHolds    int `json:"totalHolds"`
	RollsHeld     int `json:"rollsHeld"`
	TotalRolls    int `json:"totalRolls"`
}

type submission struct {
	Score     int        `json:"score"`
	Comment   string     `json:"comment"`
	Rate      int        `json:"rate"`
	Judgments *judgments `json:"judgmentCounts"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "server base URL")
	apiKey := flag.String("key", "seed-api-key-0000000000000000", "player credential")
	chartHash := flag.String("chart", "76957dd1f96f764d", "chart hash")
	count := flag.Int("count", 1, "number of submissions to send")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	for i := 0; i < *count; i++ {
		total := 400
		miss := rand.Intn(20)
		great := rand.Intn(40)
		fantastic := total - miss - great

		body := map[string]submission{
			"player1": {
				Score:   7000 + rand.Intn(3000),
				Comment: fmt.Sprintf("C%d, seed run %d", 450+rand.Intn(200), i+1),
				Rate:    100,
				Judgments: &judgments{
					FantasticPlus: fantastic / 2,
					Fantastic:     fantastic - fantastic/2,
					Great:         great,
					Miss:          miss,
					TotalSteps:    total,
					HoldsHeld:     30,
					TotalHolds:    32,
				},
			},
		}

		payload, err := json.Marshal(body)
		if err != nil {
			log.Fatalf("marshal: %v", err)
		}

		url := fmt.Sprintf("%s/score-submit.php?chartHashP1=%s&maxLeaderboardResults=10", *baseURL, *chartHash)
		req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(payload))
		if err != nil {
			log.Fatalf("build request: %v", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key-player-1", *apiKey)

		resp, err := client.Do(req)
		if err != nil {
			log.Fatalf("submit: %v", err)
		}
		data, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		fmt.Printf("submission %d: %s\n%s\n", i+1, resp.Status, data)
	}
}
