// Command loadgen drives synthetic traffic against a running searchd: it
// seeds a generated catalog through the rebuild endpoint, then hammers the
// search and autocomplete endpoints and reports latency percentiles.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	Listings    int
	SuggestPct  int
}

type Stats struct {
	totalRequests atomic.Int64
	successCount  atomic.Int64
	errorCount    atomic.Int64
	latencies     []time.Duration
	latenciesMu   sync.Mutex
	statusCodes   map[int]*atomic.Int64
	statusCodesMu sync.Mutex
}

func NewStats() *Stats {
	return &Stats{
		latencies:   make([]time.Duration, 0, 100000),
		statusCodes: make(map[int]*atomic.Int64),
	}
}

func (s *Stats) RecordRequest(duration time.Duration, statusCode int, err error) {
	s.totalRequests.Add(1)

	if err != nil {
		s.errorCount.Add(1)
		return
	}
	if statusCode >= 200 && statusCode < 300 {
		s.successCount.Add(1)
	} else {
		s.errorCount.Add(1)
	}

	s.latenciesMu.Lock()
	s.latencies = append(s.latencies, duration)
	s.latenciesMu.Unlock()

	s.statusCodesMu.Lock()
	if _, ok := s.statusCodes[statusCode]; !ok {
		s.statusCodes[statusCode] = &atomic.Int64{}
	}
	s.statusCodes[statusCode].Add(1)
	s.statusCodesMu.Unlock()
}

var (
	adjectives = []string{"Wireless", "Ergonomic", "Compact", "Adjustable", "Portable", "Mechanical", "Foldable", "Premium"}
	nouns      = []string{"Laptop Stand", "Desk Lamp", "Keyboard", "Mouse", "Monitor Arm", "Headset", "Webcam", "USB Hub", "Chair", "Backpack"}
	categories = []string{"accessories", "lighting", "computers", "audio", "furniture"}

	queries = []string{
		"wireless laptop",
		"ergonomic chair",
		"desk lamp",
		"mechanical keyboard",
		"usb hub",
		"portable monitor arm",
		"compact webcam",
		"adjustable standing desk",
		"premium headset",
		"foldable laptop stand",
	}
	prefixes = []string{"lap", "des", "ke", "mo", "wir", "erg", "he"}
)

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "base URL of the search service")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	listings := flag.Int("listings", 500, "number of listings to seed (0 to skip seeding)")
	suggestPct := flag.Int("suggest-pct", 20, "percentage of requests that hit autocomplete")
	flag.Parse()

	cfg := Config{
		BaseURL:     *baseURL,
		Concurrency: *concurrency,
		Duration:    *duration,
		Listings:    *listings,
		SuggestPct:  *suggestPct,
	}

	fmt.Println("=== Catalog Search Load Generator ===")
	fmt.Printf("Target:      %s\n", cfg.BaseURL)
	fmt.Printf("Concurrency: %d\n", cfg.Concurrency)
	fmt.Printf("Duration:    %s\n", cfg.Duration)
	fmt.Printf("Listings:    %d\n", cfg.Listings)
	fmt.Println()

	if cfg.Listings > 0 {
		if err := seedCatalog(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "seeding catalog failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Seeded %d listings\n\n", cfg.Listings)
	}

	stats := run(cfg)
	printReport(stats, cfg.Duration)
}

type listing struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Price       float64  `json:"price"`
	Tags        []string `json:"tags"`
}

func seedCatalog(cfg Config) error {
	rng := rand.New(rand.NewSource(42))
	listings := make([]listing, cfg.Listings)
	for i := range listings {
		adj := adjectives[rng.Intn(len(adjectives))]
		noun := nouns[rng.Intn(len(nouns))]
		cat := categories[rng.Intn(len(categories))]
		listings[i] = listing{
			ID:          fmt.Sprintf("gen-%d", i),
			Title:       fmt.Sprintf("%s %s", adj, noun),
			Description: fmt.Sprintf("A %s %s for everyday use", adj, noun),
			Category:    cat,
			Price:       float64(rng.Intn(20000)) / 100,
			Tags:        []string{cat},
		}
	}

	body, err := json.Marshal(listings)
	if err != nil {
		return err
	}
	resp, err := http.Post(cfg.BaseURL+"/api/v1/admin/rebuild", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("rebuild returned %d: %s", resp.StatusCode, payload)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

func run(cfg Config) *Stats {
	stats := NewStats()
	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        cfg.Concurrency * 2,
			MaxIdleConnsPerHost: cfg.Concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Duration)
	defer cancel()

	var wg sync.WaitGroup
	fmt.Print("Running")

	for w := 0; w < cfg.Concurrency; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(workerID)))

			for {
				select {
				case <-ctx.Done():
					return
				default:
				}

				var target string
				if rng.Intn(100) < cfg.SuggestPct {
					prefix := prefixes[rng.Intn(len(prefixes))]
					target = fmt.Sprintf("%s/api/v1/autocomplete?prefix=%s&limit=5",
						cfg.BaseURL, url.QueryEscape(prefix))
				} else {
					query := queries[rng.Intn(len(queries))]
					target = fmt.Sprintf("%s/api/v1/search?q=%s&limit=10&user_id=worker-%d",
						cfg.BaseURL, url.QueryEscape(query), workerID)
				}

				start := time.Now()
				resp, err := client.Do(mustNewRequest(ctx, target))
				took := time.Since(start)

				if err != nil {
					stats.RecordRequest(took, 0, err)
					continue
				}
				io.Copy(io.Discard, resp.Body)
				resp.Body.Close()
				stats.RecordRequest(took, resp.StatusCode, nil)
			}
		}(w)
	}

	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fmt.Print(".")
			}
		}
	}()

	wg.Wait()
	fmt.Println(" done!")
	fmt.Println()
	return stats
}

func mustNewRequest(ctx context.Context, rawURL string) *http.Request {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		panic(fmt.Sprintf("creating request: %v", err))
	}
	return req
}

func printReport(stats *Stats, duration time.Duration) {
	total := stats.totalRequests.Load()
	success := stats.successCount.Load()
	errors := stats.errorCount.Load()

	fmt.Println("=== Results ===")
	fmt.Printf("Total Requests:  %d\n", total)
	fmt.Printf("Successful:      %d\n", success)
	fmt.Printf("Errors:          %d\n", errors)

	if total > 0 {
		fmt.Printf("Error Rate:      %.2f%%\n", float64(errors)/float64(total)*100)
		fmt.Printf("Requests/sec:    %.2f\n", float64(total)/duration.Seconds())
	}

	stats.latenciesMu.Lock()
	latencies := make([]time.Duration, len(stats.latencies))
	copy(latencies, stats.latencies)
	stats.latenciesMu.Unlock()

	if len(latencies) > 0 {
		sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })

		var sum time.Duration
		for _, l := range latencies {
			sum += l
		}
		avg := sum / time.Duration(len(latencies))

		fmt.Println()
		fmt.Println("=== Latency ===")
		fmt.Printf("Min:    %s\n", latencies[0])
		fmt.Printf("Avg:    %s\n", avg)
		fmt.Printf("P50:    %s\n", percentile(latencies, 50))
		fmt.Printf("P90:    %s\n", percentile(latencies, 90))
		fmt.Printf("P95:    %s\n", percentile(latencies, 95))
		fmt.Printf("P99:    %s\n", percentile(latencies, 99))
		fmt.Printf("Max:    %s\n", latencies[len(latencies)-1])
	}

	fmt.Println()
	fmt.Println("=== Status Codes ===")
	stats.statusCodesMu.Lock()
	codes := make([]int, 0, len(stats.statusCodes))
	for code := range stats.statusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	for _, code := range codes {
		fmt.Printf("  %d: %d\n", code, stats.statusCodes[code].Load())
	}
	stats.statusCodesMu.Unlock()

	if total == 0 {
		fmt.Println()
		fmt.Println("WARNING: No requests completed. Is the service running?")
		os.Exit(1)
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
