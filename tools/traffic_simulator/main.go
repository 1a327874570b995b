package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/patrickwarner/adkit/internal/config"
	"github.com/patrickwarner/adkit/internal/db"
	"github.com/patrickwarner/adkit/internal/observability"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	server    string
	users     int
	totalReq  int
	conc      int
	clickRate float64
	botRate   float64
	flush     bool
	redisAddr string
	debug     bool
	label     string
)

var logger *zap.Logger

var httpClient *http.Client

var (
	userAgents = []string{
		"Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1",
		"Mozilla/5.0 (Linux; Android 12; Pixel 6 Pro) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/114.0.5735.196 Mobile Safari/537.36",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_3_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.1 Safari/605.1.15",
		"Mozilla/5.0 (X11; Ubuntu; Linux x86_64; rv:111.0) Gecko/20100101 Firefox/111.0",
	}
	botAgents = []string{
		"curl/8.4.0",
		"python-requests/2.31.0",
		"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)",
	}
	ipPrefixes = []string{"192.0.2.", "198.51.100.", "203.0.113."}
)

var (
	countVisits      uint64
	countClicks      uint64
	countCounted     uint64
	countRatelimited uint64
	countBlacklisted uint64
	countErrors      uint64
)

type simUser struct {
	ip string
	ua string
}

func main() {
	flag.StringVar(&server, "server", "http://localhost:8787", "adkit server base URL")
	flag.IntVar(&users, "users", 100, "number of unique visitors")
	flag.IntVar(&totalReq, "requests", 1000, "total visits to simulate")
	flag.IntVar(&conc, "concurrency", 20, "concurrent requests")
	flag.Float64Var(&clickRate, "click-rate", 0.2, "probability of a click per visit")
	flag.Float64Var(&botRate, "bot-rate", 0.1, "share of visitors using crawler user agents")
	flag.BoolVar(&flush, "flush", false, "delete rate limit counters before sending traffic")
	flag.StringVar(&redisAddr, "redis", "", "redis address (defaults to REDIS_ADDR)")
	flag.BoolVar(&debug, "debug", false, "enable verbose debug logs")
	flag.StringVar(&label, "label", "", "label to identify this run")
	flag.Parse()

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	var err error
	logger, err = observability.InitLoggerWithLevel(level, "traffic-simulator")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	httpClient = &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   5 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: conc,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	if label == "" {
		label = time.Now().Format(time.RFC3339)
	}

	if flush {
		flushCounters()
	}

	r := rand.New(rand.NewSource(time.Now().UnixNano()))
	population := make([]simUser, users)
	for i := range population {
		u := simUser{ip: ipPrefixes[i%len(ipPrefixes)] + fmt.Sprint(1+i%254)}
		if r.Float64() < botRate {
			u.ua = botAgents[r.Intn(len(botAgents))]
		} else {
			u.ua = userAgents[r.Intn(len(userAgents))]
		}
		population[i] = u
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, conc)
	for i := 0; i < totalReq; i++ {
		u := population[r.Intn(len(population))]
		click := r.Float64() < clickRate
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			visit(u, click)
		}()
	}
	wg.Wait()
	printStats()
}

func flushCounters() {
	cfg := config.Load()
	addr := redisAddr
	if addr == "" {
		addr = cfg.RedisAddr
	}
	store, err := db.InitRedis(addr)
	if err != nil {
		logger.Fatal("redis connect", zap.Error(err))
	}
	defer store.Close()

	n, err := store.DeleteByPattern(context.Background(), "ratelimit:*")
	if err != nil {
		logger.Error("flush rate limit counters", zap.Error(err))
		return
	}
	logger.Info("rate limit counters flushed", zap.String("addr", addr), zap.Int("keys_deleted", n))
}

// visit requests the visitor endpoint for u and, if click is set, posts a
// click. The visitor is forwarded with user_ip/user_ua, which the server only
// honors with ALLOW_FORWARDED_VISITOR=true.
func visit(u simUser, click bool) {
	q := url.Values{"user_ip": {u.ip}, "user_ua": {u.ua}}

	atomic.AddUint64(&countVisits, 1)
	if _, err := send(http.MethodGet, server+"/api/v1/visitor?"+q.Encode()); err != nil {
		atomic.AddUint64(&countErrors, 1)
		logger.Debug("visitor request failed", zap.Error(err))
		return
	}
	if !click {
		return
	}

	q.Set("ad", "sim-"+label)
	atomic.AddUint64(&countClicks, 1)
	body, err := send(http.MethodPost, server+"/api/v1/clicks?"+q.Encode())
	if err != nil {
		atomic.AddUint64(&countErrors, 1)
		logger.Debug("click request failed", zap.Error(err))
		return
	}
	var resp struct {
		Counted bool   `json:"counted"`
		Reason  string `json:"reason"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		atomic.AddUint64(&countErrors, 1)
		return
	}
	switch {
	case resp.Counted:
		atomic.AddUint64(&countCounted, 1)
	case resp.Reason == "ratelimited":
		atomic.AddUint64(&countRatelimited, 1)
	default:
		atomic.AddUint64(&countBlacklisted, 1)
	}
}

func send(method, target string) ([]byte, error) {
	req, err := http.NewRequest(method, target, nil)
	if err != nil {
		return nil, err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s %s: http %d", method, req.URL.Path, resp.StatusCode)
	}
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}

func printStats() {
	logger.Info("stats",
		zap.String("run", label),
		zap.Uint64("visits", atomic.LoadUint64(&countVisits)),
		zap.Uint64("clicks", atomic.LoadUint64(&countClicks)),
		zap.Uint64("counted", atomic.LoadUint64(&countCounted)),
		zap.Uint64("ratelimited", atomic.LoadUint64(&countRatelimited)),
		zap.Uint64("blacklisted", atomic.LoadUint64(&countBlacklisted)),
		zap.Uint64("errors", atomic.LoadUint64(&countErrors)))
}
