package health

import (
	"context"
	"encoding/json"
	"runtime"
	"strconv"
	"time"

	"somosrentable-backend/internal/domain"
	"somosrentable-backend/internal/middleware"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

// DBPinger is optional. A nil pinger reports the database as disconnected.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// Report is the /health/json payload.
type Report struct {
	Status       string               `json:"status"`
	Runtime      RuntimeInfo          `json:"runtime"`
	Traffic      TrafficInfo          `json:"traffic"`
	Dependencies map[string]DepStatus `json:"dependencies"`
	Backlog      *Backlog             `json:"backlog,omitempty"`
}

type RuntimeInfo struct {
	UptimeSeconds int64  `json:"uptimeSeconds"`
	AllocMB       uint64 `json:"allocMb"`
	HeapInUseMB   uint64 `json:"heapInUseMb"`
	Goroutines    int    `json:"goroutines"`
	GoVersion     string `json:"goVersion"`
}

type TrafficInfo struct {
	TotalRequests int             `json:"totalRequests"`
	FailedCount   int             `json:"failedCount"`
	SuccessRate   float64         `json:"successRate"`
	AvgResponseMs float64         `json:"avgResponseMs"`
	LastRequest   json.RawMessage `json:"lastRequest,omitempty"`
}

type DepStatus struct {
	Status string `json:"status"`
	PingMs *int64 `json:"pingMs,omitempty"`
}

// Backlog is the work waiting on staff or on the expiry sweep.
type Backlog struct {
	PendingReservations  int64 `json:"pendingReservations"`
	OverdueReservations  int64 `json:"overdueReservations"`
	PendingKYC           int64 `json:"pendingKyc"`
	PendingPaymentProofs int64 `json:"pendingPaymentProofs"`
}

// Checker assembles health reports.
type Checker struct {
	Rdb *redis.Client
	DB  DBPinger
	// Gorm, when set, adds the funnel backlog to the report.
	Gorm *gorm.DB
	Now  func() time.Time
}

func (h *Checker) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// Collect pings the dependencies concurrently, then reads the traffic
// counters kept by middleware.HealthMarker. Status is "ok" only when both
// Postgres and Redis answer.
func (h *Checker) Collect(ctx context.Context) Report {
	var dbDep, redisDep DepStatus
	var backlog *Backlog
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dbDep = ping(h.DB != nil, func() error { return h.DB.Ping(gctx) })
		return nil
	})
	g.Go(func() error {
		redisDep = ping(h.Rdb != nil, func() error { return h.Rdb.Ping(gctx).Err() })
		return nil
	})
	if h.Gorm != nil {
		g.Go(func() error {
			if b, err := CountBacklog(gctx, h.Gorm, h.now()); err == nil {
				backlog = &b
			}
			return nil
		})
	}
	_ = g.Wait()

	rep := Report{
		Status:       "issue",
		Dependencies: map[string]DepStatus{"database": dbDep, "redis": redisDep},
		Backlog:      backlog,
	}
	if dbDep.Status == "connected" && redisDep.Status == "connected" {
		rep.Status = "ok"
	}

	started := h.now()
	if redisDep.Status == "connected" {
		rep.Traffic, started = h.traffic(ctx)
	} else {
		rep.Traffic = TrafficInfo{SuccessRate: 100}
	}

	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	uptime := int64(h.now().Sub(started).Seconds())
	if uptime < 0 {
		uptime = 0
	}
	rep.Runtime = RuntimeInfo{
		UptimeSeconds: uptime,
		AllocMB:       m.Alloc >> 20,
		HeapInUseMB:   m.HeapInuse >> 20,
		Goroutines:    runtime.NumGoroutine(),
		GoVersion:     runtime.Version(),
	}
	return rep
}

func ping(configured bool, fn func() error) DepStatus {
	if !configured {
		return DepStatus{Status: "disconnected"}
	}
	start := time.Now()
	if err := fn(); err != nil {
		return DepStatus{Status: "error"}
	}
	ms := time.Since(start).Milliseconds()
	return DepStatus{Status: "connected", PingMs: &ms}
}

// traffic reads the counters and the start mark, setting the mark on first use.
func (h *Checker) traffic(ctx context.Context) (TrafficInfo, time.Time) {
	out := TrafficInfo{SuccessRate: 100}
	started := h.now()

	vals, err := h.Rdb.MGet(ctx, middleware.KeyReqTotal, middleware.KeyReqErrors, middleware.KeyResTime,
		middleware.KeyResCount, middleware.KeyStartTime, middleware.KeyLastReq).Result()
	if err != nil {
		return out, started
	}
	get := func(i int) string {
		s, _ := vals[i].(string)
		return s
	}

	if ms, err := strconv.ParseInt(get(4), 10, 64); err == nil {
		started = time.UnixMilli(ms)
	} else {
		h.Rdb.SetNX(ctx, middleware.KeyStartTime, started.UnixMilli(), 0)
	}
	out.TotalRequests, _ = strconv.Atoi(get(0))
	out.FailedCount, _ = strconv.Atoi(get(1))
	if out.TotalRequests > 0 {
		out.SuccessRate = round1(float64(out.TotalRequests-out.FailedCount) / float64(out.TotalRequests) * 100)
	}
	total, _ := strconv.ParseFloat(get(2), 64)
	if n, _ := strconv.Atoi(get(3)); n > 0 {
		out.AvgResponseMs = float64(int64(total/float64(n)*100+0.5)) / 100
	}
	if s := get(5); s != "" && json.Valid([]byte(s)) {
		out.LastRequest = json.RawMessage(s)
	}
	return out, started
}

func round1(v float64) float64 {
	return float64(int64(v*10+0.5)) / 10
}

// CountBacklog counts pending funnel work. Overdue reservations are pending
// holds past expiry that the sweep has not reached yet.
func CountBacklog(ctx context.Context, db *gorm.DB, now time.Time) (Backlog, error) {
	var b Backlog
	q := db.WithContext(ctx)
	if err := q.Model(&domain.Reservation{}).Where("status = ?", domain.ReservationPending).Count(&b.PendingReservations).Error; err != nil {
		return b, err
	}
	if err := q.Model(&domain.Reservation{}).Where("status = ? AND expires_at <= ?", domain.ReservationPending, now).
		Count(&b.OverdueReservations).Error; err != nil {
		return b, err
	}
	if err := q.Model(&domain.KYCSubmission{}).Where("status = ?", domain.KYCPending).Count(&b.PendingKYC).Error; err != nil {
		return b, err
	}
	if err := q.Model(&domain.PaymentProof{}).Where("status = ?", domain.ProofPending).Count(&b.PendingPaymentProofs).Error; err != nil {
		return b, err
	}
	return b, nil
}
