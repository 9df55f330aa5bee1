package memory

import (
	"runtime"
	"runtime/debug"
	"sync"
	"time"

	"cliphub/internal/logging"
	"cliphub/internal/metrics"
)

// Config holds the water marks for pipeline backpressure.
type Config struct {
	// LimitBytes is the heap budget; 0 uses the Go memory limit if one is set.
	LimitBytes int64

	// HighWaterMark is the usage ratio below which paused workers resume.
	HighWaterMark float64

	// CriticalWaterMark is the usage ratio at which workers pause.
	CriticalWaterMark float64

	CheckInterval time.Duration
}

// DefaultConfig returns the water marks used by the server.
func DefaultConfig() Config {
	return Config{
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     5 * time.Second,
	}
}

// Monitor samples heap usage and holds thumbnail workers back while usage
// is above the critical water mark. Decoding full frames and encoding
// three variants per clip is the largest allocation in the server.
type Monitor struct {
	config Config
	limit  int64
	log    *logging.Logger

	// sample returns the current heap allocation in bytes.
	sample func() uint64

	mu      sync.Mutex
	current uint64
	paused  bool
	resume  chan struct{}

	stopOnce sync.Once
	stop     chan struct{}
}

// NewMonitor creates a monitor. Without any limit it never pauses.
func NewMonitor(config Config) *Monitor {
	log := logging.For("memory")

	limit := config.LimitBytes
	if limit == 0 {
		if goMemLimit := debug.SetMemoryLimit(-1); goMemLimit > 0 && goMemLimit < 1<<62 {
			limit = goMemLimit
			log.Info("Pipeline backpressure using GOMEMLIMIT: %s", formatBytes(limit))
		}
	}
	if limit == 0 {
		log.Debug("No memory limit configured, pipeline backpressure disabled")
	}

	return &Monitor{
		config: config,
		limit:  limit,
		log:    log,
		sample: heapAlloc,
		resume: make(chan struct{}),
		stop:   make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Enabled reports whether the monitor has a limit to enforce.
func (m *Monitor) Enabled() bool {
	return m.limit > 0
}

// Start begins sampling in the background.
func (m *Monitor) Start() {
	if !m.Enabled() {
		return
	}
	go m.loop()
}

// Stop ends sampling and releases any waiting workers.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.check()
		case <-m.stop:
			return
		}
	}
}

func (m *Monitor) check() {
	if !m.Enabled() {
		return
	}

	alloc := m.sample()
	usage := float64(alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = alloc

	switch {
	case usage >= m.config.CriticalWaterMark && !m.paused:
		m.log.Warn("Memory critical (%.1f%% of limit), pausing thumbnail workers", usage*100)
		m.paused = true
		metrics.MemoryPaused.Set(1)
		metrics.MemoryGCPauses.Inc()
		go runtime.GC()
	case usage < m.config.HighWaterMark && m.paused:
		m.log.Info("Memory recovered (%.1f%% of limit), resuming thumbnail workers", usage*100)
		m.paused = false
		metrics.MemoryPaused.Set(0)
		close(m.resume)
		m.resume = make(chan struct{})
	}
}

// Wait blocks while the monitor is paused. It returns false if the
// monitor was stopped while waiting.
func (m *Monitor) Wait() bool {
	m.mu.Lock()
	if !m.paused {
		m.mu.Unlock()
		return true
	}
	resume := m.resume
	m.mu.Unlock()

	select {
	case <-resume:
		return true
	case <-m.stop:
		return false
	}
}

// Paused reports whether workers are currently held back.
func (m *Monitor) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// Usage returns the last sampled usage ratio, or 0 without a limit.
func (m *Monitor) Usage() float64 {
	if !m.Enabled() {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return float64(m.current) / float64(m.limit)
}
