package sniffer

import (
	"context"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"blesniff/internal/advdata"
	"blesniff/internal/capture"
	"blesniff/internal/db"
	"blesniff/internal/gps"
	"blesniff/internal/ids"
)

// Recorder persists decoded traffic. *db.Store implements it.
type Recorder interface {
	InsertAdvertisement(ctx context.Context, p db.AdvertisementParams) (int64, error)
	InsertRemoteIDMessage(ctx context.Context, p db.RemoteIDParams) (int64, error)
}

type Config struct {
	// Workers decoding frames concurrently.
	Workers int
	// Queue is the frame buffer between the source and the workers.
	Queue int
	// Cooldown limits console lines and stored rows for ordinary
	// advertisements to one per address per period. Remote ID and malformed
	// traffic is never throttled.
	Cooldown time.Duration
	// Verbose prints every decoded record under its advertisement line.
	Verbose bool
	// RemoteIDOnly suppresses [ADV] lines for advertisements without Remote ID.
	RemoteIDOnly bool
	SessionID    int64
}

type Sniffer struct {
	cfg      Config
	decoder  *advdata.Decoder
	store    Recorder
	gps      *gps.State
	resolver *ids.Resolver

	jsonMu  sync.Mutex
	jsonOut io.Writer

	mu          sync.Mutex
	lastShown   map[string]time.Time
	droneByAddr map[string]string
	drones      map[string]struct{}
	devices     map[string]struct{}

	frames    atomic.Int64
	records   atomic.Int64
	malformed atomic.Int64
	remoteID  atomic.Int64
	storeErrs atomic.Int64
}

type Option func(*Sniffer)

func WithStore(r Recorder) Option { return func(s *Sniffer) { s.store = r } }
func WithGPS(g *gps.State) Option { return func(s *Sniffer) { s.gps = g } }
func WithResolver(r *ids.Resolver) Option { return func(s *Sniffer) { s.resolver = r } }
func WithDecoder(d *advdata.Decoder) Option { return func(s *Sniffer) { s.decoder = d } }
func WithJSONOutput(w io.Writer) Option { return func(s *Sniffer) { s.jsonOut = w } }

func New(cfg Config, opts ...Option) *Sniffer {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.Queue < 1 {
		cfg.Queue = 1024
	}
	s := &Sniffer{
		cfg:         cfg,
		decoder:     advdata.NewDecoder(),
		lastShown:   map[string]time.Time{},
		droneByAddr: map[string]string{},
		drones:      map[string]struct{}{},
		devices:     map[string]struct{}{},
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run feeds frames from src through the worker pool until src stops or ctx
// is done. It returns src's error.
func (s *Sniffer) Run(ctx context.Context, src capture.Source) error {
	frames := make(chan capture.Frame, s.cfg.Queue)
	log.Printf("sniffer: source %s started (workers=%d queue=%d cooldown=%s)", src.Name(), s.cfg.Workers, s.cfg.Queue, s.cfg.Cooldown)

	var wg sync.WaitGroup
	for range s.cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for f := range frames {
				s.Handle(ctx, f)
			}
		}()
	}

	err := src.Run(ctx, frames)
	close(frames)
	wg.Wait()
	st := s.Stats()
	if err != nil {
		log.Printf("sniffer: source %s stopped: %v", src.Name(), err)
	} else {
		log.Printf("sniffer: source %s finished", src.Name())
	}
	log.Printf("sniffer: frames=%d records=%d malformed=%d remote_id=%d drones=%d store_errors=%d",
		st.Frames, st.Records, st.Malformed, st.RemoteID, st.Drones, st.StoreErrs)
	return err
}

// Stats is a snapshot of the counters.
type Stats struct {
	Frames    int64
	Records   int64
	Malformed int64
	RemoteID  int64
	Devices   int
	Drones    int
	StoreErrs int64
}

func (s *Sniffer) Stats() Stats {
	s.mu.Lock()
	devices, drones := len(s.devices), len(s.drones)
	s.mu.Unlock()
	return Stats{
		Frames:    s.frames.Load(),
		Records:   s.records.Load(),
		Malformed: s.malformed.Load(),
		RemoteID:  s.remoteID.Load(),
		Devices:   devices,
		Drones:    drones,
		StoreErrs: s.storeErrs.Load(),
	}
}

// shouldShow reports whether addr is outside its cooldown and marks it shown.
func (s *Sniffer) shouldShow(addr string, now time.Time) bool {
	if s.cfg.Cooldown <= 0 || addr == "" {
		return true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if last, ok := s.lastShown[addr]; ok && now.Sub(last) < s.cfg.Cooldown {
		return false
	}
	s.lastShown[addr] = now
	return true
}
