package main

import (
	"context"
	"expvar"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/andikajayaw/queue-system-backend/internal/announce"
	"github.com/andikajayaw/queue-system-backend/internal/config"
	"github.com/andikajayaw/queue-system-backend/internal/display"
	"github.com/andikajayaw/queue-system-backend/internal/httpapi"
	"github.com/andikajayaw/queue-system-backend/internal/hub"
	"github.com/andikajayaw/queue-system-backend/internal/models"
	"github.com/andikajayaw/queue-system-backend/internal/queue"
	"github.com/andikajayaw/queue-system-backend/internal/store"
	"github.com/andikajayaw/queue-system-backend/internal/store/memory"
	"github.com/andikajayaw/queue-system-backend/internal/store/postgres"
	"github.com/andikajayaw/queue-system-backend/internal/telemetry"

	"github.com/google/uuid"
	"github.com/igm/sockjs-go/sockjs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	shutdownTelemetry := telemetry.Setup("queue-server", cfg.OTLPEndpoint, cfg.OTLPInsecure)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTelemetry(ctx)
	}()

	var (
		tickets  store.TicketStore
		staffDir store.StaffDirectory
	)
	if cfg.DatabaseURL != "" {
		pool, err := pgxpool.New(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("db connect: %v", err)
		}
		defer pool.Close()
		pg := postgres.NewStore(pool)
		tickets = pg
		staffDir = pg
	} else {
		mem := memory.NewStore()
		seedStaff(mem)
		tickets = mem
		staffDir = mem
		log.Printf("DB_DSN not set, using in-memory store")
	}

	h := hub.New()
	broadcaster := display.NewBroadcaster(tickets, h)
	announcer := announce.New(announce.DefaultTemplates())
	coordinator := queue.NewCoordinator(tickets, staffDir, announcer, broadcaster, queue.Options{
		CreateAttempts: cfg.CreateAttempts,
	})

	handler := httpapi.NewHandler(coordinator)
	limiter := httpapi.NewRateLimiter(httpapi.RateLimitConfig{
		IPPerMinute:    cfg.RateLimitPerMinute,
		IPBurst:        cfg.RateLimitBurst,
		StaffPerMinute: cfg.StaffRateLimitPerMinute,
		StaffBurst:     cfg.StaffRateLimitBurst,
	})

	mux := http.NewServeMux()
	mux.Handle("/", handler.Routes())
	mux.Handle("/metrics", expvar.Handler())
	mux.Handle("/realtime/", realtimeHandler(h, broadcaster))

	otelHandler := otelhttp.NewHandler(httpapi.LoggingMiddleware(limiter.Middleware(mux)), "queue-server")
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      otelHandler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("queue-server listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}

// realtimeHandler accepts display and staff observers. A client joins a
// room with {"action":"subscribe","room":"display"} and immediately gets a
// snapshot frame so it renders the current queue before the next event.
func realtimeHandler(h *hub.Hub, broadcaster *display.Broadcaster) http.Handler {
	return sockjs.NewHandler("/realtime", sockjs.DefaultOptions, func(session sockjs.Session) {
		client := &hub.Client{ID: uuid.NewString(), Send: make(chan []byte, 16)}
		h.Register(client)
		defer h.Unregister(client)

		go func() {
			for msg := range client.Send {
				_ = session.Send(string(msg))
			}
		}()

		for {
			msg, err := session.Recv()
			if err != nil {
				return
			}
			parsed, ok := hub.ParseSubscribe([]byte(msg))
			if !ok {
				continue
			}
			if parsed.Action == "unsubscribe" {
				h.SetRoom(client, "")
				continue
			}
			h.SetRoom(client, parsed.Room)
			broadcaster.SendSnapshot(context.Background(), client)
		}
	})
}

// seedStaff fills the in-memory staff directory from STAFF_SEED, a
// comma-separated list of id:name pairs. Without it a single demo station
// is created so call operations work out of the box.
func seedStaff(mem *memory.Store) {
	raw := strings.TrimSpace(os.Getenv("STAFF_SEED"))
	if raw == "" {
		id := uuid.NewString()
		mem.AddStaff(models.Staff{StaffID: id, Name: "Counter 1"})
		log.Printf("seeded demo staff id=%s", id)
		return
	}
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			log.Printf("skip malformed staff seed entry %q", pair)
			continue
		}
		mem.AddStaff(models.Staff{StaffID: parts[0], Name: parts[1]})
	}
}
