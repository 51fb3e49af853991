package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	availability "fanpit-ticketing/internal/availability"
	availability_api "fanpit-ticketing/internal/availability/api"
	"fanpit-ticketing/internal/config"
	"fanpit-ticketing/internal/database/migrations"
	"fanpit-ticketing/internal/email"
	applogger "fanpit-ticketing/internal/logger"
	"fanpit-ticketing/internal/order"
	orderdb "fanpit-ticketing/internal/order/db"
	orderkafka "fanpit-ticketing/internal/order/kafka"
	"fanpit-ticketing/internal/order/order_api"
	"fanpit-ticketing/internal/payment"
	ticketdb "fanpit-ticketing/internal/tickets/db"
	tickets "fanpit-ticketing/internal/tickets/service"
	"fanpit-ticketing/internal/tickets/ticket_api"
	"fanpit-ticketing/internal/vip"
	vipdb "fanpit-ticketing/internal/vip/db"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := applogger.NewLogger()
	defer log.Close()

	// --- PostgreSQL ---
	sqldb, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("failed to open postgres: %v", err))
	}
	defer sqldb.Close()
	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	if err := sqldb.Ping(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("failed to connect to postgres: %v", err))
	}
	bunDB := bun.NewDB(sqldb, pgdialect.New())

	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions())
	if err := runner.Run(); err != nil {
		log.Fatal("DATABASE", fmt.Sprintf("migrations failed: %v", err))
	}

	// --- Redis (availability cache, best effort) ---
	var cache *availability.Cache
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Warn("REDIS", fmt.Sprintf("redis unavailable, availability cache disabled: %v", err))
	} else {
		cache = availability.NewCache(redisClient)
	}

	// --- Kafka ---
	var events *orderkafka.Producer
	if cfg.Kafka.Enabled {
		events = orderkafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic, log, cfg.Kafka.MockMode)
		defer events.Close()
	}

	// --- Email (required for the confirmation path) ---
	mailer, err := email.NewMailer(cfg.Email)
	if err != nil {
		log.Fatal("EMAIL", fmt.Sprintf("mailer setup failed: %v", err))
	}

	// --- Services ---
	orderService := order.NewOrderService(&orderdb.DB{Bun: bunDB}, eventsOrNil(events), log)
	allocationService := vip.NewAllocationService(&vipdb.DB{Bun: bunDB}, eventsOrNil(events), log)
	ticketService := tickets.NewTicketService(&ticketdb.DB{Bun: bunDB}, mailer, log,
		cfg.Shop.QRNamespace, cfg.Shop.TicketBatchSize)
	availabilityService := availability.NewService(&availability.DB{Bun: bunDB}, cache, log, cfg.Shop.FanpitDayCap)
	stripeService := payment.NewStripeService(&orderdb.DB{Bun: bunDB}, eventsOrNil(events), log, cfg.Stripe)

	// --- Handlers ---
	orderHandler := order_api.NewHandler(orderService, allocationService, log)
	ticketHandler := ticket_api.NewHandler(ticketService, log)
	availabilityHandler := availability_api.NewHandler(availabilityService, log)
	paymentHandler := payment.NewHandler(stripeService, log, cfg.Stripe.WebhookSecret)

	// --- Router ---
	r := chi.NewRouter()

	r.Post("/order/draft", orderHandler.CreateDraft)
	r.Put("/order/{publicToken}/items", orderHandler.SyncItems)
	r.Put("/order/{publicToken}/vip-allocation", orderHandler.AllocateVipTables)
	r.Get("/order/public", orderHandler.GetPublicOrder)
	r.Post("/order/{publicToken}/checkout", paymentHandler.CreateCheckout)

	r.Get("/tickets/public", ticketHandler.GetPublicTickets)
	r.Get("/tickets/{ticketID}/qr", ticketHandler.GetTicketQR)

	r.Get("/fanpit/availability", availabilityHandler.GetAvailability)

	r.Post("/webhooks/stripe", paymentHandler.StripeWebhook)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	server := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		log.Info("SERVER", fmt.Sprintf("ticketshop listening on %s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("SERVER", fmt.Sprintf("http server error: %v", err))
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("SERVER", "shutdown signal received")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatal("SERVER", fmt.Sprintf("forced shutdown: %v", err))
	}
	log.Info("SERVER", "server exited gracefully")
}

// eventsOrNil avoids handing services a typed-nil publisher when Kafka
// is disabled.
func eventsOrNil(p *orderkafka.Producer) order.EventPublisher {
	if p == nil {
		return nil
	}
	return p
}
