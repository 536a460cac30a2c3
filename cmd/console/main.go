package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-market-console/apitest"
	"github.com/jrsteele09/go-market-console/category"
	"github.com/jrsteele09/go-market-console/internal/config"
	"github.com/jrsteele09/go-market-console/internal/utils"
	"github.com/jrsteele09/go-market-console/item"
	"github.com/jrsteele09/go-market-console/restapi"
	"github.com/jrsteele09/go-market-console/session"
)

const populateWait = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running console: %s\n", err)
		os.Exit(1)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	demo := flag.Bool("demo", false, "run against an embedded in-memory catalog service")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.New()
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}).With().Timestamp().Logger()

	displayAppname(cfg.GetAppName())

	baseURL := cfg.GetAPIBaseURL()
	email := cfg.GetLoginEmail()
	password := cfg.GetLoginPassword()

	var demoServer *http.Server
	if *demo {
		var err error
		baseURL, email, password, demoServer, err = startDemoService(cfg, log)
		if err != nil {
			return errors.Wrap(err, "starting demo service")
		}
		defer shutdown(demoServer) //nolint:errcheck
	}

	client, err := restapi.New(baseURL, restapi.WithLogger(log))
	if err != nil {
		return errors.Wrap(err, "building API client")
	}

	sess, err := session.New(client, &session.FileArtifact{Path: cfg.GetArtifactPath()},
		session.WithLogger(log),
		session.WithIdleTimeout(cfg.GetIdleTimeout()),
	)
	if err != nil {
		return errors.Wrap(err, "building session store")
	}
	defer sess.Close()

	categories, err := category.New(client.CategoryAPI(), sess, category.WithLogger(log))
	if err != nil {
		return errors.Wrap(err, "building category store")
	}
	defer categories.Close()

	items, err := item.New(client.ItemAPI(), sess, item.WithLogger(log))
	if err != nil {
		return errors.Wrap(err, "building item store")
	}
	defer items.Close()

	ctx := context.Background()
	sess.Revalidate(ctx)
	if !sess.Authenticated() {
		if email == "" || password == "" {
			return errors.New("not logged in and no LOGIN_EMAIL/LOGIN_PASSWORD configured")
		}
		if err := sess.Login(ctx, email, password); err != nil {
			return errors.Wrap(err, "login")
		}
	}

	waitForCatalog(categories, items)
	printCatalog(log, categories, items)

	log.Info().Msg("watching catalog, press Ctrl-C to exit")
	waitForStopSignal()
	return nil
}

// waitForCatalog gives the automatic post-login refresh a moment to land
// before the summary prints.
func waitForCatalog(categories *category.Store, items *item.Store) {
	deadline := time.Now().Add(populateWait)
	for time.Now().Before(deadline) {
		if len(categories.Categories()) > 0 || len(items.Items()) > 0 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func printCatalog(log zerolog.Logger, categories *category.Store, items *item.Store) {
	roots := categories.Roots()
	log.Info().Int("categories", len(categories.Categories())).Int("roots", len(roots)).Msg("category tree")
	now := time.Now()
	for _, it := range items.Items() {
		event := log.Info().
			Str("name", it.Name).
			Float64("price", it.BasePrice).
			Float64("effectivePrice", it.EffectivePrice(now))
		if tier, ok := it.TierFor(10); ok {
			event = event.Float64("bulkPriceAt10", tier.UnitPrice)
		}
		event.Msg("item")
	}
}

func startDemoService(cfg config.Config, log zerolog.Logger) (baseURL, email, password string, server *http.Server, err error) {
	api := apitest.New(cfg.GetDemoSecret())

	email, password = "demo@market.test", "Demo1234"
	api.AddAccount(session.Identity{
		ID:          "demo-user",
		DisplayName: "Demo Manager",
		Email:       email,
		TenantID:    "demo-market",
		Role:        session.RoleManager,
		Verified:    true,
	}, password)

	dairy := api.SeedCategory(category.Category{Name: "Dairy", TenantID: "demo-market"})
	api.SeedCategory(category.Category{Name: "Cheese", TenantID: "demo-market", ParentID: dairy.ID})
	api.SeedItem(item.Item{
		Name:            "Whole Milk 1L",
		CategoryID:      dairy.ID,
		BasePrice:       1.80,
		TenantID:        "demo-market",
		Unit:            "bottle",
		StockQuantity:   120,
		DiscountPercent: utils.Ptr(15.0),
		PromotionEndsAt: utils.Ptr(time.Now().Add(72 * time.Hour)),
		QuantityTiers:   []item.QuantityTier{{MinQuantity: 6, UnitPrice: 1.60}, {MinQuantity: 12, UnitPrice: 1.45}},
	})

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", "", "", nil, errors.Wrap(err, "net.Listen")
	}

	server = &http.Server{Handler: api.Handler()}
	go func() {
		if serveErr := server.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			log.Error().Err(serveErr).Msg("demo service stopped")
		}
	}()

	baseURL = fmt.Sprintf("http://%s", listener.Addr().String())
	log.Info().Str("url", baseURL).Msg("demo catalog service listening")
	return baseURL, email, password, server, nil
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
