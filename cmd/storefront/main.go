package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"gofalre.io/storefront"
	"gofalre.io/storefront/auth"
	"gofalre.io/storefront/cache"
	"gofalre.io/storefront/cart"
	"gofalre.io/storefront/config"
	"gofalre.io/storefront/driver"
	"gofalre.io/storefront/models"
	"gofalre.io/storefront/transport"
)

func main() {
	add := flag.String("add", "", "product id to add to the cart before printing it")
	qty := flag.Int("qty", 1, "quantity for -add")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "storefront:", err)
		os.Exit(2)
	}

	logger := newLogger(cfg.Debug)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *add, *qty, logger); err != nil {
		logger.Fatal("storefront exited with error", zap.Error(err))
	}
}

func newLogger(debug bool) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if debug {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	return logger
}

func run(ctx context.Context, cfg *config.Config, addProduct string, quantity int, logger *zap.Logger) error {
	session := auth.NewMemorySession()

	client, err := transport.New(cfg.APIURL, session, logger)
	if err != nil {
		return err
	}

	// 未設定 Redis 時使用程序內快取
	var store cache.Store = cache.NewLocal(cache.New(cache.WithLogger(logger)))
	if cfg.RedisAddr != "" {
		rdb, err := driver.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, logger)
		if err != nil {
			return err
		}
		defer func() { _ = rdb.Close() }()
		store = cache.NewRedis(rdb, "", logger)
	}

	var publisher storefront.Publisher
	if cfg.NATSURL != "" {
		nc, err := driver.ConnectNATS(cfg.NATSURL, logger)
		if err != nil {
			return err
		}
		defer func() {
			if err := nc.Drain(); err != nil {
				logger.Warn("Failed to drain NATS connection", zap.Error(err))
			}
		}()
		publisher = nc
	}

	svc := storefront.NewService(cfg, client, store, session, publisher, logger)
	defer svc.Close()

	if cfg.Token != "" {
		if _, err := svc.Login(ctx, cfg.Token); err != nil {
			return err
		}
	} else if err := svc.Cart().Reload(ctx); err != nil {
		logger.Warn("Cart unavailable", zap.Error(err))
	}

	if addProduct != "" {
		waitCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		result, err := svc.AddItem(ctx, models.Product{ID: addProduct}, quantity).Wait(waitCtx)
		if err != nil {
			return err
		}
		if result.RequiresLogin {
			logger.Warn(result.Message, zap.String("product_id", addProduct))
		}
	}

	logCart(svc.Cart(), logger)
	return nil
}

func logCart(c cart.Service, logger *zap.Logger) {
	for _, l := range c.Lines() {
		logger.Info("Cart line",
			zap.String("id", l.ID),
			zap.String("name", l.Name),
			zap.Int("quantity", l.Quantity),
			zap.String("unit_price", l.UnitPrice.StringFixed(2)),
			zap.Bool("selected", c.IsSelected(l.ID)))
	}

	totals := c.Totals()
	logger.Info("Cart totals",
		zap.Int("lines", c.TotalLineCount()),
		zap.Int("selected", c.SelectedCount()),
		zap.String("currency", totals.CurrencyCode()),
		zap.String("subtotal", totals.Subtotal.StringFixed(2)),
		zap.String("tax", totals.Tax.StringFixed(2)),
		zap.String("shipping", totals.Shipping.StringFixed(2)),
		zap.String("total", totals.Total.StringFixed(2)))
}
