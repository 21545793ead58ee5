// Package bootstrap builds the store and notifier shared by the binaries.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	amqpad "staylio/internal/adapters/amqp"
	"staylio/internal/adapters/mailer"
	"staylio/internal/app"
	"staylio/internal/domain"
	"staylio/internal/shared"
	"staylio/internal/storage/memory"
	mysqlrepo "staylio/internal/storage/mysql"
)

type Backend interface {
	domain.Store
	domain.Directory
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenStore returns the configured backend and a closer for its resources.
func OpenStore(ctx context.Context, cfg shared.Config) (Backend, io.Closer, error) {
	switch cfg.StoreDriver {
	case "memory":
		log.Warn().Msg("using in-memory store; state is lost on exit")
		return seededMemory(), nopCloser{}, nil
	case "mysql", "":
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("sql.Open: %w", err)
		}
		db.SetMaxOpenConns(20)
		db.SetConnMaxLifetime(5 * time.Minute)
		pctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := db.PingContext(pctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("db ping: %w", err)
		}
		log.Info().Msg("database connection ok")
		return mysqlrepo.New(db), db, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}
}

// seededMemory gives a dev instance one bookable hotel.
func seededMemory() *memory.Store {
	s := memory.New()
	host := int64(1)
	s.PutHost(domain.Host{ID: host, OwnerName: "Demo Host", Email: "host@staylio.local"})
	s.PutHotel(domain.Hotel{ID: 1, Name: "StayLio Demo Residency", City: "Goa", Country: "IN",
		PricePerNight: decimal.NewFromInt(1000), HostID: &host})
	s.PutUser(domain.Guest{ID: 1, Name: "Demo Guest", Email: "guest@staylio.local", EmailVerified: true})
	s.SetRooms(1, "DELUXE", 5)
	return s
}

// OpenNotifier picks the delivery transport behind the dispatcher.
func OpenNotifier(cfg shared.Config) (domain.Notifier, io.Closer, error) {
	switch cfg.NotifyTransport {
	case "http":
		c, err := mailer.New(cfg.MailerBase, cfg.MailerKey, cfg.MailerFrom, cfg.MailerRPS)
		if err != nil {
			return nil, nil, err
		}
		return c, nopCloser{}, nil
	case "amqp":
		p, err := amqpad.New(cfg.AMQPURL, cfg.AMQPQueue)
		if err != nil {
			return nil, nil, err
		}
		return p, p, nil
	case "log", "":
		return app.LogNotifier{}, nopCloser{}, nil
	default:
		return nil, nil, fmt.Errorf("unknown NOTIFY_TRANSPORT %q", cfg.NotifyTransport)
	}
}
