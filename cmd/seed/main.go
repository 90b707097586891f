package main

import (
	"context"
	"log"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongoadapter "github.com/robertarktes/rail-seat-booking/internal/adapters/mongo"
	"github.com/robertarktes/rail-seat-booking/internal/config"
	"github.com/robertarktes/rail-seat-booking/internal/domain"
	"github.com/robertarktes/rail-seat-booking/internal/observability"
)

type route struct {
	id, name, from, to string
	departsIn, duration time.Duration
	first, economy      int64
}

var routes = []route{
	{"lagos-ibadan-0700", "Lagos Ibadan Express", "Lagos", "Ibadan", 24 * time.Hour, 2*time.Hour + 30*time.Minute, 8000, 5000},
	{"lagos-ibadan-1600", "Lagos Ibadan Express", "Lagos", "Ibadan", 33 * time.Hour, 2*time.Hour + 30*time.Minute, 8000, 5000},
	{"abuja-kaduna-0800", "Abuja Kaduna Rail", "Abuja", "Kaduna", 49 * time.Hour, 2 * time.Hour, 6500, 3500},
	{"warri-itakpe-0900", "Warri Itakpe Line", "Warri", "Itakpe", 74 * time.Hour, 6 * time.Hour, 9000, 4500},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	logger := observability.NewLogger(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer client.Disconnect(context.Background())
	catalog := mongoadapter.NewCatalogRepository(client.Database(cfg.MongoDB), logger)

	today := time.Now().UTC().Truncate(24 * time.Hour)
	for i, r := range routes {
		prices, err := domain.NewPriceTable(decimal.NewFromInt(r.economy), map[domain.SeatClass]decimal.Decimal{
			domain.ClassFirst:   decimal.NewFromInt(r.first),
			domain.ClassEconomy: decimal.NewFromInt(r.economy),
		})
		if err != nil {
			log.Fatalf("route %s: %v", r.id, err)
		}
		departure := today.Add(r.departsIn)
		j := domain.Journey{
			ID:            r.id,
			Name:          r.name,
			From:          r.from,
			To:            r.to,
			DepartureTime: departure,
			ArrivalTime:   departure.Add(r.duration),
			Currency:      "NGN",
			Prices:        prices,
			Seats:         domain.GenerateSeatMap(domain.DefaultSeatLayout, domain.NewSeededRand(uint64(i+1))),
		}
		if err := catalog.SaveJourney(ctx, j); err != nil {
			log.Fatalf("failed to save journey %s: %v", r.id, err)
		}
		logger.WithField("journey_id", j.ID).WithField("available_seats", j.AvailableSeats()).Info("journey seeded")
	}
}
