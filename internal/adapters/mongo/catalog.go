package mongo

import (
	"context"
	"regexp"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/robertarktes/rail-seat-booking/internal/domain"
	"github.com/robertarktes/rail-seat-booking/internal/observability"
)

type CatalogRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewCatalogRepository(db *mongo.Database, logger observability.Logger) *CatalogRepository {
	return &CatalogRepository{
		coll:   db.Collection("journeys"),
		logger: logger,
	}
}

type JourneyDoc struct {
	ID            string             `bson:"_id"`
	Name          string             `bson:"name"`
	From          string             `bson:"from"`
	To            string             `bson:"to"`
	DepartureTime time.Time          `bson:"departure_time"`
	ArrivalTime   time.Time          `bson:"arrival_time"`
	Currency      string             `bson:"currency"`
	BasePrice     float64            `bson:"base_price"`
	ClassPrices   map[string]float64 `bson:"class_prices,omitempty"`
	Seats         []SeatDoc          `bson:"seats"`
	CreatedAt     time.Time          `bson:"created_at"`
	UpdatedAt     time.Time          `bson:"updated_at"`
}

type SeatDoc struct {
	ID     string `bson:"id"`
	Number string `bson:"number"`
	Class  string `bson:"class"`
	Status string `bson:"status"`
}

func JourneyDocFrom(j domain.Journey) JourneyDoc {
	doc := JourneyDoc{
		ID:            j.ID,
		Name:          j.Name,
		From:          j.From,
		To:            j.To,
		DepartureTime: j.DepartureTime,
		ArrivalTime:   j.ArrivalTime,
		Currency:      j.Currency,
		BasePrice:     j.Prices.Base().InexactFloat64(),
		Seats:         make([]SeatDoc, len(j.Seats)),
	}
	if byClass := j.Prices.ByClass(); len(byClass) > 0 {
		doc.ClassPrices = make(map[string]float64, len(byClass))
		for class, price := range byClass {
			doc.ClassPrices[string(class)] = price.InexactFloat64()
		}
	}
	for i, s := range j.Seats {
		doc.Seats[i] = SeatDoc{ID: s.ID, Number: s.Number, Class: string(s.Class), Status: string(s.Status)}
	}
	return doc
}

// ToDomain validates the stored document on the way out; a catalog entry with
// an unknown class, status or currency is reported instead of served.
func (d JourneyDoc) ToDomain() (domain.Journey, error) {
	currency, err := domain.ValidateCurrency(d.Currency)
	if err != nil {
		return domain.Journey{}, errors.Wrapf(err, "journey %s", d.ID)
	}
	var byClass map[domain.SeatClass]decimal.Decimal
	if len(d.ClassPrices) > 0 {
		byClass = make(map[domain.SeatClass]decimal.Decimal, len(d.ClassPrices))
		for class, price := range d.ClassPrices {
			c, err := domain.ParseSeatClass(class)
			if err != nil {
				return domain.Journey{}, errors.Wrapf(err, "journey %s", d.ID)
			}
			byClass[c] = decimal.NewFromFloat(price)
		}
	}
	prices, err := domain.NewPriceTable(decimal.NewFromFloat(d.BasePrice), byClass)
	if err != nil {
		return domain.Journey{}, errors.Wrapf(err, "journey %s", d.ID)
	}

	seats := make([]domain.Seat, len(d.Seats))
	for i, s := range d.Seats {
		class, err := domain.ParseSeatClass(s.Class)
		if err != nil {
			return domain.Journey{}, errors.Wrapf(err, "journey %s seat %s", d.ID, s.ID)
		}
		status, err := domain.ParseSeatStatus(s.Status)
		if err != nil {
			return domain.Journey{}, errors.Wrapf(err, "journey %s seat %s", d.ID, s.ID)
		}
		seats[i] = domain.Seat{ID: s.ID, Number: s.Number, Status: status, Class: class}
	}

	return domain.Journey{
		ID:            d.ID,
		Name:          d.Name,
		From:          d.From,
		To:            d.To,
		DepartureTime: d.DepartureTime.UTC(),
		ArrivalTime:   d.ArrivalTime.UTC(),
		Currency:      currency,
		Prices:        prices,
		Seats:         seats,
	}, nil
}

func (c *CatalogRepository) GetJourney(ctx context.Context, id string) (domain.Journey, error) {
	var doc JourneyDoc
	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return domain.Journey{}, errors.Wrapf(domain.ErrNotFound, "journey %s", id)
	}
	if err != nil {
		c.logger.WithError(err).Error("failed to get journey")
		return domain.Journey{}, err
	}
	return doc.ToDomain()
}

// SaveJourney upserts the journey so seeding can be re-run.
func (c *CatalogRepository) SaveJourney(ctx context.Context, j domain.Journey) error {
	doc := JourneyDocFrom(j)
	now := time.Now()
	doc.CreatedAt = now
	doc.UpdatedAt = now
	_, err := c.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		c.logger.WithError(err).Error("failed to save journey")
		return err
	}
	return nil
}

func (c *CatalogRepository) SearchJourneys(ctx context.Context, q domain.JourneyQuery) ([]domain.Journey, error) {
	filter := bson.M{}
	if q.From != "" {
		filter["from"] = bson.M{"$regex": regexp.QuoteMeta(q.From), "$options": "i"}
	}
	if q.To != "" {
		filter["to"] = bson.M{"$regex": regexp.QuoteMeta(q.To), "$options": "i"}
	}
	if !q.Date.IsZero() {
		start, end := q.DayBounds()
		filter["departure_time"] = bson.M{"$gte": start, "$lt": end}
	}

	cur, err := c.coll.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "departure_time", Value: 1}}))
	if err != nil {
		c.logger.WithError(err).Error("failed to search journeys")
		return nil, err
	}
	var docs []JourneyDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}

	journeys := make([]domain.Journey, 0, len(docs))
	for _, doc := range docs {
		j, err := doc.ToDomain()
		if err != nil {
			c.logger.WithError(err).Warn("skipping invalid journey")
			continue
		}
		journeys = append(journeys, j)
	}
	return journeys, nil
}

// SetSeatStatus flips the listed seats of one journey.
func (c *CatalogRepository) SetSeatStatus(ctx context.Context, journeyID string, seatIDs []string, status domain.SeatStatus) error {
	if len(seatIDs) == 0 {
		return nil
	}
	res, err := c.coll.UpdateOne(
		ctx,
		bson.M{"_id": journeyID},
		bson.M{"$set": bson.M{"seats.$[s].status": string(status), "updated_at": time.Now()}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"s.id": bson.M{"$in": seatIDs}}},
		}),
	)
	if err != nil {
		c.logger.WithError(err).Error("failed to update seat status")
		return err
	}
	if res.MatchedCount == 0 {
		return errors.Wrapf(domain.ErrNotFound, "journey %s", journeyID)
	}
	return nil
}

func (c *CatalogRepository) Ping(ctx context.Context) error {
	return c.coll.Database().Client().Ping(ctx, nil)
}
