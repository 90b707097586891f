package mongo

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/robertarktes/rail-seat-booking/internal/domain"
	"github.com/robertarktes/rail-seat-booking/internal/observability"
)

type NotificationStore struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewNotificationStore(db *mongo.Database, logger observability.Logger) *NotificationStore {
	return &NotificationStore{
		coll:   db.Collection("notifications"),
		logger: logger,
	}
}

type NotificationDoc struct {
	ID        string    `bson:"_id"`
	UserID    string    `bson:"user_id"`
	Type      string    `bson:"type"`
	Title     string    `bson:"title"`
	Message   string    `bson:"message"`
	IsRead    bool      `bson:"is_read"`
	CreatedAt time.Time `bson:"created_at"`
}

func notificationDocFrom(n domain.Notification) NotificationDoc {
	return NotificationDoc{
		ID:        n.ID.String(),
		UserID:    n.UserID.String(),
		Type:      string(n.Type),
		Title:     n.Title,
		Message:   n.Message,
		IsRead:    n.IsRead,
		CreatedAt: n.CreatedAt,
	}
}

func (d NotificationDoc) toDomain() (domain.Notification, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return domain.Notification{}, errors.Wrapf(err, "notification id %q", d.ID)
	}
	userID, err := uuid.Parse(d.UserID)
	if err != nil {
		return domain.Notification{}, errors.Wrapf(err, "notification %s user", d.ID)
	}
	return domain.Notification{
		ID:        id,
		UserID:    userID,
		Type:      domain.NotificationType(d.Type),
		Title:     d.Title,
		Message:   d.Message,
		IsRead:    d.IsRead,
		CreatedAt: d.CreatedAt.UTC(),
	}, nil
}

// Insert stores n. A redelivered notification with the same ID is ignored.
func (s *NotificationStore) Insert(ctx context.Context, n domain.Notification) error {
	_, err := s.coll.InsertOne(ctx, notificationDocFrom(n))
	if mongo.IsDuplicateKeyError(err) {
		return nil
	}
	if err != nil {
		s.logger.WithError(err).Error("failed to insert notification")
		return err
	}
	return nil
}

func (s *NotificationStore) ListByUser(ctx context.Context, userID uuid.UUID, limit int64) ([]domain.Notification, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cur, err := s.coll.Find(ctx, bson.M{"user_id": userID.String()}, opts)
	if err != nil {
		s.logger.WithError(err).Error("failed to list notifications")
		return nil, err
	}
	var docs []NotificationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]domain.Notification, 0, len(docs))
	for _, d := range docs {
		n, err := d.toDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, nil
}

func (s *NotificationStore) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.coll.CountDocuments(ctx, bson.M{"user_id": userID.String(), "is_read": false})
}

func (s *NotificationStore) MarkRead(ctx context.Context, id uuid.UUID) error {
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": id.String()}, bson.M{"$set": bson.M{"is_read": true}})
	if err != nil {
		s.logger.WithError(err).Error("failed to mark notification read")
		return err
	}
	if res.MatchedCount == 0 {
		return errors.Wrapf(domain.ErrNotFound, "notification %s", id)
	}
	return nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	res, err := s.coll.UpdateMany(ctx,
		bson.M{"user_id": userID.String(), "is_read": false},
		bson.M{"$set": bson.M{"is_read": true}},
	)
	if err != nil {
		s.logger.WithError(err).Error("failed to mark notifications read")
		return 0, err
	}
	return res.ModifiedCount, nil
}
