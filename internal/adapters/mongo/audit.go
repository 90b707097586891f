package mongo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/robertarktes/rail-seat-booking/internal/domain"
	"github.com/robertarktes/rail-seat-booking/internal/observability"
)

type AuditLogger struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewAuditLogger(db *mongo.Database, logger observability.Logger) *AuditLogger {
	return &AuditLogger{
		coll:   db.Collection("audit_logs"),
		logger: logger,
	}
}

type AuditLog struct {
	ID        string    `bson:"_id"`
	Action    string    `bson:"action"`
	UserID    string    `bson:"user_id"`
	Timestamp time.Time `bson:"timestamp"`
	Data      bson.M    `bson:"data"`
}

func (a *AuditLogger) LogEvent(ctx context.Context, action string, userID uuid.UUID, data map[string]interface{}) error {
	log := AuditLog{
		ID:        uuid.NewString(),
		Action:    action,
		UserID:    userID.String(),
		Timestamp: time.Now(),
		Data:      bson.M(data),
	}
	_, err := a.coll.InsertOne(ctx, log)
	if err != nil {
		a.logger.WithError(err).WithField("action", action).Error("failed to insert audit log")
		return err
	}
	return nil
}

// LogBooking records a booking state change under action.
func (a *AuditLogger) LogBooking(ctx context.Context, action string, b domain.Booking) error {
	data := map[string]interface{}{
		"booking_id": b.ID.String(),
		"journey_id": b.JourneyID,
		"status":     string(b.Status),
		"total":      b.TotalAmount.String(),
		"currency":   b.Currency,
		"seats":      b.SeatIDs(),
	}
	return a.LogEvent(ctx, action, b.UserID, data)
}
