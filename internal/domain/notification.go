package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type NotificationType string

const (
	NotificationBooking      NotificationType = "booking"
	NotificationPayment      NotificationType = "payment"
	NotificationCancellation NotificationType = "cancellation"
	NotificationReminder     NotificationType = "reminder"
)

type Notification struct {
	ID        uuid.UUID        `json:"id"`
	UserID    uuid.UUID        `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}

// NotificationFor maps a published booking event to the feed entry shown to
// the user. Events without a user-facing message report false.
func NotificationFor(eventType string, ev BookingEvent, now time.Time) (Notification, bool) {
	amount, err := FormatAmount(ev.TotalAmount, ev.Currency)
	if err != nil {
		amount = ev.TotalAmount.String()
	}
	n := Notification{
		ID:        uuid.New(),
		UserID:    ev.UserID,
		CreatedAt: now,
	}
	switch eventType {
	case EventBookingCreated:
		n.Type = NotificationBooking
		n.Title = "Booking received"
		n.Message = fmt.Sprintf("Booking %s is awaiting payment of %s.", ev.BookingID, amount)
	case EventBookingConfirmed:
		n.Type = NotificationPayment
		n.Title = "Payment successful"
		n.Message = fmt.Sprintf("Your payment of %s has been confirmed.", amount)
	case EventPaymentFailed:
		n.Type = NotificationPayment
		n.Title = "Payment failed"
		n.Message = fmt.Sprintf("Payment of %s for booking %s failed. Please try again.", amount, ev.BookingID)
	case EventBookingCancelled:
		n.Type = NotificationCancellation
		n.Title = "Booking cancelled"
		n.Message = fmt.Sprintf("Booking %s has been cancelled.", ev.BookingID)
	default:
		return Notification{}, false
	}
	return n, true
}

// ReminderLead is how far ahead of departure a confirmed booking gets its
// journey reminder.
const ReminderLead = 24 * time.Hour

var reminderNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("rail.reminder"))

// ReminderFor builds the departure reminder for a confirmed booking. The ID
// depends only on the booking, so storing it twice yields one feed entry.
func ReminderFor(b Booking, now time.Time) Notification {
	return Notification{
		ID:     uuid.NewSHA1(reminderNamespace, []byte(b.ID.String()+"reminder")),
		UserID: b.UserID,
		Type:   NotificationReminder,
		Title:  "Journey Reminder",
		Message: fmt.Sprintf("Your journey %s departs at %s UTC. Booking %s, %d seat(s).",
			b.JourneyID, b.DepartureTime.UTC().Format("2006-01-02 15:04"), b.ID, len(b.Seats)),
		CreatedAt: now,
	}
}
