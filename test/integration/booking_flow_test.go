package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/robertarktes/rail-seat-booking/internal/adapters/crdb"
	mongoadapter "github.com/robertarktes/rail-seat-booking/internal/adapters/mongo"
	"github.com/robertarktes/rail-seat-booking/internal/adapters/rabbit"
	redisadapter "github.com/robertarktes/rail-seat-booking/internal/adapters/redis"
	httphandler "github.com/robertarktes/rail-seat-booking/internal/http"
	"github.com/robertarktes/rail-seat-booking/internal/domain"
	"github.com/robertarktes/rail-seat-booking/internal/idempotency"
	"github.com/robertarktes/rail-seat-booking/internal/notify"
	"github.com/robertarktes/rail-seat-booking/internal/observability"
	"github.com/robertarktes/rail-seat-booking/internal/outbox"
	"github.com/robertarktes/rail-seat-booking/internal/rateLimit"
)

func startContainer(t *testing.T, req testcontainers.ContainerRequest) testcontainers.Container {
	t.Helper()
	ctx := context.Background()
	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Terminate(ctx) })
	return c
}

func hostPort(t *testing.T, c testcontainers.Container, port nat.Port) string {
	t.Helper()
	ctx := context.Background()
	host, err := c.Host(ctx)
	require.NoError(t, err)
	mapped, err := c.MappedPort(ctx, port)
	require.NoError(t, err)
	return host + ":" + mapped.Port()
}

type client struct {
	t    *testing.T
	base string
}

func (c client) send(method, path string, body interface{}, idempotent bool) (*http.Response, []byte) {
	c.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, c.base+path, &buf)
	require.NoError(c.t, err)
	req.Header.Set("Content-Type", "application/json")
	if idempotent {
		req.Header.Set(httphandler.IdempotencyHeader, uuid.NewString())
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	var out bytes.Buffer
	_, err = out.ReadFrom(resp.Body)
	require.NoError(c.t, err)
	return resp, out.Bytes()
}

func TestIntegration_SelectCheckoutPayNotify(t *testing.T) {
	if testing.Short() {
		t.Skip("requires docker")
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	crdbContainer := startContainer(t, testcontainers.ContainerRequest{
		Image:        "cockroachdb/cockroach:v24.1.1",
		Cmd:          []string{"start-single-node", "--insecure"},
		ExposedPorts: []string{"26257/tcp", "8080/tcp"},
		WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
	})
	mongoContainer := startContainer(t, testcontainers.ContainerRequest{
		Image:        "mongo:7",
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections"),
	})
	redisContainer := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForExec([]string{"redis-cli", "ping"}),
	})
	rabbitContainer := startContainer(t, testcontainers.ContainerRequest{
		Image:        "rabbitmq:3.13",
		ExposedPorts: []string{"5672/tcp"},
		WaitingFor:   wait.ForLog("Server startup complete"),
	})

	logger := observability.NewNopLogger()

	pool, err := pgxpool.New(ctx, "postgresql://root@"+hostPort(t, crdbContainer, "26257")+"/defaultdb?sslmode=disable")
	require.NoError(t, err)
	defer pool.Close()
	repo := crdb.NewRepository(pool)
	require.NoError(t, repo.Migrate(ctx))

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI("mongodb://"+hostPort(t, mongoContainer, "27017")))
	require.NoError(t, err)
	defer mongoClient.Disconnect(context.Background())
	mongoDB := mongoClient.Database("rail_it")
	catalog := mongoadapter.NewCatalogRepository(mongoDB, logger)
	notifications := mongoadapter.NewNotificationStore(mongoDB, logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: hostPort(t, redisContainer, "6379")})
	defer redisClient.Close()
	redisCache := redisadapter.NewCache(redisClient)

	rabbitConn, err := amqp.Dial("amqp://guest:guest@" + hostPort(t, rabbitContainer, "5672") + "/")
	require.NoError(t, err)
	defer rabbitConn.Close()
	broker, err := rabbit.NewPublisher(rabbitConn)
	require.NoError(t, err)
	consumer, err := rabbit.NewConsumer(rabbitConn, "rail.notifications.it", notify.Patterns...)
	require.NoError(t, err)

	prices, err := domain.NewPriceTable(decimal.NewFromInt(5000), map[domain.SeatClass]decimal.Decimal{
		domain.ClassFirst:   decimal.NewFromInt(8000),
		domain.ClassEconomy: decimal.NewFromInt(5000),
	})
	require.NoError(t, err)
	layout := domain.DefaultSeatLayout
	layout.BookedRatio = 0
	departure := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	journey := domain.Journey{
		ID:            "lagos-abuja-it",
		Name:          "Integration Express",
		From:          "Lagos",
		To:            "Abuja",
		DepartureTime: departure,
		ArrivalTime:   departure.Add(6 * time.Hour),
		Currency:      "NGN",
		Prices:        prices,
		Seats:         domain.GenerateSeatMap(layout, nil),
	}
	require.NoError(t, catalog.SaveJourney(ctx, journey))

	handlers := httphandler.NewHandlers(httphandler.Deps{
		Catalog:       catalog,
		Sessions:      redisadapter.NewSessionStore(redisClient, time.Hour),
		Bookings:      repo,
		Notifications: notifications,
		Audit:         mongoadapter.NewAuditLogger(mongoDB, logger),
		Readiness: map[string]httphandler.Pinger{
			"crdb":  repo,
			"mongo": catalog,
			"redis": redisCache,
		},
		Logger: logger,
	})
	idemp := idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), time.Hour)
	srv := httptest.NewServer(httphandler.SetupRouter(handlers, logger, rateLimit.NewRateLimiter(redisCache), idemp))
	defer srv.Close()
	api := client{t: t, base: srv.URL}

	resp, _ := api.send(http.MethodGet, "/v1/readyz", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	userID := uuid.New()
	resp, body := api.send(http.MethodPost, "/v1/sessions", map[string]interface{}{
		"journey_id": journey.ID,
		"user_id":    userID,
	}, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var sess struct {
		ID uuid.UUID `json:"id"`
	}
	require.NoError(t, json.Unmarshal(body, &sess))

	for _, seat := range []string{"A1", "A4"} {
		resp, body = api.send(http.MethodPost, "/v1/sessions/"+sess.ID.String()+"/seats/"+seat+"/toggle", nil, true)
		require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	}
	var quoted struct {
		Quote struct {
			Total     string `json:"total_amount"`
			Formatted string `json:"formatted"`
		} `json:"quote"`
	}
	require.NoError(t, json.Unmarshal(body, &quoted))
	assert.Equal(t, "13000", quoted.Quote.Total)
	assert.Equal(t, "13000.00 NGN", quoted.Quote.Formatted)

	resp, body = api.send(http.MethodPost, "/v1/sessions/"+sess.ID.String()+"/checkout", nil, true)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))
	var booking struct {
		ID     uuid.UUID `json:"id"`
		Status string    `json:"status"`
	}
	require.NoError(t, json.Unmarshal(body, &booking))
	assert.Equal(t, "pending", booking.Status)

	resp, body = api.send(http.MethodPost, "/v1/payments/callback", map[string]interface{}{
		"booking_id": booking.ID,
		"status":     "SUCCEEDED",
		"reference":  "tx123",
		"method":     "card",
	}, false)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))

	resp, body = api.send(http.MethodGet, "/v1/bookings/"+booking.ID.String(), nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &booking))
	assert.Equal(t, "confirmed", booking.Status)

	stored, err := catalog.GetJourney(ctx, journey.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SeatBooked, stored.Seats[0].Status)
	assert.Equal(t, domain.SeatBooked, stored.Seats[3].Status)
	assert.Equal(t, 58, stored.AvailableSeats())

	resp, _ = api.send(http.MethodGet, "/v1/sessions/"+sess.ID.String(), nil, false)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	n, err := outbox.NewPublisher(repo, broker, logger).PublishBatch(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	deliveries, err := consumer.Consume(ctx)
	require.NoError(t, err)
	go notify.NewNotifier(notifications, logger).Run(ctx, deliveries)

	require.Eventually(t, func() bool {
		unread, err := notifications.UnreadCount(ctx, userID)
		return err == nil && unread == 2
	}, 30*time.Second, 200*time.Millisecond)

	resp, body = api.send(http.MethodGet, "/v1/users/"+userID.String()+"/notifications", nil, false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "Payment successful")
}
