//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/lojinha-labs/service-catalog/internal/application"
	catalogEvents "github.com/lojinha-labs/service-catalog/internal/events"
	"github.com/lojinha-labs/service-catalog/internal/pkg/kafka"
	"github.com/lojinha-labs/service-catalog/internal/repository"
)

// testInfra holds shared test infrastructure.
type testInfra struct {
	DB           *gorm.DB
	KafkaBrokers []string
	Cleanup      func()
}

// catalogStack holds wired-up catalog service components.
type catalogStack struct {
	Products        *application.ProductService
	Coupons         *application.CouponService
	Discounts       *application.DiscountService
	CleanupProducer func()
}

// setupContainers starts PostgreSQL and Kafka testcontainers and returns a
// connected GORM DB with the catalog schema migrated.
func setupContainers(t *testing.T) *testInfra {
	t.Helper()
	ctx := context.Background()

	pgReq := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "test_catalog",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}
	pgContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: pgReq,
		Started:          true,
	})
	require.NoError(t, err, "failed to start PostgreSQL container")

	pgHost, err := pgContainer.Host(ctx)
	require.NoError(t, err)
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=test_catalog sslmode=disable", pgHost, pgPort.Port())

	// Poll until GORM can actually connect and ping. TranslateError must match
	// production so unique violations surface as gorm.ErrDuplicatedKey.
	var db *gorm.DB
	require.Eventually(t, func() bool {
		var err error
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		if err != nil {
			return false
		}
		return sqlDB.Ping() == nil
	}, 30*time.Second, 1*time.Second, "PostgreSQL not ready for connections")

	require.NoError(t, db.AutoMigrate(
		&repository.ProductModel{},
		&repository.CouponModel{},
		&repository.ApplicationModel{},
	))

	kafkaContainer, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "failed to start Kafka container")

	kafkaBrokers, err := kafkaContainer.Brokers(ctx)
	require.NoError(t, err, "failed to get Kafka brokers")

	createTopics(t, kafkaBrokers, catalogEvents.TopicCatalogEvents)

	cleanup := func() {
		if err := kafkaContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Kafka container: %v", err)
		}
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate PostgreSQL container: %v", err)
		}
	}

	return &testInfra{
		DB:           db,
		KafkaBrokers: kafkaBrokers,
		Cleanup:      cleanup,
	}
}

// setupCatalogStack wires up the full catalog service stack.
func setupCatalogStack(t *testing.T, db *gorm.DB, brokers []string) *catalogStack {
	t.Helper()
	logger, _ := zap.NewDevelopment()

	producer := kafka.NewProducer(brokers, logger)
	publisher := catalogEvents.NewPublisher(producer, logger)

	productRepo := repository.NewGormProductRepository(db)
	couponRepo := repository.NewGormCouponRepository(db)

	return &catalogStack{
		Products:        application.NewProductService(productRepo, publisher, logger),
		Coupons:         application.NewCouponService(couponRepo, publisher, logger),
		Discounts:       application.NewDiscountService(productRepo, couponRepo, publisher, logger),
		CleanupProducer: func() { _ = producer.Close() },
	}
}

// createProduct seeds a product through the service layer.
func createProduct(t *testing.T, stack *catalogStack, name string, price float64, stock int) *application.ProductDTO {
	t.Helper()
	dto, err := stack.Products.Create(context.Background(), application.CreateProductRequest{
		Name:  name,
		Price: price,
		Stock: stock,
	})
	require.NoError(t, err, "failed to create product %q", name)
	return dto
}

// createCoupon seeds a coupon valid from a month ago until a year out.
func createCoupon(t *testing.T, stack *catalogStack, code, typ string, value float64, oneShot bool, maxUses int) *application.CouponDTO {
	t.Helper()
	now := time.Now().UTC()
	dto, err := stack.Coupons.Create(context.Background(), application.CreateCouponRequest{
		Code:       code,
		Type:       typ,
		Value:      value,
		OneShot:    oneShot,
		MaxUses:    maxUses,
		ValidFrom:  now.AddDate(0, -1, 0).Format(time.RFC3339),
		ValidUntil: now.AddDate(1, 0, 0).Format(time.RFC3339),
	})
	require.NoError(t, err, "failed to create coupon %q", code)
	return dto
}

// couponUsesCount reads uses_count straight from the coupons table.
func couponUsesCount(t *testing.T, db *gorm.DB, couponID uuid.UUID) int {
	t.Helper()
	var model repository.CouponModel
	require.NoError(t, db.First(&model, "id = ?", couponID).Error)
	return model.UsesCount
}

// activeApplicationCount counts active application rows for a product.
func activeApplicationCount(t *testing.T, db *gorm.DB, productID uuid.UUID) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&repository.ApplicationModel{}).
		Where("product_id = ? AND removed_at IS NULL", productID).
		Count(&count).Error)
	return count
}

func mustDecimal(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// consumeOneEvent reads from a Kafka topic until it finds an event of the expected type.
func consumeOneEvent(t *testing.T, brokers []string, topic, expectedType string, timeout time.Duration) kafka.CloudEvent {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	groupID := fmt.Sprintf("test-assert-%s", uuid.New().String()[:8])
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		MinBytes:    1,
		MaxBytes:    10e6,
		StartOffset: kafkago.FirstOffset,
	})
	defer func() { _ = reader.Close() }()

	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				t.Fatalf("timed out waiting for event type %q on topic %q", expectedType, topic)
			}
			continue
		}
		ce, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil {
			continue
		}
		if ce.Type == expectedType {
			return ce
		}
	}
}

// createTopics pre-creates Kafka topics so producers don't fail with "Unknown Topic".
func createTopics(t *testing.T, brokers []string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", brokers[0])
	require.NoError(t, err, "failed to dial Kafka for topic creation")
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err, "failed to get Kafka controller")

	controllerConn, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, fmt.Sprintf("%d", controller.Port)))
	require.NoError(t, err, "failed to connect to Kafka controller")
	defer controllerConn.Close()

	topicConfigs := make([]kafkago.TopicConfig, len(topics))
	for i, topic := range topics {
		topicConfigs[i] = kafkago.TopicConfig{
			Topic:             topic,
			NumPartitions:     1,
			ReplicationFactor: 1,
		}
	}
	err = controllerConn.CreateTopics(topicConfigs...)
	require.NoError(t, err, "failed to create Kafka topics")

	// Give Kafka a moment to propagate topic metadata.
	time.Sleep(1 * time.Second)
}
