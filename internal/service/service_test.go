package service_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/catalog"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/config"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/infrastructure/lock"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/model"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/paymentflow"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/service"
	"github.com/zoynulabedin/snowlightv2-sub001/pkg/idgen"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func init() {
	idgen.Init(1)
}

// newTestDB 内存 sqlite，限制单连接避免每个连接各自一份 :memory: 库
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&model.HeartAccount{},
		&model.HeartTransaction{},
		&model.PaymentTransaction{},
		&model.OutboxMessage{},
	))

	return db
}

func newTestConfig() *config.Config {
	return &config.Config{
		Kafka: config.KafkaConfig{
			Topic: config.KafkaTopicConfig{
				PaymentResult: "heart.payment.result",
				RefundResult:  "heart.refund.result",
			},
		},
		Business: config.BusinessConfig{
			RefundWindowDays:  7,
			ChargeFailureRate: 0,
			ChargeDelayMs:     0,
			MaxRetryCount:     5,
		},
		Catalog: config.CatalogConfig{
			Packages: []config.PackageConfig{
				{ID: "starter", Hearts: 100, Bonus: 0, Price: 1100},
				{ID: "standard", Hearts: 500, Bonus: 100, Price: 4500, Popular: true},
			},
			Methods: []config.MethodConfig{
				{ID: "credit_card", Name: "신용카드", Fee: 110},
				{ID: "kakaopay", Name: "카카오페이", Fee: 0},
			},
		},
	}
}

type testEnv struct {
	db      *gorm.DB
	cfg     *config.Config
	catalog *catalog.Catalog
	ledger  *service.LedgerService
	payment *service.PaymentService
	refund  *service.RefundService
}

// newTestEnv 组装全部服务：不加分布式锁、渠道零延迟、固定随机种子
func newTestEnv(t *testing.T, failureRate float64) *testEnv {
	t.Helper()

	db := newTestDB(t)
	cfg := newTestConfig()
	cat := catalog.NewCatalog(&cfg.Catalog)
	ledger := service.NewLedgerService(db)
	processor := paymentflow.NewMockProcessor(0, failureRate, rand.New(rand.NewSource(1)))
	locks := lock.NoopFactory{}

	return &testEnv{
		db:      db,
		cfg:     cfg,
		catalog: cat,
		ledger:  ledger,
		payment: service.NewPaymentService(db, cfg, cat, ledger, locks, processor),
		refund:  service.NewRefundService(db, cfg, ledger, locks),
	}
}

func validCardDetails() *paymentflow.Details {
	return &paymentflow.Details{
		CardNumber: "4111111111111111",
		CardExpiry: "12/27",
		CardCVV:    "123",
	}
}

// countRows 直接数表行数，用于断言"无任何写入"
func countRows(t *testing.T, db *gorm.DB, value interface{}) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(value).Count(&count).Error)
	return count
}

// backdatePayment 把支付记录的创建时间改到过去，测退款窗口用
func backdatePayment(t *testing.T, db *gorm.DB, paymentNo string, createdAt time.Time) {
	t.Helper()
	require.NoError(t, db.Model(&model.PaymentTransaction{}).
		Where("payment_no = ?", paymentNo).
		Update("created_at", createdAt).Error)
}
