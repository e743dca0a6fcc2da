package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/model"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/repository"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

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

	require.NoError(t, db.AutoMigrate(&model.HeartAccount{}))
	return db
}

func TestGetOrCreateIdempotent(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewAccountRepository(db)
	ctx := context.Background()

	first, err := repo.GetOrCreate(ctx, nil, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), first.Balance)

	// 重复调用拿到同一个账户，不会重建
	second, err := repo.GetOrCreate(ctx, nil, "user-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&model.HeartAccount{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestDeductDistinguishesFailures(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewAccountRepository(db)
	ctx := context.Background()

	account, err := repo.GetOrCreate(ctx, nil, "user-1")
	require.NoError(t, err)
	require.NoError(t, repo.Increase(ctx, nil, "user-1", 100, account.Version))

	account, err = repo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)

	// 余额足够但版本号过期：乐观锁冲突
	err = repo.Deduct(ctx, nil, "user-1", 30, account.Version-1)
	assert.ErrorIs(t, err, repository.ErrOptimisticLock)

	// 版本号正确但余额不足
	err = repo.Deduct(ctx, nil, "user-1", 200, account.Version)
	assert.ErrorIs(t, err, repository.ErrBalanceNotEnough)

	// 两次失败都不改变账户
	unchanged, err := repo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), unchanged.Balance)
	assert.Equal(t, account.Version, unchanged.Version)

	// 正常扣减版本号递增
	require.NoError(t, repo.Deduct(ctx, nil, "user-1", 30, account.Version))
	after, err := repo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(70), after.Balance)
	assert.Equal(t, account.Version+1, after.Version)
}

func TestIncreaseStaleVersion(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewAccountRepository(db)
	ctx := context.Background()

	account, err := repo.GetOrCreate(ctx, nil, "user-1")
	require.NoError(t, err)

	require.NoError(t, repo.Increase(ctx, nil, "user-1", 50, account.Version))

	// 拿着旧版本号再加：冲突，余额不变
	err = repo.Increase(ctx, nil, "user-1", 50, account.Version)
	assert.ErrorIs(t, err, repository.ErrOptimisticLock)

	after, err := repo.GetByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(50), after.Balance)
}

func TestGetByUserIDNotFound(t *testing.T) {
	db := newTestDB(t)
	repo := repository.NewAccountRepository(db)

	_, err := repo.GetByUserID(context.Background(), "ghost")
	assert.ErrorIs(t, err, repository.ErrAccountNotFound)
}
