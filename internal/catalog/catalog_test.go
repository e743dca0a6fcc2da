package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/catalog"
	"github.com/zoynulabedin/snowlightv2-sub001/internal/config"
)

func testCatalogConfig() *config.CatalogConfig {
	return &config.CatalogConfig{
		Packages: []config.PackageConfig{
			{ID: "starter", Hearts: 100, Bonus: 0, Price: 1100},
			{ID: "standard", Hearts: 500, Bonus: 100, Price: 4500, Popular: true},
			{ID: "premium", Hearts: 1000, Bonus: 300, Price: 8800},
		},
		Methods: []config.MethodConfig{
			{ID: "credit_card", Name: "신용카드", Fee: 110},
			{ID: "phone_payment", Name: "휴대폰 결제", Fee: 330},
			{ID: "bank_transfer", Name: "계좌이체", Fee: 0},
			{ID: "kakaopay", Name: "카카오페이", Fee: 0},
		},
	}
}

func TestListPackagesKeepsConfiguredOrder(t *testing.T) {
	c := catalog.NewCatalog(testCatalogConfig())

	pkgs := c.ListPackages()
	require.Len(t, pkgs, 3)
	assert.Equal(t, "starter", pkgs[0].ID)
	assert.Equal(t, "standard", pkgs[1].ID)
	assert.Equal(t, "premium", pkgs[2].ID)
	assert.True(t, pkgs[1].Popular)

	// 进程生命周期内重复读取结果一致
	again := c.ListPackages()
	assert.Equal(t, pkgs, again)
}

func TestListMethodsKeepsConfiguredOrder(t *testing.T) {
	c := catalog.NewCatalog(testCatalogConfig())

	methods := c.ListMethods()
	require.Len(t, methods, 4)
	assert.Equal(t, "credit_card", methods[0].ID)
	assert.Equal(t, int64(110), methods[0].Fee)
	assert.Equal(t, "kakaopay", methods[3].ID)
}

func TestFindPackage(t *testing.T) {
	c := catalog.NewCatalog(testCatalogConfig())

	pkg, err := c.FindPackage("standard")
	require.NoError(t, err)
	assert.Equal(t, int64(500), pkg.Hearts)
	assert.Equal(t, int64(100), pkg.Bonus)
	assert.Equal(t, int64(600), pkg.TotalHearts())

	_, err = c.FindPackage("nope")
	assert.ErrorIs(t, err, catalog.ErrPackageNotFound)
}

func TestFindMethod(t *testing.T) {
	c := catalog.NewCatalog(testCatalogConfig())

	m, err := c.FindMethod("bank_transfer")
	require.NoError(t, err)
	assert.Equal(t, int64(0), m.Fee)

	_, err = c.FindMethod("paypal")
	assert.ErrorIs(t, err, catalog.ErrMethodNotFound)
}

func TestTotalPrice(t *testing.T) {
	c := catalog.NewCatalog(testCatalogConfig())

	pkg, err := c.FindPackage("standard")
	require.NoError(t, err)
	m, err := c.FindMethod("credit_card")
	require.NoError(t, err)

	// 实付 = 套餐价格 + 手续费，无额外税费
	assert.Equal(t, int64(4610), catalog.TotalPrice(pkg, m))
}
