package catalog

import (
	"errors"

	"github.com/zoynulabedin/snowlightv2-sub001/internal/config"
)

var (
	ErrPackageNotFound = errors.New("红心套餐不存在")
	ErrMethodNotFound  = errors.New("支付方式不存在")
)

// HeartPackage 可购买的红心套餐（只读目录数据）
type HeartPackage struct {
	ID      string `json:"id"`
	Hearts  int64  `json:"hearts"`
	Bonus   int64  `json:"bonus"`
	Price   int64  `json:"price"`
	Popular bool   `json:"popular"`
}

// TotalHearts 购买后实际入账的红心数
func (p *HeartPackage) TotalHearts() int64 {
	return p.Hearts + p.Bonus
}

// PaymentMethod 支付方式（只读目录数据）
type PaymentMethod struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Fee         int64  `json:"fee"`
}

// Catalog 套餐/支付方式目录
// 进程生命周期内不可变；内容来自配置，通过构造函数注入
type Catalog struct {
	packages []HeartPackage
	methods  []PaymentMethod
	pkgByID  map[string]*HeartPackage
	mthByID  map[string]*PaymentMethod
}

// NewCatalog 根据配置构建目录，保持配置中的顺序
func NewCatalog(cfg *config.CatalogConfig) *Catalog {
	c := &Catalog{
		packages: make([]HeartPackage, 0, len(cfg.Packages)),
		methods:  make([]PaymentMethod, 0, len(cfg.Methods)),
		pkgByID:  make(map[string]*HeartPackage, len(cfg.Packages)),
		mthByID:  make(map[string]*PaymentMethod, len(cfg.Methods)),
	}

	for _, p := range cfg.Packages {
		c.packages = append(c.packages, HeartPackage{
			ID:      p.ID,
			Hearts:  p.Hearts,
			Bonus:   p.Bonus,
			Price:   p.Price,
			Popular: p.Popular,
		})
	}
	for i := range c.packages {
		c.pkgByID[c.packages[i].ID] = &c.packages[i]
	}

	for _, m := range cfg.Methods {
		c.methods = append(c.methods, PaymentMethod{
			ID:          m.ID,
			Name:        m.Name,
			Description: m.Description,
			Fee:         m.Fee,
		})
	}
	for i := range c.methods {
		c.mthByID[c.methods[i].ID] = &c.methods[i]
	}

	return c
}

// ListPackages 返回全部套餐（配置顺序）
func (c *Catalog) ListPackages() []HeartPackage {
	return c.packages
}

// ListMethods 返回全部支付方式（配置顺序）
func (c *Catalog) ListMethods() []PaymentMethod {
	return c.methods
}

// FindPackage 按ID查找套餐，未知ID属于客户端错误
func (c *Catalog) FindPackage(id string) (*HeartPackage, error) {
	pkg, ok := c.pkgByID[id]
	if !ok {
		return nil, ErrPackageNotFound
	}
	return pkg, nil
}

// FindMethod 按ID查找支付方式
func (c *Catalog) FindMethod(id string) (*PaymentMethod, error) {
	m, ok := c.mthByID[id]
	if !ok {
		return nil, ErrMethodNotFound
	}
	return m, nil
}

// TotalPrice 实付金额 = 套餐价格 + 渠道手续费
// 金额均为整数最小货币单位，无税费/舍入规则
func TotalPrice(pkg *HeartPackage, method *PaymentMethod) int64 {
	return pkg.Price + method.Fee
}
