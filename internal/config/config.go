package config

import (
	"log"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	PaymentResult string `mapstructure:"payment_result"`
	RefundResult  string `mapstructure:"refund_result"`
}

type BusinessConfig struct {
	RefundWindowDays     int     `mapstructure:"refund_window_days"`     // 退款资格窗口（天）
	ChargeFailureRate    float64 `mapstructure:"charge_failure_rate"`    // 模拟支付渠道失败概率
	ChargeDelayMs        int     `mapstructure:"charge_delay_ms"`        // 模拟支付渠道耗时
	MaxRetryCount        int     `mapstructure:"max_retry_count"`        // 外发消息最大重试次数
	AuditIntervalSeconds int     `mapstructure:"audit_interval_seconds"` // 对账任务周期
}

// CatalogConfig 红心套餐/支付方式目录
// 目录是部署期配置，不是运行时可变数据；通过构造函数注入，便于测试替换
type CatalogConfig struct {
	Packages []PackageConfig `mapstructure:"packages"`
	Methods  []MethodConfig  `mapstructure:"methods"`
}

type PackageConfig struct {
	ID      string `mapstructure:"id"`
	Hearts  int64  `mapstructure:"hearts"`  // 基础红心数
	Bonus   int64  `mapstructure:"bonus"`   // 赠送红心数
	Price   int64  `mapstructure:"price"`   // 价格（韩元）
	Popular bool   `mapstructure:"popular"` // 展示用"人气"标记
}

type MethodConfig struct {
	ID          string `mapstructure:"id"`
	Name        string `mapstructure:"name"`        // 本地化展示名
	Description string `mapstructure:"description"` // 本地化描述
	Fee         int64  `mapstructure:"fee"`         // 渠道手续费（韩元，可为0）
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	GlobalConfig = config
	return config
}
