package configs

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BrokerKafka    = "kafka"
	BrokerRabbitMQ = "rabbitmq"
	BrokerMemory   = "memory"

	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	Prefix          string          `json:"prefix" mapstructure:"prefix"`
	Port            string          `json:"port" mapstructure:"port"`
	ENV             string          `json:"env" mapstructure:"env"`
	Job             bool            `json:"job" mapstructure:"job"`
	MaxPoolSize     int             `json:"max_pool_size" mapstructure:"max_pool_size"`
	Broker          string          `json:"broker" mapstructure:"broker"`
	Store           string          `json:"store" mapstructure:"store"`
	MongoURI        string          `json:"mongo_uri" mapstructure:"mongo_uri"`
	MongoDB         string          `json:"mongo_db" mapstructure:"mongo_db"`
	KafkaConfig     Kafka           `json:"kafka_config"  mapstructure:"kafka_config"`
	QueueUri        string          `json:"queue_uri" mapstructure:"queue_uri"`
	Redis           RedisConfig     `json:"redis"  mapstructure:"redis"`
	MQTTInternalUri MQTTInternalUri `json:"mqtt_internal_uri" mapstructure:"mqtt_internal_uri"`
	Telegram        Telegram        `json:"telegram" mapstructure:"telegram"`
	Consumer        Consumer        `json:"consumer" mapstructure:"consumer"`
	Jobs            Jobs            `json:"jobs" mapstructure:"jobs"`
	Sagas           Sagas           `json:"sagas" mapstructure:"sagas"`
}

type MQTTInternalUri struct {
	Uri      string `json:"uri" mapstructure:"uri"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Prefix   string `json:"prefix" mapstructure:"prefix"`
}

type Telegram struct {
	Token     string `json:"token" mapstructure:"token"`
	ChannelId int64  `json:"channel_id" mapstructure:"channel_id"`
}

type Kafka struct {
	Brokers       string `json:"brokers" mapstructure:"brokers"`
	ConsumerGroup string `json:"consumer_group" mapstructure:"consumer_group"`
	ClientID      string `json:"client_id" mapstructure:"client_id"`
	Version       string `json:"version" mapstructure:"version"`
	Partitions    int    `json:"partitions" mapstructure:"partitions"`
	Replicas      int    `json:"replicas" mapstructure:"replicas"`
}

type RedisConfig struct {
	Address  string        `json:"address" mapstructure:"address"`
	Password string        `json:"password" mapstructure:"password"`
	DB       int           `json:"db" mapstructure:"db"`
	LockTTL  time.Duration `json:"lock_ttl" mapstructure:"lock_ttl"`
}

type Consumer struct {
	MaxAttempts    uint64        `json:"max_attempts" mapstructure:"max_attempts"`
	InitialBackoff time.Duration `json:"initial_backoff" mapstructure:"initial_backoff"`
}

type Jobs struct {
	TimeoutScanInterval time.Duration `json:"timeout_scan_interval" mapstructure:"timeout_scan_interval"`
	PurgeInterval       time.Duration `json:"purge_interval" mapstructure:"purge_interval"`
	ProcessedRetention  time.Duration `json:"processed_retention" mapstructure:"processed_retention"`
	ScanWorkers         int           `json:"scan_workers" mapstructure:"scan_workers"`
}

type Sagas struct {
	Deposit    SagaConfig `json:"deposit" mapstructure:"deposit"`
	Withdrawal SagaConfig `json:"withdrawal" mapstructure:"withdrawal"`
	OrderBuy   SagaConfig `json:"order_buy" mapstructure:"order_buy"`
}

// SagaConfig is the retry and timeout policy of one saga type.
type SagaConfig struct {
	MaxRetries         int                      `json:"max_retries" mapstructure:"max_retries"`
	DefaultStepTimeout time.Duration            `json:"default_step_timeout" mapstructure:"default_step_timeout"`
	StepTimeouts       map[string]time.Duration `json:"step_timeouts" mapstructure:"step_timeouts"`
	ScanCompensating   bool                     `json:"scan_compensating" mapstructure:"scan_compensating"`
	FeeBuffer          float64                  `json:"fee_buffer" mapstructure:"fee_buffer"`
}

// TimeoutFor returns the allowed duration of a step.
func (c SagaConfig) TimeoutFor(step string) time.Duration {
	if d, ok := c.StepTimeouts[strings.ToUpper(step)]; ok && d > 0 {
		return d
	}
	return c.DefaultStepTimeout
}

// MinStepTimeout is the shortest timeout among steps. A saga whose current step started
// later than now-MinStepTimeout cannot have timed out yet.
func (c SagaConfig) MinStepTimeout(steps []string) time.Duration {
	min := time.Duration(0)
	for _, s := range steps {
		if d := c.TimeoutFor(s); min == 0 || d < min {
			min = d
		}
	}
	if min == 0 {
		return c.DefaultStepTimeout
	}
	return min
}

// normalize upper-cases step names, viper lower-cases every map key it reads.
func (c *SagaConfig) normalize() {
	if c.DefaultStepTimeout <= 0 {
		c.DefaultStepTimeout = 30 * time.Second
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	steps := make(map[string]time.Duration, len(c.StepTimeouts))
	for k, v := range c.StepTimeouts {
		steps[strings.ToUpper(k)] = v
	}
	c.StepTimeouts = steps
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("env", "production")
	v.SetDefault("max_pool_size", 100)
	v.SetDefault("broker", BrokerKafka)
	v.SetDefault("store", StoreMongo)
	v.SetDefault("mongo_db", "saga_orchestrator")
	v.SetDefault("kafka_config.consumer_group", "saga-orchestrator")
	v.SetDefault("kafka_config.client_id", "saga-orchestrator")
	v.SetDefault("kafka_config.version", "2.1.0")
	v.SetDefault("kafka_config.partitions", 3)
	v.SetDefault("kafka_config.replicas", 1)
	v.SetDefault("redis.lock_ttl", "30s")
	v.SetDefault("consumer.max_attempts", 3)
	v.SetDefault("consumer.initial_backoff", "200ms")
	v.SetDefault("jobs.timeout_scan_interval", "5s")
	v.SetDefault("jobs.purge_interval", "1h")
	v.SetDefault("jobs.processed_retention", "336h")
	v.SetDefault("jobs.scan_workers", 8)
	for _, saga := range []string{"deposit", "withdrawal", "order_buy"} {
		v.SetDefault("sagas."+saga+".max_retries", 3)
		v.SetDefault("sagas."+saga+".default_step_timeout", "30s")
	}
	v.SetDefault("sagas.withdrawal.scan_compensating", true)
	v.SetDefault("sagas.order_buy.scan_compensating", true)
	v.SetDefault("sagas.order_buy.fee_buffer", 0.01)
}

func load(path, name string) (*Config, error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigType("json")
	v.SetConfigName(name)
	v.SetEnvPrefix("SAGA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)
	err := v.ReadInConfig()
	if err != nil {
		return nil, err
	}
	result := &Config{}
	err = v.Unmarshal(result)
	if err != nil {
		return nil, err
	}
	result.Sagas.Deposit.normalize()
	result.Sagas.Withdrawal.normalize()
	result.Sagas.OrderBuy.normalize()
	return result, nil
}

func LoadConfig() (*Config, error) {
	return load("./", "config.json")
}

// LoadTestConfig load config for running tests
func LoadTestConfig(configPath string) (*Config, error) {
	return load(configPath, "config_test.json")
}
