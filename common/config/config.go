package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type Config struct {
	AppName    string        `mapstructure:"appName"`
	Log        LogConf       `mapstructure:"log"`
	HttpPort   int           `mapstructure:"httpPort"`
	MetricPort int           `mapstructure:"metricPort"`
	GrpcPort   int           `mapstructure:"grpcPort"`
	Engine     EngineConf    `mapstructure:"engine"`
	Poll       PollConf      `mapstructure:"poll"`
	JwtConf    JwtConf       `mapstructure:"jwt"`
	EtcdConf   EtcdConf      `mapstructure:"etcd"`
	RedisConf  RedisConf     `mapstructure:"redis"`
	RateLimit  RateLimitConf `mapstructure:"rateLimit"`
	Dev        DevConf       `mapstructure:"dev"`
}

type LogConf struct {
	Level string `mapstructure:"level"`
}

// EngineConf 远端游戏引擎
type EngineConf struct {
	BaseURL      string        `mapstructure:"baseUrl"`
	Timeout      time.Duration `mapstructure:"timeout"`
	RetryReads   bool          `mapstructure:"retryReads"`
	DiscoveryKey string        `mapstructure:"discoveryKey"`
	ProbeEvery   time.Duration `mapstructure:"probeEvery"`
}

type PollConf struct {
	Interval time.Duration `mapstructure:"interval"`
}

type JwtConf struct {
	Secret          string `mapstructure:"secret"`
	AllowTestHeader bool   `mapstructure:"allowTestHeader"`
}

type EtcdConf struct {
	Addrs       []string `mapstructure:"addrs"`
	DialTimeout int      `mapstructure:"dialTimeout"`
}

type RedisConf struct {
	Addr         string `mapstructure:"addr"`
	Password     string `mapstructure:"password"`
	PoolSize     int    `mapstructure:"poolSize"`
	MinIdleConns int    `mapstructure:"minIdleConns"`
}

// RateLimitConf 每个玩家的动作限流，rate<=0 表示关闭
type RateLimitConf struct {
	Rate   int           `mapstructure:"rate"`
	Burst  int           `mapstructure:"burst"`
	Window time.Duration `mapstructure:"window"`
}

type DevConf struct {
	AllowMock bool `mapstructure:"allowMock"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("appName", "spellgate")
	v.SetDefault("log.level", "info")
	v.SetDefault("httpPort", 8080)
	v.SetDefault("engine.timeout", 5*time.Second)
	v.SetDefault("engine.probeEvery", 10*time.Second)
	v.SetDefault("poll.interval", 2*time.Second)
	// 没有默认值的键读不到 SPELLGATE_* 环境变量
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.allowTestHeader", false)
	v.SetDefault("etcd.dialTimeout", 3)
	v.SetDefault("rateLimit.burst", 1)
	v.SetDefault("rateLimit.window", time.Second)
}

// Load 读取配置文件；GAME_ENGINE_URL 与 SPELLGATE_* 环境变量覆盖文件里的值。
// onChange 在配置文件被修改并重新解析成功后调用，可以为 nil
func Load(configFile string, onChange func(*Config)) (*Config, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("spellgate")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("engine.baseUrl", "GAME_ENGINE_URL", "SPELLGATE_ENGINE_BASEURL"); err != nil {
		return nil, fmt.Errorf("绑定环境变量出错, err:%w", err)
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件出错, err:%w", err)
		}
	}

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("解析配置文件出错, err:%w", err)
	}
	if err := conf.Validate(); err != nil {
		return nil, err
	}

	if configFile != "" && onChange != nil {
		v.OnConfigChange(func(in fsnotify.Event) {
			next := new(Config)
			if err := v.Unmarshal(next); err != nil {
				return
			}
			onChange(next)
		})
		v.WatchConfig()
	}

	return conf, nil
}

func (c *Config) Validate() error {
	var errs []error
	if c.Engine.BaseURL == "" && c.Engine.DiscoveryKey == "" {
		errs = append(errs, errors.New("engine.baseUrl 与 engine.discoveryKey 至少配置一个"))
	}
	if c.Engine.DiscoveryKey != "" && len(c.EtcdConf.Addrs) == 0 {
		errs = append(errs, errors.New("engine.discoveryKey 需要配置 etcd.addrs"))
	}
	if c.Engine.Timeout <= 0 {
		errs = append(errs, errors.New("engine.timeout 必须大于 0"))
	}
	if c.Poll.Interval <= 0 {
		errs = append(errs, errors.New("poll.interval 必须大于 0"))
	}
	if c.JwtConf.Secret == "" && !c.JwtConf.AllowTestHeader {
		errs = append(errs, errors.New("jwt.secret 不能为空"))
	}
	if c.HttpPort <= 0 {
		errs = append(errs, errors.New("httpPort 必须大于 0"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("配置校验失败: %w", errors.Join(errs...))
	}
	return nil
}
