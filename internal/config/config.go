package config

import (
	"time"

	"github.com/spf13/viper"
)

type AppConf struct {
	Env            string `mapstructure:"env"`
	Port           int    `mapstructure:"port"`
	ShutdownSecond int    `mapstructure:"shutdown_seconds"`
}

type MongoConf struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type AWSConf struct {
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`

	IngestBucket string `mapstructure:"ingest_bucket"`
	MediaBucket  string `mapstructure:"media_bucket"`
	PublicBucket string `mapstructure:"public_bucket"`
	KYCBucket    string `mapstructure:"kyc_bucket"`

	KMSAliasIngest string `mapstructure:"kms_alias_ingest"`
	KMSAliasMedia  string `mapstructure:"kms_alias_media"`
	KMSAliasKYC    string `mapstructure:"kms_alias_kyc"`

	MediaConvertRoleARN  string `mapstructure:"mediaconvert_role_arn"`
	MediaConvertEndpoint string `mapstructure:"mediaconvert_endpoint"`
	OutputKMSARN         string `mapstructure:"output_kms_arn"`
}

type S3Conf struct {
	PresignPutTTL int `mapstructure:"presign_put_ttl_seconds"`
	PresignGetTTL int `mapstructure:"presign_get_ttl_seconds"`
}

type RedisConf struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	SignedTTL int    `mapstructure:"signed_url_cache_ttl_seconds"`
}

type KafkaConf struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type JWTConf struct {
	PublicKeyPath string `mapstructure:"public_key_path"`
}

type ModerationConf struct {
	MinConfidence float32 `mapstructure:"min_confidence"`
}

type ImageConf struct {
	DerivativeWidth int `mapstructure:"derivative_width"`
	ThumbSize       int `mapstructure:"thumb_size"`
	JPEGQuality     int `mapstructure:"jpeg_quality"`
	WebPQuality     int `mapstructure:"webp_quality"`
	MosaicBlockSize int `mapstructure:"mosaic_block_size"`
	MosaicMinBlocks int `mapstructure:"mosaic_min_blocks"`
}

type TranscodeConf struct {
	SubmitTimeoutSecond int    `mapstructure:"submit_timeout_seconds"`
	Backend             string `mapstructure:"backend"`
}

type Config struct {
	App        AppConf        `mapstructure:"app"`
	Mongo      MongoConf      `mapstructure:"mongodb"`
	AWS        AWSConf        `mapstructure:"aws"`
	S3         S3Conf         `mapstructure:"s3"`
	Redis      RedisConf      `mapstructure:"redis"`
	Kafka      KafkaConf      `mapstructure:"kafka"`
	JWT        JWTConf        `mapstructure:"jwt"`
	Moderation ModerationConf `mapstructure:"moderation"`
	Image      ImageConf      `mapstructure:"image"`
	Transcode  TranscodeConf  `mapstructure:"transcode"`
	Log        struct {
		Level string `mapstructure:"level"`
	} `mapstructure:"log"`

	// derived
	ShutdownTimeout time.Duration
	SubmitTimeout   time.Duration
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if cfg.App.ShutdownSecond == 0 {
		cfg.App.ShutdownSecond = 15
	}
	cfg.ShutdownTimeout = time.Duration(cfg.App.ShutdownSecond) * time.Second
	if cfg.S3.PresignPutTTL == 0 {
		cfg.S3.PresignPutTTL = 300
	}
	if cfg.S3.PresignGetTTL == 0 {
		cfg.S3.PresignGetTTL = 900
	}
	if cfg.Redis.SignedTTL == 0 {
		cfg.Redis.SignedTTL = cfg.S3.PresignGetTTL
	}
	if cfg.Moderation.MinConfidence == 0 {
		cfg.Moderation.MinConfidence = 80
	}
	if cfg.Image.DerivativeWidth == 0 {
		cfg.Image.DerivativeWidth = 1080
	}
	if cfg.Image.ThumbSize == 0 {
		cfg.Image.ThumbSize = 256
	}
	if cfg.Image.JPEGQuality == 0 {
		cfg.Image.JPEGQuality = 85
	}
	if cfg.Image.WebPQuality == 0 {
		cfg.Image.WebPQuality = 78
	}
	if cfg.Image.MosaicBlockSize == 0 {
		cfg.Image.MosaicBlockSize = 16
	}
	if cfg.Image.MosaicMinBlocks == 0 {
		cfg.Image.MosaicMinBlocks = 8
	}
	if cfg.Transcode.SubmitTimeoutSecond == 0 {
		cfg.Transcode.SubmitTimeoutSecond = 30
	}
	if cfg.Transcode.Backend == "" {
		cfg.Transcode.Backend = "mediaconvert"
	}
	cfg.SubmitTimeout = time.Duration(cfg.Transcode.SubmitTimeoutSecond) * time.Second
	return &cfg, nil
}
