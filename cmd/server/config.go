package main

import (
	"babble/domain"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Host                 string        `env:"BABBLE_HOST,default=0.0.0.0"`
	Port                 int           `env:"BABBLE_PORT,default=5656" validate:"min=1,max=65535"`
	CommunicationWorkers int           `env:"BABBLE_COMMUNICATION_WORKERS,default=20" validate:"min=1"`
	ExecutorWorkers      int           `env:"BABBLE_EXECUTOR_WORKERS,default=10" validate:"min=1"`
	MaxClient            int           `env:"BABBLE_MAX_CLIENT,default=1000" validate:"min=1"`
	MaxFollow            int           `env:"BABBLE_MAX_FOLLOW,default=1000" validate:"min=1"`
	TimelineMax          int           `env:"BABBLE_TIMELINE_MAX,default=20" validate:"min=1"`
	IDSize               int           `env:"BABBLE_ID_SIZE,default=16" validate:"min=1"`
	MessageSize          int           `env:"BABBLE_MESSAGE_SIZE,default=64" validate:"min=1"`
	FrameSize            int           `env:"BABBLE_FRAME_SIZE,default=256" validate:"min=8"`
	BufferSize           int           `env:"BUFFER_SIZE,default=1024" validate:"min=1"`
	SinkTimeout          time.Duration `env:"SINK_TIMEOUT,default=2s" validate:"gt=0"`
	RestartInterval      time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"gt=0"`
	MetricInterval       time.Duration `env:"METRIC_INTERVAL,default=30s" validate:"gt=0"`
	BadgerFilepath       string        `env:"BADGER_FILEPATH"`
	DebugPort            int           `env:"DEBUG_PORT,default=8081" validate:"min=1,max=65535"`
	LogLevel             string        `env:"LOG_LEVEL,default=INFO" validate:"oneof=DEBUG INFO WARN ERROR"`
}

func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validator.New().Struct(c.Limits()); err != nil {
		return fmt.Errorf("invalid limits: %w", err)
	}
	return nil
}

func (c Config) Limits() domain.Limits {
	return domain.Limits{
		MaxClient:   c.MaxClient,
		MaxFollow:   c.MaxFollow,
		TimelineMax: c.TimelineMax,
		IDSize:      c.IDSize,
		MessageSize: c.MessageSize,
		FrameSize:   c.FrameSize,
	}
}

func (c Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
