package domain

const (
	DefaultPort                 = 5656
	DefaultMaxClient            = 1000
	DefaultMaxFollow            = DefaultMaxClient
	DefaultFrameSize            = 256
	DefaultMessageSize          = 64
	DefaultIDSize               = 16
	DefaultTimelineMax          = 20
	DefaultCommunicationWorkers = 20
	DefaultExecutorWorkers      = 10
)

// Limits gathers the size bounds shared by the engine, the parser and the answer transport.
type Limits struct {
	MaxClient   int `validate:"min=1"`
	MaxFollow   int `validate:"min=1"`
	TimelineMax int `validate:"min=1"`
	IDSize      int `validate:"min=1"`
	MessageSize int `validate:"min=1"`
	FrameSize   int `validate:"min=8"`
}

func DefaultLimits() Limits {
	return Limits{
		MaxClient:   DefaultMaxClient,
		MaxFollow:   DefaultMaxFollow,
		TimelineMax: DefaultTimelineMax,
		IDSize:      DefaultIDSize,
		MessageSize: DefaultMessageSize,
		FrameSize:   DefaultFrameSize,
	}
}
