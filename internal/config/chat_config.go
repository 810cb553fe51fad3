package config

import "time"

const (
	// Chat bounds
	DefaultMaxGroupNameLength   = 255
	DefaultMaxDescriptionLength = 1000
	DefaultMaxMessageLength     = 5000
	DefaultHistoryLimit         = 50
	DefaultMaxHistoryLimit      = 100

	// Websocket
	DefaultSendBuffer   = 256
	DefaultWriteWait    = 10 * time.Second
	DefaultPongWait     = 60 * time.Second
	DefaultRateBurst    = 10
	DefaultRateInterval = time.Second

	// A rune outside the BMP escaped as a JSON surrogate pair, \ud83d\ude00.
	maxEncodedRuneBytes = 12
	frameEnvelopeBytes  = 1 << 10
)

// FrameBytesFor is the smallest read limit that admits every message frame
// whose content fits in maxMessageLength characters, however the client
// encodes it.
func FrameBytesFor(maxMessageLength int) int64 {
	return int64(maxMessageLength)*maxEncodedRuneBytes + frameEnvelopeBytes
}

// ChatLimits bounds input accepted by the chat service.
type ChatLimits struct {
	MaxGroupNameLength   int
	MaxDescriptionLength int
	MaxMessageLength     int
	DefaultHistoryLimit  int
	MaxHistoryLimit      int
}

func DefaultChatLimits() ChatLimits {
	return ChatLimits{
		MaxGroupNameLength:   DefaultMaxGroupNameLength,
		MaxDescriptionLength: DefaultMaxDescriptionLength,
		MaxMessageLength:     DefaultMaxMessageLength,
		DefaultHistoryLimit:  DefaultHistoryLimit,
		MaxHistoryLimit:      DefaultMaxHistoryLimit,
	}
}

// GatewayConfig tunes per-connection behaviour of the live channel.
type GatewayConfig struct {
	SendBuffer    int
	MaxFrameBytes int64
	RateBurst     int
	RateInterval  time.Duration
	WriteWait     time.Duration
	PongWait      time.Duration
}

// PingPeriod must stay below PongWait so the peer always has a ping to answer.
func (g GatewayConfig) PingPeriod() time.Duration {
	return (g.PongWait * 9) / 10
}

func DefaultGatewayConfig() GatewayConfig {
	return GatewayConfig{
		SendBuffer:    DefaultSendBuffer,
		MaxFrameBytes: FrameBytesFor(DefaultMaxMessageLength),
		RateBurst:     DefaultRateBurst,
		RateInterval:  DefaultRateInterval,
		WriteWait:     DefaultWriteWait,
		PongWait:      DefaultPongWait,
	}
}
