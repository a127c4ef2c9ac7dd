package config

import (
	"github.com/askeland/chatpoll"
)

// BuildOptions converts parsed configuration into SDK options for
// [chatpoll.New].
func BuildOptions(cfg *Config) []chatpoll.Option {
	opts := []chatpoll.Option{
		chatpoll.WithStatusURL(cfg.StatusURL),
		chatpoll.WithChatURL(cfg.ChatURL),
		chatpoll.WithPort(cfg.Port),
		chatpoll.WithPollInterval(cfg.PollInterval.Duration()),
		chatpoll.WithRequestTimeout(cfg.Timeout.Duration()),
	}

	if cfg.AutoStart {
		opts = append(opts, chatpoll.WithAutoStart())
	}

	return opts
}
