package config

import (
	"encoding/json"
	"log/slog"
	"time"
)

type Config struct {
	ConfigFile string  `json:"config"  yaml:"config"`
	HTTP       HTTP    `json:"http"    yaml:"http"`
	Debug      Debug   `json:"debug"   yaml:"debug"`
	Log        Log     `json:"log"     yaml:"log"`
	Session    Session `json:"session" yaml:"session"`
}

type HTTP struct {
	Listen   string `json:"listen" yaml:"listen"`
	CertFile string `json:"cert"   yaml:"cert"`
	KeyFile  string `json:"key"    yaml:"key"`
	TLS      bool   `json:"tls"    yaml:"tls"`
}

type Log struct {
	Format string     `json:"format" yaml:"format"`
	Level  slog.Level `json:"level"  yaml:"level"`
}

type Session struct {
	Secret     Secret        `json:"secret"      yaml:"secret"`
	CookieName string        `json:"cookie-name" yaml:"cookie-name"`
	Expires    time.Duration `json:"expires"     yaml:"expires"`
}

type Debug struct {
	Listen string `json:"listen" yaml:"listen"`
	Pprof  bool   `json:"pprof"  yaml:"pprof"`
}

//goland:noinspection GoMixedReceiverTypes
func (c Config) String() string {
	jsonString, err := json.Marshal(c)
	if err != nil {
		panic(err)
	}

	return string(jsonString)
}
