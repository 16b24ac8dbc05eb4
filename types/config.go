package types

import "time"

type Bank struct {
	Name      string `mapstructure:"name" json:"name"`
	Country   string `mapstructure:"country" json:"country"`
	PickFirst bool   `mapstructure:"pick_first" json:"pickFirst"`
}

type PSU struct {
	Type      string `mapstructure:"type" json:"type"`
	IPAddress string `mapstructure:"ip_address" json:"ipAddress"`
	UserAgent string `mapstructure:"user_agent" json:"userAgent"`
}

// Config holds everything a single run needs. It is built once in main and
// passed down; nothing reads it from package state.
type Config struct {
	ApplicationID string        `mapstructure:"application_id" json:"applicationId"`
	KeyPath       string        `mapstructure:"key_path" json:"keyPath"`
	Token         string        `mapstructure:"token" json:"token"`
	BaseURL       string        `mapstructure:"base_url" json:"baseUrl"`
	RedirectURL   string        `mapstructure:"redirect_url" json:"redirectUrl"`
	State         string        `mapstructure:"state" json:"state"`
	Bank          Bank          `mapstructure:"bank" json:"bank"`
	PSU           PSU           `mapstructure:"psu" json:"psu"`
	HTTPTimeout   time.Duration `mapstructure:"http_timeout" json:"httpTimeout"`
	DatabaseURL   string        `mapstructure:"database_url" json:"databaseUrl"`
}
