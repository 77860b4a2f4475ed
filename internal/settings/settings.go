// Package settings holds the flat persisted settings record and the manager
// that owns it at runtime.
package settings

import (
	"fmt"

	"git.home.luguber.info/inful/bridgewatch/internal/config"
)

// StorageKey is the key the record is stored under.
const StorageKey = "browserConnectorSettings"

// Settings is the persisted configuration record shared with the UI adapter.
type Settings struct {
	ServerHost          string `json:"serverHost"`
	ServerPort          int    `json:"serverPort"`
	LogLimit            int    `json:"logLimit"`
	QueryLimit          int    `json:"queryLimit"`
	StringSizeLimit     int    `json:"stringSizeLimit"`
	ShowRequestHeaders  bool   `json:"showRequestHeaders"`
	ShowResponseHeaders bool   `json:"showResponseHeaders"`
	MaxLogSize          int    `json:"maxLogSize"`
	ScreenshotPath      string `json:"screenshotPath"`
	AllowAutoPaste      bool   `json:"allowAutoPaste"`
}

// Defaults returns the record used before anything was saved.
func Defaults() Settings {
	return Settings{
		ServerHost:      config.DefaultHost,
		ServerPort:      config.DefaultPort,
		LogLimit:        50,
		QueryLimit:      30000,
		StringSizeLimit: 500,
		MaxLogSize:      20000,
	}
}

// Validate rejects records that discovery cannot use.
func (s Settings) Validate() error {
	if s.ServerHost == "" {
		return fmt.Errorf("serverHost must not be empty")
	}
	if err := config.ValidatePort(s.ServerPort); err != nil {
		return fmt.Errorf("serverPort: %w", err)
	}
	for name, v := range map[string]int{
		"logLimit":        s.LogLimit,
		"queryLimit":      s.QueryLimit,
		"stringSizeLimit": s.StringSizeLimit,
		"maxLogSize":      s.MaxLogSize,
	} {
		if v < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	return nil
}

// Patch is a partial update. Nil fields keep their current value.
type Patch struct {
	ServerHost          *string `json:"serverHost,omitempty"`
	ServerPort          *int    `json:"serverPort,omitempty"`
	LogLimit            *int    `json:"logLimit,omitempty"`
	QueryLimit          *int    `json:"queryLimit,omitempty"`
	StringSizeLimit     *int    `json:"stringSizeLimit,omitempty"`
	ShowRequestHeaders  *bool   `json:"showRequestHeaders,omitempty"`
	ShowResponseHeaders *bool   `json:"showResponseHeaders,omitempty"`
	MaxLogSize          *int    `json:"maxLogSize,omitempty"`
	ScreenshotPath      *string `json:"screenshotPath,omitempty"`
	AllowAutoPaste      *bool   `json:"allowAutoPaste,omitempty"`
}

// Apply copies the set fields onto s.
func (p Patch) Apply(s *Settings) {
	setIf(&s.ServerHost, p.ServerHost)
	setIf(&s.ServerPort, p.ServerPort)
	setIf(&s.LogLimit, p.LogLimit)
	setIf(&s.QueryLimit, p.QueryLimit)
	setIf(&s.StringSizeLimit, p.StringSizeLimit)
	setIf(&s.ShowRequestHeaders, p.ShowRequestHeaders)
	setIf(&s.ShowResponseHeaders, p.ShowResponseHeaders)
	setIf(&s.MaxLogSize, p.MaxLogSize)
	setIf(&s.ScreenshotPath, p.ScreenshotPath)
	setIf(&s.AllowAutoPaste, p.AllowAutoPaste)
}

func setIf[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}
