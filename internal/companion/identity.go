package companion

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Identity is what a companion server reports about itself on the identity path.
type Identity struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Signature string `json:"signature"`
	Port      int    `json:"port,omitempty"`
	// Host is the host the identity was obtained from. It is never part of the reply.
	Host string `json:"host,omitempty"`
}

// Endpoint returns host:port for display.
func (i Identity) Endpoint() string {
	return fmt.Sprintf("%s:%d", i.Host, i.Port)
}

// UnmarshalJSON accepts the port either as a number or a numeric string.
func (i *Identity) UnmarshalJSON(data []byte) error {
	var raw struct {
		Name      string          `json:"name"`
		Version   string          `json:"version"`
		Signature *string         `json:"signature"`
		Port      json.RawMessage `json:"port"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Signature == nil {
		return errMissingSignature
	}
	i.Name = raw.Name
	i.Version = raw.Version
	i.Signature = *raw.Signature
	i.Port = parsePort(raw.Port)
	return nil
}

// parsePort returns 0 when the field is absent or unusable.
func parsePort(raw json.RawMessage) int {
	if len(raw) == 0 || string(raw) == "null" {
		return 0
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		if v, err := strconv.Atoi(n.String()); err == nil {
			return v
		}
		return 0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return v
}
