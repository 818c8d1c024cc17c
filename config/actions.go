package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// ActionConfig is one entry of the action catalogue file:
//
//	[[actions]]
//	uuid    = "0b5e9f61-2c1d-4a7e-9a3b-5d6c7e8f9a03"
//	fence   = "u33dc0cr000100"
//	trigger = "entry"
//	type    = "notification"
//	subject = "Welcome"
//	body    = "Glad you're here"
//	url     = "https://example.com"
type ActionConfig struct {
	UUID    string `toml:"uuid"`
	Fence   string `toml:"fence"`
	Trigger string `toml:"trigger"`
	Type    string `toml:"type"`
	Subject string `toml:"subject"`
	Body    string `toml:"body"`
	URL     string `toml:"url"`
}

type actionsFile struct {
	Actions []ActionConfig `toml:"actions"`
}

// LoadActions reads the action catalogue. An empty path yields no actions.
func LoadActions(path string) ([]ActionConfig, error) {
	if path == "" {
		return nil, nil
	}
	var f actionsFile
	if _, err := toml.DecodeFile(path, &f); err != nil {
		return nil, fmt.Errorf("load actions %s: %w", path, err)
	}
	return f.Actions, nil
}
