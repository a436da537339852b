package profile

import (
	"fmt"

	"github.com/alfaoz/v2util/internal/execx"
)

// Load reads the server config at configPath on the runner's host.
func Load(r execx.Runner, configPath, network string) (Profile, error) {
	data, err := r.ReadFile(configPath)
	if err != nil {
		return Profile{}, fmt.Errorf("read server config: %w", err)
	}
	p, err := Parse(data, network)
	if err != nil {
		return Profile{}, err
	}
	p.Path = configPath
	return p, nil
}
