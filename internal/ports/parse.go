package ports

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	composetypes "github.com/compose-spec/compose-go/v2/types"
)

// binding is one published port pair produced by a ports entry
type binding struct {
	External Port
	Internal Port
	Protocol string
}

var errEmptyEntry = errors.New("empty port entry")

// parseEntry expands a short-syntax ports entry ("[ip:][ext:]int[/proto]", ranges
// allowed) into one binding per container port
func parseEntry(entry string) ([]binding, error) {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return nil, errEmptyEntry
	}

	configs, err := composetypes.ParsePortConfig(entry)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(configs, func(i, j int) bool {
		return configs[i].Target < configs[j].Target
	})

	bindings := make([]binding, 0, len(configs))
	for _, cfg := range configs {
		if cfg.Target == 0 || cfg.Target > 65535 {
			return nil, fmt.Errorf("container port out of range: %d", cfg.Target)
		}
		if strings.Contains(cfg.Published, "-") {
			return nil, fmt.Errorf("published range %s maps to a single container port", cfg.Published)
		}
		external, err := ParsePort(cfg.Published)
		if err != nil {
			return nil, err
		}
		bindings = append(bindings, binding{
			External: external,
			Internal: Port(cfg.Target),
			Protocol: cfg.Protocol,
		})
	}
	return bindings, nil
}
