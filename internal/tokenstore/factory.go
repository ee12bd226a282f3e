package tokenstore

import (
	"fmt"
	"strings"

	"fintrack/internal/log"
)

// Kind selects a Store implementation.
type Kind string

const (
	KindMemory Kind = "memory"
	KindSQLite Kind = "sqlite"
)

func (k Kind) IsValid() bool {
	return k == KindMemory || k == KindSQLite
}

func (k Kind) String() string { return string(k) }

// Kinds returns every supported store kind.
func Kinds() []Kind {
	return []Kind{KindMemory, KindSQLite}
}

// Config holds what Open needs to build a store.
type Config struct {
	Kind Kind
	Path string // sqlite only
}

func (c Config) Validate() error {
	if !c.Kind.IsValid() {
		names := make([]string, 0, len(Kinds()))
		for _, k := range Kinds() {
			names = append(names, k.String())
		}
		return fmt.Errorf("invalid token store %q (want one of %s)", c.Kind, strings.Join(names, ", "))
	}
	if c.Kind == KindSQLite && strings.TrimSpace(c.Path) == "" {
		return fmt.Errorf("token store path is required for sqlite")
	}
	return nil
}

// Open builds the store described by cfg.
func Open(cfg Config, logger *log.Logger) (Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger = log.OrDiscard(logger).WithComponent(log.ComponentTokenStore)

	switch cfg.Kind {
	case KindSQLite:
		s, err := NewSQLiteStore(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize sqlite token store: %w", err)
		}
		logger.Info("Initialized sqlite token store", "db_path", cfg.Path)
		return s, nil
	default:
		logger.Info("Initialized memory token store")
		return NewMemoryStore(), nil
	}
}
