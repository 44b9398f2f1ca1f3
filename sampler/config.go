package sampler

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the parameters of every section run by Run.
type Config struct {
	Primes    PrimesConfig    `yaml:"primes"`
	Work      WorkConfig      `yaml:"work"`
	LockGuard LockGuardConfig `yaml:"lock_guard"`
	Semaphore SemaphoreConfig `yaml:"semaphore"`
	Tasks     []string        `yaml:"tasks"`
}

type PrimesConfig struct {
	Limit    int `yaml:"limit"`
	Ranges   int `yaml:"ranges"`
	Parallel int `yaml:"parallel"`
}

type WorkConfig struct {
	Limit int `yaml:"limit"`
}

type LockGuardConfig struct {
	Goroutines int `yaml:"goroutines"`
}

type SemaphoreConfig struct {
	Permits int           `yaml:"permits"`
	Workers int           `yaml:"workers"`
	Hold    time.Duration `yaml:"hold"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	return Config{
		Primes:    PrimesConfig{Limit: 200, Ranges: 5, Parallel: 5},
		Work:      WorkConfig{Limit: 1000},
		LockGuard: LockGuardConfig{Goroutines: 10},
		Semaphore: SemaphoreConfig{Permits: 3, Workers: 10, Hold: 5 * time.Millisecond},
		Tasks:     []string{"Task 1", "Task 2"},
	}
}

// LoadConfig reads a YAML file on top of DefaultConfig and validates the
// result. Keys missing from the file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	// #nosec G304 -- the path comes from the operator's command line.
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate reports every out-of-range field.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}
	check(c.Primes.Limit >= 1, "primes.limit must be at least 1, got %d", c.Primes.Limit)
	check(c.Primes.Ranges >= 1, "primes.ranges must be at least 1, got %d", c.Primes.Ranges)
	check(c.Primes.Parallel >= 1, "primes.parallel must be at least 1, got %d", c.Primes.Parallel)
	check(c.Work.Limit >= 0, "work.limit must not be negative, got %d", c.Work.Limit)
	check(c.LockGuard.Goroutines >= 1, "lock_guard.goroutines must be at least 1, got %d", c.LockGuard.Goroutines)
	// Zero permits would leave every semaphore worker blocked forever.
	check(c.Semaphore.Permits >= 1, "semaphore.permits must be at least 1, got %d", c.Semaphore.Permits)
	check(c.Semaphore.Workers >= 1, "semaphore.workers must be at least 1, got %d", c.Semaphore.Workers)
	check(c.Semaphore.Hold >= 0, "semaphore.hold must not be negative, got %v", c.Semaphore.Hold)
	return errors.Join(errs...)
}
