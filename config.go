package gosmt

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds the tunable knobs of the constraint-solving core: which
// rewrite passes run, which independent-solver strategy is used, and the
// capacity/timeout limits the backend enforces.
type Config struct {
	RewriteEqualities     bool          `toml:"rewrite-equalities"`
	SimplifySymIndices    bool          `toml:"simplify-sym-indices"`
	EqualitySubstitution  bool          `toml:"equality-substitution"`
	IndependentSolverType string        `toml:"use-independent-solver-type"`
	ExprNumThreshold      int           `toml:"expr-num-threshold"`
	MaxSymArraySize       uint          `toml:"max-sym-array-size"`
	CoreSolverTimeout     time.Duration `toml:"core-solver-timeout"`
}

const (
	IndependentSolverPerFactor = "per-factor"
	IndependentSolverBatch     = "batch"
)

func DefaultConfig() *Config {
	return &Config{
		RewriteEqualities:      true,
		SimplifySymIndices:     true,
		EqualitySubstitution:   true,
		IndependentSolverType:  IndependentSolverPerFactor,
		ExprNumThreshold:       100,
		MaxSymArraySize:        4096,
		CoreSolverTimeout:      10 * time.Second,
	}
}

// LoadConfig reads a TOML file at path, overlaying DefaultConfig with
// whatever keys it sets; an absent file is not an error, matching the
// teacher's habit of treating missing optional inputs as "use defaults"
// rather than failing.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	return cfg, nil
}
