package config

import (
	"fmt"
	"regexp"
	"strings"

	"smorty/internal/abiutil"
	"smorty/internal/apperr"
)

var addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// Validate checks every invariant spec.md §3 lists, collecting all
// violations into one ConfigError rather than failing on the first —
// the teacher's LoadConfig habit of checking every required field
// before returning, generalized from a handful of top-level checks to
// a full document walk.
func Validate(cfg *Config) error {
	var violations []string

	if cfg.DatabaseURI == "" {
		violations = append(violations, "database_uri is required")
	}

	seenEndpoints := map[string]string{}

	for contractID, c := range cfg.Contracts {
		if _, ok := cfg.Chains[c.Chain]; !ok {
			violations = append(violations, fmt.Sprintf("contract %q: chain %q is not declared in chains", contractID, c.Chain))
		}
		if !addressPattern.MatchString(c.Address) {
			violations = append(violations, fmt.Sprintf("contract %q: address %q is not a 20-byte hex value", contractID, c.Address))
		}

		var abiContract *abiutil.Contract
		if c.ABIPath == "" {
			violations = append(violations, fmt.Sprintf("contract %q: abi_path is required", contractID))
		} else if loaded, err := abiutil.Load(c.ABIPath); err != nil {
			violations = append(violations, fmt.Sprintf("contract %q: %v", contractID, err))
		} else {
			abiContract = loaded
		}

		for i, s := range c.Specs {
			if s.Endpoint == "" || !strings.HasPrefix(s.Endpoint, "/") {
				violations = append(violations, fmt.Sprintf("contract %q spec %d: endpoint %q must be a non-empty path beginning with \"/\"", contractID, i, s.Endpoint))
			} else if owner, dup := seenEndpoints[s.Endpoint]; dup {
				violations = append(violations, fmt.Sprintf("contract %q spec %d: endpoint %q already used by contract %q", contractID, i, s.Endpoint, owner))
			} else {
				seenEndpoints[s.Endpoint] = contractID
			}

			if abiContract != nil {
				if _, ok := abiContract.Parsed.Events[s.Name]; !ok {
					violations = append(violations, fmt.Sprintf("contract %q spec %d: event %q not found in %s", contractID, i, s.Name, c.ABIPath))
				}
			}
		}
	}

	if len(violations) == 0 {
		return nil
	}
	return apperr.New(apperr.KindConfig, "invalid config:\n  - "+strings.Join(violations, "\n  - "))
}
