package wasi

import (
	"github.com/nor2/wasi-harness/errors"
)

// HTTPClientCapability controls outbound HTTP access from the guest.
// AllowAll grants every host; otherwise only AllowedHosts are reachable.
type HTTPClientCapability struct {
	AllowAll     bool
	AllowedHosts []string
}

// ThreadingCapability controls guest-requested thread spawning.
// MaxThreads zero means unlimited. Asynchronous enables cooperative
// scheduling of spawned threads instead of one OS thread each.
type ThreadingCapability struct {
	MaxThreads   int
	Asynchronous bool
}

// Capabilities is the coarse permission set handed to the environment
// builder. It is copied at Configure time and immutable afterwards.
type Capabilities struct {
	InsecureAllowAll bool
	HTTPClient       HTTPClientCapability
	Threading        ThreadingCapability
}

// AllowAll returns the fully permissive capability set: unrestricted
// environment access, HTTP to any host and default threading.
func AllowAll() Capabilities {
	return Capabilities{
		InsecureAllowAll: true,
		HTTPClient:       HTTPClientCapability{AllowAll: true},
	}
}

// Validate rejects contradictory or malformed capability sets.
func (c Capabilities) Validate() error {
	if c.HTTPClient.AllowAll && len(c.HTTPClient.AllowedHosts) > 0 {
		return errors.InvalidInput(errors.PhaseEnvironment,
			"http client cannot combine allow-all with an allowed host list")
	}
	for _, host := range c.HTTPClient.AllowedHosts {
		if host == "" {
			return errors.InvalidInput(errors.PhaseEnvironment, "allowed host cannot be empty")
		}
	}
	if c.Threading.MaxThreads < 0 {
		return errors.InvalidInput(errors.PhaseEnvironment, "max threads cannot be negative")
	}
	return nil
}
