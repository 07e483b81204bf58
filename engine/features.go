package engine

import (
	"strings"

	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
)

// Features toggles the optional WebAssembly proposals a guest may use.
// Loading bytecode that requires a disabled proposal fails validation, so
// the set must be a superset of whatever the target bytecode needs.
type Features struct {
	ReferenceTypes bool
	MultiMemory    bool
	ModuleLinking  bool
	TailCalls      bool
	Threads        bool
}

// AllFeatures returns every toggle enabled.
func AllFeatures() Features {
	return Features{
		ReferenceTypes: true,
		MultiMemory:    true,
		ModuleLinking:  true,
		TailCalls:      true,
		Threads:        true,
	}
}

// core maps the toggles onto wazero's validator flags. ReferenceTypes and
// Threads have dedicated flags; the remaining proposals are accepted here
// and validated only as far as the backend implements them.
func (f Features) core() api.CoreFeatures {
	features := api.CoreFeaturesV2.SetEnabled(api.CoreFeatureReferenceTypes, f.ReferenceTypes)
	if f.Threads {
		features |= experimental.CoreFeaturesThreads
	}
	return features
}

// String lists the enabled toggles, comma separated.
func (f Features) String() string {
	var enabled []string
	if f.ReferenceTypes {
		enabled = append(enabled, "reference-types")
	}
	if f.MultiMemory {
		enabled = append(enabled, "multi-memory")
	}
	if f.ModuleLinking {
		enabled = append(enabled, "module-linking")
	}
	if f.TailCalls {
		enabled = append(enabled, "tail-calls")
	}
	if f.Threads {
		enabled = append(enabled, "threads")
	}
	if len(enabled) == 0 {
		return "none"
	}
	return strings.Join(enabled, ",")
}
