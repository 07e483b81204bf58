package engine

// Well-known module and export names.
const (
	// WASIPreview1 is the current WASI snapshot module name.
	WASIPreview1 = "wasi_snapshot_preview1"

	// WASIUnstable is the legacy pre-snapshot module name. Old toolchains
	// import from it, so the link layer serves both.
	WASIUnstable = "wasi_unstable"

	// StartFunction is the WASI command entry point export.
	StartFunction = "_start"
)
