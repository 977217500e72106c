package budget

// Presets cover the common scan profiles. Callers needing something
// else construct Limits directly.

// QuickScan is a fast, shallow pass for discovery.
func QuickScan() *Guard {
	return New(Limits{
		TimeSeconds: 30,
		Files:       100,
		Bytes:       10 * 1024 * 1024,
		Depth:       3,
	})
}

// Standard is the default extraction budget.
func Standard() *Guard {
	return New(Limits{
		TimeSeconds: 300,
		Files:       1000,
		Bytes:       100 * 1024 * 1024,
		Depth:       10,
	})
}

// DeepAnalysis allows a thorough pass with generous limits.
func DeepAnalysis() *Guard {
	return New(Limits{
		TimeSeconds: 3600,
		Files:       10000,
		Bytes:       1024 * 1024 * 1024,
		Depth:       20,
	})
}

// MetadataOnly keeps reads minimal for stat-level scans.
func MetadataOnly() *Guard {
	return New(Limits{
		TimeSeconds: 60,
		Files:       500,
		Bytes:       1024 * 1024,
		Depth:       5,
	})
}

// Unlimited applies no constraints at all.
func Unlimited() *Guard {
	return New(Limits{})
}

// Preset resolves a preset by name, defaulting to Standard for
// unrecognized names.
func Preset(name string) *Guard {
	switch name {
	case "quick-scan", "quick_scan":
		return QuickScan()
	case "deep-analysis", "deep_analysis":
		return DeepAnalysis()
	case "metadata-only", "metadata_only":
		return MetadataOnly()
	case "unlimited":
		return Unlimited()
	default:
		return Standard()
	}
}
