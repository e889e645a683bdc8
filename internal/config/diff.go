package config

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-applied are tracked; provider and server
// changes require a restart and are deliberately not reported here.
type ConfigDiff struct {
	LogLevelChanged    bool
	NewLogLevel        LogLevel
	LanguagesChanged   bool
	NewLanguages       LanguagesConfig
	DisplayModeChanged bool
	NewDisplayMode     DisplayMode

	// PipelineChanged is true when any timing constant or bound differs.
	// New values take effect the next time translation is started.
	PipelineChanged bool
	NewPipeline     PipelineConfig
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Languages != new.Languages {
		d.LanguagesChanged = true
		d.NewLanguages = new.Languages
	}

	if old.Display.Mode != new.Display.Mode {
		d.DisplayModeChanged = true
		d.NewDisplayMode = new.Display.Mode
	}

	if old.Pipeline != new.Pipeline {
		d.PipelineChanged = true
		d.NewPipeline = new.Pipeline
	}

	return d
}
