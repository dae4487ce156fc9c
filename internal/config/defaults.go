package config

const (
	defaultDataDir          = "~/.local/share/oasis"
	defaultLogDir           = "~/.local/share/oasis/logs"
	defaultBind             = "127.0.0.1:8157"
	defaultRequestTimeout   = 30
	defaultMaxUploadMB      = 50
	defaultWorkers          = 4
	defaultQueueDepth       = 64
	defaultStageWarnSeconds = 120
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults, including the
// reference end-member table for the tracers the models recognize out of the
// box. The concentrations are mg/L except conductivity (uS/cm).
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: defaultDataDir,
			LogDir:  defaultLogDir,
		},
		Server: Server{
			Bind:           defaultBind,
			RequestTimeout: defaultRequestTimeout,
			MaxUploadMB:    defaultMaxUploadMB,
		},
		Pipeline: Pipeline{
			Workers:          defaultWorkers,
			QueueDepth:       defaultQueueDepth,
			StageWarnSeconds: defaultStageWarnSeconds,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
		Model: Model{
			Endmembers: map[string]Endmember{
				"nitrate":      {Low: 0, High: 50},
				"cl":           {Low: 0, High: 250},
				"chloride":     {Low: 0, High: 250},
				"br":           {Low: 0, High: 1},
				"bromide":      {Low: 0, High: 1},
				"na":           {Low: 0, High: 200},
				"sodium":       {Low: 0, High: 200},
				"k":            {Low: 0, High: 12},
				"potassium":    {Low: 0, High: 12},
				"mg":           {Low: 0, High: 50},
				"magnesium":    {Low: 0, High: 50},
				"ca":           {Low: 0, High: 100},
				"calcium":      {Low: 0, High: 100},
				"so4":          {Low: 0, High: 250},
				"sulfate":      {Low: 0, High: 250},
				"ec":           {Low: 0, High: 2500},
				"conductivity": {Low: 0, High: 2500},
			},
		},
	}
}
