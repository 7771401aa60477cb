package internal

import "time"

// Config is loaded from the environment. Durations use Go's duration
// syntax (e.g. "35s", "2m").
type Config struct {
	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	BlugeFilepath  string `env:"BLUGE_FILEPATH,required=true"`
	LogLevel       string `env:"LOG_LEVEL,required=true"`
	Host           string `env:"HOST,required=true"`
	Port           int    `env:"PORT,required=true"`

	BufferSize    int           `env:"BUFFER_SIZE,required=true"`
	SinkTimeout   time.Duration `env:"SINK_TIMEOUT,required=true"`
	LimitMessages *int          `env:"LIMIT_MESSAGES"`

	// Timer windows of the dialogue dispatcher. Defaults match the
	// production tuning of the assistant.
	FlushSilence    time.Duration `env:"FLUSH_SILENCE,default=35s"`
	FlushGrace      time.Duration `env:"FLUSH_GRACE,default=60s"`
	HelpDelay       time.Duration `env:"HELP_DELAY,default=60s"`
	HelpQuietWindow time.Duration `env:"HELP_QUIET_WINDOW,default=55s"`
	GreetSilence    time.Duration `env:"GREET_SILENCE,default=60s"`

	GCInterval time.Duration `env:"GC_INTERVAL,default=5m"`

	GeminiAPIKey  string `env:"GEMINI_API_KEY"`
	WeatherAPIKey string `env:"OPENWEATHERMAP_API_KEY"`

	DebugPort int `env:"DEBUG_PORT,default=8081"`
}
