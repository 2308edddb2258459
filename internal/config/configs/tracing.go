package configs

// Tracing configures OpenTelemetry. When disabled a no-op provider is
// installed.
type Tracing struct {
	Enabled     bool   `env:"ENABLED" envDefault:"false"`
	ServiceName string `env:"SERVICE_NAME" envDefault:"follow-exchange"`
}
