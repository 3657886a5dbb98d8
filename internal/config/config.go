// Package config loads slotbot settings from flags, environment variables
// and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/teemow/slotbot/internal/booking"
	"github.com/teemow/slotbot/internal/instrumentation"
	"github.com/teemow/slotbot/internal/llm"
)

// Keys understood by Load. Each maps to the environment variables listed
// in envBindings.
const (
	KeyCalendarID         = "calendar_id"
	KeyCredentialsFile    = "credentials_file"
	KeyBackendURL         = "backend_url"
	KeyLLMAPIKey          = "llm.api_key"
	KeyLLMBaseURL         = "llm.base_url"
	KeyLLMModel           = "llm.model"
	KeyLLMTemperature     = "llm.temperature"
	KeyLLMTimeout         = "llm.timeout"
	KeyTimezone           = "timezone"
	KeyHTTPAddr           = "http_addr"
	KeyCORSAllowedOrigins = "cors_allowed_origins"
	KeyIntentClassifier   = "intent_classifier"
	KeyLogFormat          = "log_format"
	KeyDebug              = "debug"
	KeyMetricsEnabled     = "metrics.enabled"
	KeyMetricsAddr        = "metrics.addr"

	KeyInstrumentationEnabled = "instrumentation.enabled"
	KeyServiceName            = "instrumentation.service_name"
	KeyServiceInstanceID      = "instrumentation.service_instance_id"
	KeyMetricsExporter        = "instrumentation.metrics_exporter"
	KeyTracingExporter        = "instrumentation.tracing_exporter"
	KeyOTLPEndpoint           = "instrumentation.otlp_endpoint"
	KeyOTLPInsecure           = "instrumentation.otlp_insecure"
	KeyTraceSamplingRate      = "instrumentation.trace_sampling_rate"
	KeyPrometheusEndpoint     = "instrumentation.prometheus_endpoint"
	KeyAuditEnabled           = "audit.enabled"
	KeyAuditIncludeMessage    = "audit.include_message"
)

// Intent classifier names.
const (
	ClassifierKeyword = "keyword"
	ClassifierLLM     = "llm"
)

// Defaults.
const (
	DefaultBackendURL  = "http://localhost:8000"
	DefaultHTTPAddr    = ":8000"
	DefaultMetricsAddr = ":9090"
)

var envBindings = map[string][]string{
	KeyCalendarID:         {"CALENDAR_ID"},
	KeyCredentialsFile:    {"GOOGLE_SERVICE_JSON", "GOOGLE_APPLICATION_CREDENTIALS"},
	KeyBackendURL:         {"BACKEND_URL"},
	KeyLLMAPIKey:          {"LLM_API_KEY", "GEMINI_API_KEY"},
	KeyLLMBaseURL:         {"LLM_BASE_URL"},
	KeyLLMModel:           {"LLM_MODEL"},
	KeyLLMTemperature:     {"LLM_TEMPERATURE"},
	KeyLLMTimeout:         {"LLM_TIMEOUT"},
	KeyTimezone:           {"DEFAULT_TIMEZONE"},
	KeyHTTPAddr:           {"HTTP_ADDR"},
	KeyCORSAllowedOrigins: {"CORS_ALLOWED_ORIGINS"},
	KeyIntentClassifier:   {"INTENT_CLASSIFIER"},
	KeyLogFormat:          {"LOG_FORMAT"},
	KeyDebug:              {"DEBUG"},
	KeyMetricsEnabled:     {"METRICS_ENABLED"},
	KeyMetricsAddr:        {"METRICS_ADDR"},

	KeyInstrumentationEnabled: {"INSTRUMENTATION_ENABLED"},
	KeyServiceName:            {"OTEL_SERVICE_NAME"},
	KeyServiceInstanceID:      {"OTEL_SERVICE_INSTANCE_ID"},
	KeyMetricsExporter:        {"METRICS_EXPORTER"},
	KeyTracingExporter:        {"TRACING_EXPORTER"},
	KeyOTLPEndpoint:           {"OTEL_EXPORTER_OTLP_ENDPOINT"},
	KeyOTLPInsecure:           {"OTEL_EXPORTER_OTLP_INSECURE"},
	KeyTraceSamplingRate:      {"OTEL_TRACES_SAMPLER_ARG"},
	KeyPrometheusEndpoint:     {"PROMETHEUS_ENDPOINT"},
	KeyAuditEnabled:           {"AUDIT_LOGGING_ENABLED"},
	KeyAuditIncludeMessage:    {"AUDIT_LOGGING_INCLUDE_MESSAGE"},
}

var (
	// ErrMissingCalendarID is returned by Validate when no calendar is configured.
	ErrMissingCalendarID = errors.New("CALENDAR_ID is required")
	// ErrMissingCredentials is returned by Validate when no credentials file is configured.
	ErrMissingCredentials = errors.New("GOOGLE_SERVICE_JSON is required")
)

// LLMConfig configures the language model client.
type LLMConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float32
	Timeout     time.Duration
}

// Config is the complete runtime configuration.
type Config struct {
	CalendarID      string
	CredentialsFile string
	BackendURL      string

	LLM LLMConfig

	Timezone           string
	HTTPAddr           string
	CORSAllowedOrigins []string
	IntentClassifier   string

	LogFormat string
	Debug     bool

	MetricsEnabled bool
	MetricsAddr    string

	Instrumentation instrumentation.Config
}

// LoadDotEnv loads environment variables from the given files, or from
// ".env" when none is given. Existing variables are not overwritten and
// missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// New returns a viper instance with defaults and environment bindings set.
func New() *viper.Viper {
	v := viper.New()

	v.SetDefault(KeyBackendURL, DefaultBackendURL)
	v.SetDefault(KeyLLMBaseURL, llm.DefaultBaseURL)
	v.SetDefault(KeyLLMModel, llm.DefaultModel)
	v.SetDefault(KeyLLMTemperature, llm.DefaultTemperature)
	v.SetDefault(KeyLLMTimeout, "")
	v.SetDefault(KeyTimezone, booking.DefaultTimezone)
	v.SetDefault(KeyHTTPAddr, DefaultHTTPAddr)
	v.SetDefault(KeyIntentClassifier, ClassifierLLM)
	v.SetDefault(KeyLogFormat, "text")
	v.SetDefault(KeyMetricsEnabled, true)
	v.SetDefault(KeyMetricsAddr, DefaultMetricsAddr)

	instr := instrumentation.DefaultConfig()
	v.SetDefault(KeyInstrumentationEnabled, instr.Enabled)
	v.SetDefault(KeyServiceName, instr.ServiceName)
	v.SetDefault(KeyMetricsExporter, instr.MetricsExporter)
	v.SetDefault(KeyTracingExporter, instr.TracingExporter)
	v.SetDefault(KeyOTLPInsecure, instr.OTLPInsecure)
	v.SetDefault(KeyTraceSamplingRate, instr.TraceSamplingRate)
	v.SetDefault(KeyPrometheusEndpoint, instr.PrometheusEndpoint)
	v.SetDefault(KeyAuditEnabled, instr.AuditLogging.Enabled)
	v.SetDefault(KeyAuditIncludeMessage, instr.AuditLogging.IncludeMessage)

	for key, envs := range envBindings {
		_ = v.BindEnv(append([]string{key}, envs...)...)
	}
	return v
}

// BindFlags binds each flag in flags to the key of the same name in keys.
// Flags that do not exist are skipped.
func BindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) error {
	for flag, key := range keys {
		f := flags.Lookup(flag)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("failed to bind flag %s: %w", flag, err)
		}
	}
	return nil
}

// Load reads a Config from v.
func Load(v *viper.Viper) (*Config, error) {
	timeout, err := parseDuration(v.GetString(KeyLLMTimeout))
	if err != nil {
		return nil, fmt.Errorf("invalid %s: %w", KeyLLMTimeout, err)
	}

	cfg := &Config{
		CalendarID:      strings.TrimSpace(v.GetString(KeyCalendarID)),
		CredentialsFile: strings.TrimSpace(v.GetString(KeyCredentialsFile)),
		BackendURL:      strings.TrimRight(v.GetString(KeyBackendURL), "/"),
		LLM: LLMConfig{
			APIKey:      v.GetString(KeyLLMAPIKey),
			BaseURL:     v.GetString(KeyLLMBaseURL),
			Model:       v.GetString(KeyLLMModel),
			Temperature: float32(v.GetFloat64(KeyLLMTemperature)),
			Timeout:     timeout,
		},
		Timezone:           v.GetString(KeyTimezone),
		HTTPAddr:           v.GetString(KeyHTTPAddr),
		CORSAllowedOrigins: ParseList(v.GetString(KeyCORSAllowedOrigins)),
		IntentClassifier:   strings.ToLower(strings.TrimSpace(v.GetString(KeyIntentClassifier))),
		LogFormat:          v.GetString(KeyLogFormat),
		Debug:              v.GetBool(KeyDebug),
		MetricsEnabled:     v.GetBool(KeyMetricsEnabled),
		MetricsAddr:        v.GetString(KeyMetricsAddr),
		Instrumentation: instrumentation.Config{
			ServiceName:        v.GetString(KeyServiceName),
			ServiceVersion:     "unknown",
			ServiceInstanceID:  v.GetString(KeyServiceInstanceID),
			Enabled:            v.GetBool(KeyInstrumentationEnabled),
			MetricsExporter:    v.GetString(KeyMetricsExporter),
			TracingExporter:    v.GetString(KeyTracingExporter),
			OTLPEndpoint:       v.GetString(KeyOTLPEndpoint),
			OTLPInsecure:       v.GetBool(KeyOTLPInsecure),
			TraceSamplingRate:  v.GetFloat64(KeyTraceSamplingRate),
			PrometheusEndpoint: v.GetString(KeyPrometheusEndpoint),
			AuditLogging: instrumentation.AuditLoggingConfig{
				Enabled:        v.GetBool(KeyAuditEnabled),
				IncludeMessage: v.GetBool(KeyAuditIncludeMessage),
			},
		},
	}
	return cfg, nil
}

// Validate checks the settings required to serve requests.
func (c *Config) Validate() error {
	var errs []error
	if c.CalendarID == "" {
		errs = append(errs, ErrMissingCalendarID)
	}
	if c.CredentialsFile == "" {
		errs = append(errs, ErrMissingCredentials)
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, err)
	}
	switch c.IntentClassifier {
	case ClassifierKeyword, ClassifierLLM:
	default:
		errs = append(errs, fmt.Errorf("unknown intent classifier %q (supported: %s, %s)",
			c.IntentClassifier, ClassifierKeyword, ClassifierLLM))
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, fmt.Errorf("LLM temperature must be between 0 and 2, got %v", c.LLM.Temperature))
	}
	if c.Instrumentation.Enabled {
		if err := c.Instrumentation.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Location loads the configured default timezone.
func (c *Config) Location() (*time.Location, error) {
	name := c.Timezone
	if name == "" {
		name = booking.DefaultTimezone
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", name, err)
	}
	return loc, nil
}

// UseLLM reports whether an LLM API key is configured.
func (c *Config) UseLLM() bool {
	return c.LLM.APIKey != ""
}

// ParseList splits a comma-separated list, trimming whitespace and dropping
// empty entries. It returns nil when nothing is left.
func ParseList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "0" {
		return 0, nil
	}
	return time.ParseDuration(s)
}
