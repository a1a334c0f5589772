package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"ccreport/internal/addrutil"
	"ccreport/internal/model"
)

const (
	DefaultProbeTimeout      = 10 * time.Second
	DefaultDaysLookback      = 7
	DefaultThresholdFraction = 0.8
	DefaultOutputPrefix      = "po_flow_detector_thresholds"
	DefaultOutputDir         = "."
	DefaultInactiveMarker    = "Login to Inactive node is not Permitted"
	DefaultSMTPPort          = 25
	DefaultTLSMode           = TLSNone
	DefaultSubject           = "Cyber Controller - Protected Objects Flow Detector Report"
)

// SMTP transport security modes.
const (
	TLSNone     = "none"
	TLSStartTLS = "starttls"
	TLSImplicit = "ssl"
)

// DefaultBodyTemplate is the plain-text mail body, rendered with text/template.
const DefaultBodyTemplate = `Hello,

Please find attached the Protected Objects Flow Detector Thresholds Report generated on {{.DateTime}}.

Report Summary:
- Total Protected Objects: {{.TotalObjects}}
- Rows Highlighted: {{.Violations}}
- Report Period: Last {{.LookbackDays}} days
- Threshold Violations Highlighted: {{.ThresholdPercent}}% of maximum values

The report includes:
- Current activation thresholds for TCP, UDP, ICMP, and Total traffic
- Maximum observed values for the last {{.LookbackDays}} days
- Highlighted rows indicate thresholds below {{.ThresholdPercent}}% of observed maximums

Best regards,
Cyber Controller Report System
`

var validate = validator.New()

// Config is the full run configuration. It is loaded once and handed to each
// component explicitly.
type Config struct {
	Controller Controller `yaml:"controller"`
	Report     Report     `yaml:"report"`
	Collector  Collector  `yaml:"collector"`
	Email      Email      `yaml:"email"`
}

// Controller describes the HA controller pair and its credentials.
type Controller struct {
	PrimaryURL         string        `yaml:"primary_url" validate:"required,url"`
	SecondaryURL       string        `yaml:"secondary_url" validate:"omitempty,url"`
	Username           string        `yaml:"username" validate:"required"`
	Password           string        `yaml:"password"`
	ProbeTimeout       time.Duration `yaml:"probe_timeout" validate:"gt=0"`
	RequestTimeout     time.Duration `yaml:"request_timeout" validate:"gte=0"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`
	InactiveMarker     string        `yaml:"inactive_marker"`
}

// Report controls the lookback window, highlight rule and output file.
type Report struct {
	DaysLookback      int     `yaml:"days_lookback" validate:"gte=1"`
	ThresholdFraction float64 `yaml:"threshold_fraction" validate:"gt=0"`
	OutputPrefix      string  `yaml:"output_prefix" validate:"required"`
	OutputDir         string  `yaml:"output_dir"`
}

// Collector tunes how the controller is queried.
type Collector struct {
	// RequestsPerSecond paces history queries; 0 disables pacing.
	RequestsPerSecond float64 `yaml:"requests_per_second" validate:"gte=0"`
}

// Email configures SMTP delivery of the finished report.
type Email struct {
	Enabled      bool     `yaml:"enabled"`
	SMTPHost     string   `yaml:"smtp_host"`
	SMTPPort     int      `yaml:"smtp_port" validate:"gt=0,lte=65535"`
	TLSMode      string   `yaml:"tls_mode" validate:"oneof=none starttls ssl"`
	Username     string   `yaml:"username"`
	Password     string   `yaml:"password"`
	From         string   `yaml:"from" validate:"omitempty,email"`
	To           []string `yaml:"to" validate:"dive,email"`
	Cc           []string `yaml:"cc" validate:"dive,email"`
	Subject      string   `yaml:"subject"`
	BodyTemplate string   `yaml:"body_template"`
}

// Recipients returns To followed by Cc.
func (e Email) Recipients() []string {
	out := make([]string, 0, len(e.To)+len(e.Cc))
	out = append(out, e.To...)
	return append(out, e.Cc...)
}

// Default returns a config with every default applied and placeholder
// controller addresses, suitable for `config init`.
func Default() Config {
	cfg := Config{
		Controller: Controller{
			PrimaryURL:   "https://cc-primary.example.net",
			SecondaryURL: "https://cc-secondary.example.net",
			Username:     "admin",
		},
		Email: Email{
			SMTPHost: "smtp.example.net",
			From:     "reports@example.net",
			To:       []string{"noc@example.net"},
		},
	}
	ApplyDefaults(&cfg)
	return cfg
}

// Load reads and parses a YAML config file.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	return cfg, nil
}

// Save writes a YAML config file to disk. The file holds credentials, so it
// is written 0600.
func Save(path string, cfg Config) error {
	ApplyDefaults(&cfg)
	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks required fields and value ranges.
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config: %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if cfg.Email.Enabled {
		switch {
		case cfg.Email.SMTPHost == "":
			return fmt.Errorf("invalid config: email.smtp_host is required when email is enabled")
		case cfg.Email.From == "":
			return fmt.Errorf("invalid config: email.from is required when email is enabled")
		case len(cfg.Email.To) == 0:
			return fmt.Errorf("invalid config: email.to must list at least one recipient")
		}
	}
	if cfg.Controller.SecondaryURL != "" && cfg.Controller.SecondaryURL == cfg.Controller.PrimaryURL {
		return fmt.Errorf("invalid config: controller.secondary_url duplicates primary_url")
	}
	return nil
}

// ApplyDefaults fills in default values when empty and normalises controller
// addresses to base URLs. Addresses that fail to normalise are left as-is for
// Validate to reject.
func ApplyDefaults(cfg *Config) {
	if u, err := addrutil.BaseURL(cfg.Controller.PrimaryURL); err == nil {
		cfg.Controller.PrimaryURL = u
	}
	if u, err := addrutil.BaseURL(cfg.Controller.SecondaryURL); err == nil {
		cfg.Controller.SecondaryURL = u
	}
	if cfg.Controller.ProbeTimeout == 0 {
		cfg.Controller.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.Controller.InactiveMarker == "" {
		cfg.Controller.InactiveMarker = DefaultInactiveMarker
	}

	if cfg.Report.DaysLookback == 0 {
		cfg.Report.DaysLookback = DefaultDaysLookback
	}
	if cfg.Report.ThresholdFraction == 0 {
		cfg.Report.ThresholdFraction = DefaultThresholdFraction
	}
	if cfg.Report.OutputPrefix == "" {
		cfg.Report.OutputPrefix = DefaultOutputPrefix
	}
	if cfg.Report.OutputDir == "" {
		cfg.Report.OutputDir = DefaultOutputDir
	}

	if cfg.Email.SMTPPort == 0 {
		cfg.Email.SMTPPort = DefaultSMTPPort
	}
	if cfg.Email.TLSMode == "" {
		cfg.Email.TLSMode = DefaultTLSMode
	}
	if cfg.Email.Subject == "" {
		cfg.Email.Subject = DefaultSubject
	}
	if cfg.Email.BodyTemplate == "" {
		cfg.Email.BodyTemplate = DefaultBodyTemplate
	}
}

// Endpoints returns the controller candidates in probe order.
func (c Controller) Endpoints() []model.Endpoint {
	out := []model.Endpoint{{Name: "primary", BaseURL: c.PrimaryURL}}
	if c.SecondaryURL != "" {
		out = append(out, model.Endpoint{Name: "secondary", BaseURL: c.SecondaryURL})
	}
	return out
}
