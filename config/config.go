package config

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/goliatone/go-errors"

	auth "github.com/goliatone/go-auth-service"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	defaultShutdownTimeout  = 10 * time.Second
	defaultOperationTimeout = auth.DefaultOperationTimeout
	defaultPingTimeout      = 5 * time.Second
	defaultRefreshTokenTTL  = auth.DefaultRefreshTokenTTL
	defaultThrottleWindow   = auth.DefaultThrottleWindow

	masked = "********"
)

var _ auth.Config = Auth{}

// Validate runs the rules of every section
func (b BaseConfig) Validate() error {
	if err := errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&b,
			validation.Field(&b.Server),
			validation.Field(&b.Auth),
			validation.Field(&b.Persistence),
			validation.Field(&b.Redis),
			validation.Field(&b.SMTP),
		)
	}, "invalid configuration"); err != nil {
		return err
	}
	return nil
}

// Masked returns a copy safe to print, secrets are replaced
func (b BaseConfig) Masked() BaseConfig {
	b.Auth.SigningKey = mask(b.Auth.SigningKey)
	b.Auth.PrivateKey = mask(b.Auth.PrivateKey)
	b.Redis.Password = mask(b.Redis.Password)
	b.SMTP.Password = mask(b.SMTP.Password)
	b.Persistence.DSN = maskDSN(b.Persistence.DSN)
	return b
}

func (s Server) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Address, validation.Required),
		validation.Field(&s.ShutdownTimeoutExpression, validation.By(isDuration)),
		validation.Field(&s.OperationTimeoutExpression, validation.By(isDuration)),
		validation.Field(&s.BodyLimit, validation.Min(0)),
	)
}

func (s Server) GetShutdownTimeout() time.Duration {
	return parseDuration(s.ShutdownTimeoutExpression, defaultShutdownTimeout)
}

func (s Server) GetOperationTimeout() time.Duration {
	return parseDuration(s.OperationTimeoutExpression, defaultOperationTimeout)
}

func (a Auth) Validate() error {
	method := strings.ToUpper(strings.TrimSpace(a.SigningMethod))
	return validation.ValidateStruct(&a,
		validation.Field(&a.Issuer, validation.Required),
		validation.Field(&a.SigningMethod, validation.Required, validation.By(func(any) error {
			if method != "HS256" && method != "RS256" {
				return validation.NewError("validation_signing_method", "must be HS256 or RS256")
			}
			return nil
		})),
		validation.Field(&a.SigningKey, validation.When(method == "HS256", validation.Required, validation.Length(32, 0))),
		validation.Field(&a.PrivateKey, validation.When(method == "RS256", validation.Required)),
		validation.Field(&a.TokenExpiration, validation.Min(0)),
		validation.Field(&a.ResetTokenExpiration, validation.Min(0)),
		validation.Field(&a.RefreshTokenTTLExpression, validation.By(isDuration)),
		validation.Field(&a.MaxFailedLogins, validation.Min(0)),
		validation.Field(&a.ThrottleWindowExpression, validation.By(isDuration)),
		validation.Field(&a.DefaultAdminEmail, is.EmailFormat),
		validation.Field(&a.BcryptCost, validation.When(a.BcryptCost != 0, validation.Min(4), validation.Max(31))),
	)
}

func (a Auth) GetRefreshTokenTTL() time.Duration {
	return parseDuration(a.RefreshTokenTTLExpression, defaultRefreshTokenTTL)
}

func (a Auth) GetThrottleWindow() time.Duration {
	return parseDuration(a.ThrottleWindowExpression, defaultThrottleWindow)
}

func (p Persistence) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Driver, validation.Required, validation.In(DriverSQLite, DriverPostgres)),
		validation.Field(&p.DSN, validation.Required),
		validation.Field(&p.PingTimeoutExpression, validation.By(isDuration)),
		validation.Field(&p.MaxOpenConns, validation.Min(0)),
	)
}

func (p Persistence) GetPingTimeout() time.Duration {
	return parseDuration(p.PingTimeoutExpression, defaultPingTimeout)
}

func (r Redis) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Address, validation.When(r.Enabled, validation.Required)),
		validation.Field(&r.DB, validation.Min(0)),
	)
}

func (s SMTP) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Port, validation.Min(0), validation.Max(65535)),
		validation.Field(&s.From, validation.When(s.Host != "", validation.Required, is.EmailFormat)),
	)
}

// IsConfigured reports whether mail should go through SMTP
func (s SMTP) IsConfigured() bool {
	return strings.TrimSpace(s.Host) != ""
}

// MailerConfig converts the section for auth.NewSMTPMailer
func (s SMTP) MailerConfig() auth.SMTPConfig {
	return auth.SMTPConfig{
		Host:     s.Host,
		Port:     s.Port,
		Username: s.Username,
		Password: s.Password,
		From:     s.From,
	}
}

func isDuration(value any) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if d, err := time.ParseDuration(s); err != nil || d < 0 {
		return validation.NewError("validation_duration", "must be a positive duration such as 5m or 720h")
	}
	return nil
}

// parseDuration falls back to def on empty or invalid expressions, Validate
// reports the invalid ones.
func parseDuration(expr string, def time.Duration) time.Duration {
	if strings.TrimSpace(expr) == "" {
		return def
	}
	d, err := time.ParseDuration(expr)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return masked
}

// maskDSN hides the password of URL style DSNs
func maskDSN(dsn string) string {
	scheme := strings.Index(dsn, "://")
	at := strings.LastIndex(dsn, "@")
	if scheme < 0 || at < scheme {
		return dsn
	}
	creds := dsn[scheme+3 : at]
	colon := strings.Index(creds, ":")
	if colon < 0 {
		return dsn
	}
	return dsn[:scheme+3] + creds[:colon+1] + masked + dsn[at:]
}
