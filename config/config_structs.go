package config

type BaseConfig struct {
	Name        string      `koanf:"name" json:"name"`
	Debug       bool        `koanf:"debug" json:"debug"`
	Server      Server      `koanf:"server" json:"server"`
	Auth        Auth        `koanf:"auth" json:"auth"`
	Persistence Persistence `koanf:"persistence" json:"persistence"`
	Redis       Redis       `koanf:"redis" json:"redis"`
	SMTP        SMTP        `koanf:"smtp" json:"smtp"`
}

type Server struct {
	Address                    string `koanf:"address" json:"address"`
	ShutdownTimeoutExpression  string `koanf:"shutdown_timeout" json:"shutdown_timeout"`
	OperationTimeoutExpression string `koanf:"operation_timeout" json:"operation_timeout"`
	BodyLimit                  int    `koanf:"body_limit" json:"body_limit"`
}

type Auth struct {
	Issuer                    string            `koanf:"issuer" json:"issuer"`
	Audience                  []string          `koanf:"audience" json:"audience"`
	SigningMethod             string            `koanf:"signing_method" json:"signing_method"`
	SigningKey                string            `koanf:"signing_key" json:"signing_key"`
	KeyID                     string            `koanf:"key_id" json:"key_id"`
	PrivateKey                string            `koanf:"private_key" json:"private_key"`
	PublicKey                 string            `koanf:"public_key" json:"public_key"`
	VerificationKeys          map[string]string `koanf:"verification_keys" json:"verification_keys"`
	TokenExpiration           int               `koanf:"token_expiration" json:"token_expiration"`
	ResetTokenExpiration      int               `koanf:"reset_token_expiration" json:"reset_token_expiration"`
	RefreshTokenTTLExpression string            `koanf:"refresh_token_ttl" json:"refresh_token_ttl"`
	MaxFailedLogins           int               `koanf:"max_failed_logins" json:"max_failed_logins"`
	ThrottleWindowExpression  string            `koanf:"throttle_window" json:"throttle_window"`
	DefaultAdminEmail         string            `koanf:"default_admin_email" json:"default_admin_email"`
	BcryptCost                int               `koanf:"bcrypt_cost" json:"bcrypt_cost"`
}

type Persistence struct {
	Driver                string `koanf:"driver" json:"driver"`
	DSN                   string `koanf:"dsn" json:"dsn"`
	MigrateOnStart        bool   `koanf:"migrate_on_start" json:"migrate_on_start"`
	PingTimeoutExpression string `koanf:"ping_timeout" json:"ping_timeout"`
	MaxOpenConns          int    `koanf:"max_open_conns" json:"max_open_conns"`
}

type Redis struct {
	Enabled        bool   `koanf:"enabled" json:"enabled"`
	Address        string `koanf:"address" json:"address"`
	Password       string `koanf:"password" json:"password"`
	DB             int    `koanf:"db" json:"db"`
	KeyPrefix      string `koanf:"key_prefix" json:"key_prefix"`
	ActivityStream string `koanf:"activity_stream" json:"activity_stream"`
}

type SMTP struct {
	Host     string `koanf:"host" json:"host"`
	Port     int    `koanf:"port" json:"port"`
	Username string `koanf:"username" json:"username"`
	Password string `koanf:"password" json:"password"`
	From     string `koanf:"from" json:"from"`
}
