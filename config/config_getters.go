package config

func (b BaseConfig) GetName() string {
	return b.Name
}

func (b BaseConfig) GetDebug() bool {
	return b.Debug
}

func (b BaseConfig) GetServer() Server {
	return b.Server
}

func (b BaseConfig) GetAuth() Auth {
	return b.Auth
}

func (b BaseConfig) GetPersistence() Persistence {
	return b.Persistence
}

func (b BaseConfig) GetRedis() Redis {
	return b.Redis
}

func (b BaseConfig) GetSMTP() SMTP {
	return b.SMTP
}

func (s Server) GetAddress() string {
	return s.Address
}

func (s Server) GetBodyLimit() int {
	return s.BodyLimit
}

func (a Auth) GetIssuer() string {
	return a.Issuer
}

func (a Auth) GetAudience() []string {
	return a.Audience
}

func (a Auth) GetSigningMethod() string {
	return a.SigningMethod
}

func (a Auth) GetSigningKey() string {
	return a.SigningKey
}

func (a Auth) GetKeyID() string {
	return a.KeyID
}

func (a Auth) GetPrivateKey() string {
	return a.PrivateKey
}

func (a Auth) GetPublicKey() string {
	return a.PublicKey
}

func (a Auth) GetVerificationKeys() map[string]string {
	return a.VerificationKeys
}

func (a Auth) GetTokenExpiration() int {
	return a.TokenExpiration
}

func (a Auth) GetResetTokenExpiration() int {
	return a.ResetTokenExpiration
}

func (a Auth) GetMaxFailedLogins() int {
	return a.MaxFailedLogins
}

func (a Auth) GetDefaultAdminEmail() string {
	return a.DefaultAdminEmail
}

func (a Auth) GetBcryptCost() int {
	return a.BcryptCost
}

func (p Persistence) GetDriver() string {
	return p.Driver
}

func (p Persistence) GetDSN() string {
	return p.DSN
}

func (p Persistence) GetMigrateOnStart() bool {
	return p.MigrateOnStart
}

func (p Persistence) GetMaxOpenConns() int {
	return p.MaxOpenConns
}

func (r Redis) GetEnabled() bool {
	return r.Enabled
}

func (r Redis) GetAddress() string {
	return r.Address
}

func (r Redis) GetPassword() string {
	return r.Password
}

func (r Redis) GetDB() int {
	return r.DB
}

func (r Redis) GetKeyPrefix() string {
	return r.KeyPrefix
}

func (r Redis) GetActivityStream() string {
	return r.ActivityStream
}

func (s SMTP) GetHost() string {
	return s.Host
}

func (s SMTP) GetPort() int {
	return s.Port
}

func (s SMTP) GetUsername() string {
	return s.Username
}

func (s SMTP) GetPassword() string {
	return s.Password
}

func (s SMTP) GetFrom() string {
	return s.From
}
