// Package podconfig loads prose.toml, layers PROSE_*-prefixed
// environment overrides over it, and resolves the pod's dynamic
// defaults (pod address, dashboard URL, read/write database pools)
// from the statically-configured server domain.
package podconfig

import "time"

// Config is the root of prose.toml.
type Config struct {
	Branding        BrandingConfig            `toml:"branding"`
	Log             LogConfig                 `toml:"log"`
	API             APIConfig                 `toml:"api"`
	Pod             PodConfig                 `toml:"pod"`
	Server          ServerConfig              `toml:"server"`
	Dashboard       DashboardConfig           `toml:"dashboard"`
	Auth            AuthConfig                `toml:"auth"`
	Notifiers       NotifiersConfig           `toml:"notifiers"`
	ServiceAccounts map[string]ServiceAccount `toml:"service_accounts"`
	ProsodyExt      ProsodyExtConfig          `toml:"prosody_ext"`

	// DebugUseAtYourOwnRisk gates developer-only shortcuts (e.g. relaxed
	// TLS verification in local testing); never enable in production.
	DebugUseAtYourOwnRisk bool `toml:"debug_use_at_your_own_risk"`
}

type BrandingConfig struct {
	CompanyName string `toml:"company_name"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

type APIConfig struct {
	Address          string              `toml:"address"`
	Port             int                 `toml:"port"`
	Databases        DatabasesConfig     `toml:"databases"`
	NetworkChecks    NetworkChecksConfig `toml:"network_checks"`
	MemberEnriching  MemberEnrichingConfig `toml:"member_enriching"`
	Invitations      InvitationsConfig   `toml:"invitations"`
}

// DatabaseConfig is one SQLite pool's tunables.
type DatabaseConfig struct {
	Path           string `toml:"path"`
	MaxConnections int    `toml:"max_connections"`
}

// DatabasesConfig holds the base "main" pool plus the read/write pools
// that inherit from it (see ApplyDynamicDefaults).
type DatabasesConfig struct {
	Main      DatabaseConfig `toml:"main"`
	MainRead  DatabaseConfig `toml:"main_read"`
	MainWrite DatabaseConfig `toml:"main_write"`
}

type NetworkChecksConfig struct {
	DefaultRetryInterval time.Duration `toml:"default_retry_interval"`
}

type MemberEnrichingConfig struct {
	CacheTTL time.Duration `toml:"cache_ttl"`
}

type InvitationsConfig struct {
	AcceptTokenTTL time.Duration `toml:"accept_token_ttl"`
}

type PodConfig struct {
	Address PodAddressConfig `toml:"address"`
}

// PodAddressConfig requires at least one of Domain/IPv4/IPv6 to be set
// once defaults are applied; Load/Validate enforces that.
type PodAddressConfig struct {
	Domain string `toml:"domain"`
	IPv4   string `toml:"ipv4"`
	IPv6   string `toml:"ipv6"`
}

type ServerConfig struct {
	Domain        string               `toml:"domain"`
	LocalHostname string               `toml:"local_hostname"`
	HTTPPort      int                  `toml:"http_port"`
	LogLevel      string               `toml:"log_level"`
	Defaults      ServerDefaultsConfig `toml:"defaults"`
}

// ServerDefaultsConfig seeds the bootstrap ServerConfig row the server
// manager writes on first init (see servermanager.Manager.Init).
type ServerDefaultsConfig struct {
	MessageArchiveEnabled      bool   `toml:"message_archive_enabled"`
	FileUploadAllowed          bool   `toml:"file_upload_allowed"`
	FederationEnabled          bool   `toml:"federation_enabled"`
	FederationWhitelistEnabled bool   `toml:"federation_whitelist_enabled"`
	MFARequired                bool   `toml:"mfa_required"`
	PushNotificationsEnabled   bool   `toml:"push_notifications_enabled"`
	TLSProfile                 string `toml:"tls_profile"`
}

type DashboardConfig struct {
	URL string `toml:"url"`
}

type AuthConfig struct {
	TokenTTL              time.Duration `toml:"token_ttl"`
	PasswordResetTokenTTL time.Duration `toml:"password_reset_token_ttl"`
	InvitationTTL         time.Duration `toml:"invitation_ttl"`
}

type NotifiersConfig struct {
	Email EmailNotifierConfig `toml:"email"`
}

type EmailNotifierConfig struct {
	Host     string `toml:"host"`
	Port     int    `toml:"port"`
	Username string `toml:"username"`
	Password string `toml:"password"`
	From     string `toml:"from"`
}

// ServiceAccount describes one bootstrap XMPP service account the pod
// logs into on startup (see servermanager.Manager.CreateServiceAccount).
type ServiceAccount struct {
	JID string `toml:"jid"`
}

type ProsodyExtConfig struct {
	ConfigFilePath string `toml:"config_file_path"`
}
