package podconfig

import "github.com/prose-pod/pod/common/environment"

// applyEnvOverrides walks the decoded TOML tree by hand, field by
// field, overriding each with its PROSE_*-prefixed, "__"-separated
// environment variable when set — the same "small, explicit, no
// reflection" approach the teacher uses for field-by-field validation
// rather than a struct-tag-driven library.
func applyEnvOverrides(cfg *Config) {
	cfg.Branding.CompanyName = environment.StringOr("PROSE_BRANDING__COMPANY_NAME", cfg.Branding.CompanyName)

	cfg.Log.Level = environment.StringOr("PROSE_LOG__LEVEL", cfg.Log.Level)
	cfg.Log.Format = environment.StringOr("PROSE_LOG__FORMAT", cfg.Log.Format)

	cfg.API.Address = environment.StringOr("PROSE_API__ADDRESS", cfg.API.Address)
	cfg.API.Port = environment.IntOr("PROSE_API__PORT", cfg.API.Port)
	cfg.API.Databases.Main.Path = environment.StringOr("PROSE_API__DATABASES__MAIN__PATH", cfg.API.Databases.Main.Path)
	cfg.API.Databases.Main.MaxConnections = environment.IntOr("PROSE_API__DATABASES__MAIN__MAX_CONNECTIONS", cfg.API.Databases.Main.MaxConnections)
	cfg.API.Databases.MainRead.Path = environment.StringOr("PROSE_API__DATABASES__MAIN_READ__PATH", cfg.API.Databases.MainRead.Path)
	cfg.API.Databases.MainRead.MaxConnections = environment.IntOr("PROSE_API__DATABASES__MAIN_READ__MAX_CONNECTIONS", cfg.API.Databases.MainRead.MaxConnections)
	cfg.API.Databases.MainWrite.Path = environment.StringOr("PROSE_API__DATABASES__MAIN_WRITE__PATH", cfg.API.Databases.MainWrite.Path)
	cfg.API.Databases.MainWrite.MaxConnections = environment.IntOr("PROSE_API__DATABASES__MAIN_WRITE__MAX_CONNECTIONS", cfg.API.Databases.MainWrite.MaxConnections)
	cfg.API.NetworkChecks.DefaultRetryInterval = environment.DurationOr("PROSE_API__NETWORK_CHECKS__DEFAULT_RETRY_INTERVAL", cfg.API.NetworkChecks.DefaultRetryInterval)
	cfg.API.MemberEnriching.CacheTTL = environment.DurationOr("PROSE_API__MEMBER_ENRICHING__CACHE_TTL", cfg.API.MemberEnriching.CacheTTL)
	cfg.API.Invitations.AcceptTokenTTL = environment.DurationOr("PROSE_API__INVITATIONS__ACCEPT_TOKEN_TTL", cfg.API.Invitations.AcceptTokenTTL)

	cfg.Pod.Address.Domain = environment.StringOr("PROSE_POD__ADDRESS__DOMAIN", cfg.Pod.Address.Domain)
	cfg.Pod.Address.IPv4 = environment.StringOr("PROSE_POD__ADDRESS__IPV4", cfg.Pod.Address.IPv4)
	cfg.Pod.Address.IPv6 = environment.StringOr("PROSE_POD__ADDRESS__IPV6", cfg.Pod.Address.IPv6)

	cfg.Server.Domain = environment.StringOr("PROSE_SERVER__DOMAIN", cfg.Server.Domain)
	cfg.Server.LocalHostname = environment.StringOr("PROSE_SERVER__LOCAL_HOSTNAME", cfg.Server.LocalHostname)
	cfg.Server.HTTPPort = environment.IntOr("PROSE_SERVER__HTTP_PORT", cfg.Server.HTTPPort)
	cfg.Server.LogLevel = environment.StringOr("PROSE_SERVER__LOG_LEVEL", cfg.Server.LogLevel)
	cfg.Server.Defaults.MessageArchiveEnabled = environment.BoolOr("PROSE_SERVER__DEFAULTS__MESSAGE_ARCHIVE_ENABLED", cfg.Server.Defaults.MessageArchiveEnabled)
	cfg.Server.Defaults.FileUploadAllowed = environment.BoolOr("PROSE_SERVER__DEFAULTS__FILE_UPLOAD_ALLOWED", cfg.Server.Defaults.FileUploadAllowed)
	cfg.Server.Defaults.FederationEnabled = environment.BoolOr("PROSE_SERVER__DEFAULTS__FEDERATION_ENABLED", cfg.Server.Defaults.FederationEnabled)
	cfg.Server.Defaults.FederationWhitelistEnabled = environment.BoolOr("PROSE_SERVER__DEFAULTS__FEDERATION_WHITELIST_ENABLED", cfg.Server.Defaults.FederationWhitelistEnabled)
	cfg.Server.Defaults.MFARequired = environment.BoolOr("PROSE_SERVER__DEFAULTS__MFA_REQUIRED", cfg.Server.Defaults.MFARequired)
	cfg.Server.Defaults.PushNotificationsEnabled = environment.BoolOr("PROSE_SERVER__DEFAULTS__PUSH_NOTIFICATIONS_ENABLED", cfg.Server.Defaults.PushNotificationsEnabled)
	cfg.Server.Defaults.TLSProfile = environment.StringOr("PROSE_SERVER__DEFAULTS__TLS_PROFILE", cfg.Server.Defaults.TLSProfile)

	cfg.Dashboard.URL = environment.StringOr("PROSE_DASHBOARD__URL", cfg.Dashboard.URL)

	cfg.Auth.TokenTTL = environment.DurationOr("PROSE_AUTH__TOKEN_TTL", cfg.Auth.TokenTTL)
	cfg.Auth.PasswordResetTokenTTL = environment.DurationOr("PROSE_AUTH__PASSWORD_RESET_TOKEN_TTL", cfg.Auth.PasswordResetTokenTTL)
	cfg.Auth.InvitationTTL = environment.DurationOr("PROSE_AUTH__INVITATION_TTL", cfg.Auth.InvitationTTL)

	cfg.Notifiers.Email.Host = environment.StringOr("PROSE_NOTIFIERS__EMAIL__HOST", cfg.Notifiers.Email.Host)
	cfg.Notifiers.Email.Port = environment.IntOr("PROSE_NOTIFIERS__EMAIL__PORT", cfg.Notifiers.Email.Port)
	cfg.Notifiers.Email.Username = environment.StringOr("PROSE_NOTIFIERS__EMAIL__USERNAME", cfg.Notifiers.Email.Username)
	cfg.Notifiers.Email.Password = environment.StringOr("PROSE_NOTIFIERS__EMAIL__PASSWORD", cfg.Notifiers.Email.Password)
	cfg.Notifiers.Email.From = environment.StringOr("PROSE_NOTIFIERS__EMAIL__FROM", cfg.Notifiers.Email.From)

	cfg.ProsodyExt.ConfigFilePath = environment.StringOr("PROSE_PROSODY_EXT__CONFIG_FILE_PATH", cfg.ProsodyExt.ConfigFilePath)

	cfg.DebugUseAtYourOwnRisk = environment.BoolOr("PROSE_DEBUG_USE_AT_YOUR_OWN_RISK", cfg.DebugUseAtYourOwnRisk)
}
