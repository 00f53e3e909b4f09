package servermanager

import (
	"fmt"

	"github.com/prose-pod/pod/internal/pod/prosody"
)

// composedLua holds the result of composing and rendering a ServerConfig
// + AppConfig pair: the structured config (for inspection/testing) and
// the final Lua text (including any raw overlay appended verbatim).
type composedLua struct {
	Config prosody.Config
	Lua    string
}

// compose builds the full Prosody configuration from (sc, app), applying
// the feature-activation rules and the overlay composition rule, in
// that order:
//
//  1. build the base global Settings and the VirtualHost/MUC/upload
//     sections from sc and app;
//  2. if sc.ProsodyOverridesRaw is set, the typed overrides are NOT
//     applied to the AST at all — the raw text wins and is appended
//     verbatim to the rendered output instead;
//  3. else if sc.ProsodyOverrides is set, each of its present fields
//     replaces the corresponding field of the global settings;
//  4. app.AdditionalModulesEnabled is unioned into the global
//     modules_enabled last, so it can override module defaults.
func compose(sc ServerConfig, app AppConfig) composedLua {
	global := baseGlobalSettings(sc, app)

	if sc.ProsodyOverridesRaw == nil && sc.ProsodyOverrides != nil {
		applyOverrides(&global, *sc.ProsodyOverrides)
	}

	additional := prosody.NewOrderedSet()
	for _, m := range app.AdditionalModulesEnabled {
		additional.Add(m)
	}
	if global.ModulesEnabled == nil {
		global.ModulesEnabled = prosody.NewOrderedSet()
	}
	global.ModulesEnabled.AddAll(additional)

	cfg := prosody.Config{GlobalSettings: global}
	cfg.AdditionalSections = sections(sc, app)

	header := prosody.Comment(fmt.Sprintf(
		"Generated by the Prose Pod control plane for %s — do not edit by hand; changes will be overwritten.",
		sc.Domain))
	file := prosody.Compile(cfg, header)
	lua := prosody.Render(file)

	if sc.ProsodyOverridesRaw != nil {
		lua = lua + "\n" + *sc.ProsodyOverridesRaw + "\n"
	}

	return composedLua{Config: cfg, Lua: lua}
}

func baseGlobalSettings(sc ServerConfig, app AppConfig) prosody.Settings {
	modules := prosody.NewOrderedSet().
		Add("roster").
		Add("saslauth").
		Add("tls").
		Add("disco").
		Add("ping").
		Add("posix")

	s := prosody.Settings{
		Pidfile:           app.PidFile,
		GroupsFile:        app.GroupsFile,
		HTTPPorts:         []int{app.HTTPPort},
		C2SPorts:          []int{5222},
		S2SPorts:          []int{5269},
		ModulesEnabled:    modules,
		ModulesDisabled:   prosody.NewOrderedSet(),
		SSL:               sslForProfile(sc.TLSProfile),
	}

	c2sReq, s2sReq := true, sc.FederationEnabled
	s.C2SRequireEncryption = &c2sReq
	s.S2SRequireEncryption = &s2sReq

	if sc.FederationEnabled && sc.FederationWhitelistEnabled {
		s.S2SWhitelist = append([]string(nil), sc.FederationFriendlyServers...)
	}

	if sc.MessageArchiveEnabled {
		s.ModulesEnabled.Add("mam")
		expiry := sc.MessageArchiveRetention.toPossiblyInfinite()
		s.ArchiveExpiresAfter = &expiry
		always := true
		s.DefaultArchivePolicy = &always
		maxResults := 100
		s.MaxArchiveQueryResults = &maxResults
	}

	return s
}

func sslForProfile(p TLSProfile) *prosody.SSLConfig {
	// Profile selection itself (cipher suites, protocol floor) is left to
	// Prosody's own mod_tls defaults per profile name; the pod only needs
	// to record which automatic certificate path backs it.
	ssl := prosody.AutomaticSSL("/etc/prosody/certs")
	return &ssl
}

func sections(sc ServerConfig, app AppConfig) []prosody.ConfigSection {
	var out []prosody.ConfigSection

	mucSettings := prosody.Settings{
		ModulesEnabled: prosody.NewOrderedSet(),
	}
	if sc.MessageArchiveEnabled {
		mucSettings.ModulesEnabled.Add("muc_mam")
	}
	out = append(out, prosody.ConfigSection{
		Hostname: "groups." + sc.Domain,
		Name:     "Chatrooms",
		Plugin:   "muc",
		IsComponent: true,
		Settings: mucSettings,
	})

	if sc.FileUploadAllowed {
		sizeLimit := app.UploadSizeLimit
		dailyQuota := app.UploadDailyQuota
		expires := app.UploadRetentionSeconds
		out = append(out, prosody.ConfigSection{
			Hostname:    "upload." + sc.Domain,
			Name:        "File upload",
			Plugin:      "http_file_share",
			IsComponent: true,
			Settings: prosody.Settings{
				HTTPFileShareSizeLimit:    &sizeLimit,
				HTTPFileShareDailyQuota:   &dailyQuota,
				HTTPFileShareExpiresAfter: &expires,
			},
		})
	}

	return out
}

// applyOverrides replaces each non-nil/non-zero field of overrides onto
// base, field by field — "typed override replaces the corresponding
// field" per the composition rule. Zero-value fields in overrides are
// left untouched so a sparse override cannot accidentally blank out
// unrelated settings.
func applyOverrides(base *prosody.Settings, overrides prosody.Settings) {
	if overrides.Pidfile != "" {
		base.Pidfile = overrides.Pidfile
	}
	if overrides.Authentication != nil {
		base.Authentication = overrides.Authentication
	}
	if overrides.Storage != nil {
		base.Storage = overrides.Storage
	}
	if overrides.LogRaw != "" {
		base.LogRaw = overrides.LogRaw
	}
	if len(overrides.Interfaces) > 0 {
		base.Interfaces = overrides.Interfaces
	}
	if len(overrides.C2SPorts) > 0 {
		base.C2SPorts = overrides.C2SPorts
	}
	if len(overrides.S2SPorts) > 0 {
		base.S2SPorts = overrides.S2SPorts
	}
	if overrides.SSL != nil {
		base.SSL = overrides.SSL
	}
	if overrides.AllowRegistration != nil {
		base.AllowRegistration = overrides.AllowRegistration
	}
	if overrides.C2SRequireEncryption != nil {
		base.C2SRequireEncryption = overrides.C2SRequireEncryption
	}
	if overrides.S2SRequireEncryption != nil {
		base.S2SRequireEncryption = overrides.S2SRequireEncryption
	}
	if overrides.ModulesEnabled != nil {
		base.ModulesEnabled.AddAll(overrides.ModulesEnabled)
	}
	if overrides.ModulesDisabled != nil {
		base.ModulesDisabled.AddAll(overrides.ModulesDisabled)
	}
	if len(overrides.Extra) > 0 {
		base.Extra = append(base.Extra, overrides.Extra...)
	}
}
