package prosody

// Compile builds the printable AST for f, with header comments prefixed
// to the file. Definitions are grouped by topic (network, modules, TLS,
// MAM, HTTP, MUC, limits, contact info); empty groups — every field in
// the topic left unset — are dropped rather than printed as "{}"
// noise. This is the "compile(config, header_comment) -> ConfigFile"
// operation.
func Compile(cfg Config, header ...Comment) File {
	file := File{Header: header}
	file.GlobalSettings = settingsGroups(cfg.GlobalSettings)
	for _, sec := range cfg.AdditionalSections {
		groups := settingsGroups(sec.Settings)
		if sec.IsComponent {
			file.AdditionalSections = append(file.AdditionalSections,
				NewComponent(sec.Hostname, sec.Plugin, sec.Name, groups...).WithComments(sec.Comments...))
		} else {
			file.AdditionalSections = append(file.AdditionalSections,
				NewVirtualHost(sec.Hostname, groups...).WithComments(sec.Comments...))
		}
	}
	return file
}

func settingsGroups(s Settings) []Group {
	var groups []Group

	var core []Definition
	if s.Pidfile != "" {
		core = append(core, Def("pidfile", String(s.Pidfile)))
	}
	if s.Authentication != nil {
		core = append(core, Def("authentication", String(s.Authentication.String())))
	}
	if s.Storage != nil {
		core = append(core, Def("storage", s.Storage.toLuaValue()))
	}
	if s.LogRaw != "" {
		core = append(core, Def("log", String(s.LogRaw)))
	}
	if s.GroupsFile != "" {
		core = append(core, Def("groups_file", String(s.GroupsFile)))
	}
	if s.Admins != nil && s.Admins.order != nil {
		core = append(core, Def("admins", s.Admins.toLuaValue()))
	}
	if len(core) > 0 {
		groups = append(groups, NewGroup("Core settings", core...))
	}

	var network []Definition
	if len(s.Interfaces) > 0 {
		network = append(network, Def("interfaces", interfaceList(s.Interfaces)))
	}
	if len(s.C2SPorts) > 0 {
		network = append(network, Def("c2s_ports", intList(s.C2SPorts)))
	}
	if len(s.S2SPorts) > 0 {
		network = append(network, Def("s2s_ports", intList(s.S2SPorts)))
	}
	if len(s.HTTPPorts) > 0 {
		network = append(network, Def("http_ports", intList(s.HTTPPorts)))
	}
	if len(s.HTTPInterfaces) > 0 {
		network = append(network, Def("http_interfaces", interfaceList(s.HTTPInterfaces)))
	}
	if len(s.HTTPSPorts) > 0 {
		network = append(network, Def("https_ports", intList(s.HTTPSPorts)))
	}
	if len(s.HTTPSInterfaces) > 0 {
		network = append(network, Def("https_interfaces", interfaceList(s.HTTPSInterfaces)))
	}
	if s.ConsiderWebsocketSecure != nil {
		network = append(network, Def("consider_websocket_secure", Bool(*s.ConsiderWebsocketSecure)))
	}
	if s.CrossDomainWebsocket != nil {
		network = append(network, Def("cross_domain_websocket", Bool(*s.CrossDomainWebsocket)))
	}
	if len(network) > 0 {
		groups = append(groups, NewGroup("Network interfaces and ports", network...))
	}

	var modules []Definition
	if s.ModulesEnabled != nil && s.ModulesEnabled.order != nil {
		modules = append(modules, Def("modules_enabled", s.ModulesEnabled.toLuaValue()))
	}
	if s.ModulesDisabled != nil && s.ModulesDisabled.order != nil {
		modules = append(modules, Def("modules_disabled", s.ModulesDisabled.toLuaValue()))
	}
	if len(modules) > 0 {
		groups = append(groups, NewGroup("Modules", modules...))
	}

	var tls []Definition
	if s.SSL != nil {
		tls = append(tls, Def("ssl", s.SSL.toLuaValue()))
	}
	if s.C2SRequireEncryption != nil {
		tls = append(tls, Def("c2s_require_encryption", Bool(*s.C2SRequireEncryption)))
	}
	if s.S2SRequireEncryption != nil {
		tls = append(tls, Def("s2s_require_encryption", Bool(*s.S2SRequireEncryption)))
	}
	if s.S2SSecureAuth != nil {
		tls = append(tls, Def("s2s_secure_auth", Bool(*s.S2SSecureAuth)))
	}
	if len(s.S2SWhitelist) > 0 {
		tls = append(tls, Def("s2s_whitelist", StringList(s.S2SWhitelist...)))
	}
	if len(tls) > 0 {
		groups = append(groups, NewGroup("TLS and federation", tls...))
	}

	var limits []Definition
	if s.C2SStanzaSizeLimit != nil {
		limits = append(limits, Def("c2s_stanza_size_limit", s.C2SStanzaSizeLimit.toLuaValue()))
	}
	if s.S2SStanzaSizeLimit != nil {
		limits = append(limits, Def("s2s_stanza_size_limit", s.S2SStanzaSizeLimit.toLuaValue()))
	}
	if len(s.LimitsOrder) > 0 {
		m := NewOrderedMap()
		for _, ct := range s.LimitsOrder {
			m.Set(ct.key(), s.Limits[ct].toLuaValue())
		}
		limits = append(limits, Def("limits", Map(m)))
	}
	if len(limits) > 0 {
		groups = append(groups, NewGroup("Stanza and connection limits", limits...))
	}

	var mam []Definition
	if s.ArchiveExpiresAfter != nil {
		mam = append(mam, Def("archive_expires_after", s.ArchiveExpiresAfter.toLuaValue()))
	}
	if s.DefaultArchivePolicy != nil {
		mam = append(mam, Def("default_archive_policy", Bool(*s.DefaultArchivePolicy)))
	}
	if s.MaxArchiveQueryResults != nil {
		mam = append(mam, Def("max_archive_query_results", Number(Scalar(int64(*s.MaxArchiveQueryResults)))))
	}
	if len(mam) > 0 {
		groups = append(groups, NewGroup("Message archive management (MAM)", mam...))
	}

	var http []Definition
	if s.HTTPFileShareSizeLimit != nil {
		http = append(http, Def("http_file_share_size_limit", s.HTTPFileShareSizeLimit.toLuaValue()))
	}
	if s.HTTPFileShareDailyQuota != nil {
		http = append(http, Def("http_file_share_daily_quota", s.HTTPFileShareDailyQuota.toLuaValue()))
	}
	if s.HTTPFileShareExpiresAfter != nil {
		// Emitted as a raw integer, not a Duration string: the http_file_share
		// module reads this value as seconds, unlike every other *_expires_after.
		http = append(http, Def("http_file_share_expires_after", Number(Scalar(int64(*s.HTTPFileShareExpiresAfter)))))
	}
	if len(http) > 0 {
		groups = append(groups, NewGroup("HTTP file sharing", http...))
	}

	var misc []Definition
	if s.AllowRegistration != nil {
		misc = append(misc, Def("allow_registration", Bool(*s.AllowRegistration)))
	}
	if s.UpgradeLegacyVCards != nil {
		misc = append(misc, Def("upgrade_legacy_vcards", Bool(*s.UpgradeLegacyVCards)))
	}
	if s.ContactInfo != nil {
		misc = append(misc, Def("contact_info", s.ContactInfo.toLuaValue()))
	}
	if len(misc) > 0 {
		groups = append(groups, NewGroup("Miscellaneous", misc...))
	}

	if len(s.Extra) > 0 {
		groups = append(groups, NewGroup("Additional settings", s.Extra...))
	}

	return groups
}

func interfaceList(is []Interface) LuaValue {
	vs := make([]LuaValue, len(is))
	for i, v := range is {
		vs[i] = v.toLuaValue()
	}
	return List(vs...)
}

func intList(is []int) LuaValue {
	vs := make([]LuaValue, len(is))
	for i, v := range is {
		vs[i] = Number(Scalar(int64(v)))
	}
	return List(vs...)
}
