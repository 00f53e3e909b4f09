package prosody

// AuthenticationProvider selects Prosody's authentication backend.
// See https://prosody.im/doc/authentication#providers.
type AuthenticationProvider int

const (
	AuthInternalPlain AuthenticationProvider = iota
	AuthInternalHashed
	AuthCyrus
	AuthLDAP
	AuthAnonymous
)

func (a AuthenticationProvider) String() string {
	return [...]string{"internal_plain", "internal_hashed", "cyrus", "ldap", "anonymous"}[a]
}

// StorageBackend names a Prosody storage backend.
// See https://prosody.im/doc/storage#backends.
type StorageBackend int

const (
	StorageInternal StorageBackend = iota
	StorageSQL
	StorageMemory
	StorageNull
	StorageNone
)

func (s StorageBackend) String() string {
	return [...]string{"internal", "sql", "memory", "null", "none"}[s]
}

// StorageConfig is either a single backend for every store, or a named
// per-store override map.
type StorageConfig struct {
	raw       *StorageBackend
	perStore  *orderedMapBackend
}

type orderedMapBackend struct {
	keys   []string
	values map[string]StorageBackend
}

// RawStorage selects one backend for every store.
func RawStorage(b StorageBackend) StorageConfig { return StorageConfig{raw: &b} }

// PerStoreStorage selects a backend per named store (e.g. {"roster": SQL}).
func PerStoreStorage() *orderedMapBackend {
	return &orderedMapBackend{values: make(map[string]StorageBackend)}
}

func (m *orderedMapBackend) Set(store string, b StorageBackend) *orderedMapBackend {
	if _, ok := m.values[store]; !ok {
		m.keys = append(m.keys, store)
	}
	m.values[store] = b
	return m
}

func (sc StorageConfig) toLuaValue() LuaValue {
	if sc.raw != nil {
		return String(sc.raw.String())
	}
	om := NewOrderedMap()
	if sc.perStore != nil {
		for _, k := range sc.perStore.keys {
			om.Set(k, String(sc.perStore.values[k].String()))
		}
	}
	return Map(om)
}

// Interface names a network interface to bind to.
type Interface struct {
	kind int // 0 = all ipv4, 1 = all ipv6, 2 = address
	addr string
}

func AllIPv4() Interface          { return Interface{kind: 0} }
func AllIPv6() Interface          { return Interface{kind: 1} }
func Address(addr string) Interface { return Interface{kind: 2, addr: addr} }

func (i Interface) toLuaValue() LuaValue {
	switch i.kind {
	case 0:
		return String("*")
	case 1:
		return String("::")
	default:
		return String(i.addr)
	}
}

// SSLConfig is either an automatic certificate path or an explicit
// certificate/key pair.
// See https://prosody.im/doc/certificates.
type SSLConfig struct {
	automatic        bool
	path             string
	certificate, key string
}

func AutomaticSSL(path string) SSLConfig { return SSLConfig{automatic: true, path: path} }
func ManualSSL(cert, key string) SSLConfig { return SSLConfig{certificate: cert, key: key} }

func (s SSLConfig) toLuaValue() LuaValue {
	if s.automatic {
		return String(s.path)
	}
	m := NewOrderedMap()
	m.Set("certificate", String(s.certificate))
	m.Set("key", String(s.key))
	return Map(m)
}

// ConnectionType is a connection class for mod_limits.
type ConnectionType int

const (
	ConnC2S ConnectionType = iota
	ConnS2SIn
	ConnS2SOut
)

func (c ConnectionType) key() string {
	return [...]string{"c2s", "s2sin", "s2sout"}[c]
}

// ConnectionLimits is mod_limits' per-class rate/burst pair.
type ConnectionLimits struct {
	Rate  *DataRate
	Burst *Duration
}

func (c ConnectionLimits) toLuaValue() LuaValue {
	m := NewOrderedMap()
	if c.Rate != nil {
		m.Set("rate", c.Rate.toLuaValue())
	}
	if c.Burst != nil {
		m.Set("burst", c.Burst.toLuaValue())
	}
	return Map(m)
}

// ContactInfo is mod_server_contact_info's address-book.
// See https://prosody.im/doc/modules/mod_server_contact_info#configuration.
type ContactInfo struct {
	Abuse, Admin, Feedback, Sales, Security, Support []string
}

func (c ContactInfo) toLuaValue() LuaValue {
	m := NewOrderedMap()
	set := func(key string, vals []string) {
		if len(vals) > 0 {
			m.Set(key, StringList(vals...))
		}
	}
	set("abuse", c.Abuse)
	set("admin", c.Admin)
	set("feedback", c.Feedback)
	set("sales", c.Sales)
	set("security", c.Security)
	set("support", c.Support)
	return Map(m)
}

// Settings is an open record of the strongly-typed, optional values that
// make up one VirtualHost/Component block (or the global settings).
// Every field is a pointer/zero-value-means-unset so that an overlay can
// replace individual fields without disturbing the rest — this backs the
// "typed prosody_overrides replaces corresponding fields" composition
// rule in the server manager.
type Settings struct {
	Pidfile                  string
	Authentication           *AuthenticationProvider
	Storage                  *StorageConfig
	LogRaw                   string // "*console" / "*syslog" / file path; empty = unset
	Interfaces               []Interface
	C2SPorts, S2SPorts       []int
	HTTPPorts                []int
	HTTPInterfaces           []Interface
	HTTPSPorts               []int
	HTTPSInterfaces          []Interface
	Admins                   *orderedSet
	ModulesEnabled           *orderedSet
	ModulesDisabled          *orderedSet
	SSL                      *SSLConfig
	AllowRegistration        *bool
	C2SRequireEncryption     *bool
	S2SRequireEncryption     *bool
	S2SSecureAuth            *bool
	C2SStanzaSizeLimit       *Bytes
	S2SStanzaSizeLimit       *Bytes
	Limits                   map[ConnectionType]ConnectionLimits
	LimitsOrder              []ConnectionType
	ConsiderWebsocketSecure  *bool
	CrossDomainWebsocket     *bool
	ContactInfo              *ContactInfo
	ArchiveExpiresAfter      *PossiblyInfinite
	DefaultArchivePolicy     *bool
	MaxArchiveQueryResults   *int
	UpgradeLegacyVCards      *bool
	GroupsFile               string
	S2SWhitelist             []string
	HTTPFileShareSizeLimit   *Bytes
	HTTPFileShareDailyQuota  *Bytes
	HTTPFileShareExpiresAfter *int // raw seconds, not a Duration — see §4.1
	// Extra carries free-form additional definitions (custom Lua groups)
	// not otherwise modeled, grouped last under a generic heading.
	Extra []Definition
}

func (s *Settings) setLimit(ct ConnectionType, cl ConnectionLimits) {
	if s.Limits == nil {
		s.Limits = make(map[ConnectionType]ConnectionLimits)
	}
	if _, exists := s.Limits[ct]; !exists {
		s.LimitsOrder = append(s.LimitsOrder, ct)
	}
	s.Limits[ct] = cl
}

// Config is the composed, typed Prosody configuration: global settings
// plus the VirtualHost/Component sections that follow them.
type Config struct {
	GlobalSettings     Settings
	AdditionalSections []ConfigSection
}

// ConfigSection mirrors ast.Section but at the typed-settings level,
// before it has been grouped into topical Definition groups for
// printing.
type ConfigSection struct {
	IsComponent bool
	Hostname    string
	Plugin      string
	Name        string
	Settings    Settings
	Comments    []Comment
}
