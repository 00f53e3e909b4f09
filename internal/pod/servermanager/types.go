package servermanager

import (
	"time"

	"github.com/prose-pod/pod/internal/pod/prosody"
)

// TLSProfile names a Mozilla server-side TLS guideline bundle.
type TLSProfile string

const (
	TLSModern       TLSProfile = "modern"
	TLSIntermediate TLSProfile = "intermediate"
	TLSOld          TLSProfile = "old"
)

// Retention is a message/file retention policy: either kept forever or
// for a bounded, date-like duration (days/weeks/months/years).
type Retention struct {
	Infinite bool
	Duration prosody.Duration
}

func InfiniteRetention() Retention { return Retention{Infinite: true} }
func FiniteRetention(d prosody.Duration) Retention { return Retention{Duration: d} }

func (r Retention) toPossiblyInfinite() prosody.PossiblyInfinite {
	if r.Infinite {
		return prosody.Infinite()
	}
	return prosody.Finite(r.Duration)
}

// ServerConfig is the single persisted row this manager owns.
type ServerConfig struct {
	Domain                      string
	MessageArchiveEnabled       bool
	FileUploadAllowed           bool
	FederationEnabled           bool
	FederationWhitelistEnabled  bool
	MFARequired                 bool
	PushNotificationsEnabled    bool
	MessageArchiveRetention     Retention
	FileStorageRetention        Retention
	TLSProfile                  TLSProfile
	FederationFriendlyServers   []string // ordered, deduped by the setter

	// At most one of these two is expected to be set by a single update;
	// both may coexist if written separately, in which case the raw form
	// wins at emission.
	ProsodyOverrides    *prosody.Settings
	ProsodyOverridesRaw *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppConfig is the subset of the static pod configuration the server
// manager needs to compose a full Prosody configuration: values that
// come from prose.toml rather than the persisted ServerConfig row.
type AppConfig struct {
	LocalHostname             string
	HTTPPort                  int
	C2SPort, S2SPort          int
	PidFile                   string
	GroupsFile                string
	AdditionalModulesEnabled  []string
	UploadSizeLimit           prosody.Bytes
	UploadDailyQuota          prosody.Bytes
	UploadRetentionSeconds    int
}
