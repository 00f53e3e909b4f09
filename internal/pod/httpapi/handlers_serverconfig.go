package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/prose-pod/pod/internal/pod/apperror"
	"github.com/prose-pod/pod/internal/pod/servermanager"
)

// serverConfigField is one entry of the per-field GET/PUT/reset table
// the spec asks for on /v1/server/config/{field}. Reflection is
// deliberately avoided in favor of the teacher's explicit-dispatch
// style (see C5's Manager.Mutate callers).
type serverConfigField struct {
	get   func(servermanager.ServerConfig) any
	set   func(*servermanager.ServerConfig, json.RawMessage) error
	reset func(*servermanager.ServerConfig)
}

var serverConfigFields = map[string]serverConfigField{
	"message_archive_enabled": {
		get: func(sc servermanager.ServerConfig) any { return sc.MessageArchiveEnabled },
		set: func(sc *servermanager.ServerConfig, raw json.RawMessage) error {
			return json.Unmarshal(raw, &sc.MessageArchiveEnabled)
		},
		reset: func(sc *servermanager.ServerConfig) { sc.MessageArchiveEnabled = true },
	},
	"file_upload_allowed": {
		get: func(sc servermanager.ServerConfig) any { return sc.FileUploadAllowed },
		set: func(sc *servermanager.ServerConfig, raw json.RawMessage) error {
			return json.Unmarshal(raw, &sc.FileUploadAllowed)
		},
		reset: func(sc *servermanager.ServerConfig) { sc.FileUploadAllowed = true },
	},
	"federation_enabled": {
		get: func(sc servermanager.ServerConfig) any { return sc.FederationEnabled },
		set: func(sc *servermanager.ServerConfig, raw json.RawMessage) error {
			return json.Unmarshal(raw, &sc.FederationEnabled)
		},
		reset: func(sc *servermanager.ServerConfig) { sc.FederationEnabled = true },
	},
	"federation_whitelist_enabled": {
		get: func(sc servermanager.ServerConfig) any { return sc.FederationWhitelistEnabled },
		set: func(sc *servermanager.ServerConfig, raw json.RawMessage) error {
			return json.Unmarshal(raw, &sc.FederationWhitelistEnabled)
		},
		reset: func(sc *servermanager.ServerConfig) { sc.FederationWhitelistEnabled = false },
	},
	"mfa_required": {
		get: func(sc servermanager.ServerConfig) any { return sc.MFARequired },
		set: func(sc *servermanager.ServerConfig, raw json.RawMessage) error {
			return json.Unmarshal(raw, &sc.MFARequired)
		},
		reset: func(sc *servermanager.ServerConfig) { sc.MFARequired = false },
	},
	"push_notifications_enabled": {
		get: func(sc servermanager.ServerConfig) any { return sc.PushNotificationsEnabled },
		set: func(sc *servermanager.ServerConfig, raw json.RawMessage) error {
			return json.Unmarshal(raw, &sc.PushNotificationsEnabled)
		},
		reset: func(sc *servermanager.ServerConfig) { sc.PushNotificationsEnabled = true },
	},
	"tls_profile": {
		get: func(sc servermanager.ServerConfig) any { return sc.TLSProfile },
		set: func(sc *servermanager.ServerConfig, raw json.RawMessage) error {
			return json.Unmarshal(raw, &sc.TLSProfile)
		},
		reset: func(sc *servermanager.ServerConfig) { sc.TLSProfile = servermanager.TLSModern },
	},
	"federation_friendly_servers": {
		get: func(sc servermanager.ServerConfig) any { return sc.FederationFriendlyServers },
		set: func(sc *servermanager.ServerConfig, raw json.RawMessage) error {
			return json.Unmarshal(raw, &sc.FederationFriendlyServers)
		},
		reset: func(sc *servermanager.ServerConfig) { sc.FederationFriendlyServers = nil },
	},
	"message_archive_retention": {
		get: func(sc servermanager.ServerConfig) any { return retentionJSON(sc.MessageArchiveRetention) },
		set: func(sc *servermanager.ServerConfig, raw json.RawMessage) error {
			r, err := unmarshalRetention(raw)
			if err != nil {
				return err
			}
			sc.MessageArchiveRetention = r
			return nil
		},
		reset: func(sc *servermanager.ServerConfig) { sc.MessageArchiveRetention = servermanager.InfiniteRetention() },
	},
	"file_storage_retention": {
		get: func(sc servermanager.ServerConfig) any { return retentionJSON(sc.FileStorageRetention) },
		set: func(sc *servermanager.ServerConfig, raw json.RawMessage) error {
			r, err := unmarshalRetention(raw)
			if err != nil {
				return err
			}
			sc.FileStorageRetention = r
			return nil
		},
		reset: func(sc *servermanager.ServerConfig) { sc.FileStorageRetention = servermanager.InfiniteRetention() },
	},
}

type retentionPayload struct {
	// Value is "infinite" or a date-like duration string such as "30d",
	// "6month", "1y" — the same format the row is stored in.
	Value string `json:"value"`
}

func retentionJSON(r servermanager.Retention) retentionPayload {
	return retentionPayload{Value: servermanager.RetentionString(r)}
}

func unmarshalRetention(raw json.RawMessage) (servermanager.Retention, error) {
	var p retentionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return servermanager.Retention{}, err
	}
	return servermanager.ParseRetentionString(p.Value), nil
}

func (s *Server) handleGetServerConfigField(w http.ResponseWriter, r *http.Request) {
	field := r.PathValue("field")
	entry, ok := serverConfigFields[field]
	if !ok {
		writeError(w, "get_server_config_field", apperror.New(apperror.CodeNotFound, "unknown server config field"))
		return
	}
	sc, err := s.Manager.Get(r.Context())
	if err != nil {
		writeError(w, "get_server_config_field", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{field: entry.get(sc)})
}

func (s *Server) handlePutServerConfigField(w http.ResponseWriter, r *http.Request) {
	field := r.PathValue("field")
	entry, ok := serverConfigFields[field]
	if !ok {
		writeError(w, "put_server_config_field", apperror.New(apperror.CodeNotFound, "unknown server config field"))
		return
	}
	var body map[string]json.RawMessage
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, "put_server_config_field", err)
		return
	}
	raw, ok := body[field]
	if !ok {
		writeError(w, "put_server_config_field", apperror.New(apperror.CodeBadRequest, "request body missing field value"))
		return
	}
	sc, err := s.Manager.Mutate(r.Context(), func(sc *servermanager.ServerConfig) {
		_ = entry.set(sc, raw)
	})
	if err != nil {
		writeError(w, "put_server_config_field", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{field: entry.get(sc)})
}

func (s *Server) handleResetServerConfigField(w http.ResponseWriter, r *http.Request) {
	field := r.PathValue("field")
	entry, ok := serverConfigFields[field]
	if !ok {
		writeError(w, "reset_server_config_field", apperror.New(apperror.CodeNotFound, "unknown server config field"))
		return
	}
	sc, err := s.Manager.Mutate(r.Context(), func(sc *servermanager.ServerConfig) {
		entry.reset(sc)
	})
	if err != nil {
		writeError(w, "reset_server_config_field", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{field: entry.get(sc)})
}
