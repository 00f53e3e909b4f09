// Package app wires every component of the pod control plane together
// into a single process, the same composition-root role
// internal/ruriko/app/app.go plays for Ruriko: open the database, build
// each service over it, and hand the assembled HTTP surface to the
// caller to serve.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prose-pod/pod/internal/pod/auth"
	"github.com/prose-pod/pod/internal/pod/httpapi"
	"github.com/prose-pod/pod/internal/pod/invitations"
	"github.com/prose-pod/pod/internal/pod/kv"
	"github.com/prose-pod/pod/internal/pod/members"
	"github.com/prose-pod/pod/internal/pod/netcheck"
	"github.com/prose-pod/pod/internal/pod/notify"
	"github.com/prose-pod/pod/internal/pod/onetimetoken"
	"github.com/prose-pod/pod/internal/pod/podconfig"
	"github.com/prose-pod/pod/internal/pod/prosody"
	"github.com/prose-pod/pod/internal/pod/secrets"
	"github.com/prose-pod/pod/internal/pod/serverctl"
	"github.com/prose-pod/pod/internal/pod/servermanager"
	"github.com/prose-pod/pod/internal/pod/store"
	"github.com/prose-pod/pod/internal/pod/taskrunner"
	"github.com/prose-pod/pod/internal/pod/workspace"
)

// Config is everything App.New needs beyond what podconfig.Load
// already resolved: the database path and which server controller to
// build.
type Config struct {
	DatabasePath string
	// UseDocker selects DockerController over CLIController; when true,
	// DockerContainerName names the sibling Prosody container.
	UseDocker           bool
	DockerContainerName string
}

// App holds every wired component. Server is the HTTP surface handed to
// the process entrypoint to serve; Manager.Restarting is the
// process-wide flag checked by httpapi's rejectWhileRestarting
// middleware, the single piece of global mutable state the spec allows
// (see SPEC_FULL.md's REDESIGN FLAGS).
type App struct {
	Store   *store.Store
	Server  *httpapi.Server
	Manager *servermanager.Manager

	httpServer *http.Server
	addr       string
}

// New opens the database, builds every service over it, and returns
// the assembled App. It does not start listening — that is main.go's job.
func New(cfg Config, pcfg *podconfig.Config) (*App, error) {
	st, err := store.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("app: open store: %w", err)
	}
	db := st.DB()

	ctl, err := buildController(cfg, pcfg)
	if err != nil {
		st.Close()
		return nil, fmt.Errorf("app: build server controller: %w", err)
	}

	secretsStore := secrets.New()
	tokens := onetimetoken.New(db)
	kvStore := kv.New(db)

	oauthBaseURL := fmt.Sprintf("http://%s:%d", pcfg.Server.LocalHostname, pcfg.Server.HTTPPort)
	authService := auth.New(auth.NewHTTPOAuthClient(oauthBaseURL), tokens, pcfg.Auth.PasswordResetTokenTTL)

	appConfig := servermanager.AppConfig{
		LocalHostname:          pcfg.Server.LocalHostname,
		HTTPPort:                pcfg.Server.HTTPPort,
		C2SPort:                 5222,
		S2SPort:                 5269,
		PidFile:                 "/var/run/prosody/prosody.pid",
		GroupsFile:              "/etc/prosody/groups.txt",
		AdditionalModulesEnabled: nil,
		UploadSizeLimit:         prosody.NewBytes(100 * 1024 * 1024),
		UploadDailyQuota:        prosody.NewBytes(1000 * 1024 * 1024),
		UploadRetentionSeconds:  int((30 * 24 * time.Hour).Seconds()),
	}
	manager := servermanager.New(db, ctl, tokens, secretsStore, appConfig)
	if err := initServerConfig(context.Background(), manager, pcfg); err != nil {
		st.Close()
		return nil, fmt.Errorf("app: init server config: %w", err)
	}

	enrichClient := members.NewHTTPEnrichmentClient(oauthBaseURL, "")
	memberSvc := members.New(db, ctl, pcfg.API.MemberEnriching.CacheTTL, enrichClient, enrichClient, enrichClient)

	workspaceSvc := workspace.New(db)

	dispatcher := notify.NewDispatcher()
	if pcfg.Notifiers.Email.Host != "" {
		dispatcher.Register(invitations.ContactKindEmail, notify.NewEmailSender(notify.SMTPConfig{
			Host: pcfg.Notifiers.Email.Host, Port: pcfg.Notifiers.Email.Port,
			Username: pcfg.Notifiers.Email.Username, Password: pcfg.Notifiers.Email.Password,
			From: pcfg.Notifiers.Email.From,
		}))
	}
	invitationSvc := invitations.New(db, ctl, dispatcher, pcfg.Auth.InvitationTTL, pcfg.Dashboard.URL, pcfg.Branding.CompanyName,
		func(ctx context.Context) (string, error) {
			ws, err := workspaceSvc.Get(ctx)
			if err != nil {
				return "", err
			}
			return ws.Name, nil
		})

	netConfig := netcheck.PodNetworkConfig{
		ServerDomain: pcfg.Server.Domain,
		PodIPv4:      pcfg.Pod.Address.IPv4,
		PodIPv6:      pcfg.Pod.Address.IPv6,
		PodHostname:  pcfg.Pod.Address.Domain,
	}
	checker := netcheck.NewChecker()

	retryInterval := pcfg.API.NetworkChecks.DefaultRetryInterval
	if retryInterval == 0 {
		retryInterval = 5 * time.Second
	}

	server := &httpapi.Server{
		Auth:        authService,
		Members:     memberSvc,
		Invitations: invitationSvc,
		Manager:     manager,
		Workspace:   workspaceSvc,
		Controller:  ctl,
		Checker:     checker,
		NetConfig:   netConfig,
		KV:          kvStore,
		DefaultRetryInterval: func() taskrunner.Config {
			return taskrunner.Config{RetryInterval: retryInterval}
		},
		DashboardURL: pcfg.Dashboard.URL,
		OrgName:      pcfg.Branding.CompanyName,
	}

	if err := bootstrapServiceAccounts(context.Background(), manager, authService, pcfg); err != nil {
		slog.Warn("app: service account bootstrap incomplete", "err", err)
	}
	if rec, err := secretsStore.Get(secrets.APIServiceAccount); err == nil {
		enrichClient.Token = rec.AuthToken
	}

	mux := http.NewServeMux()
	server.RegisterRoutes(mux)

	return &App{
		Store:   st,
		Server:  server,
		Manager: manager,
		addr:    fmt.Sprintf("%s:%d", pcfg.API.Address, pcfg.API.Port),
		httpServer: &http.Server{
			Handler: mux,
		},
	}, nil
}

// Run starts the HTTP server and blocks until an interrupt or
// termination signal arrives, mirroring the teacher's app.App.Run:
// start the long-running surface, then wait for Ctrl+C.
func (a *App) Run() error {
	a.httpServer.Addr = a.addr

	errCh := make(chan error, 1)
	go func() {
		slog.Info("app: listening", "addr", a.addr)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("app: http server: %w", err)
	case <-sigCh:
		slog.Info("app: shutting down")
		return nil
	}
}

// Stop gracefully shuts down the HTTP server and closes the database,
// mirroring the teacher's app.App.Stop.
func (a *App) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.httpServer.Shutdown(ctx); err != nil {
		slog.Warn("app: http server shutdown error", "err", err)
	}

	slog.Info("app: closing database")
	if err := a.Store.Close(); err != nil {
		slog.Warn("app: database close error", "err", err)
	}
}

// initServerConfig creates the bootstrap server_config row from
// pcfg.Server.Defaults on first run. ErrAlreadyInitialized is expected
// on every subsequent process start and is not an error.
func initServerConfig(ctx context.Context, manager *servermanager.Manager, pcfg *podconfig.Config) error {
	defaults := pcfg.Server.Defaults
	tlsProfile := servermanager.TLSProfile(defaults.TLSProfile)
	if tlsProfile == "" {
		tlsProfile = servermanager.TLSModern
	}
	err := manager.Init(ctx, servermanager.ServerConfig{
		Domain:                     pcfg.Server.Domain,
		MessageArchiveEnabled:      defaults.MessageArchiveEnabled,
		FileUploadAllowed:          defaults.FileUploadAllowed,
		FederationEnabled:          defaults.FederationEnabled,
		FederationWhitelistEnabled: defaults.FederationWhitelistEnabled,
		MFARequired:                defaults.MFARequired,
		PushNotificationsEnabled:   defaults.PushNotificationsEnabled,
		TLSProfile:                 tlsProfile,
		MessageArchiveRetention:    servermanager.InfiniteRetention(),
		FileStorageRetention:       servermanager.InfiniteRetention(),
	})
	if err != nil && !errors.Is(err, servermanager.ErrAlreadyInitialized) {
		return err
	}
	return nil
}

func buildController(cfg Config, pcfg *podconfig.Config) (serverctl.Controller, error) {
	if cfg.UseDocker {
		return serverctl.NewDockerController(cfg.DockerContainerName, pcfg.ProsodyExt.ConfigFilePath)
	}
	return serverctl.NewCLIController(pcfg.ProsodyExt.ConfigFilePath), nil
}

// bootstrapServiceAccounts creates/rotates and logs in every configured
// service account so its bearer token is ready in the secrets store
// before the first request arrives — C1's "rebuilt from environment and
// fresh logins on every process start" lifetime rule.
func bootstrapServiceAccounts(ctx context.Context, manager *servermanager.Manager, authService *auth.Service, pcfg *podconfig.Config) error {
	for key, acc := range pcfg.ServiceAccounts {
		if err := manager.CreateServiceAccount(ctx, key, acc.JID, authService.LogIn); err != nil {
			return fmt.Errorf("service account %s: %w", key, err)
		}
	}
	return nil
}

