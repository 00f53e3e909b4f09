package serverctl

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// CLIController drives a Prosody installation local to the pod process
// via the prosodyctl command-line tool, the most common deployment
// shape for a self-hosted single-tenant Pod.
type CLIController struct {
	// Bin is the prosodyctl executable, defaulting to "prosodyctl" on PATH.
	Bin string
	// ConfigPath is where rendered Lua configuration is written.
	ConfigPath string
}

func NewCLIController(configPath string) *CLIController {
	return &CLIController{Bin: "prosodyctl", ConfigPath: configPath}
}

func (c *CLIController) bin() string {
	if c.Bin == "" {
		return "prosodyctl"
	}
	return c.Bin
}

func (c *CLIController) run(ctx context.Context, op string, args ...string) error {
	cmd := exec.CommandContext(ctx, c.bin(), args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		kind := KindUnexpected
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			kind = KindUnexpected
		} else {
			kind = KindIO
		}
		return newErr(kind, op, fmt.Errorf("%w: %s", err, stderr.String()))
	}
	return nil
}

func (c *CLIController) AddUser(ctx context.Context, jid, password string) error {
	return c.run(ctx, "add_user", "mod_register_web", "register", jid, password)
}

func (c *CLIController) RemoveUser(ctx context.Context, jid string) error {
	return c.run(ctx, "remove_user", "deluser", jid)
}

func (c *CLIController) RemoveTeamMember(ctx context.Context, jid string) error {
	return c.RemoveUser(ctx, jid)
}

func (c *CLIController) SetUserPassword(ctx context.Context, jid, password string) error {
	return c.run(ctx, "set_user_password", "passwd", jid, password)
}

func (c *CLIController) SetUserRole(ctx context.Context, jid string, role Role) error {
	roleName := "member"
	if role == RoleAdmin {
		roleName = "admin"
	}
	return c.run(ctx, "set_user_role", "mod_roles", "set", jid, roleName)
}

func (c *CLIController) SaveConfig(ctx context.Context, renderedLua string) error {
	if err := os.WriteFile(c.ConfigPath, []byte(renderedLua), 0o640); err != nil {
		return newErr(KindIO, "save_config", err)
	}
	return nil
}

func (c *CLIController) Reload(ctx context.Context) error {
	return c.run(ctx, "reload", "reload")
}

func (c *CLIController) ResetConfig(ctx context.Context, bootstrapPassword string) error {
	if err := c.run(ctx, "reset_config", "reset"); err != nil {
		return err
	}
	return c.AddUser(ctx, "admin", bootstrapPassword)
}

func (c *CLIController) DeleteAllData(ctx context.Context) error {
	return c.run(ctx, "delete_all_data", "mod_admin_prose", "wipe-data")
}
