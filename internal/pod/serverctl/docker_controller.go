package serverctl

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/pkg/archive"
	dockerclient "github.com/docker/docker/client"
)

const (
	labelManagedBy = "prose-pod.managed-by"
	managedByValue = "prose-pod"
)

// DockerController drives a Prosody server running as a Docker
// container rather than a local prosodyctl install — the shape used
// when the pod and the XMPP server are deployed as sibling containers.
// User-lifecycle and reload operations are performed by `docker exec
// prosodyctl ...` inside the container; config pushes copy the rendered
// file in via the Docker Engine API's CopyToContainer, avoiding any
// assumption about a shared bind mount.
type DockerController struct {
	client        *dockerclient.Client
	containerName string
	configPath    string // path inside the container
}

// NewDockerController creates a controller that manages the named
// Prosody container, using the Docker host from the environment
// (DOCKER_HOST) or the default socket.
func NewDockerController(containerName, configPathInContainer string) (*DockerController, error) {
	cli, err := dockerclient.NewClientWithOpts(
		dockerclient.FromEnv,
		dockerclient.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("docker client: %w", err)
	}
	return &DockerController{client: cli, containerName: containerName, configPath: configPathInContainer}, nil
}

func (d *DockerController) exec(ctx context.Context, op string, cmd []string) error {
	execCfg := container.ExecOptions{
		Cmd:          cmd,
		AttachStdout: true,
		AttachStderr: true,
	}
	created, err := d.client.ContainerExecCreate(ctx, d.containerName, execCfg)
	if err != nil {
		return newErr(KindIO, op, err)
	}
	attach, err := d.client.ContainerExecAttach(ctx, created.ID, container.ExecStartOptions{})
	if err != nil {
		return newErr(KindIO, op, err)
	}
	defer attach.Close()

	var out bytes.Buffer
	io.Copy(&out, attach.Reader) //nolint:errcheck

	inspect, err := d.client.ContainerExecInspect(ctx, created.ID)
	if err != nil {
		return newErr(KindIO, op, err)
	}
	if inspect.ExitCode != 0 {
		kind := KindUnexpected
		if inspect.ExitCode == 127 {
			kind = KindNotFound
		}
		return newErr(kind, op, fmt.Errorf("exit %d: %s", inspect.ExitCode, out.String()))
	}
	return nil
}

func (d *DockerController) AddUser(ctx context.Context, jid, password string) error {
	return d.exec(ctx, "add_user", []string{"prosodyctl", "mod_register_web", "register", jid, password})
}

func (d *DockerController) RemoveUser(ctx context.Context, jid string) error {
	return d.exec(ctx, "remove_user", []string{"prosodyctl", "deluser", jid})
}

func (d *DockerController) RemoveTeamMember(ctx context.Context, jid string) error {
	return d.RemoveUser(ctx, jid)
}

func (d *DockerController) SetUserPassword(ctx context.Context, jid, password string) error {
	return d.exec(ctx, "set_user_password", []string{"prosodyctl", "passwd", jid, password})
}

func (d *DockerController) SetUserRole(ctx context.Context, jid string, role Role) error {
	roleName := "member"
	if role == RoleAdmin {
		roleName = "admin"
	}
	return d.exec(ctx, "set_user_role", []string{"prosodyctl", "mod_roles", "set", jid, roleName})
}

// SaveConfig copies renderedLua into the container at configPath using a
// tar stream, the Docker Engine API's documented mechanism for writing
// a single file without a shared bind mount.
func (d *DockerController) SaveConfig(ctx context.Context, renderedLua string) error {
	tarStream, err := archive.Generate(d.configPath, renderedLua)
	if err != nil {
		return newErr(KindIO, "save_config", err)
	}
	if err := d.client.CopyToContainer(ctx, d.containerName, "/", tarStream, container.CopyToContainerOptions{}); err != nil {
		return newErr(KindIO, "save_config", err)
	}
	return nil
}

func (d *DockerController) Reload(ctx context.Context) error {
	return d.exec(ctx, "reload", []string{"prosodyctl", "reload"})
}

func (d *DockerController) ResetConfig(ctx context.Context, bootstrapPassword string) error {
	if err := d.exec(ctx, "reset_config", []string{"prosodyctl", "reset"}); err != nil {
		return err
	}
	return d.AddUser(ctx, "admin", bootstrapPassword)
}

func (d *DockerController) DeleteAllData(ctx context.Context) error {
	return d.exec(ctx, "delete_all_data", []string{"prosodyctl", "mod_admin_prose", "wipe-data"})
}
