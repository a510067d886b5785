// Package docker inspects the deployed container through the Docker SDK.
// The compose tool owns the lifecycle; this package only answers whether
// the container the pipeline just deployed exists, runs, and publishes
// the expected port.
package docker

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/docker/docker/client"
	"github.com/docker/go-connections/nat"
)

// =============================================================================
// Verifier
// =============================================================================

// Verifier checks deployed container state.
type Verifier struct {
	cli    *client.Client
	logger *slog.Logger
}

// NewVerifier creates a verifier using the Docker daemon from the
// environment. If host is non-empty it overrides DOCKER_HOST.
func NewVerifier(host string, logger *slog.Logger) (*Verifier, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, NewDockerError("NewVerifier", "", "failed to create client", ErrConnectionFailed)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Verifier{
		cli:    cli,
		logger: logger.With("component", "docker"),
	}, nil
}

// Close closes the Docker client connection.
func (v *Verifier) Close() error {
	return v.cli.Close()
}

// Ping checks if the Docker daemon is reachable.
func (v *Verifier) Ping(ctx context.Context) error {
	if _, err := v.cli.Ping(ctx); err != nil {
		return NewDockerError("Ping", "", fmt.Sprintf("failed to ping docker: %v", err), ErrConnectionFailed)
	}
	return nil
}

// VerifyContainer checks that the named container exists, is running,
// and publishes port as a host TCP binding. Port 0 skips the port check.
func (v *Verifier) VerifyContainer(ctx context.Context, name string, port int) error {
	resp, err := v.cli.ContainerInspect(ctx, name)
	if err != nil {
		if client.IsErrNotFound(err) {
			return NewDockerError("VerifyContainer", name, "container not found", ErrContainerNotFound)
		}
		return NewDockerError("VerifyContainer", name, err.Error(), err)
	}

	if resp.State == nil || !resp.State.Running {
		status := "unknown"
		if resp.State != nil {
			status = resp.State.Status
		}
		return NewDockerError("VerifyContainer", name, "container state is "+status, ErrContainerNotRunning)
	}

	if port == 0 {
		return nil
	}

	if resp.NetworkSettings == nil {
		return NewDockerError("VerifyContainer", name,
			fmt.Sprintf("port %d is not published", port), ErrPortNotPublished)
	}

	wanted := fmt.Sprintf("%d", port)
	for _, bindings := range resp.NetworkSettings.Ports {
		for _, binding := range bindings {
			if binding.HostPort == wanted {
				v.logger.Debug("container verified",
					"container", strings.TrimPrefix(resp.Name, "/"),
					"port", port,
				)
				return nil
			}
		}
	}

	// Also accept the port being exposed container-side without a host
	// binding, e.g. when the health endpoint is reached over a network.
	if _, ok := resp.NetworkSettings.Ports[nat.Port(wanted+"/tcp")]; ok {
		return nil
	}

	return NewDockerError("VerifyContainer", name,
		fmt.Sprintf("port %d is not published", port), ErrPortNotPublished)
}
