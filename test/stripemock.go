package test

import (
	"context"
	"fmt"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	// StripeMockImage is the official Stripe API mock server.
	StripeMockImage = "stripe/stripe-mock:latest"
	// StripeMockHTTPPort is the plain HTTP port of stripe-mock.
	StripeMockHTTPPort = 12111
	// StripeMockSecretKey is accepted by stripe-mock, any sk_test_ key is.
	StripeMockSecretKey = "sk_test_123"
)

// StartStripeMockContainer starts a stripe-mock container for testing the
// Stripe client against the real API schema.
func StartStripeMockContainer(ctx context.Context) (testcontainers.Container, error) {
	exposedPort := fmt.Sprintf("%d/tcp", StripeMockHTTPPort)
	return testcontainers.GenericContainer(ctx,
		testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        StripeMockImage,
				ExposedPorts: []string{exposedPort},
				WaitingFor:   wait.ForListeningPort(nat.Port(exposedPort)),
			},
			Started: true,
		})
}

// StripeMockURL returns the base URL of a running stripe-mock container.
func StripeMockURL(ctx context.Context, container testcontainers.Container) (string, error) {
	return container.PortEndpoint(ctx, nat.Port(fmt.Sprintf("%d/tcp", StripeMockHTTPPort)), "http")
}
