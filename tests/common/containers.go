// Package common holds the service containers shared by the store
// integration tests. Each container starts once per test process and every
// caller is skipped under -short.
package common

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// Container is a started container and its mapped service port.
type Container struct {
	container testcontainers.Container
	host      string
	port      string
}

// HostPort returns host:port of the mapped service port.
func (c *Container) HostPort() string {
	return c.host + ":" + c.port
}

// Cleanup terminates the container. Call from TestMain if needed.
func (c *Container) Cleanup() {
	if c != nil && c.container != nil {
		c.container.Terminate(context.Background())
	}
}

// sharedContainer starts its container at most once.
type sharedContainer struct {
	name string
	req  testcontainers.ContainerRequest
	port string

	once sync.Once
	c    *Container
	err  error
}

func (s *sharedContainer) get(t *testing.T) *Container {
	t.Helper()
	if testing.Short() {
		t.Skipf("skipping %s container in short mode", s.name)
	}

	s.once.Do(func() {
		s.c, s.err = startContainer(context.Background(), s.req, s.port)
	})
	if s.err != nil {
		t.Fatalf("%s container failed: %v", s.name, s.err)
	}
	return s.c
}

func startContainer(ctx context.Context, req testcontainers.ContainerRequest, port string) (*Container, error) {
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("start %s: %w", req.Image, err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("get host of %s: %w", req.Image, err)
	}

	mapped, err := container.MappedPort(ctx, port)
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("get port of %s: %w", req.Image, err)
	}

	return &Container{container: container, host: host, port: mapped.Port()}, nil
}

var surreal = &sharedContainer{
	name: "SurrealDB",
	port: "8000/tcp",
	req: testcontainers.ContainerRequest{
		Image:        "surrealdb/surrealdb:v3.0.0",
		ExposedPorts: []string{"8000/tcp"},
		Cmd:          []string{"start", "--user", "root", "--pass", "root"},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("8000/tcp"),
			wait.ForLog("Started web server"),
		).WithDeadline(60 * time.Second),
	},
}

var dynamo = &sharedContainer{
	name: "DynamoDB Local",
	port: "8000/tcp",
	req: testcontainers.ContainerRequest{
		Image:        "amazon/dynamodb-local:2.5.2",
		ExposedPorts: []string{"8000/tcp"},
		Cmd:          []string{"-jar", "DynamoDBLocal.jar", "-inMemory", "-sharedDb"},
		WaitingFor:   wait.ForListeningPort("8000/tcp").WithStartupTimeout(60 * time.Second),
	},
}

// SurrealDBContainer is the shared SurrealDB server (root/root).
type SurrealDBContainer struct{ *Container }

// StartSurrealDB returns the shared SurrealDB container.
func StartSurrealDB(t *testing.T) *SurrealDBContainer {
	t.Helper()
	return &SurrealDBContainer{surreal.get(t)}
}

// Address returns the WebSocket RPC address for SurrealDB.
func (c *SurrealDBContainer) Address() string {
	return "ws://" + c.HostPort() + "/rpc"
}

// DynamoDBContainer is the shared in-memory DynamoDB Local.
type DynamoDBContainer struct{ *Container }

// StartDynamoDB returns the shared DynamoDB Local container.
func StartDynamoDB(t *testing.T) *DynamoDBContainer {
	t.Helper()
	return &DynamoDBContainer{dynamo.get(t)}
}

// Endpoint returns the HTTP endpoint for the AWS SDK.
func (c *DynamoDBContainer) Endpoint() string {
	return "http://" + c.HostPort()
}
