// AngelaMos | 2026
// node.go

package core

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/ccdexplorer/ccdexplorer-api/internal/config"
)

// Node is the gRPC connection to the blockchain node.
type Node struct {
	Conn   *grpc.ClientConn
	health healthpb.HealthClient
}

func NewNode(cfg config.NodeConfig) (*Node, error) {
	creds := credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	if cfg.Insecure {
		creds = insecure.NewCredentials()
	}

	conn, err := grpc.NewClient(
		cfg.Address(),
		grpc.WithTransportCredentials(creds),
	)
	if err != nil {
		return nil, fmt.Errorf("dial node: %w", err)
	}

	return &Node{
		Conn:   conn,
		health: healthpb.NewHealthClient(conn),
	}, nil
}

func (n *Node) Close() error {
	if n.Conn != nil {
		return n.Conn.Close()
	}
	return nil
}

func (n *Node) Ping(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	resp, err := n.health.Check(pingCtx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return fmt.Errorf("node ping failed: %w", err)
	}

	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return fmt.Errorf("node ping failed: status %s", resp.GetStatus())
	}

	return nil
}
