package database

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/option"

	"github.com/dronesight/dronesight-backend/internal/logger"
)

// ConnectFirestore opens a Firestore client. Without credsFile the
// application default credentials are used.
func ConnectFirestore(ctx context.Context, projectID, credsFile string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("connect firestore: FIRESTORE_PROJECT_ID is required")
	}
	var opts []option.ClientOption
	if credsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credsFile))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect firestore: %w", err)
	}
	logger.For("database").WithField("project", projectID).Info("✅ Connected to Firestore")
	return client, nil
}
