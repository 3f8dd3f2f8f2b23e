// Package logger provides a standard logger for the operational tools
// (seed, export, gentoken) which run with GCP credentials. On GCE the
// logs go to Cloud Logging; elsewhere they fall back to stderr.
package logger

import (
	"context"
	"log"
	"os"

	"cloud.google.com/go/compute/metadata"
	"cloud.google.com/go/logging"
)

const logID = "connectsphere-tools"

// New returns a logger and a flush function to be called before exit.
func New(ctx context.Context) (*log.Logger, func()) {
	if !metadata.OnGCE() {
		return log.New(os.Stderr, "", log.LstdFlags), func() {}
	}

	projectID, err := metadata.ProjectIDWithContext(ctx)
	if err != nil {
		log.Fatalf("failed to get project ID: %v", err)
	}
	client, err := logging.NewClient(ctx, projectID)
	if err != nil {
		log.Fatalf("failed to create logging client: %v", err)
	}
	return client.Logger(logID).StandardLogger(logging.Info), func() {
		_ = client.Close()
	}
}
