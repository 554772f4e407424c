package config

import (
	"os"

	"github.com/google/uuid"
)

// WorkerIdentity resolves the stable "{nodeName}-{podName}-{instanceId}"
// identity from the environment, substituting fallbacks for any missing
// value.
func WorkerIdentity() string {
	node := envOr("NODE_NAME", "unknown-node")
	pod := envOr("POD_NAME", "unknown-pod")
	instance := os.Getenv("INSTANCE_ID")
	if instance == "" {
		instance = uuid.NewString()
	}
	return node + "-" + pod + "-" + instance
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
