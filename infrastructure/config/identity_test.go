package config

import (
	"os"
	"strings"
	"testing"
)

func TestWorkerIdentityFallbacks(t *testing.T) {
	os.Unsetenv("NODE_NAME")
	os.Unsetenv("POD_NAME")
	os.Unsetenv("INSTANCE_ID")

	id := WorkerIdentity()
	if !strings.HasPrefix(id, "unknown-node-unknown-pod-") {
		t.Errorf("id = %q, want unknown-node-unknown-pod-<uuid> prefix", id)
	}
}

func TestWorkerIdentityFromEnv(t *testing.T) {
	t.Setenv("NODE_NAME", "node-a")
	t.Setenv("POD_NAME", "pod-b")
	t.Setenv("INSTANCE_ID", "inst-1")

	id := WorkerIdentity()
	if id != "node-a-pod-b-inst-1" {
		t.Errorf("id = %q, want node-a-pod-b-inst-1", id)
	}
}
