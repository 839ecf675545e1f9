package e2e

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type turnOutput struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
	Decision  struct {
		Action  string `json:"action"`
		EventID string `json:"event_id"`
	} `json:"decision"`
}

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)
	require.NoError(t, writeConfigFixture(home))

	first := runTurn(t, binaryPath, home, "", "Schedule a meeting with Alice on Friday at 10am for 45 minutes")
	assert.Equal(t, "AWAITING_CONFIRMATION", first.State)
	assert.Equal(t, "offer_confirmation", first.Decision.Action)

	done := runTurn(t, binaryPath, home, first.SessionID, "yes")
	assert.Equal(t, "DONE", done.State)
	require.NotEmpty(t, done.Decision.EventID)

	calendar, err := os.ReadFile(filepath.Join(home, ".meeting-assistant", "calendar.ics"))
	require.NoError(t, err)
	assert.Contains(t, string(calendar), done.Decision.EventID)

	stdout, stderr, err := runMA(t, binaryPath, home, "session", "show", first.SessionID, "--format", "yaml")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "state: DONE")
}

func runTurn(t *testing.T, binaryPath, home, sessionID, prompt string) turnOutput {
	t.Helper()

	args := []string{"chat", "--json"}
	if sessionID != "" {
		args = append(args, "--session", sessionID)
	}
	stdout, stderr, err := runMA(t, binaryPath, home, append(args, prompt)...)
	require.NoError(t, err, "stderr: %s", stderr)

	var out turnOutput
	require.NoError(t, json.Unmarshal([]byte(stdout), &out), "stdout: %s", stdout)

	return out
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "ma-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/ma")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build ma binary: %s", string(output))
	return binaryPath
}

func runMA(t *testing.T, binaryPath, home string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Dir = home
	cmd.Env = append(os.Environ(), "HOME="+home, "MA_LLM_API_KEY=")

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

func repoRoot(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	require.NoError(t, err)
	return filepath.Clean(filepath.Join(wd, "..", ".."))
}

func writeConfigFixture(home string) error {
	configDir := filepath.Join(home, ".meeting-assistant")
	if err := os.MkdirAll(configDir, 0o755); err != nil {
		return err
	}

	config := `[llm]
provider = "heuristic"

[calendar]
timezone = "UTC"

[secrets]
backend = "file"
`

	return os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(config), 0o644)
}
