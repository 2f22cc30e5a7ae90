package e2e

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const initResponse = `{"revision":1,"fullUpdate":{"visitSessionId":"vs-e2e","pageId":"page-e2e","authToken":"token-e2e","visitor":{"id":"v-e2e"},` +
	`"chat":{"state":"chatting","operator":{"id":"7","fullname":"Bob"},"messages":[{"id":"m1","kind":"operator","name":"Bob","text":"How can I help?","ts_m":1700000000000000}]}}}`

func TestSmokeFlow(t *testing.T) {
	home := t.TempDir()
	binaryPath := buildBinary(t)
	server := chatServer(t)
	require.NoError(t, writeConfig(home, server.URL))

	stdout, stderr, err := runWebim(t, binaryPath, home, "history")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "state: CHATTING")
	assert.Contains(t, stdout, "Bob: How can I help?")

	stdout, stderr, err = runWebim(t, binaryPath, home, "session", "show")
	require.NoError(t, err, "stderr: %s", stderr)
	assert.Contains(t, stdout, "visit session: vs-e2e")

	_, err = os.Stat(filepath.Join(home, ".webim", "history.db"))
	assert.NoError(t, err)
}

func buildBinary(t *testing.T) string {
	t.Helper()

	binaryPath := filepath.Join(t.TempDir(), "webim-e2e")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/webim")
	cmd.Dir = repoRoot(t)

	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "build webim binary: %s", string(output))
	return binaryPath
}

// chatServer answers init and holds delta polls open until the client leaves.
func chatServer(t *testing.T) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/l/v/m/init":
			_, _ = w.Write([]byte(initResponse))
		case "/l/v/m/delta":
			<-r.Context().Done()
		default:
			_, _ = w.Write([]byte(`{"result":"ok"}`))
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func runWebim(t *testing.T, binaryPath, home string, args ...string) (string, string, error) {
	t.Helper()

	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "HOME="+home)

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

func writeConfig(home, accountURL string) error {
	configDir := filepath.Join(home, ".webim")
	if err := os.MkdirAll(configDir, 0o700); err != nil {
		return err
	}

	config := fmt.Sprintf(`account_url = %q
device_id = "device-e2e"

[history]
remote = false

[secrets]
backend = "file"

[loop]
wait_timeout = "10s"
`, accountURL)

	return os.WriteFile(filepath.Join(configDir, "config.toml"), []byte(config), 0o600)
}
