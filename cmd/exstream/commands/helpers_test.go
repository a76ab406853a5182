package commands

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// findSubcommand finds a subcommand by name within a cobra command.
func findSubcommand(cmd *cobra.Command, name string) *cobra.Command {
	for _, c := range cmd.Commands() {
		if c.Name() == name {
			return c
		}
	}

	return nil
}

// executeCommand runs cmd under a bare root and returns its stdout.
func executeCommand(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()

	root := &cobra.Command{Use: "exstream", SilenceUsage: true, SilenceErrors: true}
	root.AddCommand(cmd)

	var stdout, stderr bytes.Buffer

	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)

	err := root.Execute()

	return stdout.String(), err
}

// useServer points every service URL at a test server and signs in with a
// static token. Global state is restored when the test ends.
func useServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(handler)

	previousFs := fileSystem
	fileSystem = afero.NewMemMapFs()

	t.Cleanup(func() {
		server.Close()
		viper.Reset()

		fileSystem = previousFs
	})

	viper.Set(KeyToken, "test-token")
	viper.Set(KeyMode, "local")
	viper.Set(KeyDesignURL, server.URL)
	viper.Set(KeyOrchestrationURL, server.URL)
	viper.Set(KeyEmpowerURL, server.URL)
	viper.Set(KeyOutput, "json")

	return server
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
