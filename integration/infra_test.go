//go:build integration

package integration_test

import (
	"context"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-yaml"
	"github.com/openkcm/common-sdk/pkg/commoncfg"
	"github.com/stretchr/testify/require"

	"github.com/openkcm/admin-console/internal/config"
	"github.com/openkcm/admin-console/internal/dbtest/postgrestest"
	"github.com/openkcm/admin-console/internal/dbtest/valkeytest"
)

type closeFunc func(ctx context.Context)

type infraStat struct {
	PostgresPort   nat.Port
	ValKey         *valkeytest.Instance
	ConfigFilePath string
	Procdir        string
	Cfg            config.Config

	closeFuncs []closeFunc
}

func initInfra(t *testing.T, cmdName string) (istat infraStat) {
	t.Helper()

	// The config is read from $PWD/config.yaml, so every process runs in
	// its own subdirectory.
	wd, err := os.Getwd()
	require.NoError(t, err, "failed to get wd")
	istat.Procdir = filepath.Join(wd, cmdName+"-test")
	istat.ConfigFilePath = filepath.Join(istat.Procdir, "config.yaml")

	err = os.MkdirAll(istat.Procdir, fs.ModePerm)
	require.NoError(t, err, "failed to create a dir for the process")

	err = os.WriteFile(istat.ConfigFilePath, []byte(validConfig), fs.ModePerm)
	require.NoError(t, err, "failed to write config file")

	err = commoncfg.LoadConfig(&istat.Cfg, nil, istat.Procdir)
	require.NoError(t, err, "failed to load config")

	sockDir, err := os.MkdirTemp("", "ac")
	require.NoError(t, err, "failed to create a socket dir")
	istat.closeFuncs = append(istat.closeFuncs, func(context.Context) { os.RemoveAll(sockDir) })

	istat.Cfg.HTTP.Address = "unix://" + filepath.Join(sockDir, "http.sock")
	istat.Cfg.AuthProvider.SessionCookie.Secure = false

	return istat
}

// SocketPath returns the unix socket of the public HTTP server.
func (istat *infraStat) SocketPath() string {
	return strings.TrimPrefix(istat.Cfg.HTTP.Address, "unix://")
}

// HTTPClient returns a client dialing the public HTTP server socket.
func (istat *infraStat) HTTPClient() *http.Client {
	socket := istat.SocketPath()

	return &http.Client{
		Timeout: 5 * time.Second,
		Transport: &http.Transport{
			DialContext: func(ctx context.Context, _, _ string) (net.Conn, error) {
				var d net.Dialer
				return d.DialContext(ctx, "unix", socket)
			},
		},
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (istat *infraStat) PreparePostgres(t *testing.T) {
	t.Helper()

	pgClient, pgPort, pgTerminate := postgrestest.Start(t.Context())
	pgClient.Close()

	istat.PostgresPort = pgPort
	istat.closeFuncs = append(istat.closeFuncs, pgTerminate)

	istat.Cfg.AuthProvider.Type = config.ProviderSQL
	istat.Cfg.AuthProvider.Database = config.Database{
		Name:     postgrestest.DBName,
		Port:     pgPort.Port(),
		Host:     commoncfg.SourceRef{Source: "embedded", Value: postgrestest.DBHost},
		User:     commoncfg.SourceRef{Source: "embedded", Value: postgrestest.DBUser},
		Password: commoncfg.SourceRef{Source: "embedded", Value: postgrestest.DBPassword},
		SSLMode:  postgrestest.DBSSLMode,
	}
}

func (istat *infraStat) PrepareValKey(t *testing.T) {
	t.Helper()

	instance, err := valkeytest.Start(t.Context())
	require.NoError(t, err, "failed to start valkey")

	istat.ValKey = instance
	istat.closeFuncs = append(istat.closeFuncs, instance.Terminate)

	istat.Cfg.AuthProvider.Type = config.ProviderValKey
	istat.Cfg.AuthProvider.ValKey.Host = commoncfg.SourceRef{Source: "embedded", Value: instance.Addr()}
	istat.Cfg.AuthProvider.ValKey.User = commoncfg.SourceRef{Source: "embedded", Value: ""}
	istat.Cfg.AuthProvider.ValKey.Password = commoncfg.SourceRef{Source: "embedded", Value: ""}
}

// PrepareConfig writes the config of the test into ConfigFilePath.
func (istat *infraStat) PrepareConfig(t *testing.T) {
	t.Helper()

	cfgMap := make(map[string]any)
	err := mapstructure.Decode(istat.Cfg, &cfgMap)
	require.NoError(t, err, "failed to decode config")

	configFile, err := os.Create(istat.ConfigFilePath)
	require.NoError(t, err, "failed to create config file")
	defer configFile.Close()

	err = yaml.NewEncoder(configFile).Encode(cfgMap)
	require.NoError(t, err, "failed to write config")
}

// Start runs the binary subcommand in Procdir. The returned function stops
// it with SIGTERM so that coverprofiles are written.
func (istat *infraStat) Start(t *testing.T, cmdName string) (*exec.Cmd, func()) {
	t.Helper()

	currdir, err := os.Getwd()
	require.NoError(t, err, "failed to get wd")

	cmdOutPath := filepath.Join(currdir, cmdName+".log")
	cmdOut, err := os.Create(cmdOutPath)
	require.NoError(t, err, "failed to create a log file")

	cmd := exec.CommandContext(t.Context(), filepath.Join(currdir, binary), cmdName)
	cmd.Dir = istat.Procdir
	cmd.Stdout = cmdOut
	cmd.Stderr = cmdOut

	t.Logf("starting %s. Logs will be saved into %s", cmdName, cmdOutPath)
	require.NoError(t, cmd.Start(), "could not start command")

	return cmd, func() {
		_ = cmd.Process.Signal(os.Interrupt)
		_ = cmd.Wait()
		cmdOut.Close()
	}
}

func (istat *infraStat) Close(ctx context.Context) {
	os.RemoveAll(istat.Procdir)

	for _, close := range istat.closeFuncs {
		close(ctx)
	}
}
