package cmd

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mezonai/ledgerstore/block"
	"github.com/mezonai/ledgerstore/common"
	"github.com/mezonai/ledgerstore/db"
	"github.com/mezonai/ledgerstore/genesis"
	"github.com/mezonai/ledgerstore/jsonx"
	"github.com/mezonai/ledgerstore/ledger"
	"github.com/mezonai/ledgerstore/logx"
	"github.com/mezonai/ledgerstore/merkle"
)

func TestMain(m *testing.M) {
	logx.SetOutput(io.Discard)
	os.Exit(m.Run())
}

func resetFlags() {
	configPath, treeConfigPath, dataDir, storeType = "", "", "", ""
	secondary, verbose = false, false
	initForce = false
	peersFile = ""
	catchUpHeight, catchUpSkipRebuild = 0, false
}

func runCLI(t *testing.T, stdin []byte, args ...string) (string, error) {
	t.Helper()
	resetFlags()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetIn(bytes.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestCLI_InitStatusPeers(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ledger")

	out, err := runCLI(t, nil, "init", "--data-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "genesis: "+common.EncodeHash32(genesis.MustBlock().Hash()))

	out, err = runCLI(t, nil, "status", "--data-dir", dir)
	require.NoError(t, err)
	var status LedgerStatus
	require.NoError(t, jsonx.Unmarshal([]byte(out), &status))
	assert.Equal(t, uint32(0), status.BlockHeight)
	assert.Equal(t, len(genesis.MustBlock().Commitments()), status.Commitments)
	assert.False(t, status.Empty)
	assert.False(t, status.Secondary)

	_, err = runCLI(t, []byte("peer-a\npeer-b\n"), "peers", "set", "--data-dir", dir)
	require.NoError(t, err)

	out, err = runCLI(t, nil, "peers", "get", "--data-dir", dir)
	require.NoError(t, err)
	assert.Equal(t, "peer-a\npeer-b\n", out)

	file := filepath.Join(t.TempDir(), "peers.bin")
	_, err = runCLI(t, nil, "peers", "get", "--data-dir", dir, "--file", file)
	require.NoError(t, err)
	saved, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Equal(t, []byte("peer-a\npeer-b\n"), saved)
}

func TestCLI_InitRefusesToWipeWithoutForce(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ledger")
	l, err := ledger.OpenAtPath(db.NewLevelDBProvider(), merkle.DefaultParameters(), dir)
	require.NoError(t, err)
	latest, err := l.LatestBlock()
	require.NoError(t, err)
	require.NoError(t, l.InsertBlock(block.AssembleBlock(latest.Hash(), 1, nil)))
	require.NoError(t, l.Close())

	_, err = runCLI(t, nil, "init", "--data-dir", dir)
	assert.Error(t, err)

	_, err = runCLI(t, nil, "init", "--data-dir", dir, "--force")
	require.NoError(t, err)
}

func TestCLI_CatchUp(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ledger")
	_, err := runCLI(t, nil, "init", "--data-dir", dir, "--store", "bbolt")
	require.NoError(t, err)

	out, err := runCLI(t, nil, "catchup", "--data-dir", dir, "--store", "bbolt", "--height", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "height 0 -> 3")
}

func TestCLI_SecondaryRejectedOnLevelDB(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ledger")
	_, err := runCLI(t, nil, "init", "--data-dir", dir)
	require.NoError(t, err)

	_, err = runCLI(t, nil, "catchup", "--data-dir", dir, "--height", "3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bbolt")

	_, err = runCLI(t, nil, "status", "--data-dir", dir, "--secondary")
	assert.Error(t, err)
}

func TestCLI_InvalidStore(t *testing.T) {
	_, err := runCLI(t, nil, "status", "--data-dir", t.TempDir(), "--store", "redis")
	assert.Error(t, err)
}

func TestServeMux(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "ledger")
	p := db.NewLevelDBProvider()
	params := merkle.DefaultParameters()

	primary, err := ledger.OpenAtPath(p, params, dir)
	require.NoError(t, err)
	defer primary.Close()
	sec, err := ledger.OpenSecondaryAtPath(p, params, dir)
	require.NoError(t, err)
	defer sec.Close()

	srv := httptest.NewServer(newServeMux(sec))
	defer srv.Close()

	latest, err := primary.LatestBlock()
	require.NoError(t, err)
	var c merkle.Commitment
	c[0] = 1
	require.NoError(t, primary.InsertBlock(block.AssembleBlock(latest.Hash(), 1, []block.Transaction{
		{NewCommitments: []merkle.Commitment{c}},
	})))

	resp, err := http.Post(srv.URL+"/catchup?height=1", "text/plain", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var status LedgerStatus
	require.NoError(t, jsonx.Unmarshal(readAll(t, resp.Body), &status))
	assert.True(t, status.Secondary)
	assert.Equal(t, uint32(1), status.BlockHeight)
	assert.Equal(t, common.EncodeHash32(primary.Digest()), status.Digest)

	resp, err = http.Post(srv.URL+"/catchup?height=abc", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/catchup?height=2")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/peers")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	body := string(readAll(t, resp.Body))
	resp.Body.Close()
	assert.True(t, strings.Contains(body, "ledgerstore_secondary_catch_up_count"))
}

func TestServeMux_CatchUpOnPrimary(t *testing.T) {
	l, err := ledger.NewEmpty(db.NewLevelDBProvider(), merkle.DefaultParameters(), nil)
	require.NoError(t, err)
	defer l.Close()

	srv := httptest.NewServer(newServeMux(l))
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/catchup?height=1", "text/plain", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func readAll(t *testing.T, r io.Reader) []byte {
	t.Helper()
	b, err := io.ReadAll(r)
	require.NoError(t, err)
	return b
}
