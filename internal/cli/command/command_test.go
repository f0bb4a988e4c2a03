package command

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/yndnr/boardmesh-go/internal/cli/config"
	"github.com/yndnr/boardmesh-go/internal/core/domain"
	"github.com/yndnr/boardmesh-go/internal/core/service"
	serverconfig "github.com/yndnr/boardmesh-go/internal/server/config"
	"github.com/yndnr/boardmesh-go/internal/server/httpserver/handler"
	"github.com/yndnr/boardmesh-go/internal/storage"
	"github.com/yndnr/boardmesh-go/internal/storage/snapshot"
	"github.com/yndnr/boardmesh-go/internal/telemetry/logger"
)

type testServer struct {
	*httptest.Server
	registry *service.Registry
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	backend, err := snapshot.NewManager(snapshot.Config{Dir: t.TempDir(), Logger: logger.Discard()})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	scfg := service.DefaultConfig()
	scfg.Logger = logger.Discard()
	registry := service.NewRegistry(backend, storage.NewScheduler(storage.SchedulerConfig{Logger: logger.Discard()}), scfg)

	cfg := serverconfig.Default()
	cfg.Web.Root = ""
	h := handler.New(handler.Options{
		Registry: registry,
		Config:   func() *serverconfig.ServerConfig { return cfg },
		Logger:   logger.Discard(),
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, registry: registry}
}

type runResult struct {
	stdout string
	stderr string
	err    error
}

// run executes the CLI with a private config file.
func run(t *testing.T, cfgPath string, stdin string, args ...string) runResult {
	t.Helper()
	var out, errOut bytes.Buffer
	app := App()
	app.Writer = &out
	app.ErrWriter = &errOut
	app.Reader = strings.NewReader(stdin)
	err := app.Run(append([]string{"boardmesh-cli", "--config", cfgPath}, args...))
	return runResult{stdout: out.String(), stderr: errOut.String(), err: err}
}

func tempConfig(t *testing.T) string {
	return filepath.Join(t.TempDir(), "cli.yaml")
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func boardElements(t *testing.T, srv *testServer, board string) int {
	t.Helper()
	st, err := srv.registry.BoardStats(context.Background(), board)
	if err != nil {
		return -1
	}
	return st.Elements
}

func TestApp_Commands(t *testing.T) {
	app := App()
	names := make(map[string]bool)
	for _, c := range app.Commands {
		names[c.Name] = true
	}
	for _, want := range []string{"connect", "disconnect", "connections", "boards", "export", "watch", "draw", "discover", "system", "config", "version"} {
		if !names[want] {
			t.Errorf("missing command %q", want)
		}
	}
}

func TestConnect_SavesAndSwitches(t *testing.T) {
	srv := newTestServer(t)
	cfgPath := tempConfig(t)

	res := run(t, cfgPath, "", "connect", "--name", "local", srv.URL)
	if res.err != nil {
		t.Fatalf("connect: %v (%s)", res.err, res.stderr)
	}
	if !strings.Contains(res.stdout, `saved as "local"`) {
		t.Errorf("stdout = %q", res.stdout)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CurrentConnection != "local" || cfg.Connections["local"].Server != srv.URL {
		t.Fatalf("saved config = %+v", cfg)
	}

	// Without --server the saved connection is used.
	res = run(t, cfgPath, "", "system", "health")
	if res.err != nil || !strings.Contains(res.stdout, srv.URL) {
		t.Errorf("health via saved connection: %v %q", res.err, res.stdout)
	}

	res = run(t, cfgPath, "", "-o", "json", "connections", "list")
	var rows []connectionRow
	if err := json.Unmarshal([]byte(res.stdout), &rows); err != nil {
		t.Fatalf("list output %q: %v", res.stdout, err)
	}
	if len(rows) != 1 || !rows[0].Current || rows[0].Name != "local" {
		t.Errorf("rows = %+v", rows)
	}

	if res := run(t, cfgPath, "", "disconnect"); res.err != nil {
		t.Fatal(res.err)
	}
	if res := run(t, cfgPath, "", "connections", "use", "local"); res.err != nil {
		t.Fatal(res.err)
	}
	if res := run(t, cfgPath, "", "connections", "remove", "local"); res.err != nil {
		t.Fatal(res.err)
	}
	cfg, _ = config.Load(cfgPath)
	if len(cfg.Connections) != 0 || cfg.CurrentConnection != "" {
		t.Errorf("config after remove = %+v", cfg)
	}
	if res := run(t, cfgPath, "", "connections", "use", "local"); res.err == nil {
		t.Error("use of a removed connection succeeded")
	}
}

func TestConnect_UnreachableServer(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	res := run(t, tempConfig(t), "", "connect", url)
	if res.err == nil {
		t.Fatal("connect to a closed server succeeded")
	}
}

func TestDraw_SingleShotAndBoards(t *testing.T) {
	srv := newTestServer(t)
	cfgPath := tempConfig(t)

	res := run(t, cfgPath, "", "--server", srv.URL, "draw", "demo", "rect", "10", "20", "110", "220")
	if res.err != nil {
		t.Fatalf("draw: %v (%s)", res.err, res.stderr)
	}
	id := strings.TrimSpace(res.stdout)
	if !strings.HasPrefix(id, domain.RectPrefix) {
		t.Fatalf("draw printed %q, want a rect id", id)
	}
	waitFor(t, "rect on the server", func() bool { return boardElements(t, srv, "demo") == 1 })

	res = run(t, cfgPath, "", "--server", srv.URL, "-o", "json", "boards", "list")
	if res.err != nil {
		t.Fatal(res.err)
	}
	var rows []boardRow
	if err := json.Unmarshal([]byte(res.stdout), &rows); err != nil {
		t.Fatalf("boards list output %q: %v", res.stdout, err)
	}
	if len(rows) != 1 || rows[0].Name != "demo" || !rows[0].Resident || rows[0].Elements != 1 {
		t.Errorf("rows = %+v", rows)
	}

	res = run(t, cfgPath, "", "--server", srv.URL, "-o", "json", "boards", "show", "demo")
	var stats service.BoardStats
	if err := json.Unmarshal([]byte(res.stdout), &stats); err != nil {
		t.Fatalf("boards show output %q: %v", res.stdout, err)
	}
	if stats.Elements != 1 {
		t.Errorf("stats = %+v", stats)
	}

	if res := run(t, cfgPath, "", "--server", srv.URL, "boards", "show", "missing"); res.err == nil {
		t.Error("show of a missing board succeeded")
	}
}

func TestDraw_Interactive(t *testing.T) {
	srv := newTestServer(t)
	cfgPath := tempConfig(t)
	history := filepath.Join(t.TempDir(), "history")

	input := "color #ff0000\nsize 8\nrect 0 0 50 50\nline 0 0 10 10 20 20\nlist\nbogus\nexit\n"
	res := run(t, cfgPath, input, "--server", srv.URL, "-o", "json", "draw", "--history", history, "demo")
	if res.err != nil {
		t.Fatalf("draw: %v (%s)", res.err, res.stderr)
	}
	if !strings.Contains(res.stdout, `unknown command "bogus"`) {
		t.Errorf("unknown command not reported: %q", res.stdout)
	}
	if !strings.Contains(res.stdout, `"color": "#ff0000"`) {
		t.Errorf("list did not show the styled elements: %q", res.stdout)
	}
	waitFor(t, "both elements on the server", func() bool { return boardElements(t, srv, "demo") == 2 })

	b, err := srv.registry.Lookup(context.Background(), "demo")
	if err != nil {
		t.Fatal(err)
	}
	waitFor(t, "three line points", func() bool {
		for _, e := range b.Elements() {
			if e.Type == domain.TypeLine {
				return len(e.Children) == 3
			}
		}
		return false
	})
	if _, err := os.Stat(history); err != nil {
		t.Errorf("history not saved: %v", err)
	}
}

func TestDraw_MoveAndErase(t *testing.T) {
	srv := newTestServer(t)
	cfgPath := tempConfig(t)

	res := run(t, cfgPath, "", "--server", srv.URL, "draw", "demo", "rect", "0", "0", "10", "10")
	if res.err != nil {
		t.Fatal(res.err)
	}
	id := strings.TrimSpace(res.stdout)
	waitFor(t, "rect", func() bool { return boardElements(t, srv, "demo") == 1 })

	if res := run(t, cfgPath, "", "--server", srv.URL, "draw", "demo", "move", id, "5", "7"); res.err != nil {
		t.Fatalf("move: %v", res.err)
	}
	b, _ := srv.registry.Lookup(context.Background(), "demo")
	waitFor(t, "move", func() bool {
		e, ok := b.Store().Get(id)
		return ok && e.DeltaX.Float(0) == 5 && e.DeltaY.Float(0) == 7
	})

	if res := run(t, cfgPath, "", "--server", srv.URL, "draw", "demo", "erase", "nope"); res.err == nil {
		t.Error("erase of a missing element succeeded")
	}
	if res := run(t, cfgPath, "", "--server", srv.URL, "draw", "demo", "erase", id); res.err != nil {
		t.Fatalf("erase: %v", res.err)
	}
	waitFor(t, "erase", func() bool { return boardElements(t, srv, "demo") == 0 })
}

func TestDraw_RejectsBadInput(t *testing.T) {
	srv := newTestServer(t)
	tests := [][]string{
		{"draw", "demo", "rect", "1", "2"},
		{"draw", "demo", "line", "1", "2", "3"},
		{"draw", "--color", "red", "demo", "list"},
		{"draw", "--size", "0", "demo", "list"},
		{"draw", "", "list"},
	}
	for _, args := range tests {
		t.Run(strings.Join(args, " "), func(t *testing.T) {
			res := run(t, tempConfig(t), "", append([]string{"--server", srv.URL}, args...)...)
			if res.err == nil {
				t.Errorf("accepted: %q", res.stdout)
			}
		})
	}
}

func TestExport(t *testing.T) {
	srv := newTestServer(t)
	cfgPath := tempConfig(t)
	if res := run(t, cfgPath, "", "--server", srv.URL, "draw", "demo", "line", "0", "0", "100", "100"); res.err != nil {
		t.Fatal(res.err)
	}
	waitFor(t, "line", func() bool { return boardElements(t, srv, "demo") == 1 })

	dir := t.TempDir()
	jsonOut := filepath.Join(dir, "demo.json")
	res := run(t, cfgPath, "", "--server", srv.URL, "export", "--out", jsonOut, "demo")
	if res.err != nil {
		t.Fatalf("export json: %v", res.err)
	}
	data, err := os.ReadFile(jsonOut)
	if err != nil {
		t.Fatal(err)
	}
	elements, dropped, err := snapshot.Decode(data, domain.DefaultLimits())
	if err != nil || dropped != 0 || len(elements) != 1 {
		t.Errorf("exported snapshot: %d elements, %d dropped, err %v", len(elements), dropped, err)
	}
	if !strings.Contains(res.stderr, "Downloading demo") {
		t.Errorf("no progress on stderr: %q", res.stderr)
	}

	for _, local := range []bool{false, true} {
		args := []string{"--server", srv.URL, "export", "--format", "pdf", "--orientation", "L", "--out", "-"}
		if local {
			args = append(args, "--local")
		}
		res := run(t, cfgPath, "", append(args, "demo")...)
		if res.err != nil {
			t.Fatalf("export pdf local=%v: %v", local, res.err)
		}
		if !strings.HasPrefix(res.stdout, "%PDF") {
			t.Errorf("local=%v: output is not a PDF: %.20q", local, res.stdout)
		}
	}

	if res := run(t, cfgPath, "", "--server", srv.URL, "export", "--format", "png", "demo"); res.err == nil {
		t.Error("unknown format accepted")
	}
	if res := run(t, cfgPath, "", "--server", srv.URL, "export", "--out", "-", "missing"); res.err == nil {
		t.Error("export of a missing board succeeded")
	}
}

func TestWatch_PrintsReplayAndMessages(t *testing.T) {
	srv := newTestServer(t)
	cfgPath := tempConfig(t)
	if res := run(t, cfgPath, "", "--server", srv.URL, "draw", "demo", "rect", "0", "0", "5", "5"); res.err != nil {
		t.Fatal(res.err)
	}
	participants := func() int {
		st, _ := srv.registry.BoardStats(context.Background(), "demo")
		return st.Participants
	}
	waitFor(t, "rect", func() bool { return boardElements(t, srv, "demo") == 1 })
	waitFor(t, "drawer to leave", func() bool { return participants() == 0 })

	done := make(chan runResult, 1)
	go func() {
		done <- run(t, cfgPath, "", "--server", srv.URL, "watch", "--duration", "1s", "demo")
	}()
	waitFor(t, "watcher", func() bool { return participants() == 1 })
	if res := run(t, cfgPath, "", "--server", srv.URL, "draw", "demo", "rect", "1", "1", "2", "2"); res.err != nil {
		t.Fatal(res.err)
	}

	res := <-done
	if res.err != nil {
		t.Fatalf("watch: %v", res.err)
	}
	if !strings.Contains(res.stdout, "replay 1 elements") {
		t.Errorf("no replay line: %q", res.stdout)
	}
	if !strings.Contains(res.stdout, "Rectangle rect") {
		t.Errorf("no rect line: %q", res.stdout)
	}
}

func TestSystem(t *testing.T) {
	srv := newTestServer(t)
	cfgPath := tempConfig(t)

	res := run(t, cfgPath, "", "--server", srv.URL, "system", "ready")
	if res.err != nil || !strings.Contains(res.stdout, "Server is ready") {
		t.Errorf("ready: %v %q", res.err, res.stdout)
	}

	res = run(t, cfgPath, "", "--server", srv.URL, "-o", "json", "system", "health")
	var p probeResult
	if err := json.Unmarshal([]byte(res.stdout), &p); err != nil || p.Status != "healthy" {
		t.Errorf("health json %q: %v", res.stdout, err)
	}

	res = run(t, cfgPath, "", "--server", srv.URL, "-o", "json", "system", "config")
	if res.err != nil || !strings.Contains(res.stdout, "MAX_EMIT_COUNT") || !strings.Contains(res.stdout, `"storage"`) {
		t.Errorf("system config: %v %q", res.err, res.stdout)
	}

	closed := httptest.NewServer(nil)
	closed.Close()
	res = run(t, cfgPath, "", "--server", closed.URL, "system", "health")
	if res.err == nil || !strings.Contains(res.stderr, "health check failed") {
		t.Errorf("health of a closed server: %v %q", res.err, res.stderr)
	}
}

func TestConfig_CLI(t *testing.T) {
	cfgPath := tempConfig(t)
	if res := run(t, cfgPath, "", "config", "cli", "validate"); res.err != nil {
		t.Errorf("default config invalid: %v %q", res.err, res.stdout)
	}

	bad := "default_server: \"\"\ndefault_output: xml\n"
	if err := os.WriteFile(cfgPath, []byte(bad), 0600); err != nil {
		t.Fatal(err)
	}
	res := run(t, cfgPath, "", "config", "cli", "validate")
	if res.err == nil {
		t.Fatal("invalid config accepted")
	}
	if !strings.Contains(res.stdout, "default_server is empty") || !strings.Contains(res.stdout, `default_output "xml"`) {
		t.Errorf("problems not listed: %q", res.stdout)
	}

	res = run(t, tempConfig(t), "", "-o", "yaml", "config", "cli", "show")
	if res.err != nil || !strings.Contains(res.stdout, "default_output: table") {
		t.Errorf("show: %v %q", res.err, res.stdout)
	}
}

func TestConfig_Server(t *testing.T) {
	srv := newTestServer(t)
	cfgPath := tempConfig(t)

	res := run(t, cfgPath, "", "--server", srv.URL, "-o", "json", "config", "server", "client")
	if res.err != nil || !strings.Contains(res.stdout, "MAX_EMIT_COUNT") {
		t.Errorf("client config: %v %q", res.err, res.stdout)
	}
	res = run(t, cfgPath, "", "--server", srv.URL, "-o", "json", "config", "server", "show")
	if res.err != nil || !strings.Contains(res.stdout, "storage") {
		t.Errorf("server config: %v %q", res.err, res.stdout)
	}

	dir := t.TempDir()
	good := filepath.Join(dir, "good.yaml")
	os.WriteFile(good, []byte("storage:\n  history_dir: "+filepath.Join(dir, "data")+"\nserver:\n  http:\n    port: 9000\n"), 0600)
	if res := run(t, cfgPath, "", "config", "server", "test", good); res.err != nil {
		t.Errorf("good server config rejected: %v", res.err)
	}

	bad := filepath.Join(dir, "bad.yaml")
	os.WriteFile(bad, []byte("storage:\n  backend: redis\n"), 0600)
	res = run(t, cfgPath, "", "config", "server", "test", bad)
	if res.err == nil || !strings.Contains(res.err.Error(), "storage.backend") {
		t.Errorf("bad server config: %v", res.err)
	}

	t.Setenv("WBO_MAX_ITEM_COUNT", "0")
	if res := run(t, cfgPath, "", "config", "server", "test", good); res.err != nil {
		t.Errorf("environment applied without --with-env: %v", res.err)
	}
	res = run(t, cfgPath, "", "config", "server", "test", "--with-env", good)
	if res.err == nil || !strings.Contains(res.err.Error(), "max_item_count") {
		t.Errorf("--with-env: %v", res.err)
	}
}

func TestVersion(t *testing.T) {
	res := run(t, tempConfig(t), "", "-o", "json", "version")
	if res.err != nil {
		t.Fatal(res.err)
	}
	var info map[string]any
	if err := json.Unmarshal([]byte(res.stdout), &info); err != nil {
		t.Fatalf("version output %q: %v", res.stdout, err)
	}
	if info["version"] == "" || info["platform"] == "" {
		t.Errorf("info = %v", info)
	}
}

func TestMergeBoards(t *testing.T) {
	rows := mergeBoards(
		[]service.BoardStats{{Name: "b", Elements: 3, Participants: 1}},
		[]snapshot.Info{{Board: "a", Size: 2048}, {Board: "b", Size: 10}},
	)
	if len(rows) != 2 || rows[0].Name != "a" || rows[1].Name != "b" {
		t.Fatalf("rows = %+v", rows)
	}
	if rows[0].Resident || rows[0].Size != 2048 {
		t.Errorf("persisted-only row = %+v", rows[0])
	}
	if !rows[1].Resident || rows[1].Elements != 3 || rows[1].Size != 10 {
		t.Errorf("merged row = %+v", rows[1])
	}
}
