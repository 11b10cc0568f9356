package workflows

import (
	"bytes"
	"context"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/PolarWolf314/lastwill/internal/audit"
	"github.com/PolarWolf314/lastwill/internal/clock"
	"github.com/PolarWolf314/lastwill/internal/configs"
	lerrors "github.com/PolarWolf314/lastwill/internal/errors"
	logger "github.com/PolarWolf314/lastwill/internal/logging"
	"github.com/PolarWolf314/lastwill/internal/liveness"
)

type testEnv struct {
	common   Common
	clock    *clock.FakeClock
	settings configs.Settings
	out      *bytes.Buffer
	root     string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	t.Setenv("LASTWILL_PASSPHRASE", "correct horse battery staple")
	t.Setenv(configs.EnvConfig, "")

	root := t.TempDir()
	out := &bytes.Buffer{}
	te := &testEnv{
		clock: clock.Fake(time.Now()),
		out:   out,
		root:  root,
	}
	te.common = Common{
		ConfigPath: filepath.Join(root, "config", "config.toml"),
		Logger:     logger.Logger{Out: out, Err: out},
		Clock:      te.clock,
	}

	result, err := Init(context.Background(), InitOptions{
		Common:       te.common,
		UserID:       "alice@example.com",
		NomineeEmail: "bob@example.com",
		DataDir:      filepath.Join(root, "data"),
	})
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	te.settings = result.Settings
	return te
}

func (te *testEnv) writeSource(t *testing.T, size int) (string, []byte) {
	t.Helper()
	data := make([]byte, size)
	rand.New(rand.NewSource(int64(size))).Read(data)
	path := filepath.Join(te.root, "will.zip")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}
	return path, data
}

func (te *testEnv) auditOps(t *testing.T) []string {
	t.Helper()
	entries, err := audit.ReadEntries(te.settings.AuditPath)
	if err != nil {
		t.Fatal(err)
	}
	ops := make([]string, len(entries))
	for i, e := range entries {
		ops[i] = e.Operation
	}
	return ops
}

func TestInit(t *testing.T) {
	te := newTestEnv(t)

	for _, dir := range []string{te.settings.DataDir, te.settings.MapDir, te.settings.StorageDir, te.settings.WorkDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("%s not created: %v", dir, err)
		}
		if info.Mode().Perm() != 0700 {
			t.Errorf("%s mode = %o, want 0700", dir, info.Mode().Perm())
		}
	}
	if _, err := os.Stat(te.settings.HeartbeatPath); err != nil {
		t.Errorf("init did not record a heartbeat: %v", err)
	}

	_, err := Init(context.Background(), InitOptions{Common: te.common, UserID: "alice@example.com"})
	if !errors.Is(err, lerrors.ErrAlreadyInitialized) {
		t.Errorf("second Init() error = %v, want ErrAlreadyInitialized", err)
	}
	_, err = Init(context.Background(), InitOptions{Common: te.common, UserID: "carol", Force: true, DataDir: te.settings.DataDir})
	if err != nil {
		t.Errorf("forced Init() error = %v", err)
	}

	config, err := configs.Load(te.common.ConfigPath)
	if err != nil {
		t.Fatal(err)
	}
	if config.User.ID != "carol" {
		t.Errorf("forced Init() kept user %q", config.User.ID)
	}
}

func TestInit_RejectsInvalidOptions(t *testing.T) {
	root := t.TempDir()
	_, err := Init(context.Background(), InitOptions{
		Common:       Common{ConfigPath: filepath.Join(root, "config.toml")},
		UserID:       "alice",
		NomineeEmail: "not an address",
		DataDir:      filepath.Join(root, "data"),
	})
	if !errors.Is(err, lerrors.ErrInvalidConfig) {
		t.Errorf("Init() error = %v, want ErrInvalidConfig", err)
	}
	if _, err := os.Stat(filepath.Join(root, "config.toml")); !os.IsNotExist(err) {
		t.Error("invalid Init() wrote a configuration")
	}
}

func TestStoreRetrieve(t *testing.T) {
	te := newTestEnv(t)
	src, data := te.writeSource(t, 4096)
	ctx := context.Background()

	stored, err := Store(ctx, StoreOptions{Common: te.common, SourcePath: src})
	if err != nil {
		t.Fatalf("Store() error = %v", err)
	}
	if len(stored.Will.Fragments) != 3 {
		t.Errorf("Store() produced %d fragments, want 3 at depth 1", len(stored.Will.Fragments))
	}

	out := filepath.Join(te.root, "restored", "will.zip")
	got, err := Retrieve(ctx, RetrieveOptions{Common: te.common, OutputPath: out})
	if err != nil {
		t.Fatalf("Retrieve() error = %v", err)
	}
	restored, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(restored, data) {
		t.Error("retrieved will differs from the source")
	}
	if got.Digest != stored.Digest {
		t.Errorf("digests differ: stored %s, retrieved %s", stored.Digest, got.Digest)
	}

	if _, err := Retrieve(ctx, RetrieveOptions{Common: te.common, OutputPath: out}); !errors.Is(err, lerrors.ErrIO) {
		t.Errorf("Retrieve() over existing output error = %v, want ErrIO", err)
	}
	if _, err := os.Stat(te.settings.FlagPath); !os.IsNotExist(err) {
		t.Error("manual retrieve wrote the trigger flag")
	}

	ops := strings.Join(te.auditOps(t), ",")
	if ops != "init,store,retrieve" {
		t.Errorf("audit ops = %s", ops)
	}
}

func TestRetrieve_WrongPassphrase(t *testing.T) {
	te := newTestEnv(t)
	src, _ := te.writeSource(t, 1000)
	ctx := context.Background()

	if _, err := Store(ctx, StoreOptions{Common: te.common, SourcePath: src}); err != nil {
		t.Fatal(err)
	}
	t.Setenv("LASTWILL_PASSPHRASE", "")
	out := filepath.Join(te.root, "out.zip")
	_, err := Retrieve(ctx, RetrieveOptions{
		Common:     te.common,
		OutputPath: out,
		Passphrase: func() ([]byte, error) { return []byte("wrong"), nil },
	})
	if !errors.Is(err, lerrors.ErrCipher) {
		t.Errorf("Retrieve() error = %v, want ErrCipher", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("wrong key left an output file")
	}
}

func TestRetrieve_NothingStored(t *testing.T) {
	te := newTestEnv(t)
	_, err := Retrieve(context.Background(), RetrieveOptions{Common: te.common, OutputPath: filepath.Join(te.root, "out")})
	if !errors.Is(err, lerrors.ErrMapNotFound) {
		t.Errorf("Retrieve() error = %v, want ErrMapNotFound", err)
	}
}

func TestStore_MissingSource(t *testing.T) {
	te := newTestEnv(t)
	_, err := Store(context.Background(), StoreOptions{Common: te.common, SourcePath: filepath.Join(te.root, "nope")})
	if !errors.Is(err, lerrors.ErrSplit) {
		t.Errorf("Store() error = %v, want ErrSplit", err)
	}
}

func TestWorkflows_RequireConfig(t *testing.T) {
	common := Common{ConfigPath: filepath.Join(t.TempDir(), "missing.toml")}
	if _, err := Ping(context.Background(), PingOptions{Common: common}); !errors.Is(err, lerrors.ErrConfigNotFound) {
		t.Errorf("Ping() error = %v, want ErrConfigNotFound", err)
	}
}

func TestPingAndStatus(t *testing.T) {
	te := newTestEnv(t)
	ctx := context.Background()
	src, data := te.writeSource(t, 777)
	if _, err := Store(ctx, StoreOptions{Common: te.common, SourcePath: src}); err != nil {
		t.Fatal(err)
	}

	r, err := Status(ctx, StatusOptions{Common: te.common})
	if err != nil {
		t.Fatalf("Status() error = %v", err)
	}
	if r.Status != liveness.StatusSafe {
		t.Fatalf("Status() = %s, want SAFE", r.Status)
	}

	te.clock.Advance(300 * time.Hour)
	ping, err := Ping(ctx, PingOptions{Common: te.common})
	if err != nil {
		t.Fatalf("Ping() error = %v", err)
	}
	if ping.Previous.IsZero() || !ping.At.After(ping.Previous) {
		t.Errorf("Ping() = %+v, want a later heartbeat than the previous one", ping)
	}

	te.clock.Advance(300 * time.Hour)
	if r, _ := Status(ctx, StatusOptions{Common: te.common}); r.Status != liveness.StatusSafe {
		t.Fatalf("Status() after ping = %s, want SAFE", r.Status)
	}

	te.clock.Advance(37 * time.Hour)
	r, err = Status(ctx, StatusOptions{Common: te.common})
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != liveness.StatusExecuted || !r.Notified {
		t.Fatalf("Status() past grace = %+v, want EXECUTED and notified", r)
	}
	released, err := os.ReadFile(filepath.Join(te.settings.ReleaseDir, liveness.DefaultOutputName))
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(released, data) {
		t.Error("released will differs from the source")
	}
	if !strings.Contains(te.out.String(), "Simulated email to bob@example.com") {
		t.Errorf("nominee not notified, log:\n%s", te.out.String())
	}

	if r, _ := Status(ctx, StatusOptions{Common: te.common}); r.Status != liveness.StatusAlreadyExecuted {
		t.Errorf("second Status() = %s, want ALREADY_EXECUTED", r.Status)
	}

	var releases int
	for _, op := range te.auditOps(t) {
		if op == "release" {
			releases++
		}
	}
	if releases != 1 {
		t.Errorf("audit recorded %d releases, want 1", releases)
	}
}

func TestWatch_StopsAfterRelease(t *testing.T) {
	te := newTestEnv(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	src, _ := te.writeSource(t, 300)
	if _, err := Store(ctx, StoreOptions{Common: te.common, SourcePath: src}); err != nil {
		t.Fatal(err)
	}
	te.clock.Advance(400 * time.Hour)

	var seen []liveness.Status
	result, err := Watch(ctx, WatchOptions{
		Common:   te.common,
		Interval: time.Millisecond,
		Report:   func(r liveness.Result) { seen = append(seen, r.Status) },
	})
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if result.Last.Status != liveness.StatusExecuted || result.Checks != 1 {
		t.Errorf("Watch() = %+v, want one EXECUTED check", result)
	}
	if len(seen) != 1 {
		t.Errorf("Report saw %v", seen)
	}
}

func TestWatch_CancelIsNotAnError(t *testing.T) {
	te := newTestEnv(t)
	ctx, cancel := context.WithCancel(context.Background())

	result, err := Watch(ctx, WatchOptions{
		Common:   te.common,
		Interval: time.Millisecond,
		Report: func(r liveness.Result) {
			if r.Status == liveness.StatusNoData || r.Status == liveness.StatusSafe {
				cancel()
			}
		},
	})
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}
	if result.Checks == 0 {
		t.Error("Watch() made no checks")
	}
}

func TestPurge(t *testing.T) {
	te := newTestEnv(t)
	ctx := context.Background()
	src, _ := te.writeSource(t, 900)
	if _, err := Store(ctx, StoreOptions{Common: te.common, SourcePath: src}); err != nil {
		t.Fatal(err)
	}

	dry, err := Purge(ctx, PurgeOptions{Common: te.common, DryRun: true})
	if err != nil {
		t.Fatalf("dry-run Purge() error = %v", err)
	}
	if dry.Fragments != 3 || len(dry.Maps) != 1 {
		t.Errorf("dry-run Purge() = %+v", dry)
	}
	if entries, _ := os.ReadDir(te.settings.StorageDir); len(entries) != 3 {
		t.Fatalf("dry run removed fragments, %d left", len(entries))
	}

	if _, err := Purge(ctx, PurgeOptions{Common: te.common}); err != nil {
		t.Fatalf("Purge() error = %v", err)
	}
	if entries, _ := os.ReadDir(te.settings.StorageDir); len(entries) != 0 {
		t.Errorf("%d fragments left after purge", len(entries))
	}
	if entries, _ := os.ReadDir(te.settings.MapDir); len(entries) != 0 {
		t.Errorf("%d maps left after purge", len(entries))
	}
	if _, err := Purge(ctx, PurgeOptions{Common: te.common}); !errors.Is(err, lerrors.ErrMapNotFound) {
		t.Errorf("Purge() with nothing stored error = %v, want ErrMapNotFound", err)
	}
}

func TestLog(t *testing.T) {
	te := newTestEnv(t)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := Ping(ctx, PingOptions{Common: te.common}); err != nil {
			t.Fatal(err)
		}
	}

	all, err := Log(ctx, LogOptions{Common: te.common})
	if err != nil {
		t.Fatalf("Log() error = %v", err)
	}
	if all.TotalEntriesBeforeFilter != 4 {
		t.Errorf("TotalEntriesBeforeFilter = %d, want 4", all.TotalEntriesBeforeFilter)
	}

	pings, err := Log(ctx, LogOptions{Common: te.common, Operations: "ping", Limit: 2, Reverse: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(pings.Entries) != 2 {
		t.Errorf("filtered Log() returned %d entries, want 2", len(pings.Entries))
	}

	future := time.Now().AddDate(1, 0, 0).Format("2006-01-02")
	none, err := Log(ctx, LogOptions{Common: te.common, Since: future})
	if err != nil {
		t.Fatal(err)
	}
	if len(none.Entries) != 0 {
		t.Errorf("Log(since %s) returned %d entries", future, len(none.Entries))
	}

	if _, err := Log(ctx, LogOptions{Common: te.common, Until: "yesterday"}); !errors.Is(err, lerrors.ErrInvalidDateFormat) {
		t.Errorf("Log() with bad date error = %v, want ErrInvalidDateFormat", err)
	}

	if err := os.Remove(te.settings.AuditPath); err != nil {
		t.Fatal(err)
	}
	if _, err := Log(ctx, LogOptions{Common: te.common}); !errors.Is(err, lerrors.ErrNoAuditLog) {
		t.Errorf("Log() without a log error = %v, want ErrNoAuditLog", err)
	}
}

func TestFormatDetails(t *testing.T) {
	tests := []struct {
		entry   audit.Entry
		want    string
		oneline string
	}{
		{audit.Entry{Operation: "store", Source: "/w.zip", Fragments: 3, Digest: "0123456789abcdef"}, "/w.zip, 3 fragments, blake3 0123456789ab", "3 fragments"},
		{audit.Entry{Operation: "release", Status: "EXECUTED", Locator: "http://x/download/p"}, "http://x/download/p (EXECUTED)", "EXECUTED"},
		{audit.Entry{Operation: "clean", Removed: 2}, "removed 2 entries", "removed 2"},
		{audit.Entry{Operation: "ping"}, "", ""},
	}
	for _, tt := range tests {
		if got := FormatDetails(tt.entry); got != tt.want {
			t.Errorf("FormatDetails(%s) = %q, want %q", tt.entry.Operation, got, tt.want)
		}
		if got := FormatDetailsOneline(tt.entry); got != tt.oneline {
			t.Errorf("FormatDetailsOneline(%s) = %q, want %q", tt.entry.Operation, got, tt.oneline)
		}
	}
}

func TestFormatDate(t *testing.T) {
	ts := "2026-03-04T05:06:07.000000Z"
	if got := FormatDate(ts); got != "2026-03-04" {
		t.Errorf("FormatDate() = %q", got)
	}
	if got := FormatDateTime(ts); got != "2026-03-04 05:06:07" {
		t.Errorf("FormatDateTime() = %q", got)
	}
	if got := FormatDate("garbage"); got != "garbage" {
		t.Errorf("FormatDate(garbage) = %q", got)
	}
}
