package fetch

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"

	"github.com/vbp1/datafetch/internal/dbconn"
	"github.com/vbp1/datafetch/internal/dump"
	"github.com/vbp1/datafetch/internal/filesync"
	"github.com/vbp1/datafetch/internal/process"
	"github.com/vbp1/datafetch/internal/process/processtest"
	"github.com/vbp1/datafetch/internal/remote"
	"github.com/vbp1/datafetch/internal/runctx"
	"github.com/vbp1/datafetch/internal/transfer"
)

const (
	dumpHead = "-- MySQL dump 10.13  Distrib 8.0.36, for Linux (x86_64)\n"
	dumpTail = "-- Dump completed on 2024-03-01 12:34:56\n"
	syncOut  = " 3 files...\r" +
		"logo.txt\n        12 100%    0.00kB/s    0:00:00 (xfr#1, to-chk=0/3)\n" +
		"\nNumber of files: 3 (reg: 2, dir: 1)\nNumber of regular files transferred: 1\nTotal bytes received: 120\n"
)

// remoteHost plays the web host: the export entry point runs the real
// exporter in the current directory, rsync copies what the exporter wrote.
func remoteHost(t *testing.T) *processtest.Fake {
	mysqldump := &processtest.Fake{Handler: func(c process.Cmd) processtest.Response {
		return processtest.Response{Do: func(c process.Cmd) {
			path := strings.TrimPrefix(c.Args[len(c.Args)-1], "--result-file=")
			if err := os.WriteFile(path, []byte(dumpHead+"CREATE TABLE products (id int);\n"+dumpTail), 0o644); err != nil {
				t.Errorf("write dump: %v", err)
			}
		}}
	}}
	exporter := &dump.Exporter{Runner: mysqldump, Dir: "var/cache", Now: func() time.Time { return time.Unix(1_700_000_000, 0) }}
	live := dbconn.Descriptor{Host: "localhost", User: "app", Database: "shop"}

	return &processtest.Fake{Handler: func(c process.Cmd) processtest.Response {
		last := c.Args[len(c.Args)-1]
		switch c.Name {
		case "ssh":
			if !strings.Contains(last, "'export'") {
				return processtest.Response{}
			}
			var out bytes.Buffer
			if _, err := exporter.Export(context.Background(), live, dump.StagedFile, &out); err != nil {
				return processtest.Response{Stderr: []byte(err.Error()), ExitCode: 2}
			}
			return processtest.Response{Chunks: [][]byte{out.Bytes()}}
		case "rsync":
			src := strings.TrimPrefix(c.Args[len(c.Args)-2], "deploy@web1:")
			dst := strings.TrimSuffix(last, "/")
			if !strings.HasSuffix(src, ".sql") {
				return processtest.Response{Chunks: [][]byte{[]byte(syncOut)}}
			}
			data, err := os.ReadFile(src)
			if err != nil {
				return processtest.Response{Stderr: []byte(err.Error()), ExitCode: 23}
			}
			if err := os.WriteFile(filepath.Join(dst, filepath.Base(src)), data, 0o644); err != nil {
				t.Errorf("copy dump: %v", err)
			}
			return processtest.Response{Chunks: [][]byte{[]byte(filepath.Base(src) + "\n        120 100%    1.00MB/s    0:00:00 (xfr#1, to-chk=0/1)\n")}}
		}
		return processtest.Response{}
	}}
}

func TestStagedFetchAndFolders(t *testing.T) {
	color.NoColor = true
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	appDir := t.TempDir()
	if err := os.Chdir(appDir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	staging, err := runctx.New(t.TempDir())
	if err != nil {
		t.Fatalf("staging: %v", err)
	}
	defer func() { _ = staging.Release() }()

	fake := remoteHost(t)
	target := remote.Target{Host: "web1", User: "deploy", Dir: appDir}
	db := &transfer.Coordinator{
		Target:   target,
		Shell:    remote.Invoker{Runner: fake},
		Runner:   fake,
		Resolver: dbconn.Static(dbconn.Descriptor{Host: "localhost", User: "root", Database: "shop_dev"}),
		Staging:  staging,
		Mode:     dump.StagedFile,
	}
	files := &filesync.Coordinator{Target: target, Runner: fake, Options: []string{"-a"}}

	local := t.TempDir()
	folders := []filesync.Mapping{
		filesync.NewMapping("web/media", filepath.Join(local, "web")),
		filesync.NewMapping("web/uploads", filepath.Join(local, "web")),
	}
	o := New(&Config{Folders: folders, Out: &bytes.Buffer{}}, db, files)
	if err := o.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}

	dbState, fileState := states(o)
	if dbState != Succeeded || fileState != Succeeded {
		t.Fatalf("states db=%s files=%s", dbState, fileState)
	}
	if _, err := os.Stat(staging.Path("db-dump-1700000000.sql")); !os.IsNotExist(err) {
		t.Fatalf("staging file should be removed after import")
	}
	if n := len(fake.CallsTo("mysql")); n != 1 {
		t.Fatalf("expected one import, got %d", n)
	}
	var folderPulls int
	for _, c := range fake.CallsTo("rsync") {
		if !strings.HasSuffix(c.Cmd.Args[len(c.Cmd.Args)-2], ".sql") {
			folderPulls++
		}
	}
	if folderPulls != len(folders) {
		t.Fatalf("expected %d folder pulls, got %d", len(folders), folderPulls)
	}
}
