// Copyright 2024 DBSpaces Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package integration exercises the whole pipeline the way the CLI does:
// scripted report output feeds the parser and read model, and the lifecycle
// operations run against a real temporary filesystem. Only the privileged
// engine utilities are faked.
package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jakesalomon/DBSpaces/internal/config"
)

const testServer = "js_server"

// scriptedRunner serves canned output for the report-capturing commands and
// accepts every space-management command, recording all invocations.
type scriptedRunner struct {
	outputs map[string]string
	calls   []string
}

func (r *scriptedRunner) Run(_ context.Context, name string, args ...string) (string, error) {
	cmd := strings.Join(append([]string{name}, args...), " ")
	r.calls = append(r.calls, cmd)
	if out, ok := r.outputs[cmd]; ok {
		return out, nil
	}
	if name == "onspaces" {
		return "", nil
	}
	return "", fmt.Errorf("unscripted command: %s", cmd)
}

func (r *scriptedRunner) spacesCalls() []string {
	var out []string
	for _, c := range r.calls {
		if strings.HasPrefix(c, "onspaces ") {
			out = append(out, c)
		}
	}
	return out
}

func spaceRow(addr string, number int, hexFlags string, fchunk, nchunks, pgsize int, charFlags, owner, name string) string {
	return fmt.Sprintf("%-17s%-9d%-11s%-9d%-9d%-9d%-9s%-9s%s",
		addr, number, hexFlags, fchunk, nchunks, pgsize, charFlags, owner, name)
}

func chunkRow(addr string, chunk, dbs int, offset, size, free int64, bpages, charFlags, path string) string {
	return fmt.Sprintf("%-17s%-7d%-7d%-11d%-9d%-9d%-11s%-6s%s",
		addr, chunk, dbs, offset, size, free, bpages, charFlags, path)
}

// testEnv is one simulated server: a rootdbs holding the logical logs and a
// two-chunk data_dbs, with the raw files and symlinks laid out for real.
type testEnv struct {
	root    string
	linkDir string
	primDir string
	mirrDir string
	runner  *scriptedRunner
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{root: t.TempDir()}
	env.linkDir = filepath.Join(env.root, "links")
	env.primDir = filepath.Join(env.root, "primary", "files")
	env.mirrDir = filepath.Join(env.root, "mirror", "files")
	for _, dir := range []string{env.linkDir, env.primDir, env.mirrDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create %s: %v", dir, err)
		}
	}

	type chunkFile struct {
		raw  string
		link string
		data string
	}
	files := []chunkFile{
		{"file.00001", testServer + ".rootdbs.P.001", "root chunk"},
		{"file.00006", testServer + ".data_dbs.P.001", "first data chunk"},
		{"file.00011", testServer + ".data_dbs.P.002", "second data chunk"},
	}
	links := make([]string, len(files))
	for i, f := range files {
		raw := filepath.Join(env.primDir, f.raw)
		link := filepath.Join(env.linkDir, f.link)
		if err := os.WriteFile(raw, []byte(f.data), 0660); err != nil {
			t.Fatalf("Failed to write %s: %v", raw, err)
		}
		if err := os.Symlink(raw, link); err != nil {
			t.Fatalf("Failed to link %s: %v", link, err)
		}
		links[i] = link
	}

	banner := "IBM Informix Dynamic Server Version 12.10.FC12 -- On-Line -- Up 3 days"
	summary := strings.Join([]string{
		"Dbspaces",
		"address          number   flags      fchunk   nchunks  pgsize   flags    owner    name",
		spaceRow("44d39028", 1, "0x60001", 1, 1, 2048, "N   A", "informix", "rootdbs"),
		spaceRow("44ef4e28", 3, "0x60001", 6, 2, 2048, "N   A", "informix", "data_dbs"),
		" 2 active, 2047 maximum",
		"",
		"Chunks",
		"address          chunk/dbs     offset     size     free     bpages     flags pathname",
		chunkRow("44d39268", 1, 1, 0, 150000, 97333, "", "PO----", links[0]),
		chunkRow("44d394c0", 6, 3, 0, 25600, 20000, "", "PO----", links[1]),
		chunkRow("44d39718", 11, 3, 0, 25600, 25600, "", "PO----", links[2]),
		" 3 active, 32766 maximum",
	}, "\n")
	order := strings.Join([]string{
		"Validating chunk reserved pages...",
		"address          chunk    dbspace  offset     size       next",
		"44d3a010         1        1        0          150000",
		"44d3a1c8         6        3        0          25600      11",
		"44d3a380         11       3        0          25600      0",
	}, "\n")
	logs := strings.Join([]string{
		"Logical Logging",
		"address          number   flags    uniqid   begin        size     used    %used",
		"44d60e28         1        U-B----  101      1:263        2500     2500    100.00",
		"44d60e90         2        U---C-L  102      1:2763       2500     740      29.60",
	}, "\n")

	env.runner = &scriptedRunner{outputs: map[string]string{
		"onstat -":         banner,
		"onstat -d":        summary,
		"onstat -d update": summary,
		"oncheck -pr":      order,
		"onstat -l":        logs,
	}}
	return env
}

func (env *testEnv) config() *config.Config {
	cfg := config.Default()
	cfg.SymlinkPath = env.linkDir
	cfg.SymlinkSubPath = ""
	cfg.PrimaryPath = filepath.Join(env.root, "primary")
	cfg.MirrorPath = filepath.Join(env.root, "mirror")
	return cfg
}
