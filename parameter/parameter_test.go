package parameter

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// skeletonContent mimics the output of force-parameter: comments, a header and one line per option
func skeletonContent() string {
	b := strings.Builder{}
	b.WriteString("++PARAM_LEVEL2_START++\n\n# INPUT/OUTPUT DIRECTORIES\n")
	for _, o := range Options {
		fmt.Fprintf(&b, "# %s option\n%s = %s\n", o.Name, o.Name, o.Default)
	}
	b.WriteString("\n++PARAM_LEVEL2_END++\n")
	return b.String()
}

// fakeGenerator writes the skeleton in paramDir and counts the calls
type fakeGenerator struct {
	calls int
	err   error
}

func (g *fakeGenerator) Skeleton(ctx context.Context, paramDir string) (string, error) {
	g.calls++
	if g.err != nil {
		return "", g.err
	}
	skeleton := filepath.Join(paramDir, SkeletonName)
	return skeleton, os.WriteFile(skeleton, []byte(skeletonContent()), 0644)
}

func diffLines(a, b string) []string {
	la, lb := strings.Split(a, "\n"), strings.Split(b, "\n")
	if len(la) != len(lb) {
		return []string{fmt.Sprintf("%d lines vs %d lines", len(la), len(lb))}
	}
	var diff []string
	for i := range la {
		if la[i] != lb[i] {
			diff = append(diff, lb[i])
		}
	}
	return diff
}

func TestOptions(t *testing.T) {
	if len(Options) != 48 {
		t.Errorf("expected 48 options, got %d", len(Options))
	}
	seen := map[string]bool{}
	for _, o := range Options {
		if seen[o.Name] {
			t.Errorf("duplicated option %s", o.Name)
		}
		seen[o.Name] = true
	}
	if d, ok := Default("CLOUD_THRESHOLD"); !ok || d != "0.225" {
		t.Errorf("unexpected default %s %v", d, ok)
	}
	if _, ok := Default("UNKNOWN"); ok {
		t.Error("UNKNOWN must not be known")
	}
	if err := CheckValues(Defaults()); err != nil {
		t.Error(err)
	}
	if err := CheckValues(map[string]string{"NPROC": "64", "NPROCS": "64"}); err == nil || !strings.Contains(err.Error(), "NPROCS") {
		t.Errorf("expected an error naming NPROCS, got %v", err)
	}
	if err := CheckValues(map[string]string{"NPROC": "64\nDELAY = 3"}); err == nil {
		t.Error("expected an error for a multiline value")
	}
}

func TestEnsureFile(t *testing.T) {
	ctx := context.Background()
	paramDir := t.TempDir()
	target := filepath.Join(t.TempDir(), "l2.prm")
	gen := &fakeGenerator{}

	if err := EnsureFile(ctx, gen, paramDir, target, map[string]string{"NPROC": "64", "DELAY": "3"}); err != nil {
		t.Fatal(err)
	}
	content, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	diff := diffLines(skeletonContent(), string(content))
	if len(diff) != 1 || diff[0] != "NPROC = 64" {
		t.Errorf("expected only NPROC to change, got %v", diff)
	}
	backup, err := os.ReadFile(target + BackupSuffix)
	if err != nil {
		t.Fatal(err)
	}
	if string(backup) != skeletonContent() {
		t.Error("backup must contain the skeleton")
	}
	if _, err := os.Stat(filepath.Join(paramDir, SkeletonName)); !os.IsNotExist(err) {
		t.Errorf("skeleton must be moved: %v", err)
	}

	// second call is a no-op
	if err := os.WriteFile(target, []byte("edited"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := EnsureFile(ctx, gen, paramDir, target, map[string]string{"NPROC": "8"}); err != nil {
		t.Fatal(err)
	}
	if content, _ := os.ReadFile(target); string(content) != "edited" || gen.calls != 1 {
		t.Errorf("existing file must be left untouched (%d calls)", gen.calls)
	}

	// values are not checked against an existing file
	if err := EnsureFile(ctx, gen, paramDir, target, map[string]string{"NPROCS": "8"}); err != nil {
		t.Errorf("existing file with an unknown option: %v", err)
	}
}

func TestEnsureFileDefaults(t *testing.T) {
	target := filepath.Join(t.TempDir(), "l2.prm")
	if err := EnsureFile(context.Background(), &fakeGenerator{}, t.TempDir(), target, nil); err != nil {
		t.Fatal(err)
	}
	content, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(content) != skeletonContent() {
		t.Error("file must be identical to the skeleton")
	}
}

func TestEnsureFileErrors(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	gen := &fakeGenerator{}
	target := filepath.Join(dir, "l2.prm")
	if err := EnsureFile(ctx, gen, dir, target, map[string]string{"NPROCS": "64"}); err == nil {
		t.Error("expected an error for an unknown option")
	}
	if _, err := os.Stat(target); !os.IsNotExist(err) || gen.calls != 0 {
		t.Errorf("nothing must be done for an unknown option (%d calls)", gen.calls)
	}

	gen = &fakeGenerator{err: errors.New("force-parameter not found")}
	if err := EnsureFile(ctx, gen, dir, target, nil); err == nil || !strings.Contains(err.Error(), "force-parameter not found") {
		t.Errorf("expected the generator error, got %v", err)
	}

	if err := EnsureFile(ctx, &fakeGenerator{}, dir, dir, nil); err == nil {
		t.Error("expected an error for a directory")
	}
}

func TestRewrite(t *testing.T) {
	content := "# NPROC = 32 is the default\r\nNPROC = 32\r\nDELAY = 5\nUNKNOWN = NULL\nFILE_QUEUE =   NULL  \nDIR_LOG = NULL"
	values := map[string]string{"NPROC": "8", "DELAY": "1", "UNKNOWN": "x", "FILE_QUEUE": "/q.txt", "DIR_LOG": "/log"}
	out, n := Rewrite([]byte(content), values)
	expected := "# NPROC = 32 is the default\r\nNPROC = 8\r\nDELAY = 5\nUNKNOWN = NULL\nFILE_QUEUE = /q.txt\nDIR_LOG = /log"
	if string(out) != expected {
		t.Errorf("expected\n%q\ngot\n%q", expected, out)
	}
	if n != 3 {
		t.Errorf("expected 3 changes, got %d", n)
	}
}

func TestForceGenerator(t *testing.T) {
	binDir := t.TempDir()
	script := filepath.Join(binDir, "force-parameter")
	content := "#!/bin/sh\n" +
		"[ \"$2\" = LEVEL2 ] && [ \"$3\" = 0 ] || { echo \"unexpected arguments $*\" >&2; exit 1; }\n" +
		"echo 'An empty parameter file skeleton was written'\n" +
		"printf 'NPROC = 32\\n' > \"$1/LEVEL2-skeleton.prm\"\n"
	if err := os.WriteFile(script, []byte(content), 0755); err != nil {
		t.Fatal(err)
	}

	paramDir := filepath.Join(t.TempDir(), "param")
	target := filepath.Join(t.TempDir(), "l2.prm")
	if err := EnsureFile(context.Background(), ForceGenerator{Binary: script}, paramDir, target, map[string]string{"NPROC": "4"}); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != "NPROC = 4\n" {
		t.Errorf("unexpected content %q", b)
	}

	_, err = ForceGenerator{Binary: filepath.Join(binDir, "missing")}.Skeleton(context.Background(), paramDir)
	if err == nil {
		t.Error("expected an error for a missing binary")
	}
}

func TestLoadValues(t *testing.T) {
	values, err := LoadValues(strings.NewReader("NPROC: 64\nDO_TOPO: FALSE\nCLOUD_THRESHOLD: 0.3\nDIR_LEVEL2: /data/level2\n"))
	if err != nil {
		t.Fatal(err)
	}
	expected := map[string]string{"NPROC": "64", "DO_TOPO": "FALSE", "CLOUD_THRESHOLD": "0.3", "DIR_LEVEL2": "/data/level2"}
	if fmt.Sprint(values) != fmt.Sprint(expected) {
		t.Errorf("expected %v, got %v", expected, values)
	}
	if values, err := LoadValues(strings.NewReader("")); err != nil || len(values) != 0 {
		t.Errorf("expected no value, got %v (%v)", values, err)
	}
	values, err = LoadValues(strings.NewReader("nproc: 64\nDo_Topo: FALSE\n"))
	if err != nil || values["NPROC"] != "64" || values["DO_TOPO"] != "FALSE" || len(values) != 2 {
		t.Errorf("expected upper-cased names, got %v (%v)", values, err)
	}
	if _, err := LoadValues(strings.NewReader("- a\n- b\n")); err == nil {
		t.Error("expected an error for a list")
	}

	name, value, err := ParseAssignment("nproc = 64")
	if err != nil || name != "NPROC" || value != "64" {
		t.Errorf("unexpected %s=%s (%v)", name, value, err)
	}
	if _, _, err := ParseAssignment("NPROC"); err == nil {
		t.Error("expected an error")
	}
}
