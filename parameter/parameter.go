package parameter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"syscall"

	"github.com/airbusgeo/force-prep/service/log"
)

// BackupSuffix is appended to the target path to store the skeleton before the rewrite
const BackupSuffix = ".bak"

// optionLine matches "NAME = value" (trailing \r excluded)
var optionLine = regexp.MustCompile(`^([A-Z0-9_]+)\s*=\s*(.*?)\s*$`)

// EnsureFile creates the LEVEL2 parameter file target from the skeleton generated in paramDir,
// replacing the default value of each option by the one in values.
// If target already exists, nothing is done.
func EnsureFile(ctx context.Context, gen Generator, paramDir, target string, values map[string]string) error {
	if fi, err := os.Stat(target); err == nil {
		if fi.IsDir() {
			return fmt.Errorf("EnsureFile: %s is a directory", target)
		}
		log.Logger(ctx).Sugar().Infof("parameter file %s already exists", target)
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("EnsureFile: %w", err)
	}
	if err := CheckValues(values); err != nil {
		return fmt.Errorf("EnsureFile: %w", err)
	}

	skeleton, err := gen.Skeleton(ctx, paramDir)
	if err != nil {
		return fmt.Errorf("EnsureFile.%w", err)
	}
	if err := moveFile(skeleton, target); err != nil {
		return fmt.Errorf("EnsureFile.%w", err)
	}
	n, err := RewriteFile(target, values)
	if err != nil {
		return fmt.Errorf("EnsureFile.%w", err)
	}
	log.Logger(ctx).Sugar().Infof("parameter file %s created (%d options changed)", target, n)
	return nil
}

// RewriteFile backups path to path.bak and rewrites path with Rewrite.
// It returns the number of lines that changed.
func RewriteFile(path string, values map[string]string) (int, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("RewriteFile: %w", err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("RewriteFile: %w", err)
	}
	if err := os.WriteFile(path+BackupSuffix, content, fi.Mode().Perm()); err != nil {
		return 0, fmt.Errorf("RewriteFile.backup: %w", err)
	}
	newContent, n := Rewrite(content, values)
	if err := os.WriteFile(path, newContent, fi.Mode().Perm()); err != nil {
		return 0, fmt.Errorf("RewriteFile: %w", err)
	}
	return n, nil
}

// Rewrite replaces each line "NAME = <default>" of a known option by "NAME = <value>"
// if values[NAME] differs from the default. Other lines are left untouched.
// It returns the new content and the number of lines that changed.
func Rewrite(content []byte, values map[string]string) ([]byte, int) {
	lines := bytes.SplitAfter(content, []byte("\n"))
	out := bytes.Buffer{}
	out.Grow(len(content))
	n := 0
	for _, line := range lines {
		body, eol := splitEOL(line)
		if newLine, ok := rewriteLine(body, values); ok {
			out.WriteString(newLine)
			out.Write(eol)
			n++
			continue
		}
		out.Write(line)
	}
	return out.Bytes(), n
}

func rewriteLine(line []byte, values map[string]string) (string, bool) {
	m := optionLine.FindSubmatch(line)
	if m == nil {
		return "", false
	}
	name, current := string(m[1]), string(m[2])
	def, known := defaults[name]
	value, set := values[name]
	if !known || !set || current != def || value == def {
		return "", false
	}
	return name + " = " + value, true
}

// splitEOL splits line into its content and its line ending ("\n", "\r\n" or "")
func splitEOL(line []byte) ([]byte, []byte) {
	switch {
	case bytes.HasSuffix(line, []byte("\r\n")):
		return line[:len(line)-2], line[len(line)-2:]
	case bytes.HasSuffix(line, []byte("\n")):
		return line[:len(line)-1], line[len(line)-1:]
	}
	return line, nil
}

// moveFile renames src to dst, falling back to a copy when they are on different devices
func moveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}
	if !errors.Is(err, syscall.EXDEV) {
		return fmt.Errorf("moveFile: %w", err)
	}
	if err := copyFile(src, dst); err != nil {
		return fmt.Errorf("moveFile.%w", err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("moveFile: %w", err)
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("copyFile: %w", err)
	}
	defer in.Close()
	fi, err := in.Stat()
	if err != nil {
		return fmt.Errorf("copyFile: %w", err)
	}
	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fi.Mode().Perm())
	if err != nil {
		return fmt.Errorf("copyFile: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copyFile: %w", err)
	}
	return out.Close()
}
