package parameter

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/airbusgeo/force-prep/service/log"
	"go.uber.org/zap/zapcore"
)

// SkeletonName is the name of the file written by force-parameter for LEVEL2
const SkeletonName = "LEVEL2-skeleton.prm"

// Generator generates a LEVEL2 skeleton parameter file in paramDir and returns its path
type Generator interface {
	Skeleton(ctx context.Context, paramDir string) (string, error)
}

// ForceGenerator runs the FORCE tool "force-parameter <paramDir> LEVEL2 0"
type ForceGenerator struct {
	// Binary is the path of force-parameter (default: "force-parameter" in $PATH)
	Binary string
}

// Skeleton implements Generator
func (g ForceGenerator) Skeleton(ctx context.Context, paramDir string) (string, error) {
	binary := g.Binary
	if binary == "" {
		binary = "force-parameter"
	}
	if err := os.MkdirAll(paramDir, 0755); err != nil {
		return "", fmt.Errorf("Skeleton.MkdirAll: %w", err)
	}
	skeleton := filepath.Join(paramDir, SkeletonName)
	// force-parameter refuses to overwrite an existing skeleton
	if err := os.Remove(skeleton); err != nil && !os.IsNotExist(err) {
		return "", fmt.Errorf("Skeleton.Remove: %w", err)
	}

	cmd := exec.Command(binary, paramDir, "LEVEL2", "0")
	if err := log.Exec(ctx, cmd, log.StdoutLevel(zapcore.DebugLevel), log.StderrLevel(zapcore.InfoLevel), log.StderrFilter(stderrFilter)); err != nil {
		return "", fmt.Errorf("Skeleton[%s].%w", strings.Join(cmd.Args, " "), err)
	}
	if _, err := os.Stat(skeleton); err != nil {
		return "", fmt.Errorf("Skeleton: %s was not generated: %w", skeleton, err)
	}
	return skeleton, nil
}

// stderrFilter drops blank lines of force-parameter and raises its error messages
func stderrFilter(line string, level zapcore.Level) (string, zapcore.Level, bool) {
	if strings.TrimSpace(line) == "" {
		return line, level, true
	}
	if strings.Contains(strings.ToLower(line), "error") {
		return line, zapcore.ErrorLevel, false
	}
	return line, level, false
}
