package log

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type execOption struct {
	outl, errl zapcore.Level
	outf, errf Filter
}

// ExecOption is an option that can be passed to Exec()
type ExecOption func(eo *execOption)

// StdoutLevel sets the level at which stdout should be logged
func StdoutLevel(l zapcore.Level) ExecOption {
	return func(eo *execOption) {
		eo.outl = l
	}
}

// StderrLevel sets the level at which stderr should be logged
func StderrLevel(l zapcore.Level) ExecOption {
	return func(eo *execOption) {
		eo.errl = l
	}
}

// Filter receives a line and its default level and returns the line to log with its level.
// If ignore is true, the line is dropped.
type Filter func(line string, level zapcore.Level) (msg string, newLevel zapcore.Level, ignore bool)

// StdoutFilter sets a function that modifies a stdout line or changes its level
func StdoutFilter(f Filter) ExecOption {
	return func(eo *execOption) {
		eo.outf = f
	}
}

// StderrFilter sets a function that modifies a stderr line or changes its level
func StderrFilter(f Filter) ExecOption {
	return func(eo *execOption) {
		eo.errf = f
	}
}

// Exec runs cmd and waits for it, logging its outputs line by line.
// If cmd.Stdout is not set, stdout is sent to Logger(ctx) (Info level by default).
// If cmd.Stderr is not set, stderr is sent to Logger(ctx) (Warn level by default).
// On ctx cancellation, the process is killed and ctx.Err() is returned.
func Exec(ctx context.Context, cmd *exec.Cmd, options ...ExecOption) error {
	opts := execOption{
		outl: zapcore.InfoLevel,
		errl: zapcore.WarnLevel,
	}
	for _, o := range options {
		o(&opts)
	}

	logger := Logger(ctx).With(zap.String("cmd", cmd.Path))
	var streams []lineStream
	if cmd.Stdout == nil {
		r, err := cmd.StdoutPipe()
		if err != nil {
			return fmt.Errorf("Exec.StdoutPipe: %w", err)
		}
		streams = append(streams, lineStream{r, lineLogger{logger, opts.outl, opts.outf}})
	}
	if cmd.Stderr == nil {
		r, err := cmd.StderrPipe()
		if err != nil {
			return fmt.Errorf("Exec.StderrPipe: %w", err)
		}
		streams = append(streams, lineStream{r, lineLogger{logger, opts.errl, opts.errf}})
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("Exec.Start: %w", err)
	}

	wg := sync.WaitGroup{}
	for _, s := range streams {
		wg.Add(1)
		go func(s lineStream) {
			defer wg.Done()
			s.forward()
		}(s)
	}

	done := make(chan error, 1)
	go func() {
		// pipes must be drained before Wait closes them
		wg.Wait()
		done <- cmd.Wait()
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if err := cmd.Process.Kill(); err != nil {
			logger.Sugar().Warnf("kill: %v", err)
		}
		<-done
		return ctx.Err()
	}
}

type lineStream struct {
	r      io.Reader
	logger lineLogger
}

// forward logs every line of the stream. Lines longer than the reader buffer are clipped.
func (s lineStream) forward() {
	r := bufio.NewReader(s.r)
	clipping := false
	for {
		line, err := r.ReadSlice('\n')
		switch {
		case err == bufio.ErrBufferFull:
			if !clipping {
				s.logger.print(string(line) + " ...[Message clipped]")
			}
			clipping = true
			continue
		case clipping:
			// end of the clipped line
			clipping = false
		case len(line) > 0:
			s.logger.print(string(line))
		}
		if err != nil {
			return
		}
	}
}

type lineLogger struct {
	*zap.Logger
	level  zapcore.Level
	filter Filter
}

func (l lineLogger) print(msg string) {
	msg = strings.TrimRight(msg, "\r\n")
	level := l.level
	if l.filter != nil {
		var ignore bool
		if msg, level, ignore = l.filter(msg, level); ignore {
			return
		}
	}
	if ce := l.Check(level, msg); ce != nil {
		ce.Write()
	}
}
