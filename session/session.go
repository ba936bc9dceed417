// Package session 管理长期运行的外部场求解器进程：注入参数化脚本并取回单行JSON结果。
package session

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/1lj4s/HowToElementBuilder/internal/errs"
	"github.com/1lj4s/HowToElementBuilder/internal/logging"
)

// State 会话状态
type State int32

const (
	// Idle 进程尚未启动
	Idle State = iota
	// Running 进程存活，可接受脚本
	Running
	// Closed 进程已终止
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Closed:
		return "closed"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

// DefaultExecTemplate 让交互式求解器执行脚本文件的命令（%s 为文件路径）
const DefaultExecTemplate = "exec(open(r'''%s''').read())\n"

// DefaultMarkerTemplate 打印结束标记的命令（%s 为本次调用的标记）
const DefaultMarkerTemplate = "print(%q)\n"

// Options 会话配置
type Options struct {
	// Executable 求解器可执行文件（名称或路径）
	Executable string
	// Args 启动参数
	Args []string
	// Dir 工作目录
	Dir string
	// Env 追加的环境变量（KEY=VALUE）
	Env []string
	// InitScript 进程启动后执行一次的脚本，其中定义的名称对后续脚本可见
	InitScript string
	// Sentinel 为 true 时每次调用后打印唯一结束标记，结果取标记之前最后一个 JSON 行；
	// 为 false 时取第一个 JSON 行
	Sentinel bool
	// ExecTemplate 执行脚本文件的命令模板，默认 DefaultExecTemplate
	ExecTemplate string
	// MarkerTemplate 打印结束标记的命令模板，默认 DefaultMarkerTemplate
	MarkerTemplate string
	// ScriptDir 临时脚本目录（默认系统临时目录）
	ScriptDir string
	// CloseGrace 关闭时等待进程自行退出的时间
	CloseGrace time.Duration
	// Logger 日志（nil 时使用全局日志）
	Logger *zap.Logger
}

// Result 一次调用的结果
type Result struct {
	// Line 原始JSON行
	Line []byte
	// Values 解析后的对象
	Values map[string]any
}

// Decode 将结果解析到 v
func (r Result) Decode(v any) error {
	if err := json.Unmarshal(r.Line, v); err != nil {
		return errs.Wrap(errs.MalformedResult, err, "decoding solver result")
	}
	return nil
}

// Session 一个求解器进程
//
// 同一时刻只有一个脚本在执行；不同会话之间没有共享状态，可并行。
type Session struct {
	opts Options
	log  *zap.Logger

	runMu sync.Mutex // 串行化 Run

	mu    sync.Mutex // 保护以下字段
	state State
	cmd   *exec.Cmd
	stdin io.WriteCloser
	lines chan string
	done  chan struct{}
}

// New 创建会话（Idle 状态，不启动进程）
func New(opts Options) *Session {
	if opts.ExecTemplate == "" {
		opts.ExecTemplate = DefaultExecTemplate
	}
	if opts.MarkerTemplate == "" {
		opts.MarkerTemplate = DefaultMarkerTemplate
	}
	if opts.CloseGrace <= 0 {
		opts.CloseGrace = 2 * time.Second
	}
	return &Session{
		opts: opts,
		log:  logging.Or(opts.Logger).With(zap.String("solver", filepath.Base(opts.Executable))),
	}
}

// State 当前状态
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Start 启动求解器进程并执行初始化脚本
//
// 可执行文件不存在或无法启动时返回 ProcessUnavailable；已在运行时直接返回。
func (s *Session) Start(ctx context.Context) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	return s.start(ctx)
}

func (s *Session) start(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case Running:
		s.mu.Unlock()
		return nil
	case Closed:
		s.mu.Unlock()
		return errs.New(errs.InvalidInput, "session is closed")
	}

	if s.opts.Executable == "" {
		s.mu.Unlock()
		return errs.New(errs.ProcessUnavailable, "solver executable is not configured")
	}
	path, err := exec.LookPath(s.opts.Executable)
	if err != nil {
		s.mu.Unlock()
		return errs.Wrap(errs.ProcessUnavailable, err, "solver executable %q not found", s.opts.Executable)
	}

	cmd := exec.Command(path, s.opts.Args...)
	cmd.Dir = s.opts.Dir
	cmd.Env = append(os.Environ(), s.opts.Env...)
	pr, pw, err := os.Pipe()
	if err != nil {
		s.mu.Unlock()
		return errs.Wrap(errs.ProcessUnavailable, err, "creating output pipe")
	}
	// stdout 与 stderr 合并到同一读取端
	cmd.Stdout = pw
	cmd.Stderr = pw
	stdin, err := cmd.StdinPipe()
	if err != nil {
		pr.Close()
		pw.Close()
		s.mu.Unlock()
		return errs.Wrap(errs.ProcessUnavailable, err, "creating input pipe")
	}
	if err := cmd.Start(); err != nil {
		pr.Close()
		pw.Close()
		s.mu.Unlock()
		return errs.Wrap(errs.ProcessUnavailable, err, "starting solver %q", path)
	}
	pw.Close()

	lines := make(chan string, 256)
	done := make(chan struct{})
	go readLines(pr, lines)
	go func() {
		err := cmd.Wait()
		s.log.Debug("solver exited", zap.Error(err))
		close(done)
	}()

	s.cmd, s.stdin, s.lines, s.done = cmd, stdin, lines, done
	s.state = Running
	s.mu.Unlock()

	sessionsStarted.Inc()
	s.log.Info("solver started", zap.String("path", path), zap.Int("pid", cmd.Process.Pid))

	if strings.TrimSpace(s.opts.InitScript) == "" {
		return nil
	}
	if _, err := s.execute(ctx, s.opts.InitScript, false); err != nil {
		s.terminate()
		return errs.Wrap(errs.KindOf(err), err, "running init script")
	}
	return nil
}

// readLines 逐行读取输出直到EOF，然后关闭 out
func readLines(r io.ReadCloser, out chan<- string) {
	defer close(out)
	defer r.Close()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 64*1024*1024)
	for sc.Scan() {
		out <- sc.Text()
	}
}

// Run 绑定参数并执行脚本，返回唯一的JSON结果
//
// 会话处于 Idle 时先启动进程；Closed 后调用返回错误。
// ctx 到期时进程被终止，会话进入 Closed，返回 ctx 的错误。
func (s *Session) Run(ctx context.Context, params Params, script string) (Result, error) {
	s.runMu.Lock()
	defer s.runMu.Unlock()

	start := time.Now()
	res, err := s.run(ctx, params, script)
	runDuration.Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
		runsTotal.WithLabelValues(resultOK).Inc()
	case ctx.Err() != nil:
		runsTotal.WithLabelValues(resultTimeout).Inc()
	case errs.IsKind(err, errs.NoResult):
		runsTotal.WithLabelValues(resultNoResult).Inc()
	case errs.IsKind(err, errs.MalformedResult):
		runsTotal.WithLabelValues(resultMalformed).Inc()
	default:
		runsTotal.WithLabelValues(resultError).Inc()
	}
	return res, err
}

func (s *Session) run(ctx context.Context, params Params, script string) (Result, error) {
	if state := s.State(); state == Closed {
		return Result{}, errs.New(errs.InvalidInput, "session is closed")
	} else if state == Idle {
		if err := s.start(ctx); err != nil {
			return Result{}, err
		}
	}
	bindings, err := Bind(params)
	if err != nil {
		return Result{}, err
	}
	line, err := s.execute(ctx, bindings+script, true)
	if err != nil {
		return Result{}, err
	}
	res := Result{Line: line}
	if err := json.Unmarshal(line, &res.Values); err != nil {
		return Result{}, errs.Wrap(errs.MalformedResult, err, "solver printed an invalid JSON line")
	}
	return res, nil
}

// execute 写临时脚本并让求解器执行，读取输出直到得到结果
//
// wantResult 为 false 时（初始化脚本）只等待结束标记。
func (s *Session) execute(ctx context.Context, text string, wantResult bool) ([]byte, error) {
	f, err := os.CreateTemp(s.opts.ScriptDir, "solver-*.py")
	if err != nil {
		return nil, errs.Wrap(errs.Io, err, "creating script file")
	}
	path := f.Name()
	defer os.Remove(path)
	if !strings.HasSuffix(text, "\n") {
		text += "\n"
	}
	if _, err := f.WriteString(text); err != nil {
		f.Close()
		return nil, errs.Wrap(errs.Io, err, "writing script file")
	}
	if err := f.Close(); err != nil {
		return nil, errs.Wrap(errs.Io, err, "closing script file")
	}

	marker := ""
	command := fmt.Sprintf(s.opts.ExecTemplate, path)
	if s.opts.Sentinel || !wantResult {
		marker = "@@END " + uuid.NewString() + "@@"
		command += fmt.Sprintf(s.opts.MarkerTemplate, marker)
	}

	s.mu.Lock()
	stdin, lines := s.stdin, s.lines
	s.mu.Unlock()
	if _, err := io.WriteString(stdin, command); err != nil {
		s.terminate()
		return nil, errs.Wrap(errs.NoResult, err, "sending script to solver")
	}

	var last []byte
	for {
		select {
		case <-ctx.Done():
			s.log.Warn("solver call abandoned, terminating process", zap.Error(ctx.Err()))
			s.terminate()
			return nil, ctx.Err()
		case line, ok := <-lines:
			if !ok {
				s.markClosed()
				if last != nil && wantResult {
					return last, nil
				}
				return nil, errs.New(errs.NoResult, "solver output closed before a result line")
			}
			s.log.Debug(line)
			trimmed := strings.TrimSpace(line)
			if marker != "" && trimmed == marker {
				if !wantResult {
					return nil, nil
				}
				if last == nil {
					return nil, errs.New(errs.NoResult, "solver finished the script without printing a result line")
				}
				return last, nil
			}
			if !isResultLine(trimmed) {
				continue
			}
			if marker == "" {
				return []byte(trimmed), nil
			}
			last = []byte(trimmed)
		}
	}
}

// isResultLine 单行JSON对象：以 { 开头、以 } 结尾
func isResultLine(line string) bool {
	return len(line) >= 2 && line[0] == '{' && line[len(line)-1] == '}' && json.Valid([]byte(line))
}

// markClosed 输出流已关闭，进程视为终止
func (s *Session) markClosed() {
	s.mu.Lock()
	s.state = Closed
	s.mu.Unlock()
}

// terminate 立即终止进程
func (s *Session) terminate() {
	s.mu.Lock()
	cmd, done, lines := s.cmd, s.done, s.lines
	s.state = Closed
	s.mu.Unlock()
	if cmd == nil {
		return
	}
	_ = cmd.Process.Kill()
	<-done
	go drain(lines)
}

// drain 丢弃剩余输出，使读取协程能够结束
func drain(lines <-chan string) {
	for range lines {
	}
}

// Close 关闭输入并等待进程退出，超时则强制终止；可重复调用
func (s *Session) Close() error {
	s.mu.Lock()
	cmd, stdin, done, lines := s.cmd, s.stdin, s.done, s.lines
	prev := s.state
	s.state = Closed
	s.cmd = nil
	s.mu.Unlock()

	if prev != Running || cmd == nil {
		return nil
	}
	_ = stdin.Close()
	go drain(lines)
	select {
	case <-done:
	case <-time.After(s.opts.CloseGrace):
		_ = cmd.Process.Kill()
		<-done
	}
	s.log.Info("solver closed")
	return nil
}

// Pid 进程号（未运行时为 0）
func (s *Session) Pid() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}
