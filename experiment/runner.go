package experiment

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/rushteam/recmin/core"
	"github.com/rushteam/recmin/logging"
)

// Runner 执行一份渲染好的实验配置。
type Runner interface {
	Run(ctx context.Context, configPath string) error
}

// RunnerFunc 函数适配器。
type RunnerFunc func(ctx context.Context, configPath string) error

func (f RunnerFunc) Run(ctx context.Context, configPath string) error { return f(ctx, configPath) }

// CommandRunner 以子进程执行外部训练框架。
//
// Command 中的 {config} 被替换为配置文件路径；没有占位符时路径追加为最后一个参数。
type CommandRunner struct {
	Command []string
	Dir     string
	Env     []string
}

// maxOutputTail 失败时错误信息中保留的输出尾部长度
const maxOutputTail = 2048

func (r *CommandRunner) Run(ctx context.Context, configPath string) error {
	if len(r.Command) == 0 {
		return core.NewDomainError(core.ModuleExperiment, core.ErrorCodeInvalidConfig, "experiment command is empty")
	}
	args := make([]string, 0, len(r.Command)+1)
	substituted := false
	for _, a := range r.Command {
		if strings.Contains(a, "{config}") {
			a = strings.ReplaceAll(a, "{config}", configPath)
			substituted = true
		}
		args = append(args, a)
	}
	if !substituted {
		args = append(args, configPath)
	}

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = r.Dir
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	out, err := cmd.CombinedOutput()
	logging.Debug().Str("command", args[0]).Str("config", configPath).Int("output_bytes", len(out)).Msg("experiment command finished")
	if err != nil {
		return core.WrapDomainError(core.ModuleExperiment, core.ErrorCodeExternal,
			fmt.Sprintf("command %q failed: %s", args[0], tail(out)), err)
	}
	return nil
}

func tail(out []byte) string {
	if len(out) > maxOutputTail {
		out = out[len(out)-maxOutputTail:]
	}
	return strings.TrimSpace(string(out))
}

// ErrorLog 追加记录失败的实验，扫描继续进行。
// 每条记录是一行 JSON：time, level, phase, dataset, strategy, n, model, config, error, message。
type ErrorLog struct {
	path string
	mu   sync.Mutex
}

// NewErrorLog 创建错误日志，文件在首次写入时创建。
func NewErrorLog(path string) *ErrorLog {
	return &ErrorLog{path: path}
}

// Path 返回日志文件路径。
func (l *ErrorLog) Path() string { return l.path }

// Record 写入一条失败记录。
func (l *ErrorLog) Record(u Unit, cause error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if dir := filepath.Dir(l.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	log := zerolog.New(f).With().Timestamp().Logger()
	log.Error().
		Str("phase", string(u.Phase)).
		Str("dataset", u.Target.Dataset).
		Str("strategy", u.Target.Strategy).
		Int("n", u.Target.N).
		Str("model", u.Model).
		Str("config", u.ConfigPath).
		Err(cause).
		Msg("Error Processing")
	return f.Close()
}
