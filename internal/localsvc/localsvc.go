// Package localsvc запускает локальный сервис рядом с бриджем
// (например, "serverless offline") для разработки.
//
// Вывод процесса пробрасывается в stdout/stderr бриджа.
// Завершение процесса сигнализируется через Done(): бридж
// завершается вместе с ним.
//
// Команда запускается в отдельной группе процессов: сигналы остановки
// получают и дочерние процессы shell (npm run dev && ...).
package localsvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"
)

const stopGracePeriod = 5 * time.Second

// ErrEmptyCommand — команда не задана.
var ErrEmptyCommand = errors.New("empty start command")

// Config — конфигурация процесса.
type Config struct {
	// Command — команда, выполняется через sh -c.
	Command string

	// Stdout, Stderr — куда пробрасывать вывод. Default: os.Stdout, os.Stderr.
	Stdout io.Writer
	Stderr io.Writer

	// Logger
	Logger *slog.Logger
}

// Process — запущенный локальный сервис.
type Process struct {
	cmd    *exec.Cmd
	logger *slog.Logger

	done chan struct{}
	mu   sync.Mutex
	err  error
}

// Start запускает процесс. Отмена ctx останавливает группу процессов
// (SIGTERM, затем SIGKILL shell через stopGracePeriod).
func Start(ctx context.Context, cfg Config) (*Process, error) {
	if cfg.Command == "" {
		return nil, ErrEmptyCommand
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	stdout, stderr := cfg.Stdout, cfg.Stderr
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	cmd := exec.CommandContext(ctx, "sh", "-c", cfg.Command)
	cmd.Stdout = stdout
	cmd.Stderr = stderr
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return signalGroup(cmd.Process.Pid, syscall.SIGTERM)
	}
	cmd.WaitDelay = stopGracePeriod

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start %q: %w", cfg.Command, err)
	}

	p := &Process{
		cmd:    cmd,
		logger: logger,
		done:   make(chan struct{}),
	}

	logger.Info("local service started", "command", cfg.Command, "pid", cmd.Process.Pid)

	go p.wait()

	return p, nil
}

// wait ждёт завершения процесса.
func (p *Process) wait() {
	err := p.cmd.Wait()

	p.mu.Lock()
	p.err = err
	p.mu.Unlock()

	if err != nil {
		p.logger.Warn("local service exited", "error", err)
	} else {
		p.logger.Info("local service exited")
	}

	close(p.done)
}

// Done закрывается после завершения процесса.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Err возвращает результат завершения. Имеет смысл после Done().
func (p *Process) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// Stop останавливает группу процессов и ждёт завершения не дольше timeout.
// SIGTERM, после timeout — SIGKILL. Вызов после завершения процесса безопасен.
func (p *Process) Stop(timeout time.Duration) error {
	pid := p.cmd.Process.Pid

	select {
	case <-p.done:
		// shell уже вышел, в группе могли остаться его потомки
		_ = signalGroup(pid, syscall.SIGTERM)
		return nil
	default:
	}

	if err := signalGroup(pid, syscall.SIGTERM); err != nil {
		return fmt.Errorf("terminate: %w", err)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-p.done:
		return nil
	case <-timer.C:
	}

	p.logger.Warn("local service did not stop in time, killing", "pid", pid, "timeout", timeout)

	if err := signalGroup(pid, syscall.SIGKILL); err != nil {
		return fmt.Errorf("kill: %w", err)
	}
	<-p.done
	return nil
}

// signalGroup отправляет сигнал всей группе процессов pid.
// Группа, которой уже нет, не ошибка.
func signalGroup(pid int, sig syscall.Signal) error {
	err := syscall.Kill(-pid, sig)
	if errors.Is(err, syscall.ESRCH) {
		return nil
	}
	return err
}
