package executor

import (
	"bytes"
	"context"
	"os/exec"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

const defaultWaitDelay = 2 * time.Second

// ProcessLauncher runs commands on the host. When the attempt context expires the
// whole process tree is killed so forked helpers do not outlive the attempt.
type ProcessLauncher struct {
	WaitDelay time.Duration
	Env       []string
}

func (l *ProcessLauncher) Launch(ctx context.Context, name string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(l.Env) > 0 {
		cmd.Env = l.Env
	}
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		if err := killTree(int32(cmd.Process.Pid)); err != nil {
			return cmd.Process.Kill()
		}
		return nil
	}
	cmd.WaitDelay = l.WaitDelay
	if cmd.WaitDelay <= 0 {
		cmd.WaitDelay = defaultWaitDelay
	}
	err := cmd.Run()
	return buf.Bytes(), err
}

func killTree(pid int32) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	root, err := process.NewProcessWithContext(ctx, pid)
	if err != nil {
		return err
	}
	killDescendants(ctx, root)
	return root.KillWithContext(ctx)
}

func killDescendants(ctx context.Context, p *process.Process) {
	children, err := p.ChildrenWithContext(ctx)
	if err != nil {
		return
	}
	for _, child := range children {
		killDescendants(ctx, child)
		_ = child.KillWithContext(ctx)
	}
}
