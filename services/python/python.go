// Package python implements plugin.PythonRunner by shelling out to a
// python3 interpreter, adapted from the teacher's nodes/python/pyexec.go
// (which ran a script file against a FileStore-fetched input with
// os/exec.CommandContext into a fresh temp directory). This version runs
// an inline code string against a JSON-serialized inputs value instead
// of a file, using a small fixed wrapper script so the user code can
// bind `inputs` and optionally set `output` without the interpreter
// needing to special-case either.
package python

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/flowloom/rivulet/plugin"
)

const wrapperSource = `import json, sys

def main():
    inputs = json.loads(sys.argv[1]) if len(sys.argv) > 1 and sys.argv[1] else None
    with open(sys.argv[2]) as f:
        src = f.read()
    g = {"inputs": inputs}
    l = {}
    exec(compile(src, sys.argv[2], "exec"), g, l)
    if "output" in l:
        result = l["output"]
    elif "output" in g:
        result = g["output"]
    else:
        result = None
    print(json.dumps(result))

main()
`

// Runner shells out to pythonBin for every Run call; it holds no
// per-call state so a single instance is safe to share across nodes.
type Runner struct {
	pythonBin string
	workDir   string
}

func New(pythonBin, workDir string) *Runner {
	if pythonBin == "" {
		pythonBin = "python3"
	}
	return &Runner{pythonBin: pythonBin, workDir: workDir}
}

func (r *Runner) Run(ctx context.Context, code string, inputs any, timeout time.Duration) (any, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	execDir, err := os.MkdirTemp(r.workDir, "rivulet-py-")
	if err != nil {
		return nil, fmt.Errorf("create exec dir: %w", err)
	}
	defer os.RemoveAll(execDir)

	wrapperPath := filepath.Join(execDir, "run.py")
	if err := os.WriteFile(wrapperPath, []byte(wrapperSource), 0o644); err != nil {
		return nil, fmt.Errorf("write wrapper: %w", err)
	}
	codePath := filepath.Join(execDir, "code.py")
	if err := os.WriteFile(codePath, []byte(code), 0o644); err != nil {
		return nil, fmt.Errorf("write code: %w", err)
	}

	inputsJSON, err := json.Marshal(inputs)
	if err != nil {
		return nil, fmt.Errorf("marshal inputs: %w", err)
	}

	cmd := exec.CommandContext(ctx, r.pythonBin, wrapperPath, string(inputsJSON), codePath)
	cmd.Dir = execDir
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("python script failed: %w; stderr: %s", err, stderr.String())
	}

	var result any
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		return nil, fmt.Errorf("decode python output: %w", err)
	}
	return result, nil
}

var _ plugin.PythonRunner = (*Runner)(nil)
