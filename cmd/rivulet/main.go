package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/flowloom/rivulet/config"
	"github.com/flowloom/rivulet/httpapi"
	"github.com/flowloom/rivulet/workflowstore"
)

func runServer() error {
	logger := newProcessLogger()
	defer logger.Sync()

	cfg, err := config.Load(os.Getenv("RIV_CONFIG"))
	if err != nil {
		logger.Error("failed to load config", zap.Error(err))
		return err
	}
	srvAPI := httpapi.New(workflowstore.NewCollection(), buildDeps(cfg, logger))
	port := cfg.APIPort
	if v := os.Getenv("RIV_API_PORT"); v != "" {
		port = v
	}
	logger.Info("starting rivulet API server", zap.String("port", port))
	srv := &http.Server{Addr: ":" + port, Handler: srvAPI.Router()}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", zap.Error(err))
		}
	}()
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down rivulet API server")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}

func main() {
	if len(os.Args) < 2 {
		_ = runServer()
		return
	}
	sub := os.Args[1]
	switch sub {
	case "server":
		_ = runServer()
	case "start":
		if err := startDaemon(); err != nil {
			fmt.Println("start error:", err)
			os.Exit(1)
		}
	case "stop":
		if err := stopDaemon(); err != nil {
			fmt.Println("stop error:", err)
			os.Exit(1)
		}
	case "status":
		if err := statusDaemon(); err != nil {
			fmt.Println("status error:", err)
			os.Exit(1)
		}
	case "run":
		if len(os.Args) < 3 {
			fmt.Println("usage: rivulet run <workflow.json>")
			os.Exit(2)
		}
		os.Exit(cmdRun(os.Args[2]))
	case "validate":
		if len(os.Args) < 3 {
			fmt.Println("usage: rivulet validate <workflow.json>")
			os.Exit(2)
		}
		os.Exit(cmdValidate(os.Args[2]))
	case "export":
		fs := flag.NewFlagSet("export", flag.ExitOnError)
		_ = fs.Parse(os.Args[2:])
		if fs.NArg() < 2 {
			fmt.Println("usage: rivulet export <workflow.json> <out.json>")
			os.Exit(2)
		}
		os.Exit(cmdExport(fs.Arg(0), fs.Arg(1)))
	case "import":
		if len(os.Args) < 3 {
			fmt.Println("usage: rivulet import <workflow.json>")
			os.Exit(2)
		}
		os.Exit(cmdImport(os.Args[2]))
	case "schedule":
		if len(os.Args) < 3 {
			fmt.Println("usage: rivulet schedule <workflow.json>")
			os.Exit(2)
		}
		os.Exit(cmdSchedule(os.Args[2]))
	case "inst":
		if len(os.Args) < 3 {
			fmt.Println("usage: rivulet inst <create|ps|stop|logs|enqueue> [args]")
			os.Exit(2)
		}
		sub2 := os.Args[2]
		switch sub2 {
		case "create":
			fs := flag.NewFlagSet("inst create", flag.ExitOnError)
			wf := fs.String("workflow", "", "Path to workflow JSON")
			_ = fs.Parse(os.Args[3:])
			if *wf == "" {
				fmt.Println("--workflow is required")
				os.Exit(2)
			}
			if err := instCreate(*wf); err != nil {
				fmt.Println("error:", err)
				os.Exit(1)
			}
		case "ps":
			if err := instPS(); err != nil {
				fmt.Println("error:", err)
				os.Exit(1)
			}
		case "stop":
			fs := flag.NewFlagSet("inst stop", flag.ExitOnError)
			id := fs.String("id", "", "Instance ID")
			_ = fs.Parse(os.Args[3:])
			if *id == "" {
				fmt.Println("--id is required")
				os.Exit(2)
			}
			if err := instStop(*id); err != nil {
				fmt.Println("error:", err)
				os.Exit(1)
			}
		case "logs":
			fs := flag.NewFlagSet("inst logs", flag.ExitOnError)
			id := fs.String("id", "", "Instance ID")
			_ = fs.Parse(os.Args[3:])
			if *id == "" {
				fmt.Println("--id is required")
				os.Exit(2)
			}
			if err := instLogs(*id); err != nil {
				fmt.Println("error:", err)
				os.Exit(1)
			}
		case "enqueue":
			fs := flag.NewFlagSet("inst enqueue", flag.ExitOnError)
			id := fs.String("id", "", "Instance ID")
			_ = fs.Parse(os.Args[3:])
			if *id == "" {
				fmt.Println("--id is required")
				os.Exit(2)
			}
			if err := instEnqueue(*id); err != nil {
				fmt.Println("error:", err)
				os.Exit(1)
			}
		default:
			fmt.Println("usage: rivulet inst <create|ps|stop|logs|enqueue> [args]")
			os.Exit(2)
		}
	default:
		fmt.Println("usage:")
		fmt.Println("  rivulet server                # start API server (foreground)")
		fmt.Println("  rivulet start                  # start background daemon")
		fmt.Println("  rivulet stop                   # stop background daemon")
		fmt.Println("  rivulet status                 # show daemon status")
		fmt.Println("  rivulet run <workflow.json>    # run a workflow once")
		fmt.Println("  rivulet validate <workflow.json>")
		fmt.Println("  rivulet export <in.json> <out.json>")
		fmt.Println("  rivulet import <workflow.json>")
		fmt.Println("  rivulet schedule <workflow.json>")
		fmt.Println("  rivulet inst ...               # manage workflow instances")
		os.Exit(2)
	}
}

// --- Daemon helpers ---

func rivHomeDir() (string, error) {
	if v := os.Getenv("RIV_HOME"); v != "" {
		return v, nil
	}
	h, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(h, ".rivulet"), nil
}

func ensureDir(path string) error {
	if fi, err := os.Stat(path); err == nil {
		if fi.IsDir() {
			return nil
		}
		return fmt.Errorf("%s exists and is not a directory", path)
	} else if os.IsNotExist(err) {
		return os.MkdirAll(path, 0o755)
	} else {
		return err
	}
}

func pidFilePath() (string, error) {
	base, err := rivHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "rivulet.pid"), nil
}

func logFilePath() (string, error) {
	base, err := rivHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(base, "rivulet.log"), nil
}

func readPID() (int, error) {
	p, err := pidFilePath()
	if err != nil {
		return 0, err
	}
	b, err := os.ReadFile(p)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0, err
	}
	return pid, nil
}

func writePID(pid int) error {
	p, err := pidFilePath()
	if err != nil {
		return err
	}
	return os.WriteFile(p, []byte(strconv.Itoa(pid)), 0o644)
}

func removePIDFile() {
	if p, err := pidFilePath(); err == nil {
		_ = os.Remove(p)
	}
}

func isRunning(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	if err == nil {
		return true
	}
	return err == syscall.EPERM
}

func startDaemon() error {
	home, err := rivHomeDir()
	if err != nil {
		return err
	}
	if err := ensureDir(home); err != nil {
		return err
	}
	pidPath, _ := pidFilePath()
	if b, err := os.ReadFile(pidPath); err == nil {
		if pid, perr := strconv.Atoi(strings.TrimSpace(string(b))); perr == nil && isRunning(pid) {
			return fmt.Errorf("rivulet already running (pid %d)", pid)
		}
	}

	logPath, _ := logFilePath()
	lf, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	_, _ = io.WriteString(lf, time.Now().Format(time.RFC3339)+" starting rivulet daemon\n")

	bin, err := os.Executable()
	if err != nil {
		return err
	}
	cmd := exec.Command(bin, "server")
	cmd.Stdout = lf
	cmd.Stderr = lf
	cmd.Stdin = nil
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		_ = lf.Close()
		return err
	}
	if err := writePID(cmd.Process.Pid); err != nil {
		_ = lf.Close()
		return err
	}
	_ = lf.Close()
	fmt.Printf("rivulet started in background (pid %d). logs: %s\n", cmd.Process.Pid, logPath)
	return nil
}

func stopDaemon() error {
	pid, err := readPID()
	if err != nil {
		return fmt.Errorf("cannot read pid file: %w", err)
	}
	if !isRunning(pid) {
		removePIDFile()
		fmt.Println("rivulet is not running")
		return nil
	}
	if err := syscall.Kill(pid, syscall.SIGTERM); err != nil {
		return err
	}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if !isRunning(pid) {
			removePIDFile()
			fmt.Println("rivulet stopped")
			return nil
		}
		time.Sleep(150 * time.Millisecond)
	}
	_ = syscall.Kill(pid, syscall.SIGKILL)
	removePIDFile()
	fmt.Println("rivulet force-stopped")
	return nil
}

func statusDaemon() error {
	pid, err := readPID()
	if err != nil {
		fmt.Println("rivulet not running (no pid file)")
		return nil
	}
	if isRunning(pid) {
		logPath, _ := logFilePath()
		fmt.Printf("rivulet running (pid %d). logs: %s\n", pid, logPath)
	} else {
		fmt.Printf("rivulet not running (stale pid %d)\n", pid)
		removePIDFile()
	}
	return nil
}

// --- Instance CLI helpers (call the local API) ---

func apiBase() string {
	port := os.Getenv("RIV_API_PORT")
	if port == "" {
		port = "8080"
	}
	return "http://127.0.0.1:" + port
}

func httpJSON(method, path string, payload any) (map[string]any, error) {
	var body *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader([]byte{})
	}
	req, _ := http.NewRequest(method, apiBase()+path, body)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	if ok, _ := out["success"].(bool); !ok {
		if msg, _ := out["error"].(string); msg != "" {
			return nil, fmt.Errorf(msg)
		}
		return nil, fmt.Errorf("request failed")
	}
	if data, _ := out["data"].(map[string]any); data != nil {
		return data, nil
	}
	return out, nil
}

func instCreate(path string) error {
	data, err := httpJSON("POST", "/instances", map[string]string{"workflow_path": path})
	if err != nil {
		return err
	}
	fmt.Printf("created instance: %s (state=%v)\n", data["id"], data["state"])
	return nil
}

func instPS() error {
	data, err := httpJSON("GET", "/instances", nil)
	if err != nil {
		return err
	}
	insts, _ := data["instances"].([]any)
	for _, it := range insts {
		m := it.(map[string]any)
		fmt.Printf("%s\t%s\t%s\t%s\n", m["id"], m["state"], m["name"], m["workflow_path"])
	}
	return nil
}

func instStop(id string) error {
	_, err := httpJSON("POST", "/instances/"+id+"/stop", map[string]any{})
	return err
}

func instLogs(id string) error {
	data, err := httpJSON("GET", "/instances/"+id+"/logs", nil)
	if err != nil {
		return err
	}
	logs, _ := data["logs"].([]any)
	for _, l := range logs {
		fmt.Println(l)
	}
	return nil
}

func instEnqueue(id string) error {
	_, err := httpJSON("POST", "/instances/"+id+"/enqueue", map[string]any{})
	return err
}
