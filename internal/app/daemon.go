package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const (
	daemonServeUnitName     = "sportwire-serve.service"
	daemonSchedulerUnitName = "sportwire-scheduler.service"
	systemdUnitDir          = "/etc/systemd/system"
)

var daemonUnitNames = []string{
	daemonServeUnitName,
	daemonSchedulerUnitName,
}

func runDaemon(args []string) int {
	if len(args) == 0 {
		printDaemonUsage()
		return 2
	}

	action := strings.ToLower(strings.TrimSpace(args[0]))
	switch action {
	case "help", "-h", "--help":
		printDaemonUsage()
		return 0
	case "install":
		return runDaemonInstall(args[1:])
	case "uninstall":
		return runDaemonUninstall(args[1:])
	case "start":
		return runDaemonServiceAction("start", args[1:], true)
	case "stop":
		return runDaemonServiceAction("stop", args[1:], true)
	case "restart":
		return runDaemonServiceAction("restart", args[1:], true)
	case "status":
		return runDaemonServiceAction("status", args[1:], false)
	default:
		fmt.Fprintf(os.Stderr, "unknown daemon action: %s\n\n", args[0])
		printDaemonUsage()
		return 2
	}
}

func runDaemonInstall(args []string) int {
	fs := flag.NewFlagSet("daemon install", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	defaultUser := strings.TrimSpace(os.Getenv("USER"))
	if defaultUser == "" {
		defaultUser = "root"
	}

	userName := fs.String("user", defaultUser, "Run services as this Linux user")
	apiPort := fs.Int("api-port", 8090, "Port for sportwire-serve")
	workDir := fs.String("workdir", "", "Working directory holding the .env file (defaults to cwd)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon install does not accept positional args")
		return 2
	}
	if err := validatePort(*apiPort, "--api-port"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 2
	}
	if strings.TrimSpace(*userName) == "" {
		fmt.Fprintln(os.Stderr, "--user must not be empty")
		return 2
	}
	if err := requireRoot("install"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	resolvedWorkDir, err := resolveWorkDir(*workDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to resolve --workdir: %v\n", err)
		return 2
	}

	serveUnit := buildServeUnitFile(strings.TrimSpace(*userName), resolvedWorkDir, *apiPort)
	schedulerUnit := buildSchedulerUnitFile(strings.TrimSpace(*userName), resolvedWorkDir)

	if err := writeUnitFile(daemonServeUnitName, serveUnit); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", daemonServeUnitName, err)
		return 1
	}
	if err := writeUnitFile(daemonSchedulerUnitName, schedulerUnit); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", daemonSchedulerUnitName, err)
		return 1
	}
	if err := runSystemctl("daemon-reload"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to reload systemd units: %v\n", err)
		return 1
	}

	enableArgs := append([]string{"enable"}, daemonUnitNames...)
	if err := runSystemctl(enableArgs...); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to enable services: %v\n", err)
		return 1
	}

	fmt.Printf("Installed %s and %s\n", daemonServeUnitName, daemonSchedulerUnitName)
	fmt.Println("Services are enabled on boot. Run `sportwire daemon start` to start them now.")
	return 0
}

func runDaemonUninstall(args []string) int {
	fs := flag.NewFlagSet("daemon uninstall", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "daemon uninstall does not accept positional args")
		return 2
	}
	if err := requireRoot("uninstall"); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}

	stopArgs := append([]string{"stop"}, daemonUnitNames...)
	if err := runSystemctl(stopArgs...); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to stop one or more services: %v\n", err)
	}

	disableArgs := append([]string{"disable"}, daemonUnitNames...)
	if err := runSystemctl(disableArgs...); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to disable one or more services: %v\n", err)
	}

	for _, unitName := range daemonUnitNames {
		unitPath := filepath.Join(systemdUnitDir, unitName)
		if err := os.Remove(unitPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "Failed to remove %s: %v\n", unitPath, err)
			return 1
		}
	}

	if err := runSystemctl("daemon-reload"); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to reload systemd units: %v\n", err)
		return 1
	}

	fmt.Printf("Removed %s and %s\n", daemonServeUnitName, daemonSchedulerUnitName)
	return 0
}

func runDaemonServiceAction(action string, args []string, requireRootPrivileges bool) int {
	fs := flag.NewFlagSet("daemon "+action, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintf(os.Stderr, "daemon %s does not accept positional args\n", action)
		return 2
	}
	if requireRootPrivileges {
		if err := requireRoot(action); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 1
		}
	}

	systemctlArgs := make([]string, 0, 3+len(daemonUnitNames))
	systemctlArgs = append(systemctlArgs, action)
	if action == "status" {
		systemctlArgs = append(systemctlArgs, "--no-pager")
	}
	systemctlArgs = append(systemctlArgs, daemonUnitNames...)

	if err := runSystemctl(systemctlArgs...); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to %s services: %v\n", action, err)
		return 1
	}
	return 0
}

func validatePort(port int, flagName string) error {
	if port < 1 || port > 65535 {
		return fmt.Errorf("%s must be between 1 and 65535", flagName)
	}
	return nil
}

func requireRoot(action string) error {
	if os.Geteuid() == 0 {
		return nil
	}
	return fmt.Errorf("daemon %s requires root privileges; run with sudo: sudo sportwire daemon %s", action, action)
}

func resolveWorkDir(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return "", err
		}
		trimmed = cwd
	}

	absPath, err := filepath.Abs(trimmed)
	if err != nil {
		return "", fmt.Errorf("normalize path %q: %w", trimmed, err)
	}
	info, err := os.Stat(absPath)
	if err != nil {
		return "", err
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%q is not a directory", absPath)
	}
	return absPath, nil
}

func buildServeUnitFile(userName, workDir string, apiPort int) string {
	lines := []string{
		"[Unit]",
		"Description=Sportwire admin API service",
		"After=network.target postgresql.service",
		"",
		"[Service]",
		"Type=simple",
		"User=" + userName,
		"WorkingDirectory=" + workDir,
		"ExecStart=/usr/local/bin/sportwire serve --host 0.0.0.0 --port " + strconv.Itoa(apiPort),
		"Restart=on-failure",
		"RestartSec=5",
		"",
		"[Install]",
		"WantedBy=multi-user.target",
		"",
	}
	return strings.Join(lines, "\n")
}

func buildSchedulerUnitFile(userName, workDir string) string {
	lines := []string{
		"[Unit]",
		"Description=Sportwire pipeline scheduler",
		"After=network.target postgresql.service",
		"",
		"[Service]",
		"Type=simple",
		"User=" + userName,
		"WorkingDirectory=" + workDir,
		"ExecStart=/usr/local/bin/sportwire scheduler",
		"Restart=on-failure",
		"RestartSec=5",
		"",
		"[Install]",
		"WantedBy=multi-user.target",
		"",
	}
	return strings.Join(lines, "\n")
}

func writeUnitFile(name, content string) error {
	unitPath := filepath.Join(systemdUnitDir, name)
	return os.WriteFile(unitPath, []byte(content), 0o644)
}

func runSystemctl(args ...string) error {
	cmd := exec.Command("systemctl", args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("systemctl %s: %w", strings.Join(args, " "), err)
	}
	return nil
}

func printDaemonUsage() {
	fmt.Fprintln(os.Stderr, "sportwire daemon")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  sportwire daemon <action> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Actions:")
	fmt.Fprintln(os.Stderr, "  install     Write unit files, daemon-reload, and enable services on boot")
	fmt.Fprintln(os.Stderr, "  uninstall   Stop, disable, and remove unit files")
	fmt.Fprintln(os.Stderr, "  start       Start both services")
	fmt.Fprintln(os.Stderr, "  stop        Stop both services")
	fmt.Fprintln(os.Stderr, "  restart     Restart both services")
	fmt.Fprintln(os.Stderr, "  status      Show status for both services")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Install flags:")
	fmt.Fprintln(os.Stderr, "  --user <name>      Service user (default: $USER)")
	fmt.Fprintln(os.Stderr, "  --api-port <n>     Admin API port (default: 8090)")
	fmt.Fprintln(os.Stderr, "  --workdir <path>   Directory holding the .env file (default: cwd)")
}
