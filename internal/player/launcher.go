package player

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"time"
)

// offsetFlags maps known players to their start-offset flag prefix.
var offsetFlags = map[string]string{
	"mpv":     "--start=",
	"vlc":     "--start-time=",
	"mplayer": "-ss ",
}

// candidates is the detection order when no player is configured.
var candidates = []string{"mpv", "vlc", "mplayer"}

// Launcher opens lesson audio, local file or stream URL, in an external
// player. The app never decodes audio itself.
type Launcher struct {
	command string
	args    []string
	logger  *slog.Logger
}

func NewLauncher(command string, args []string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Launcher{command: command, args: args, logger: logger}
}

// Launch plays target (a file path or URL) starting at offset. The player
// process is detached; playback outlives this call.
func (l *Launcher) Launch(target string, offset time.Duration) error {
	if l.command != "" {
		return l.start(l.command, target, offset)
	}

	for _, name := range candidates {
		if _, err := exec.LookPath(name); err != nil {
			continue
		}
		return l.start(name, target, offset)
	}

	l.logger.Info("no known player found, using system default")
	return l.launchDefault(target)
}

func (l *Launcher) start(command, target string, offset time.Duration) error {
	args := append([]string{}, l.args...)

	if offset > 0 {
		flag, ok := offsetFlags[strings.ToLower(command)]
		switch {
		case ok && strings.HasSuffix(flag, " "):
			args = append(args, strings.TrimSuffix(flag, " "), fmt.Sprintf("%.0f", offset.Seconds()))
		case ok:
			args = append(args, fmt.Sprintf("%s%.0f", flag, offset.Seconds()))
		default:
			l.logger.Warn("cannot set start offset for unknown player", "command", command)
		}
	}

	args = append(args, target)
	l.logger.Info("launching player", "command", command, "args", args)
	return exec.Command(command, args...).Start()
}

func (l *Launcher) launchDefault(target string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", target)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", target)
	default:
		cmd = exec.Command("xdg-open", target)
	}
	return cmd.Start()
}
