package adapter

import (
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
)

// Viewer opens PDF files in an external document viewer
type Viewer struct {
	command  string   // configured viewer command, empty for detection
	args     []string // additional arguments for the viewer
	pageFlag string   // page flag prefix, e.g. "--page=" or "-page "
	logger   *slog.Logger

	start func(name string, args ...string) error
}

// launchPath defines a single way to launch a viewer
type launchPath struct {
	path      string   // Command path: "zathura" or "open-a:AppName"
	openFlags []string // For "open-a:" paths only
}

// viewerConfig defines platform-specific launch configurations for a viewer
type viewerConfig struct {
	// pageFlag selects the start page. "@" means the page is a positional
	// argument after the file.
	pageFlag  string
	platforms map[string][]launchPath
}

// viewers registry - single source of truth for all viewer configuration
var viewers = map[string]viewerConfig{
	"zathura": {
		pageFlag: "--page=",
		platforms: map[string][]launchPath{
			"linux": {{path: "zathura"}},
		},
	},
	"evince": {
		pageFlag: "--page-index=",
		platforms: map[string][]launchPath{
			"linux": {{path: "evince"}},
		},
	},
	"okular": {
		pageFlag: "--page ",
		platforms: map[string][]launchPath{
			"linux":   {{path: "okular"}},
			"windows": {{path: "okular"}},
		},
	},
	"mupdf": {
		pageFlag: "@",
		platforms: map[string][]launchPath{
			"darwin":  {{path: "mupdf"}},
			"linux":   {{path: "mupdf"}, {path: "mupdf-gl"}},
			"windows": {{path: "mupdf"}},
		},
	},
	"skim": {
		platforms: map[string][]launchPath{
			"darwin": {{path: "open-a:Skim"}},
		},
	},
	"sumatrapdf": {
		pageFlag: "-page ",
		platforms: map[string][]launchPath{
			"windows": {{path: "SumatraPDF.exe"}},
		},
	},
}

// candidateViewers defines the preferred viewer order for each platform
var candidateViewers = map[string][]string{
	"darwin":  {"skim", "mupdf"},
	"linux":   {"zathura", "evince", "okular", "mupdf"},
	"windows": {"sumatrapdf", "okular", "mupdf"},
}

// NewViewer creates a Viewer. When pageFlag is empty it is looked up from the
// command name for known viewers.
func NewViewer(command string, args []string, pageFlag string, logger *slog.Logger) *Viewer {
	if logger == nil {
		logger = slog.Default()
	}

	resolved := pageFlag
	if resolved == "" && command != "" {
		base := viewerName(command)
		if cfg, ok := viewers[base]; ok && cfg.pageFlag != "" {
			resolved = cfg.pageFlag
			logger.Debug("auto-detected viewer page flag", "viewer", base, "flag", resolved)
		}
	}

	return &Viewer{
		command:  command,
		args:     args,
		pageFlag: resolved,
		logger:   logger,
		start:    startDetached,
	}
}

// viewerName normalises a command path to a registry key
func viewerName(command string) string {
	base := filepath.Base(command)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.ToLower(base)
}

func startDetached(name string, args ...string) error {
	if _, err := exec.LookPath(name); err != nil {
		return err
	}
	return exec.Command(name, args...).Start()
}

// viewerArgs builds the argument list for opening path at the 1-based page.
// Page 1 needs no flag.
func viewerArgs(extra []string, pageFlag, path string, page int) []string {
	args := append([]string{}, extra...)
	if page <= 1 || pageFlag == "" {
		return append(args, path)
	}

	if pageIndexFlag(pageFlag) {
		page--
	}
	n := strconv.Itoa(page)
	switch {
	case pageFlag == "@":
		return append(args, path, n)
	case strings.HasSuffix(pageFlag, " "):
		// Flag like "-page " needs the value as a separate arg
		args = append(args, strings.TrimSuffix(pageFlag, " "), n)
	default:
		args = append(args, pageFlag+n)
	}
	return append(args, path)
}

// pageIndexFlag reports whether flag counts pages from zero
func pageIndexFlag(flag string) bool {
	return flag == viewers["evince"].pageFlag
}

// Launch opens path at page in the configured viewer, a detected one,
// or the system default
func (v *Viewer) Launch(path string, page int) error {
	// Tier 1: User configured a specific viewer
	if v.command != "" {
		if page > 1 && v.pageFlag == "" {
			v.logger.Warn("cannot open at page - unknown viewer, configure page_flag in config",
				"command", v.command, "page", page)
		}
		args := viewerArgs(v.args, v.pageFlag, path, page)
		v.logger.Info("launching viewer", "command", v.command, "args", args)
		return v.start(v.command, args...)
	}

	// Tier 2: Try the candidate chain for this platform
	if name, err := v.detectAndLaunch(path, page); err == nil {
		v.logger.Info("launched with detected viewer", "viewer", name)
		return nil
	}

	// Tier 3: Fall back to system default (open/xdg-open/start)
	v.logger.Info("no candidate viewers found, using system default")
	return v.launchDefault(path)
}

// detectAndLaunch tries candidate viewers in order using configured launch paths
func (v *Viewer) detectAndLaunch(path string, page int) (string, error) {
	candidates, ok := candidateViewers[runtime.GOOS]
	if !ok {
		candidates = candidateViewers["linux"]
	}

	for _, name := range candidates {
		cfg := viewers[name]
		paths, ok := cfg.platforms[runtime.GOOS]
		if !ok {
			continue
		}

		for _, lp := range paths {
			var err error
			if app, ok := strings.CutPrefix(lp.path, "open-a:"); ok {
				args := append(append([]string{}, lp.openFlags...), "-a", app, path)
				err = v.start("open", args...)
			} else {
				err = v.start(lp.path, viewerArgs(nil, cfg.pageFlag, path, page)...)
			}
			if err == nil {
				return name, nil
			}
			v.logger.Debug("launch path not available", "viewer", name, "path", lp.path, "error", err)
		}
	}

	return "", fmt.Errorf("no candidate viewers found")
}

// launchDefault opens the file using the system default handler
func (v *Viewer) launchDefault(path string) error {
	switch runtime.GOOS {
	case "darwin":
		return v.start("open", path)
	case "windows":
		return v.start("cmd", "/c", "start", "", path)
	default:
		return v.start("xdg-open", path)
	}
}
