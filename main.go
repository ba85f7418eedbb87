package main

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/paleotronic/pascalfs/config"
	"github.com/paleotronic/pascalfs/disk"
	"github.com/paleotronic/pascalfs/loggy"
	"github.com/paleotronic/pascalfs/pascal"
	flag "github.com/spf13/pflag"
)

func binpath() string {

	if runtime.GOOS == "windows" {
		return os.Getenv("APPDATA") + "/PascalFS"
	}

	return os.Getenv("HOME") + "/PascalFS"

}

func init() {
	loggy.LogFolder = binpath() + "/logs/"
}

var cfg = config.Default()

var configFile = flag.String("config", "", "YAML configuration file (default $"+config.EnvVar+")")
var image = flag.StringP("image", "i", "", "Disk image to work on")
var verbose = flag.BoolP("verbose", "v", false, "Log to stderr")
var shell = flag.Bool("shell", false, "Start interactive mode")
var shellBatch = flag.String("shell-batch", "", "Execute shell command(s) from file and exit")
var catalog = flag.BoolP("catalog", "c", false, "Catalog the volume")
var check = flag.Bool("check", false, "Scan the volume and report problems")
var formatName = flag.String("format", "", "Format the image with this volume name")
var blocks = flag.Int("blocks", disk.PRODOS_BLOCKS_PER_DISK, "Size in blocks when --format creates a new image")
var makeBootable = flag.Bool("bootable", false, "Write boot blocks when formatting")
var putFile = flag.String("put", "", "Copy a local file onto the volume")
var getName = flag.String("get", "", "Extract file(s) matching name from the volume")
var deleteName = flag.String("delete", "", "Delete a file from the volume")
var renameSpec = flag.String("rename", "", "Rename a file (OLD=NEW)")
var reportOut = flag.String("report", "", "Write a volume report to file (- for stdout)")
var fileType = flag.String("type", "", "Pascal file type extension for --put (PTX, PCD, PDA, ...)")
var rawText = flag.Bool("raw", false, "Copy TEXT files without converting them")
var noBackup = flag.Bool("no-backup", false, "Do not back up images before writing them")

func main() {

	flag.Parse()

	if err := configure(); err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(2)
	}

	if *shellBatch != "" {
		os.Exit(runBatch(*shellBatch))
	}

	if *image == "" && len(flag.Args()) > 0 {
		*image = flag.Arg(0)
	}

	if *image != "" {
		if r := mountImage(*image); r != 0 {
			os.Exit(1)
		}
		if r := runCommands(); r != 0 {
			unmountAll()
			os.Exit(1)
		}
	}

	if *shell || *image == "" {
		shellDo()
	}

	unmountAll()
}

// configure loads the config file and applies it to logging and the boot
// image registry.
func configure() error {

	var err error
	if *configFile != "" {
		cfg, err = config.LoadFile(*configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return err
	}

	loggy.Level = cfg.LogLevel()
	loggy.ECHO = cfg.Log.Echo || *verbose
	if cfg.Log.Folder != "" {
		loggy.LogFolder = cfg.Log.Folder
	}
	// loggers made before the config was read keep the old settings
	loggy.Reset()

	for size, path := range cfg.Format.BootImages {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("boot image %s: %w", size, err)
		}
		kind := pascal.Boot525
		if size == "3.5" {
			kind = pascal.Boot35
		}
		if err := pascal.RegisterBootImage(kind, data); err != nil {
			return fmt.Errorf("boot image %s: %w", path, err)
		}
	}

	return nil
}

// mountImage mounts filename into the first slot. A missing file is only
// acceptable when --format will create it.
func mountImage(filename string) int {

	if _, err := os.Stat(filename); errors.Is(err, fs.ErrNotExist) && *formatName != "" {
		order := disk.SectorOrderProDOS
		if *blocks == disk.PRODOS_BLOCKS_PER_DISK {
			order = disk.OrderHint(filename)
		}
		img, err := disk.NewBlankImage(*blocks, order)
		if err != nil {
			os.Stderr.WriteString("Error:" + err.Error() + "\n")
			return -1
		}
		img.Filename = filename
		slotid, err := mountDsk(img)
		if err != nil {
			os.Stderr.WriteString("Error:" + err.Error() + "\n")
			return -1
		}
		commandTarget = slotid
		return 0
	}

	return shellMount([]string{filename})
}

// runCommands turns the one-shot flags into shell commands, in the order a
// user would type them.
func runCommands() int {

	var cmds []string

	if *formatName != "" {
		c := "format " + quote(*formatName)
		if *makeBootable {
			c += " boot"
		}
		cmds = append(cmds, c)
	}
	if *renameSpec != "" {
		parts := strings.SplitN(*renameSpec, "=", 2)
		if len(parts) != 2 {
			os.Stderr.WriteString("--rename expects OLD=NEW\n")
			return -1
		}
		cmds = append(cmds, "mv "+quote(parts[0])+" "+quote(parts[1]))
	}
	if *deleteName != "" {
		cmds = append(cmds, "rm "+quote(*deleteName))
	}
	if *putFile != "" {
		cmds = append(cmds, "put "+quote(*putFile))
	}
	if *getName != "" {
		cmds = append(cmds, "get "+quote(*getName))
	}
	if *check {
		cmds = append(cmds, "check")
	}
	if *catalog {
		cmds = append(cmds, "cat")
	}
	if *reportOut == "-" {
		cmds = append(cmds, "report")
	} else if *reportOut != "" {
		cmds = append(cmds, "report "+quote(*reportOut))
	}

	for _, c := range cmds {
		if r := shellProcess(c); r != 0 {
			return r
		}
	}

	return 0
}

func quote(s string) string {
	return `"` + s + `"`
}

func runBatch(filename string) int {

	f, err := os.Open(filename)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open %s: %v\n", filename, err)
		return 1
	}
	defer f.Close()

	defer unmountAll()

	base := filepath.Base(filename)
	n := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		n++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fmt.Printf("%s:%d> %s\n", base, n, line)
		r := shellProcess(line)
		if r == 999 {
			return 0
		}
		if r != 0 {
			fmt.Fprintf(os.Stderr, "%s:%d: command failed\n", base, n)
			return 1
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Reading %s: %v\n", filename, err)
		return 1
	}

	return 0
}
