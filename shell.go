package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/chzyer/readline"
	"github.com/paleotronic/pascalfs/disk"
	"github.com/paleotronic/pascalfs/fsys"
	"github.com/paleotronic/pascalfs/loggy"
	"github.com/paleotronic/pascalfs/pascal"
	"github.com/paleotronic/pascalfs/report"
)

const MAXVOL = 8

// mountedVolume is an image in a slot. vol is nil until the image holds a
// filesystem we recognize.
type mountedVolume struct {
	img *disk.Image
	vol *fsys.Volume
}

func (m *mountedVolume) pascal() *pascal.Pascal {
	if m.vol == nil {
		return nil
	}
	p, _ := m.vol.FS.(*pascal.Pascal)
	return p
}

var commandList map[string]*shellCommand
var commandVolumes [MAXVOL]*mountedVolume
var commandTarget int = -1

func current() *mountedVolume {
	if commandTarget == -1 {
		return nil
	}
	return commandVolumes[commandTarget]
}

func openVolume(img *disk.Image) (*fsys.Volume, error) {
	return fsys.OpenImageWith(img, loggy.Get(0), fsys.OpenOptions{
		DoScan: cfg.Catalog.Scan,
		Configure: func(fs fsys.FileSystem) {
			if p, ok := fs.(*pascal.Pascal); ok {
				p.SetOptions(pascal.Options{RejectOutOfOrder: cfg.RejectOutOfOrder()})
			}
		},
	})
}

func mountDsk(img *disk.Image) (int, error) {

	var fr []int

	for i, d := range commandVolumes {
		if d == nil {
			fr = append(fr, i)
		} else if img.Filename == d.img.Filename {
			return i, nil
		}
	}

	if len(fr) == 0 {
		return -1, errors.New("No free slots")
	}

	m := &mountedVolume{img: img}
	vol, err := openVolume(img)
	switch {
	case err == nil:
		m.vol = vol
	case errors.Is(err, fsys.ErrFormatInvalid):
		os.Stderr.WriteString("No Pascal volume found; use format to create one\n")
	default:
		return -1, err
	}

	commandVolumes[fr[0]] = m

	return fr[0], nil

}

func smartSplit(line string) (string, []string) {

	var out []string

	var inqq bool
	var lastEscape bool
	var chunk string

	add := func() {
		if chunk != "" {
			out = append(out, chunk)
			chunk = ""
		}
	}

	for _, ch := range line {
		switch {
		case ch == '"':
			inqq = !inqq
			add()
		case ch == ' ':
			if inqq || lastEscape {
				chunk += string(ch)
			} else {
				add()
			}
			lastEscape = false
		case ch == '\\' && !inqq:
			lastEscape = true
		default:
			chunk += string(ch)
		}
	}

	add()

	if len(out) == 0 {
		return "", out
	}

	return out[0], out[1:]
}

func getPrompt(t int) string {

	if t == -1 || commandVolumes[t] == nil {
		return "pas:<no mount>> "
	}

	m := commandVolumes[t]
	name := "?"
	if p := m.pascal(); p != nil {
		hdr := p.Header()
		name = hdr.GetName()
	}

	return fmt.Sprintf("pas:%d:%s:/%s> ", t, filepath.Base(m.img.Filename), name)
}

type shellCommand struct {
	Name             string
	Description      string
	MinArgs, MaxArgs int
	Code             func(args []string) int
	NeedsMount       bool
	NeedsVolume      bool
	Context          shellCommandContext
	Text             []string
}

type shellCommandContext int

const (
	sccNone shellCommandContext = 1 << iota
	sccLocal
	sccDiskFile
	sccCommand
	sccAnyFile = sccDiskFile | sccLocal
)

type shellCompleter struct {
}

func hasPrefix(str []rune, prefix []rune) bool {
	if len(prefix) > len(str) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		if str[i] != prefix[i] {
			return false
		}
	}
	return true
}

func (sc *shellCompleter) Do(line []rune, pos int) ([][]rune, int) {

	prefix := ""
	chunk := ""
	for _, ch := range line {
		if ch == ' ' {
			prefix = chunk
			break
		} else {
			chunk += string(ch)
		}
	}

	chunk = ""
	cprefix := ""
	var lastEscape bool
	for i := 0; i < pos; i++ {
		ch := line[i]
		switch {
		case ch == '\\':
			lastEscape = true
		case ch == ' ' && !lastEscape:
			cprefix = chunk
			chunk = ""
			lastEscape = false
		default:
			chunk += string(ch)
		}
	}
	if chunk != "" {
		cprefix = chunk
	}

	var context shellCommandContext = sccNone
	cmd, match := commandList[prefix]
	if match {
		context = cmd.Context
	} else {
		context = sccCommand
	}

	var items [][]rune
	switch context {
	case sccCommand:
		for k := range commandList {
			items = append(items, []rune(k))
		}
	case sccDiskFile:
		m := current()
		if m == nil || m.pascal() == nil {
			return [][]rune(nil), 0
		}
		p := m.pascal()
		files, err := p.Catalog()
		if err != nil {
			return [][]rune(nil), 0
		}
		for _, f := range files {
			items = append(items, []rune(f.String()))
		}
	case sccLocal:
		files, err := filepath.Glob(cprefix + "*")
		if err != nil {
			return items, 0
		}
		for _, v := range files {
			items = append(items, []rune(v))
		}
	}

	if len(items) == 0 {
		return [][]rune(nil), 0
	}

	var filt [][]rune
	for _, v := range items {
		if hasPrefix(v, []rune(cprefix)) {
			filt = append(filt, shellEscape(v[len(cprefix):]))
		}
	}
	return filt, len(cprefix)
}

func shellEscape(str []rune) []rune {
	out := make([]rune, 0)
	for _, v := range str {
		if v == ' ' {
			out = append(out, '\\')
		}
		out = append(out, v)
	}
	return out
}

func init() {
	commandList = map[string]*shellCommand{
		"mount": {
			Name:        "mount",
			Description: "Mount a disk image",
			MinArgs:     1,
			MaxArgs:     1,
			Code:        shellMount,
			Context:     sccLocal,
			Text: []string{
				"mount <diskfile>",
				"",
				"Mounts disk and switches to the new slot",
			},
		},
		"unmount": {
			Name:        "unmount",
			Description: "Unmount disk image",
			MinArgs:     0,
			MaxArgs:     1,
			Code:        shellUnmount,
			NeedsMount:  true,
			Context:     sccNone,
			Text: []string{
				"unmount <slot>",
				"",
				"Unmount the disk in the specified slot (or current slot)",
			},
		},
		"disks": {
			Name:        "disks",
			Description: "List mounted disks",
			MinArgs:     0,
			MaxArgs:     0,
			Code:        shellDisks,
			Context:     sccNone,
		},
		"prefix": {
			Name:        "prefix",
			Description: "Switch to another mounted slot",
			MinArgs:     1,
			MaxArgs:     1,
			Code:        shellPrefix,
			Context:     sccNone,
			Text: []string{
				"prefix <slot>",
				"",
				"Makes the disk in <slot> the current disk",
			},
		},
		"cat": {
			Name:        "cat",
			Description: "Catalog the current volume",
			MinArgs:     0,
			MaxArgs:     1,
			Code:        shellCat,
			NeedsVolume: true,
			Context:     sccDiskFile,
			Text: []string{
				"cat [pattern]",
				"",
				"Lists files matching pattern (* and ? wildcards)",
			},
		},
		"check": {
			Name:        "check",
			Description: "Rescan the volume and show problems",
			MinArgs:     0,
			MaxArgs:     0,
			Code:        shellCheck,
			NeedsVolume: true,
			Context:     sccNone,
		},
		"free": {
			Name:        "free",
			Description: "Show free space",
			MinArgs:     0,
			MaxArgs:     0,
			Code:        shellFree,
			NeedsVolume: true,
			Context:     sccNone,
		},
		"put": {
			Name:        "put",
			Description: "Copy a local file onto the volume",
			MinArgs:     1,
			MaxArgs:     2,
			Code:        shellPut,
			NeedsVolume: true,
			Context:     sccLocal,
			Text: []string{
				"put <localfile> [name]",
				"",
				"Writes localfile to the volume. The Pascal file type is taken",
				"from the extension of name (TEXT, CODE, DATA, ...). Plain text",
				"is converted to the TEXT page format unless --raw was given.",
			},
		},
		"get": {
			Name:        "get",
			Description: "Extract files from the volume",
			MinArgs:     1,
			MaxArgs:     -1,
			Code:        shellGet,
			NeedsVolume: true,
			Context:     sccDiskFile,
			Text: []string{
				"get <filename|pattern> ...",
				"",
				"Extracts files from current disk into the working directory",
			},
		},
		"rm": {
			Name:        "rm",
			Description: "Delete a file",
			MinArgs:     1,
			MaxArgs:     1,
			Code:        shellDelete,
			NeedsVolume: true,
			Context:     sccDiskFile,
		},
		"mv": {
			Name:        "mv",
			Description: "Rename a file",
			MinArgs:     2,
			MaxArgs:     2,
			Code:        shellRename,
			NeedsVolume: true,
			Context:     sccDiskFile,
			Text: []string{
				"mv <oldname> <newname>",
			},
		},
		"setvolume": {
			Name:        "setvolume",
			Description: "Sets the volume name",
			MinArgs:     1,
			MaxArgs:     1,
			Code:        shellVolumeName,
			NeedsVolume: true,
			Context:     sccNone,
			Text: []string{
				"setvolume <volume name>",
				"",
				"Set Pascal volume name (1 to 7 characters).",
			},
		},
		"format": {
			Name:        "format",
			Description: "Write an empty volume",
			MinArgs:     0,
			MaxArgs:     2,
			Code:        shellFormat,
			NeedsMount:  true,
			Context:     sccNone,
			Text: []string{
				"format [volume name] [boot]",
				"",
				"Erases the current disk. With boot, boot blocks are written too.",
			},
		},
		"block": {
			Name:        "block",
			Description: "Dump a raw block",
			MinArgs:     1,
			MaxArgs:     1,
			Code:        shellBlock,
			NeedsMount:  true,
			Context:     sccNone,
			Text: []string{
				"block <n>",
				"",
				"Hex dump of block n, read in raw mode",
			},
		},
		"report": {
			Name:        "report",
			Description: "Write a volume report",
			MinArgs:     0,
			MaxArgs:     1,
			Code:        shellReport,
			NeedsVolume: true,
			Context:     sccLocal,
			Text: []string{
				"report [outfile]",
				"",
				"Writes a report of the volume to outfile (stdout if omitted).",
				"A .cbor extension selects CBOR, otherwise report.encoding is used.",
			},
		},
		"dir": {
			Name:        "dir",
			Description: "Formatted listing with digests",
			MinArgs:     0,
			MaxArgs:     1,
			Code:        shellDir,
			NeedsVolume: true,
			Context:     sccNone,
			Text: []string{
				"dir [format]",
				"",
				"Lists files using format. Placeholders are {filename}, {type},",
				"{ext}, {size}, {size:b}, {size:blocks}, {start}, {blake3} and {date}.",
			},
		},
		"cd": {
			Name:        "cd",
			Description: "Change local directory",
			MinArgs:     0,
			MaxArgs:     1,
			Code:        shellCd,
			Context:     sccLocal,
		},
		"lls": {
			Name:        "lls",
			Description: "List local files",
			MinArgs:     0,
			MaxArgs:     -1,
			Code:        shellListFiles,
			Context:     sccLocal,
		},
		"help": {
			Name:        "help",
			Description: "Shows this help",
			MinArgs:     0,
			MaxArgs:     1,
			Code:        shellHelp,
			Context:     sccCommand,
			Text: []string{
				"help <command>",
				"",
				"Display specific help for command or list of commands",
			},
		},
		"quit": {
			Name:        "quit",
			Description: "Leave this place",
			MinArgs:     0,
			MaxArgs:     0,
			Code:        shellQuit,
			Context:     sccNone,
		},
	}
}

func shellProcess(line string) int {
	line = strings.TrimSpace(line)

	verb, args := smartSplit(line)

	if verb != "" {
		verb = strings.ToLower(verb)
		command, ok := commandList[verb]
		if ok {
			fmt.Println()
			var cok = true
			if command.MinArgs != -1 {
				if len(args) < command.MinArgs {
					os.Stderr.WriteString(fmt.Sprintf("%s expects at least %d arguments\n", verb, command.MinArgs))
					cok = false
				}
			}
			if command.MaxArgs != -1 {
				if len(args) > command.MaxArgs {
					os.Stderr.WriteString(fmt.Sprintf("%s expects at most %d arguments\n", verb, command.MaxArgs))
					cok = false
				}
			}
			if command.NeedsMount || command.NeedsVolume {
				if current() == nil {
					os.Stderr.WriteString(fmt.Sprintf("%s only works on mounted disks\n", verb))
					cok = false
				} else if command.NeedsVolume && current().vol == nil {
					os.Stderr.WriteString(fmt.Sprintf("%s needs a formatted volume\n", verb))
					cok = false
				}
			}
			if cok {
				r := command.Code(args)
				fmt.Println()
				return r
			} else {
				return -1
			}
		} else {
			os.Stderr.WriteString(fmt.Sprintf("Unrecognized command: %s\n", verb))
			return -1
		}
	}

	return 0
}

func shellDo() {

	ac := &shellCompleter{}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:                 getPrompt(commandTarget),
		HistoryFile:            binpath() + "/.shell_history",
		DisableAutoSaveHistory: false,
		AutoComplete:           ac,
	})
	if err != nil {
		loggy.Get(0).Errorf("readline: %v", err)
		os.Exit(2)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			break
		}

		r := shellProcess(line)
		if r == 999 {
			return
		}

		rl.SetPrompt(getPrompt(commandTarget))
	}

}

func shellMount(args []string) int {

	img, err := disk.LoadImage(args[0])
	if err != nil {
		os.Stderr.WriteString("Error:" + err.Error() + "\n")
		return -1
	}

	slotid, err := mountDsk(img)
	if err != nil {
		os.Stderr.WriteString("Error:" + err.Error() + "\n")
		return -1
	}

	commandTarget = slotid
	os.Stderr.WriteString(fmt.Sprintf("mount disk in slot %d\n", slotid))

	return 0
}

// unmountAll closes every slot, used on exit.
func unmountAll() {
	for i := range commandVolumes {
		if commandVolumes[i] != nil {
			commandTarget = i
			shellUnmount(nil)
		}
	}
}

func shellUnmount(args []string) int {

	if len(args) > 0 {
		if shellPrefix(args) == -1 {
			return -1
		}
	}

	m := commandVolumes[commandTarget]
	if m != nil {

		if m.vol != nil {
			if err := m.vol.Close(); err != nil {
				os.Stderr.WriteString("Close: " + err.Error() + "\n")
			}
		}
		if m.img.IsChanged() {
			saveDisk(m.img)
		}

		commandVolumes[commandTarget] = nil
		commandTarget = -1
		for i, d := range commandVolumes {
			if d != nil {
				commandTarget = i
				break
			}
		}

		os.Stderr.WriteString("Unmounted volume\n")

	}

	return 0
}

func shellDisks(args []string) int {

	fmt.Println("Mounted Volumes")
	for i, d := range commandVolumes {
		if d != nil {
			fmt.Printf("%d:%s\n", i, d.img.Filename)
		}
	}

	return 0
}

func shellPrefix(args []string) int {

	tmp, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		os.Stderr.WriteString("Invalid slot number: " + args[0] + "\n")
		return -1
	}

	slotid := int(tmp)
	if slotid < 0 || slotid >= MAXVOL {
		os.Stderr.WriteString(fmt.Sprintf("Valid slots are %d to %d.\n", 0, MAXVOL-1))
		return -1
	}

	d := commandVolumes[slotid]
	if d == nil {
		os.Stderr.WriteString(fmt.Sprintf("Nothing mounted in slot %d (use disks to see mounts)\n", slotid))
		return -1
	}

	commandTarget = slotid

	return 0

}

func shellHelp(args []string) int {

	if len(args) == 0 {
		keys := make([]string, 0)
		for k := range commandList {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			info := commandList[k]
			fmt.Printf("%-10s %s\n", info.Name, info.Description)
		}
	} else {
		command := strings.ToLower(args[0])
		if details, ok := commandList[command]; ok && details.Text != nil {
			for _, l := range details.Text {
				fmt.Println(l)
			}
		} else {
			os.Stderr.WriteString("No help available for " + command)
		}
	}

	return 0
}

func shellQuit(args []string) int {

	return 999

}

func shellCat(args []string) int {

	p := current().pascal()

	pattern := "*"
	if len(args) > 0 {
		pattern = args[0]
	}

	files, err := p.Glob(pattern)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return -1
	}

	hdr := p.Header()
	fmt.Printf("Volume Name is %s\n\n", hdr.GetName())

	fmt.Printf("%-15s  %6s  %5s  %-9s  %6s  %s\n", "NAME", "BLOCKS", "START", "DATE", "BYTES", "KIND")
	for _, f := range files {
		attrs, err := f.Attrs()
		if err != nil {
			continue
		}
		ext, _ := f.Extent()
		date := "         "
		if !attrs.Modified.IsZero() {
			date = attrs.Modified.Format("02-Jan-06")
		}
		damaged := ""
		if attrs.Damaged {
			damaged = " (damaged)"
		}
		fmt.Printf("%-15s  %6d  %5d  %-9s  %6d  %s%s\n", attrs.Name, ext.BlockCount(), ext.Start, date, attrs.DataLength, attrs.TypeName, damaged)
	}

	free, _ := p.FreeSpace()
	total := int(hdr.BlockCount)
	fmt.Printf("\nUSED: %-20d FREE: %-20d\n", total-int(free/pascal.PASCAL_BLOCK_SIZE), free/pascal.PASCAL_BLOCK_SIZE)

	return 0

}

func shellCheck(args []string) int {

	m := current()
	fs := m.vol.FS

	if err := fs.PrepareRawAccess(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return -1
	}
	if err := fs.PrepareFileAccess(true); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return -1
	}

	p := m.pascal()
	hdr := p.Header()
	s := p.Usage().Analyze()
	fmt.Printf("In use     : %d blocks\n", s.MarkedUsed)
	fmt.Printf("Conflicts  : %d blocks\n", s.Conflicts)
	fmt.Printf("Directory  : %d of %d entries\n", hdr.FileCount, hdr.MaxFiles())
	if fs.IsDubious() {
		fmt.Println("Volume is DUBIOUS")
	}
	if fs.Notes().Count() > 0 {
		fmt.Println()
		fmt.Print(fs.Notes().String())
	}

	return 0
}

func shellFree(args []string) int {

	free, err := current().vol.FS.FreeSpace()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return -1
	}
	fmt.Printf("%d bytes (%d blocks) free\n", free, free/pascal.PASCAL_BLOCK_SIZE)

	return 0
}

func fts() string {
	t := time.Now()
	return fmt.Sprintf(
		"%.4d%.2d%.2d%.2d%.2d%.2d",
		t.Year(), t.Month(), t.Day(),
		t.Hour(), t.Minute(), t.Second(),
	)
}

func backupFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	path = strings.Replace(path, ":", "", -1)
	path = strings.Replace(path, "\\", "/", -1)

	bpath := binpath() + "/backup/" + path + "." + fts()
	os.MkdirAll(filepath.Dir(bpath), 0755)

	if err := os.WriteFile(bpath, data, 0644); err != nil {
		return err
	}

	os.Stderr.WriteString("Backed up disk to: " + bpath + "\n")

	return nil
}

func saveDisk(img *disk.Image) error {

	fullpath, _ := filepath.Abs(img.Filename)

	if *noBackup == false {
		backupFile(fullpath)
	}

	if err := img.Save(fullpath); err != nil {
		os.Stderr.WriteString("Save failed: " + err.Error() + "\n")
		return err
	}

	fmt.Println("Updated disk " + fullpath)
	return nil
}

// commit writes pending catalog changes to the image and saves it.
func commit(m *mountedVolume) error {
	if m.vol != nil {
		if err := m.vol.FS.Flush(); err != nil {
			os.Stderr.WriteString("Flush failed: " + err.Error() + "\n")
			return err
		}
	}
	return saveDisk(m.img)
}

func shellPut(args []string) int {

	m := current()
	fs := m.vol.FS

	data, err := os.ReadFile(args[0])
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return -1
	}

	name := filepath.Base(args[0])
	if len(args) > 1 {
		name = args[1]
	}
	name = pascal.AdjustFileName(name)

	ft := pascal.FileType_PAS_DATA
	if *fileType != "" {
		ft = pascal.PascalFileTypeFromExt(*fileType)
	} else if i := strings.LastIndex(name, "."); i >= 0 {
		ft = typeFromSuffix(name[i+1:])
	}

	if ft == pascal.FileType_PAS_TEXT && !*rawText && !pascal.IsTextImage(data) {
		data, err = pascal.PlainToText(data)
		if err != nil {
			os.Stderr.WriteString(args[0] + ": " + err.Error() + "\n")
			return -1
		}
	}

	// the new copy is written under a scratch name so a failed write
	// leaves any existing file alone
	root, _ := fs.VolumeDir()
	e, err := writeNewFile(fs, root, scratchName(fs, root), data, ft)
	if err != nil {
		os.Stderr.WriteString("Unable to write " + name + ": " + err.Error() + "\n")
		return -1
	}

	if existing, err := fs.FindFile(root, name); err == nil {
		if err := fs.DeleteFile(existing); err != nil {
			fs.DeleteFile(e)
			os.Stderr.WriteString("Unable to replace " + name + ": " + err.Error() + "\n")
			return -1
		}
	}
	if err := fs.MoveFile(e, root, name); err != nil {
		os.Stderr.WriteString("Unable to rename to " + name + ": " + err.Error() + "\n")
		commit(m)
		return -1
	}

	fmt.Printf("Wrote %s (%d bytes, %s)\n", name, len(data), ft)
	commit(m)

	return 0

}

func scratchName(fs fsys.FileSystem, root fsys.FileEntry) string {
	for i := 0; ; i++ {
		name := fmt.Sprintf("PUT%d.TMP", i)
		if _, err := fs.FindFile(root, name); err != nil {
			return name
		}
	}
}

// writeNewFile creates name holding data. Nothing is left behind on failure.
func writeNewFile(fs fsys.FileSystem, root fsys.FileEntry, name string, data []byte, ft pascal.PascalFileType) (fsys.FileEntry, error) {

	e, err := fs.CreateFile(root, name, fsys.CreateFile)
	if err != nil {
		return nil, err
	}

	s, err := fs.OpenFile(e, fsys.ReadWrite, fsys.PartData)
	if err != nil {
		fs.DeleteFile(e)
		return nil, err
	}
	if _, err := s.Write(data); err != nil {
		s.Close()
		fs.DeleteFile(e)
		return nil, err
	}
	if err := s.Close(); err != nil {
		fs.DeleteFile(e)
		return nil, err
	}

	if err := e.SetFileType(int(ft)); err != nil {
		fs.DeleteFile(e)
		return nil, err
	}
	if err := e.SaveChanges(); err != nil {
		fs.DeleteFile(e)
		return nil, err
	}

	return e, nil
}

// typeFromSuffix maps the usual filer suffixes, and the short extensions,
// to a file type.
func typeFromSuffix(suffix string) pascal.PascalFileType {
	switch strings.ToUpper(suffix) {
	case "TEXT":
		return pascal.FileType_PAS_TEXT
	case "CODE":
		return pascal.FileType_PAS_CODE
	case "DATA":
		return pascal.FileType_PAS_DATA
	case "INFO":
		return pascal.FileType_PAS_INFO
	case "GRAF":
		return pascal.FileType_PAS_GRAF
	case "FOTO":
		return pascal.FileType_PAS_FOTO
	case "BAD":
		return pascal.FileType_PAS_BADD
	}
	if ft := pascal.PascalFileTypeFromExt(suffix); ft != pascal.FileType_PAS_NONE {
		return ft
	}
	return pascal.FileType_PAS_DATA
}

func shellGet(args []string) int {

	m := current()
	p := m.pascal()

	for _, pattern := range args {

		files, err := p.Glob(pattern)
		if err != nil {
			os.Stderr.WriteString(err.Error() + "\n")
			return -1
		}
		if len(files) == 0 {
			os.Stderr.WriteString("No files match " + pattern + "\n")
			return -1
		}

		for _, f := range files {
			fmt.Printf("Extract: %s ", f)
			if err := extractFile(m.vol.FS, f, f.String()); err != nil {
				fmt.Println("FAILED")
				os.Stderr.WriteString(err.Error() + "\n")
				return -1
			}
			fmt.Println("OK")
		}

	}

	return 0

}

// extractFile copies a file to localPath. TEXT files are converted to plain
// text unless --raw was given.
func extractFile(fs fsys.FileSystem, e fsys.FileEntry, localPath string) error {
	s, err := fs.OpenFile(e, fsys.ReadOnly, fsys.PartData)
	if err != nil {
		return err
	}
	defer s.Close()

	data, err := io.ReadAll(s)
	if err != nil {
		return err
	}

	attrs, err := e.Attrs()
	if err != nil {
		return err
	}
	if pascal.PascalFileType(attrs.FileType) == pascal.FileType_PAS_TEXT && !*rawText {
		data = pascal.TextToPlain(data)
	}

	return os.WriteFile(localPath, data, 0644)
}

func shellDelete(args []string) int {

	m := current()
	fs := m.vol.FS

	root, _ := fs.VolumeDir()
	e, err := fs.FindFile(root, args[0])
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return -1
	}
	if err := fs.DeleteFile(e); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return -1
	}
	commit(m)

	return 0

}

func shellRename(args []string) int {

	m := current()
	fs := m.vol.FS

	root, _ := fs.VolumeDir()
	e, err := fs.FindFile(root, args[0])
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return -1
	}
	if err := fs.MoveFile(e, root, args[1]); err != nil {
		os.Stderr.WriteString("Unable to rename file: " + err.Error() + "\n")
		return -1
	}
	commit(m)

	return 0
}

func shellVolumeName(args []string) int {

	m := current()
	root, _ := m.vol.FS.VolumeDir()

	if err := root.SetFileName(args[0]); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return -1
	}
	if err := root.SaveChanges(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return -1
	}
	hdr := m.pascal().Header()
	fmt.Printf("Volume name is now %s\n", hdr.GetName())
	commit(m)

	return 0

}

func shellFormat(args []string) int {

	m := current()

	name := cfg.Format.VolumeName
	if len(args) > 0 {
		name = args[0]
	}
	boot := cfg.Format.Bootable || *makeBootable
	if len(args) > 1 && strings.ToLower(args[1]) == "boot" {
		boot = true
	}

	var fs fsys.FileSystem
	if m.vol != nil {
		fs = m.vol.FS
		if err := fs.PrepareRawAccess(); err != nil {
			os.Stderr.WriteString(err.Error() + "\n")
			return -1
		}
	} else {
		fs = pascal.New(m.img, loggy.Get(0))
	}

	err := fs.Format(name, 0, boot)
	if m.vol != nil {
		m.vol.Close()
		m.vol = nil
	}
	if err != nil {
		os.Stderr.WriteString("Format failed: " + err.Error() + "\n")
		return -1
	}

	vol, err := openVolume(m.img)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return -1
	}
	m.vol = vol

	fmt.Printf("Formatted /%s\n", strings.ToUpper(name))
	commit(m)

	return 0
}

func shellBlock(args []string) int {

	m := current()

	n, err := strconv.ParseInt(args[0], 0, 32)
	if err != nil || n < 0 {
		os.Stderr.WriteString("Invalid block number: " + args[0] + "\n")
		return -1
	}

	var src disk.BlockSource = m.img
	if m.vol != nil {
		// raw reads only pass the gate in raw mode
		fs := m.vol.FS
		if err := fs.PrepareRawAccess(); err != nil {
			os.Stderr.WriteString(err.Error() + "\n")
			return -1
		}
		defer func() {
			if err := fs.PrepareFileAccess(cfg.Catalog.Scan); err != nil {
				os.Stderr.WriteString(err.Error() + "\n")
			}
		}()
		src = fs.RawAccess()
	}

	buf := make([]byte, disk.BLOCK_SIZE)
	if err := src.ReadBlock(uint(n), buf, 0); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return -1
	}

	fmt.Printf("Block %d:\n", n)
	fmt.Print(hex.Dump(buf))

	return 0
}

func shellReport(args []string) int {

	m := current()

	r, err := report.Build(m.img.Filename, m.img, m.vol.FS)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return -1
	}

	r.LogBitmap(loggy.Get(0))

	enc, err := report.ParseEncoding(cfg.Report.Encoding)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return -1
	}

	if len(args) == 0 {
		if enc == report.CBOR {
			enc = report.YAML
		}
		if err := r.Encode(os.Stdout, enc); err != nil {
			os.Stderr.WriteString(err.Error() + "\n")
			return -1
		}
		return 0
	}

	if strings.EqualFold(filepath.Ext(args[0]), ".cbor") {
		enc = report.CBOR
	}
	if err := r.WriteToFile(args[0], enc); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return -1
	}
	loggy.Get(0).Logf("Created %s", args[0])
	fmt.Printf("Report written to %s\n", args[0])

	return 0
}

const defaultDirFormat = "{filename} {ext} {size:blocks} {date} {blake3}"

func shellDir(args []string) int {

	m := current()

	r, err := report.Build(m.img.Filename, m.img, m.vol.FS)
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return -1
	}

	format := defaultDirFormat
	if len(args) > 0 {
		format = args[0]
	}
	fmt.Print(r.GetDirectory(format))

	return 0
}

func shellCd(args []string) int {

	if len(args) > 0 {
		err := os.Chdir(args[0])
		if err != nil {
			os.Stderr.WriteString("Change directory failed: " + err.Error() + "\n")
			return -1
		}
	}

	wd, _ := os.Getwd()
	os.Stderr.WriteString("Working directory is now " + wd + "\n")
	return 0

}

func shellListFiles(args []string) int {

	if len(args) == 0 {
		wd, _ := os.Getwd()
		args = append(args, wd+"/*")
	}

	for _, a := range args {

		files, err := filepath.Glob(a)
		if err != nil {
			os.Stderr.WriteString("Error reading path " + a + ": " + err.Error() + "\n")
			continue
		}

		fmt.Printf("%6s  %2s  %-23s  %s\n", "BLOCKS", "RO", "KIND", "NAME")
		for _, f := range files {
			locked := " "
			fi, err := os.Stat(f)
			if err != nil {
				continue
			}
			if fi.Mode().Perm()&0200 != 0200 {
				locked = "Y"
			}
			kind := "Local file"
			if fi.IsDir() {
				kind = "Local directory"
			}
			fmt.Printf("%6d  %2s  %-23s  %s\n", (int(fi.Size())+disk.BLOCK_SIZE-1)/disk.BLOCK_SIZE, locked, kind, fi.Name())
		}
	}

	return 0
}
