package report

import (
	"bytes"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/paleotronic/pascalfs/disk"
	"github.com/paleotronic/pascalfs/fsys"
	"github.com/paleotronic/pascalfs/loggy"
	"github.com/paleotronic/pascalfs/pascal"
)

func quiet() *loggy.Logger {
	return loggy.NewWithOutput(0, io.Discard, logrus.DebugLevel)
}

func sampleVolume(t *testing.T) (*disk.Image, *pascal.Pascal, map[string][]byte) {
	img, err := disk.NewBlankImage(280, disk.SectorOrderProDOS)
	require.NoError(t, err)

	p := pascal.New(img, quiet())
	require.NoError(t, p.Format("REPORT", 0, false))
	require.NoError(t, p.PrepareFileAccess(true))
	t.Cleanup(func() { p.Close() })

	files := map[string][]byte{
		"HELLO.TEXT":  []byte("PROGRAM HELLO;\rBEGIN\r  WRITELN('HI')\rEND.\r"),
		"EMPTY":       nil,
		"LARGER.DATA": bytes.Repeat([]byte{0xa5, 0x5a, 0x00}, 700),
	}
	root, err := p.VolumeDir()
	require.NoError(t, err)
	for _, name := range []string{"HELLO.TEXT", "EMPTY", "LARGER.DATA"} {
		e, err := p.CreateFile(root, name, fsys.CreateFile)
		require.NoError(t, err)
		s, err := p.OpenFile(e, fsys.ReadWrite, fsys.PartData)
		require.NoError(t, err)
		_, err = s.Write(files[name])
		require.NoError(t, err)
		require.NoError(t, s.Close())
	}
	return img, p, files
}

func TestBuild(t *testing.T) {
	img, p, files := sampleVolume(t)

	r, err := Build("sample.po", img, p)
	require.NoError(t, err)

	require.Equal(t, "REPORT", r.VolumeName)
	require.Equal(t, "Apple Pascal", r.Format)
	require.Equal(t, 280, r.Blocks)
	require.Equal(t, img.ChecksumDisk(), r.SHA256)
	require.False(t, r.Dubious)
	require.Empty(t, r.Notes)
	require.Len(t, r.Files, 3)

	fm := r.GetFileMap()
	for name, data := range files {
		f, ok := fm[name]
		require.True(t, ok, name)
		require.Equal(t, int64(len(data)), f.Size, name)
		require.Equal(t, FileDigest(data), f.Digest, name)
		require.Equal(t, "Pascal Data", f.Type)
	}

	require.NotNil(t, r.Usage)
	require.Zero(t, r.Usage.Conflicts)
	require.Len(t, r.Bitmap, 280)
	used := 0
	for _, b := range r.Bitmap {
		if b {
			used++
		}
	}
	require.Equal(t, 280-r.FreeBlocks, used)
	require.NotEmpty(t, r.Active)
}

func TestBuildNeedsPreparedVolume(t *testing.T) {
	img, p, _ := sampleVolume(t)
	require.NoError(t, p.PrepareRawAccess())
	_, err := Build("sample.po", img, p)
	require.ErrorIs(t, err, fsys.ErrInvalidState)
}

func TestEncodings(t *testing.T) {
	img, p, _ := sampleVolume(t)
	r, err := Build("sample.po", img, p)
	require.NoError(t, err)

	for _, enc := range []Encoding{CBOR, YAML} {
		t.Run(string(enc), func(t *testing.T) {
			var first, second bytes.Buffer
			require.NoError(t, r.Encode(&first, enc))
			require.NoError(t, r.Encode(&second, enc))
			require.Equal(t, first.Bytes(), second.Bytes())

			var back Volume
			require.NoError(t, back.Decode(bytes.NewReader(first.Bytes()), enc))
			require.Equal(t, r.VolumeName, back.VolumeName)
			require.Equal(t, r.Bitmap, back.Bitmap)
			require.Equal(t, r.Usage, back.Usage)
			require.Len(t, back.Files, len(r.Files))
			for i := range r.Files {
				require.Equal(t, r.Files[i].Digest, back.Files[i].Digest)
				require.True(t, r.Files[i].Modified.Equal(back.Files[i].Modified))
			}

			path := filepath.Join(t.TempDir(), "out", "report."+string(enc))
			require.NoError(t, r.WriteToFile(path, enc))
			var fromFile Volume
			require.NoError(t, fromFile.ReadFromFile(path, enc))
			require.Equal(t, r.SHA256, fromFile.SHA256)
		})
	}

	_, err = ParseEncoding("json")
	require.Error(t, err)
	enc, err := ParseEncoding("cbor")
	require.NoError(t, err)
	require.Equal(t, CBOR, enc)
}

func TestGetDirectory(t *testing.T) {
	r := &Volume{Files: []*File{
		{Filename: "SYSTEM.PASCAL", Type: "Pascal Code", Size: 1024, Blocks: 2, Start: 6},
		{Filename: "NOTES.TEXT", Type: "Pascal Text", Size: 10, Blocks: 1, Start: 8},
	}}

	out := r.GetDirectory("{filename} {size:blocks} {start}")
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "SYSTEM.PASCAL      2 Blocks     6", lines[0])
	require.Equal(t, "NOTES.TEXT         1 Blocks     8", lines[1])
}

func TestLogBitmap(t *testing.T) {
	var buf bytes.Buffer
	r := &Volume{Bitmap: make([]bool, 20)}
	r.Bitmap[0] = true
	r.Bitmap[17] = true
	r.LogBitmap(loggy.NewWithOutput(0, &buf, logrus.InfoLevel))

	out := buf.String()
	require.Contains(t, out, "Block 0000: 00 :: ")
	require.Contains(t, out, "Block 0010: :: 01 :: ::")
}
