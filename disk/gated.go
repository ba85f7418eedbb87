package disk

// AccessLevel is how much a caller may touch a source that a filesystem
// driver sits on.
type AccessLevel int

const (
	AccessClosed AccessLevel = iota
	AccessOpen
	AccessReadOnly
	AccessReadWrite
)

func (a AccessLevel) String() string {
	switch a {
	case AccessClosed:
		return "Closed"
	case AccessOpen:
		return "Open"
	case AccessReadOnly:
		return "ReadOnly"
	case AccessReadWrite:
		return "ReadWrite"
	}
	return "Unknown"
}

// GatedSource hands raw block access to callers while the owning driver
// is in raw mode, and refuses it while files are prepared.
type GatedSource struct {
	src   BlockSource
	level AccessLevel
}

func NewGatedSource(src BlockSource) *GatedSource {
	return &GatedSource{src: src, level: AccessOpen}
}

func (g *GatedSource) Level() AccessLevel {
	return g.level
}

// SetLevel is called by the owning driver on every mode change.
func (g *GatedSource) SetLevel(level AccessLevel) {
	g.level = level
}

func (g *GatedSource) ReadBlock(block uint, buf []byte, offset int) error {
	if g.level != AccessOpen {
		return ErrAccessDenied
	}
	return g.src.ReadBlock(block, buf, offset)
}

func (g *GatedSource) WriteBlock(block uint, buf []byte, offset int) error {
	if g.level != AccessOpen {
		return ErrAccessDenied
	}
	if g.src.IsReadOnly() {
		return ErrReadOnly
	}
	return g.src.WriteBlock(block, buf, offset)
}

func (g *GatedSource) FormattedLength() int64 {
	return g.src.FormattedLength()
}

func (g *GatedSource) IsReadOnly() bool {
	return g.src.IsReadOnly() || g.level != AccessOpen
}

func (g *GatedSource) HasBlocks() bool {
	return g.src.HasBlocks()
}

func (g *GatedSource) HasSectors() bool {
	return g.src.HasSectors()
}
