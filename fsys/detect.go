package fsys

import (
	"sync"

	"github.com/paleotronic/pascalfs/disk"
	"github.com/paleotronic/pascalfs/loggy"
)

type TestResult int

const (
	No TestResult = iota
	Yes
)

func (r TestResult) String() string {
	if r == Yes {
		return "Yes"
	}
	return "No"
}

// Driver describes a filesystem implementation. Test must not modify the
// source and must not panic.
type Driver struct {
	Name string
	Test func(src disk.BlockSource, log *loggy.Logger) TestResult
	New  func(src disk.BlockSource, log *loggy.Logger) FileSystem
}

var (
	driversMu sync.Mutex
	drivers   []Driver
)

// Register adds a driver. Drivers are tried in registration order.
func Register(d Driver) {
	driversMu.Lock()
	defer driversMu.Unlock()
	for i, e := range drivers {
		if e.Name == d.Name {
			drivers[i] = d
			return
		}
	}
	drivers = append(drivers, d)
}

func Drivers() []Driver {
	driversMu.Lock()
	defer driversMu.Unlock()
	out := make([]Driver, len(drivers))
	copy(out, drivers)
	return out
}

// Identify returns the first registered driver that recognizes src.
func Identify(src disk.BlockSource, log *loggy.Logger) (Driver, bool) {
	for _, d := range Drivers() {
		if safeTest(d, src, log) == Yes {
			return d, true
		}
	}
	return Driver{}, false
}

func safeTest(d Driver, src disk.BlockSource, log *loggy.Logger) (res TestResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("%s detection panicked: %v", d.Name, r)
			res = No
		}
	}()
	return d.Test(src, log)
}
