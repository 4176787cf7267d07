// Package sysinfo samples live process and host metrics. On Linux the values
// come from /proc via procfs; elsewhere memory falls back to the Go runtime
// and host-only fields are left nil.
//
// Every call reads fresh values; nothing is cached between calls.
package sysinfo

import (
	"os"
	"runtime"
	"runtime/metrics"
	"time"

	"github.com/prometheus/procfs"
)

// Memory is process memory in bytes.
type Memory struct {
	Current uint64
	Peak    uint64
}

// Host describes the machine the process runs on. Pointer fields are nil
// when the platform cannot report them.
type Host struct {
	Hostname    string
	OS          string
	Arch        string
	Uptime      *float64
	LoadAverage *[3]float64
}

type Sampler struct {
	fs    procfs.FS
	hasFS bool
	now   func() time.Time
}

// New returns a Sampler rooted at the default /proc mount. A missing /proc is
// not an error; the sampler degrades to runtime-only values.
func New() *Sampler {
	s := &Sampler{now: time.Now}
	if fs, err := procfs.NewDefaultFS(); err == nil {
		s.fs, s.hasFS = fs, true
	}
	return s
}

// NewWithRoot reads from an alternate procfs mount, mostly for tests.
func NewWithRoot(mount string) (*Sampler, error) {
	fs, err := procfs.NewFS(mount)
	if err != nil {
		return nil, err
	}
	return &Sampler{fs: fs, hasFS: true, now: time.Now}, nil
}

// Memory reports resident set size and its high-water mark. Without procfs,
// Current is the Go runtime's mapped memory and Peak equals Current.
func (s *Sampler) Memory() Memory {
	if s.hasFS {
		if p, err := s.fs.Self(); err == nil {
			if st, err := p.NewStatus(); err == nil && st.VmRSS > 0 {
				peak := st.VmHWM
				if peak < st.VmRSS {
					peak = st.VmRSS
				}
				return Memory{Current: st.VmRSS, Peak: peak}
			}
		}
	}
	cur := runtimeMemory()
	return Memory{Current: cur, Peak: cur}
}

func (s *Sampler) Host() Host {
	h := Host{OS: runtime.GOOS, Arch: runtime.GOARCH}
	if name, err := os.Hostname(); err == nil {
		h.Hostname = name
	}
	if !s.hasFS {
		return h
	}
	if la, err := s.fs.LoadAvg(); err == nil {
		h.LoadAverage = &[3]float64{la.Load1, la.Load5, la.Load15}
	}
	if st, err := s.fs.Stat(); err == nil && st.BootTime > 0 {
		up := s.now().Sub(time.Unix(int64(st.BootTime), 0)).Seconds()
		if up >= 0 {
			h.Uptime = &up
		}
	}
	return h
}

var runtimeSamples = []string{
	"/memory/classes/total:bytes",
	"/memory/classes/heap/released:bytes",
}

// runtimeMemory is memory mapped by the Go runtime minus what has been
// returned to the OS.
func runtimeMemory() uint64 {
	samples := make([]metrics.Sample, len(runtimeSamples))
	for i, name := range runtimeSamples {
		samples[i].Name = name
	}
	metrics.Read(samples)

	var total, released uint64
	if samples[0].Value.Kind() == metrics.KindUint64 {
		total = samples[0].Value.Uint64()
	}
	if samples[1].Value.Kind() == metrics.KindUint64 {
		released = samples[1].Value.Uint64()
	}
	if released > total {
		return 0
	}
	return total - released
}
