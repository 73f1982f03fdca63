// Copyright 2025 The fawa Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"math"
	"time"

	"github.com/prometheus/procfs"
)

// ProcessStat is a point-in-time view of the process counters the sampler
// cannot get from the Go runtime.
type ProcessStat struct {
	CPUSeconds    float64
	StartTime     time.Time
	ResidentBytes uint64
}

// ProcessReader reads ProcessStat for the current process.
type ProcessReader interface {
	Read() (ProcessStat, error)
}

// procfsReader reads /proc/self. It fails on systems without procfs, which
// the sampler logs and tolerates.
type procfsReader struct{}

func (procfsReader) Read() (ProcessStat, error) {
	p, err := procfs.Self()
	if err != nil {
		return ProcessStat{}, err
	}
	stat, err := p.Stat()
	if err != nil {
		return ProcessStat{}, err
	}
	start, err := stat.StartTime()
	if err != nil {
		return ProcessStat{}, err
	}

	sec, frac := math.Modf(start)
	return ProcessStat{
		CPUSeconds:    stat.CPUTime(),
		StartTime:     time.Unix(int64(sec), int64(frac*1e9)),
		ResidentBytes: uint64(stat.ResidentMemory()),
	}, nil
}
