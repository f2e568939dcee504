//go:build amd64

// Package gwarith implements the modular ring arithmetic backend.
// This file provides CPU feature detection for multiplication-core selection
// on amd64.
package gwarith

import (
	"sync"

	"golang.org/x/sys/cpu"
)

// CPU feature flags detected at init time
var (
	// hasAVX2 indicates AVX2 support (256-bit SIMD)
	hasAVX2 bool

	// hasAVX512 indicates AVX-512 support (AVX512F foundation plus AVX512DQ)
	hasAVX512 bool

	// hasBMI2 indicates BMI2 support (MULX, SHRX, etc.)
	hasBMI2 bool

	// hasADX indicates ADX support (ADCX, ADOX for extended precision)
	hasADX bool

	// cpuDetectionOnce ensures CPU detection runs exactly once
	cpuDetectionOnce sync.Once
)

func init() {
	detectCPUFeatures()
}

// detectCPUFeatures detects the CPU capabilities that influence big-integer
// multiplication throughput.
func detectCPUFeatures() {
	cpuDetectionOnce.Do(func() {
		hasAVX2 = cpu.X86.HasAVX2
		hasAVX512 = cpu.X86.HasAVX512F && cpu.X86.HasAVX512DQ
		hasBMI2 = cpu.X86.HasBMI2
		hasADX = cpu.X86.HasADX
	})
}

// mulCoreName names the arithmetic tier the multiplication core runs on,
// reported as part of the transform description.
func mulCoreName() string {
	switch {
	case hasAVX512:
		return "AVX-512"
	case hasAVX2:
		return "AVX2"
	case hasBMI2 || hasADX:
		return "BMI2/ADX"
	default:
		return "portable"
	}
}

// gmpCrossoverWords returns the operand size (in words) above which a GMP
// multiplication core overtakes math/big. math/big's amd64 assembly already
// exploits ADX/BMI2 where present, which pushes the crossover higher on such
// CPUs.
func gmpCrossoverWords() int {
	switch {
	case hasAVX512:
		return 96
	case hasAVX2 && hasADX:
		return 80
	case hasBMI2:
		return 64
	default:
		return 48
	}
}
