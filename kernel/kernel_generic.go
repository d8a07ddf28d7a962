// +build !amd64 appengine

package kernel

// On non-amd64 targets (and under appengine, which forbids the cpuid
// package's low-level probing) only the portable scalar path is compiled
// in, matching biosimd's !amd64 fallback convention.
func init() {
	accumulate = scalarAccumulate
}
