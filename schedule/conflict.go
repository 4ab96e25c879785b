package schedule

// conflicts reports whether a and b conflict (§4.9.2): one writes a
// component the other reads or writes, or one writes a resource the
// other reads or writes.
func conflicts[K comparable](a, b System[K]) bool {
	if writeIntersectsReadWrite(a.Writes(), b.Writes()) || writeIntersectsReadWrite(a.Writes(), b.Reads()) {
		return true
	}
	if writeIntersectsReadWrite(b.Writes(), a.Writes()) || writeIntersectsReadWrite(b.Writes(), a.Reads()) {
		return true
	}
	if stringSetIntersects(a.ResWrites(), b.ResWrites()) || stringSetIntersects(a.ResWrites(), b.ResReads()) {
		return true
	}
	if stringSetIntersects(b.ResWrites(), a.ResWrites()) || stringSetIntersects(b.ResWrites(), a.ResReads()) {
		return true
	}
	return false
}

func writeIntersectsReadWrite[K comparable](writes, other []K) bool {
	if len(writes) == 0 || len(other) == 0 {
		return false
	}
	set := make(map[K]struct{}, len(writes))
	for _, k := range writes {
		set[k] = struct{}{}
	}
	for _, k := range other {
		if _, ok := set[k]; ok {
			return true
		}
	}
	return false
}

func stringSetIntersects(a, b []string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	set := make(map[string]struct{}, len(a))
	for _, s := range a {
		set[s] = struct{}{}
	}
	for _, s := range b {
		if _, ok := set[s]; ok {
			return true
		}
	}
	return false
}

// dependsOn reports whether a's hard-deps name b, directly.
func dependsOn[K comparable](a System[K], bName string) bool {
	for _, d := range a.HardDeps() {
		if d == bName {
			return true
		}
	}
	return false
}
