package device

// PrefixSum computes the exclusive prefix sum of counts and its grand total.
// offsets[i] is the write position reserved for producer i; total is the
// exact buffer size the next stage must allocate.
func PrefixSum(counts []uint32) (offsets []uint32, total uint32) {
	offsets = make([]uint32, len(counts))
	for i, c := range counts {
		offsets[i] = total
		total += c
	}
	return offsets, total
}
