package interfaces

// Chunk 按 size 将切片切分为连续的子切片，保持原顺序；size<=0 时整体作为一块
func Chunk[T any](slice []T, size int) [][]T {
	if len(slice) == 0 {
		return nil
	}
	if size <= 0 {
		size = len(slice)
	}
	res := make([][]T, 0, (len(slice)+size-1)/size)
	for start := 0; start < len(slice); start += size {
		end := min(start+size, len(slice))
		res = append(res, slice[start:end:end])
	}
	return res
}
