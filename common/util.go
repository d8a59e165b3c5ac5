package common

func PanicIfErr(err error) {
	if err != nil {
		panic(err)
	}
}

// ChunksInt splits arr into chunks of chunkSize. The last chunk might be
// smaller.
func ChunksInt(arr []int, chunkSize int) [][]int {
	res := make([][]int, 0)
	for i := 0; i < len(arr); i += chunkSize {
		end := i + chunkSize
		if end > len(arr) {
			end = len(arr)
		}
		res = append(res, arr[i:end])
	}
	return res
}
