package fanout

// Partition splits results into jobs that finished DONE and the rest.
func Partition(results []Result) (done, failed []Result) {
	for _, r := range results {
		if r.Err == nil {
			done = append(done, r)
		} else {
			failed = append(failed, r)
		}
	}
	return done, failed
}

// AllSucceeded checks if every job finished DONE.
func AllSucceeded(results []Result) bool {
	for _, r := range results {
		if r.Err != nil {
			return false
		}
	}
	return true
}

// SuccessCount returns the number of jobs that finished DONE.
func SuccessCount(results []Result) int {
	count := 0
	for _, r := range results {
		if r.Err == nil {
			count++
		}
	}
	return count
}
