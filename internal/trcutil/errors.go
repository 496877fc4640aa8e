package trcutil

import "strings"

// JoinErrors returns the messages of the non-nil errors joined with "; ", or
// the empty string if there are none.
func JoinErrors(errs ...error) string {
	strs := make([]string, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			strs = append(strs, err.Error())
		}
	}
	return strings.Join(strs, "; ")
}
