package bounds

import "strings"

const commonSubsequencePercMatch = 80

var (
	lengthPrefixes   = [...]string{"len", "count", "size", "num", "siz"}
	lengthSubstrings = [...]string{"length"}
)

// HasNameMatch reports whether the length variable's name starts with the
// pointer's name, as in `data` and `data_len`.
func HasNameMatch(ptrName, lenName string) bool {
	return strings.HasPrefix(lenName, ptrName)
}

// NameSubStringMatch reports whether the longest common subsequence of the
// two (lower-cased) names covers at least 80% of the pointer's name.
func NameSubStringMatch(ptrName, lenName string) bool {
	ptrName, lenName = strings.ToLower(ptrName), strings.ToLower(lenName)
	if ptrName == "" {
		return false
	}
	n := LongestCommonSubsequence(ptrName, lenName)
	return n > 0 && n*100 >= commonSubsequencePercMatch*len(ptrName)
}

// FieldNameMatch reports whether a name looks like a length: it starts with
// one of the length prefixes or contains "length".
func FieldNameMatch(name string) bool {
	name = strings.ToLower(name)
	for _, p := range lengthPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	for _, s := range lengthSubstrings {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

// HasLengthKeyword reports whether any length keyword occurs anywhere in
// name.
func HasLengthKeyword(name string) bool {
	name = strings.ToLower(name)
	for _, p := range lengthPrefixes {
		if strings.Contains(name, p) {
			return true
		}
	}
	for _, s := range lengthSubstrings {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

func LongestCommonSubsequence(a, b string) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for i := 1; i <= len(a); i++ {
		for j := 1; j <= len(b); j++ {
			switch {
			case a[i-1] == b[j-1]:
				cur[j] = prev[j-1] + 1
			case prev[j] >= cur[j-1]:
				cur[j] = prev[j]
			default:
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}
