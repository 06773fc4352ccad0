package group

import "strings"

// Logical paths use `/` as separator. `.` and `..` are interpreted during
// normalization; extra `..` never climb above the root.

// Normalize resolves `.` and `..` segments of a slash-separated path.
func Normalize(path string) string {
	var slices []string
	for _, slice := range strings.Split(path, "/") {
		switch slice {
		case ".":
		case "..":
			if len(slices) > 0 {
				slices = slices[:len(slices)-1]
			}
		default:
			slices = append(slices, slice)
		}
	}
	return strings.Join(slices, "/")
}

// Resolve applies rel against base's directory. A leading `/` in rel makes
// the result absolute (relative to the root).
func Resolve(base, rel string) string {
	var slices []string
	main := rel
	if strings.HasPrefix(rel, "/") {
		main = rel[1:]
	} else {
		for _, slice := range strings.Split(base, "/") {
			switch slice {
			case ".":
			case "..":
				if len(slices) > 0 {
					slices = slices[:len(slices)-1]
				}
			default:
				slices = append(slices, slice)
			}
		}
	}
	if len(slices) > 0 {
		slices = slices[:len(slices)-1]
	}
	for _, slice := range strings.Split(main, "/") {
		switch slice {
		case ".":
		case "..":
			if len(slices) > 0 {
				slices = slices[:len(slices)-1]
			}
		default:
			slices = append(slices, slice)
		}
	}
	return strings.Join(slices, "/")
}
