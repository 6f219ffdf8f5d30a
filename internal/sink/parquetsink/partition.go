package parquetsink

import (
	"fmt"
	"path"
	"sort"
	"strconv"
	"strings"
)

// DefaultPartition names the directory for null or empty partition values.
const DefaultPartition = "__HIVE_DEFAULT_PARTITION__"

// partition is one hive directory and the table rows that belong in it, in
// table order.
type partition struct {
	dir  string
	rows []int
}

// splitPartitions groups row indexes by their partition directory
// (key=value/key=value). Directories are returned sorted. Without partition
// columns, or without rows, everything lands in a single partition with an
// empty dir so the table still gets a file carrying its schema.
func splitPartitions(names []string, idx []int, rows [][]any) []partition {
	if len(idx) == 0 || len(rows) == 0 {
		all := make([]int, len(rows))
		for i := range rows {
			all[i] = i
		}
		return []partition{{rows: all}}
	}

	byDir := map[string]*partition{}
	var dirs []string
	segs := make([]string, len(idx))
	for r, row := range rows {
		for i, ci := range idx {
			segs[i] = names[i] + "=" + escapeValue(formatValue(row[ci]))
		}
		dir := path.Join(segs...)
		p, ok := byDir[dir]
		if !ok {
			p = &partition{dir: dir}
			byDir[dir] = p
			dirs = append(dirs, dir)
		}
		p.rows = append(p.rows, r)
	}
	sort.Strings(dirs)
	out := make([]partition, len(dirs))
	for i, d := range dirs {
		out[i] = *byDir[d]
	}
	return out
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// escapeValue percent-encodes characters that cannot appear in a hive
// partition directory name.
func escapeValue(s string) string {
	if s == "" {
		return DefaultPartition
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if needsEscape(c) {
			fmt.Fprintf(&sb, "%%%02X", c)
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

func needsEscape(c byte) bool {
	if c < 0x20 || c == 0x7f {
		return true
	}
	return strings.IndexByte("\"#%'*/:=?\\{[]^", c) >= 0
}
