package tiling

// An Access is a read of one attribute of one row.
type Access struct {
	Addr uintptr
	Size int
}

// RowMajorTrace lists the accesses of visiting attrs of every row, row by
// row. No attributes means all of them.
func RowMajorTrace(s Store, attrs ...int) []Access {
	attrs = traceAttributes(s, attrs)

	trace := make([]Access, 0, s.RowCapacity()*len(attrs))
	for row := 0; row < s.RowCapacity(); row++ {
		for _, attr := range attrs {
			trace = append(trace, accessAt(s, attr, row))
		}
	}

	return trace
}

// ColumnMajorTrace lists the accesses of visiting attrs of every row, one
// attribute at a time.
func ColumnMajorTrace(s Store, attrs ...int) []Access {
	attrs = traceAttributes(s, attrs)

	trace := make([]Access, 0, s.RowCapacity()*len(attrs))
	for _, attr := range attrs {
		for row := 0; row < s.RowCapacity(); row++ {
			trace = append(trace, accessAt(s, attr, row))
		}
	}

	return trace
}

func traceAttributes(s Store, attrs []int) []int {
	if len(attrs) > 0 {
		for _, attr := range attrs {
			mustCheckIndex(s.Schema(), attr, 0)
		}

		return attrs
	}

	all := make([]int, s.ColumnCount())
	for i := range all {
		all[i] = i
	}

	return all
}

func accessAt(s Store, attr, row int) Access {
	return Access{
		Addr: uintptr(s.pointer(attr, row)),
		Size: int(s.Schema().kinds[attr].Size),
	}
}
