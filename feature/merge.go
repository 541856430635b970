package feature

// Merge 以 key 左连接两张属性表：保留 left 的全部行，right 中没有匹配的填空串；
// right 中有多行匹配时输出多行。两侧同名的非 key 列分别加 _x / _y 后缀。
func Merge(left, right *AttributeTable, key string) (*AttributeTable, error) {
	lk, err := left.Index(key)
	if err != nil {
		return nil, err
	}
	rk, err := right.Index(key)
	if err != nil {
		return nil, err
	}

	leftNames := make(map[string]struct{}, len(left.Header))
	for _, h := range left.Header {
		leftNames[h] = struct{}{}
	}
	rightNames := make(map[string]struct{}, len(right.Header))
	for _, h := range right.Header {
		rightNames[h] = struct{}{}
	}

	out := &AttributeTable{}
	for _, h := range left.Header {
		if _, dup := rightNames[h]; dup && h != key {
			h += "_x"
		}
		out.Header = append(out.Header, h)
	}
	var rcols []int
	for i, h := range right.Header {
		if i == rk {
			continue
		}
		if _, dup := leftNames[h]; dup {
			h += "_y"
		}
		rcols = append(rcols, i)
		out.Header = append(out.Header, h)
	}

	index := make(map[string][]int)
	for r, rec := range right.Records {
		index[rec[rk]] = append(index[rec[rk]], r)
	}
	for _, rec := range left.Records {
		matches := index[rec[lk]]
		if len(matches) == 0 {
			row := append(append([]string(nil), rec...), make([]string, len(rcols))...)
			out.Records = append(out.Records, row)
			continue
		}
		for _, m := range matches {
			row := append([]string(nil), rec...)
			for _, c := range rcols {
				row = append(row, right.Records[m][c])
			}
			out.Records = append(out.Records, row)
		}
	}
	return out, nil
}
