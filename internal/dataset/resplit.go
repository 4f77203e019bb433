package dataset

import (
	"sort"

	"Go2FlowText/internal/model"
)

// ResplitByLabel groups rows by integer label and splits every group with
// Split, concatenating the groups in ascending label order.
func ResplitByLabel(rows []model.DatasetRow) (train, val, test []model.DatasetRow) {
	groups := make(map[int][]model.DatasetRow)
	for _, row := range rows {
		groups[row.Label] = append(groups[row.Label], row)
	}
	labels := make([]int, 0, len(groups))
	for l := range groups {
		labels = append(labels, l)
	}
	sort.Ints(labels)

	for _, l := range labels {
		tr, va, te := Split(groups[l])
		train = append(train, tr...)
		val = append(val, va...)
		test = append(test, te...)
	}
	return train, val, test
}
