package kb

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// ResolveWorkRVU returns the entry's work RVU. The simplified work_rvu field wins; otherwise
// the value for the numerically most recent year in rvu_by_year is used. An error describes
// why no usable value exists.
func (e CodeEntry) ResolveWorkRVU() (float64, error) {
	if e.WorkRVU != nil {
		return rvuValue(e.WorkRVU)
	}

	year, latest, found := 0, "", false
	for key := range e.RVUByYear {
		y, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		if !found || y > year {
			year, latest, found = y, key, true
		}
	}
	if !found {
		return 0, fmt.Errorf("no work RVU")
	}
	v, err := rvuValue(e.RVUByYear[latest])
	if err != nil {
		return 0, fmt.Errorf("%s for %d", err, year)
	}
	return v, nil
}

func rvuValue(raw interface{}) (float64, error) {
	var v float64
	switch n := raw.(type) {
	case float64:
		v = n
	case float32:
		v = float64(n)
	case int:
		v = float64(n)
	case int64:
		v = float64(n)
	case uint64:
		v = float64(n)
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("non-numeric work RVU %q", n.String())
		}
		v = f
	case nil:
		return 0, fmt.Errorf("no work RVU")
	default:
		return 0, fmt.Errorf("non-numeric work RVU %v", raw)
	}
	if v < 0 {
		return 0, fmt.Errorf("negative work RVU %v", v)
	}
	return v, nil
}
