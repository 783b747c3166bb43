package hdfskit

// And accepts entries that every filter accepts. Evaluation stops at the
// first rejection or error.
func And(filters ...Filter) Filter {
	return func(p *Path) (bool, error) {
		for _, f := range filters {
			ok, err := f(p)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	}
}

// Or accepts entries that any filter accepts.
func Or(filters ...Filter) Filter {
	return func(p *Path) (bool, error) {
		for _, f := range filters {
			ok, err := f(p)
			if err != nil {
				return false, err
			}
			if ok {
				return true, nil
			}
		}
		return false, nil
	}
}

// Not inverts f. Errors pass through.
func Not(f Filter) Filter {
	return func(p *Path) (bool, error) {
		ok, err := f(p)
		if err != nil {
			return false, err
		}
		return !ok, nil
	}
}

// Visible rejects entries whose name marks them hidden.
func Visible(p *Path) (bool, error) {
	st := FileStatus{Path: p.backendPath()}
	return !st.IsHidden(), nil
}
