package avro

import "regexp"

var nameComponentPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validateName checks a single identifier component (not a dotted full-name)
// against the Avro name grammar.
func validateName(name string) error {
	if !nameComponentPattern.MatchString(name) {
		return &InvalidNameError{Name: name}
	}
	return nil
}

// validateNamespace checks a (possibly empty, possibly dot-separated)
// namespace. Each dot-separated component must itself be a valid name.
func validateNamespace(namespace string) error {
	if namespace == "" {
		return nil
	}
	start := 0
	for i := 0; i <= len(namespace); i++ {
		if i == len(namespace) || namespace[i] == '.' {
			if err := validateName(namespace[start:i]); err != nil {
				return &InvalidNameError{Name: namespace}
			}
			start = i + 1
		}
	}
	return nil
}

// fullName computes namespace + "." + name, or just name when namespace is
// empty. If name already contains a dot it is treated as already-qualified.
func fullName(name, namespace string) string {
	if namespace == "" || containsDot(name) {
		return name
	}
	return namespace + "." + name
}

func containsDot(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return true
		}
	}
	return false
}

// splitFullName separates a full-name into its namespace and bare-name parts.
// The namespace is everything up to (and excluding) the last dot.
func splitFullName(full string) (namespace, name string) {
	last := -1
	for i := 0; i < len(full); i++ {
		if full[i] == '.' {
			last = i
		}
	}
	if last < 0 {
		return "", full
	}
	return full[:last], full[last+1:]
}
