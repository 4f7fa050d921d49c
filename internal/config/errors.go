package config

import "fmt"

// InvalidValueError reports a config value the rest of the code cannot work with
type InvalidValueError struct {
	Section string
	Key     string
	Reason  string
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("invalid config value [%s] %s: %s", e.Section, e.Key, e.Reason)
}

func (e *InvalidValueError) Is(target error) bool {
	_, ok := target.(*InvalidValueError)
	return ok
}
