package store

import "errors"

var (
	ErrAlertNotFound = errors.New("alert not found")
	ErrRuleNotFound  = errors.New("rule not found")
)
