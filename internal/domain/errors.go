package domain

import "errors"

var ErrRecordNotFound = errors.New("Record not found")
var ErrInsufficientBalance = errors.New("Insufficient balance")
var ErrDuplicateReference = errors.New("Duplicate payment reference")
var ErrUnauthorized = errors.New("Unauthorized")
var ErrLedgerOperation = errors.New("Ledger operation failed")
