package db

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

const duplicateKeyCode = 11000

// IsMongoDuplicateKeyError checks if an error from MongoDB is a duplicate key error (code 11000).
func IsMongoDuplicateKeyError(err error) bool {
	var e mongo.WriteException
	if errors.As(err, &e) {
		for _, we := range e.WriteErrors {
			if we.Code == duplicateKeyCode {
				return true
			}
		}
	}
	var cmd mongo.CommandError
	if errors.As(err, &cmd) && cmd.Code == duplicateKeyCode {
		return true
	}
	return false
}

// DuplicateKeyError builds the error the driver returns for a unique index violation.
// In-memory stores use it so callers see the same shape.
func DuplicateKeyError(index string) error {
	return mongo.WriteException{WriteErrors: mongo.WriteErrors{{
		Code:    duplicateKeyCode,
		Message: "E11000 duplicate key error index: " + index,
	}}}
}
