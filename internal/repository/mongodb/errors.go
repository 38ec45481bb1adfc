package mongodb

import (
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
)

// ErrNotFound indicates the requested document does not exist.
var ErrNotFound = errors.New("document not found")

// ErrDuplicate indicates a unique index rejected the write.
var ErrDuplicate = errors.New("duplicate key")

func mapWriteError(err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}
